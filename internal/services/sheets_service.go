package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"livey-backend/internal/errs"
	"livey-backend/internal/models"
	"livey-backend/internal/repository"
)

// Callback outcomes, passed to the frontend as the sheets_error query value.
const (
	CallbackAccessDenied     = "access_denied"
	CallbackInvalid          = "invalid_callback"
	CallbackInvalidState     = "invalid_state"
	CallbackNoRefreshToken   = "no_refresh_token"
	CallbackConnectionFailed = "connection_failed"
	CallbackSaveFailed       = "save_failed"
)

const (
	msgNoConnection     = "Google Sheets not connected"
	msgConnectionOK     = "Connection successful"
	msgDisconnected     = "Google Sheets disconnected"
	DefaultSheetsTitle  = "Livey Orders"
	defaultStatusPrompt = "Connect Google Sheets to sync your orders automatically"
)

// CallbackParams is what the provider redirect carries.
type CallbackParams struct {
	Code  string
	State string
	Error string
}

// SheetsService drives the seller's spreadsheet connection lifecycle.
type SheetsService struct {
	connections repository.ConnectionRepository
	orders      repository.OrderRepository
	auth        AuthProvider
	sheets      SheetsProvider
	cipher      TokenCipher
	tokens      *TokenManager
	title       string
	now         func() time.Time
	log         *zap.Logger
}

func NewSheetsService(
	connections repository.ConnectionRepository,
	orders repository.OrderRepository,
	auth AuthProvider,
	sheets SheetsProvider,
	cipher TokenCipher,
	tokens *TokenManager,
	title string,
	log *zap.Logger,
) *SheetsService {
	if title == "" {
		title = DefaultSheetsTitle
	}
	return &SheetsService{
		connections: connections,
		orders:      orders,
		auth:        auth,
		sheets:      sheets,
		cipher:      cipher,
		tokens:      tokens,
		title:       title,
		now:         time.Now,
		log:         log,
	}
}

// Connect returns the consent URL for sellerID.
func (s *SheetsService) Connect(ctx context.Context, sellerID uuid.UUID) (string, error) {
	return s.auth.AuthURL(ctx, sellerID)
}

// CompleteAuthorization finishes the OAuth flow and returns "" on success or
// one of the Callback* markers.
func (s *SheetsService) CompleteAuthorization(ctx context.Context, p CallbackParams) string {
	if p.Error != "" {
		s.log.Info("sheets authorization denied", zap.String("error", p.Error))
		return CallbackAccessDenied
	}
	if p.Code == "" || p.State == "" {
		return CallbackInvalid
	}

	sellerID, ok, err := s.auth.ValidateState(ctx, p.State)
	if err != nil {
		s.log.Error("oauth state lookup failed", zap.Error(err))
		return CallbackInvalidState
	}
	if !ok {
		return CallbackInvalidState
	}

	tok, err := s.auth.ExchangeCode(ctx, p.Code)
	if errors.Is(err, errs.ErrNoRefreshToken) {
		s.log.Warn("no refresh token returned", zap.String("seller_id", sellerID.String()))
		return CallbackNoRefreshToken
	}
	if err != nil {
		s.log.Error("oauth code exchange failed", zap.String("seller_id", sellerID.String()), zap.Error(err))
		return CallbackConnectionFailed
	}

	sheet, err := s.sheets.CreateSpreadsheet(ctx, tok.AccessToken, s.title)
	if err != nil {
		s.log.Error("spreadsheet creation failed", zap.String("seller_id", sellerID.String()), zap.Error(err))
		return CallbackConnectionFailed
	}

	sealed, err := s.cipher.Encrypt(tok.RefreshToken)
	if err != nil {
		s.log.Error("failed to encrypt refresh token", zap.Error(err))
		return CallbackSaveFailed
	}

	expiry := tok.Expiry
	if expiry.IsZero() {
		expiry = s.now().Add(defaultTokenLifetime)
	}

	conn := &models.SheetsConnection{
		SellerID:              sellerID,
		SpreadsheetID:         sheet.ID,
		SpreadsheetURL:        sheet.URL,
		RefreshTokenEncrypted: sealed,
		AccessToken:           tok.AccessToken,
		TokenExpiresAt:        expiry,
	}
	if err := s.connections.Upsert(ctx, conn); err != nil {
		s.log.Error("failed to save sheets connection", zap.String("seller_id", sellerID.String()), zap.Error(err))
		return CallbackSaveFailed
	}

	s.log.Info("sheets connected",
		zap.String("seller_id", sellerID.String()), zap.String("spreadsheet_id", sheet.ID))
	return ""
}

func (s *SheetsService) Status(ctx context.Context, sellerID uuid.UUID) (*models.SheetsStatusResponse, error) {
	conn, err := s.connections.GetBySeller(ctx, sellerID)
	if errors.Is(err, errs.ErrNotFound) {
		return &models.SheetsStatusResponse{Connected: false, Message: defaultStatusPrompt}, nil
	}
	if err != nil {
		return nil, err
	}

	pending, err := s.orders.CountUnsynced(ctx, sellerID)
	if err != nil {
		return nil, err
	}

	connectedAt := conn.ConnectedAt
	return &models.SheetsStatusResponse{
		Connected:        true,
		SpreadsheetID:    conn.SpreadsheetID,
		SpreadsheetURL:   conn.SpreadsheetURL,
		ConnectedAt:      &connectedAt,
		LastSyncAt:       conn.LastSyncAt,
		PendingSyncCount: pending,
	}, nil
}

// Test checks the spreadsheet is reachable. A revoked grant or a deleted
// spreadsheet removes the connection; the returned error keeps its kind.
func (s *SheetsService) Test(ctx context.Context, sellerID uuid.UUID) (*models.SheetsTestResponse, error) {
	conn, err := s.connections.GetBySeller(ctx, sellerID)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, errs.WithMessage(errs.ErrNotFound, msgNoConnection)
	}
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.AccessToken(ctx, conn)
	if err != nil {
		s.dropIfPermanent(ctx, sellerID, err)
		return nil, err
	}

	title, err := s.sheets.TestConnection(ctx, token, conn.SpreadsheetID)
	if err != nil {
		s.dropIfPermanent(ctx, sellerID, err)
		return nil, err
	}

	return &models.SheetsTestResponse{
		Success:          true,
		Message:          msgConnectionOK,
		SpreadsheetID:    conn.SpreadsheetID,
		SpreadsheetTitle: title,
	}, nil
}

// Disconnect revokes the grant best-effort and deletes the connection.
func (s *SheetsService) Disconnect(ctx context.Context, sellerID uuid.UUID) (*models.SuccessResponse, error) {
	conn, err := s.connections.GetBySeller(ctx, sellerID)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, errs.WithMessage(errs.ErrNotFound, msgNoConnection)
	}
	if err != nil {
		return nil, err
	}

	if refresh, err := s.cipher.Decrypt(conn.RefreshTokenEncrypted); err != nil {
		s.log.Warn("token revoke failed", zap.String("seller_id", sellerID.String()), zap.Error(err))
	} else if err := s.auth.RevokeToken(ctx, refresh); err != nil {
		s.log.Warn("token revoke failed", zap.String("seller_id", sellerID.String()), zap.Error(err))
	}

	if err := s.connections.DeleteBySeller(context.WithoutCancel(ctx), sellerID); err != nil {
		return nil, err
	}

	s.log.Info("sheets disconnected", zap.String("seller_id", sellerID.String()))
	return &models.SuccessResponse{Success: true, Message: msgDisconnected}, nil
}

func (s *SheetsService) dropIfPermanent(ctx context.Context, sellerID uuid.UUID, cause error) {
	if !errs.IsPermanent(cause) {
		return
	}
	kind, _ := errs.KindOf(cause)
	if err := s.connections.DeleteBySeller(context.WithoutCancel(ctx), sellerID); err != nil {
		s.log.Error("failed to remove unusable sheets connection",
			zap.String("seller_id", sellerID.String()), zap.Error(err))
		return
	}
	s.log.Warn("sheets connection removed", zap.String("seller_id", sellerID.String()), zap.Stringer("reason", kind))
}
