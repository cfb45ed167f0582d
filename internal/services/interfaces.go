package services

import (
	"context"

	"github.com/google/uuid"

	"livey-backend/internal/google"
	"livey-backend/internal/models"
)

// AuthProvider is the OAuth side of the spreadsheet provider.
type AuthProvider interface {
	AuthURL(ctx context.Context, sellerID uuid.UUID) (string, error)
	ValidateState(ctx context.Context, state string) (uuid.UUID, bool, error)
	ExchangeCode(ctx context.Context, code string) (*google.Tokens, error)
	RefreshAccessToken(ctx context.Context, refreshToken string) (*google.Tokens, error)
	RevokeToken(ctx context.Context, token string) error
}

// SheetsProvider writes to and inspects a seller's spreadsheet.
type SheetsProvider interface {
	CreateSpreadsheet(ctx context.Context, accessToken, title string) (*google.Spreadsheet, error)
	AppendOrderRow(ctx context.Context, accessToken, spreadsheetID string, o *models.Order) (int, error)
	TestConnection(ctx context.Context, accessToken, spreadsheetID string) (string, error)
}

// TokenCipher seals refresh tokens at rest.
type TokenCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// Syncer mirrors one order into its seller's spreadsheet.
type Syncer interface {
	SyncOrder(ctx context.Context, o *models.Order) error
}

// SyncQueue accepts orders for background sync. Enqueue never blocks.
type SyncQueue interface {
	Enqueue(o models.Order) bool
}
