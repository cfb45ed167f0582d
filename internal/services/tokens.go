package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"livey-backend/internal/errs"
	"livey-backend/internal/models"
	"livey-backend/internal/repository"
)

// defaultTokenLifetime is assumed when the provider omits expires_in.
const defaultTokenLifetime = time.Hour

// TokenManager hands out a usable access token for a sheet connection,
// refreshing and persisting it when the cached one has expired.
type TokenManager struct {
	connections repository.ConnectionRepository
	auth        AuthProvider
	cipher      TokenCipher
	now         func() time.Time
	log         *zap.Logger
}

func NewTokenManager(connections repository.ConnectionRepository, auth AuthProvider, cipher TokenCipher, log *zap.Logger) *TokenManager {
	return &TokenManager{connections: connections, auth: auth, cipher: cipher, now: time.Now, log: log}
}

// AccessToken returns conn's cached token, or a fresh one. conn is updated in place.
// Concurrent refreshes for the same seller are harmless; the last write wins.
func (m *TokenManager) AccessToken(ctx context.Context, conn *models.SheetsConnection) (string, error) {
	now := m.now()
	if !conn.AccessTokenExpired(now) {
		return conn.AccessToken, nil
	}

	refresh, err := m.cipher.Decrypt(conn.RefreshTokenEncrypted)
	if err != nil {
		return "", fmt.Errorf("decrypt refresh token: %w", err)
	}

	tok, err := m.auth.RefreshAccessToken(ctx, refresh)
	if err != nil {
		if k, _ := errs.KindOf(err); k == errs.KindRevoked {
			m.log.Warn("refresh token revoked", zap.String("seller_id", conn.SellerID.String()))
		}
		return "", err
	}

	expiry := tok.Expiry
	if expiry.IsZero() {
		expiry = now.Add(defaultTokenLifetime)
	}

	var rotated string
	if tok.RefreshToken != "" {
		if rotated, err = m.cipher.Encrypt(tok.RefreshToken); err != nil {
			m.log.Warn("failed to encrypt rotated refresh token", zap.Error(err))
			rotated = ""
		}
	}

	if err := m.connections.UpdateTokens(ctx, conn.SellerID, tok.AccessToken, expiry, rotated); err != nil {
		m.log.Warn("failed to persist refreshed access token",
			zap.String("seller_id", conn.SellerID.String()), zap.Error(err))
	}

	conn.AccessToken = tok.AccessToken
	conn.TokenExpiresAt = expiry
	m.log.Info("access token refreshed", zap.String("seller_id", conn.SellerID.String()))
	return tok.AccessToken, nil
}
