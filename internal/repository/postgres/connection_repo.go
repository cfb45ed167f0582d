package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"livey-backend/internal/errs"
	"livey-backend/internal/models"
)

// ConnectionRepo implements repository.ConnectionRepository using PostgreSQL.
type ConnectionRepo struct{ db *DB }

func NewConnectionRepo(db *DB) *ConnectionRepo { return &ConnectionRepo{db: db} }

func (r *ConnectionRepo) GetBySeller(ctx context.Context, sellerID uuid.UUID) (*models.SheetsConnection, error) {
	const q = `SELECT id, seller_id, spreadsheet_id, spreadsheet_url, refresh_token_encrypted, access_token, token_expires_at, connected_at, last_sync_at
FROM google_sheets_connections WHERE seller_id=$1`

	var c models.SheetsConnection
	err := r.db.Pool.QueryRow(ctx, q, sellerID).Scan(
		&c.ID, &c.SellerID, &c.SpreadsheetID, &c.SpreadsheetURL, &c.RefreshTokenEncrypted,
		&c.AccessToken, &c.TokenExpiresAt, &c.ConnectedAt, &c.LastSyncAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get sheets connection: %w", err)
	}
	return &c, nil
}

// Upsert replaces any previous connection for the seller. A reconnect resets
// connected_at and clears last_sync_at.
func (r *ConnectionRepo) Upsert(ctx context.Context, c *models.SheetsConnection) error {
	const q = `INSERT INTO google_sheets_connections (seller_id, spreadsheet_id, spreadsheet_url, refresh_token_encrypted, access_token, token_expires_at, connected_at)
VALUES ($1, $2, $3, $4, $5, $6, now())
ON CONFLICT (seller_id) DO UPDATE SET
  spreadsheet_id = EXCLUDED.spreadsheet_id,
  spreadsheet_url = EXCLUDED.spreadsheet_url,
  refresh_token_encrypted = EXCLUDED.refresh_token_encrypted,
  access_token = EXCLUDED.access_token,
  token_expires_at = EXCLUDED.token_expires_at,
  connected_at = now(),
  last_sync_at = NULL
RETURNING id, connected_at`

	err := r.db.Pool.QueryRow(ctx, q,
		c.SellerID, c.SpreadsheetID, c.SpreadsheetURL, c.RefreshTokenEncrypted, c.AccessToken, c.TokenExpiresAt,
	).Scan(&c.ID, &c.ConnectedAt)
	if err != nil {
		return fmt.Errorf("upsert sheets connection: %w", err)
	}
	c.LastSyncAt = nil
	return nil
}

func (r *ConnectionRepo) UpdateTokens(ctx context.Context, sellerID uuid.UUID, accessToken string, expiresAt time.Time, refreshEncrypted string) error {
	const q = `UPDATE google_sheets_connections
SET access_token=$2, token_expires_at=$3, refresh_token_encrypted=COALESCE(NULLIF($4, ''), refresh_token_encrypted)
WHERE seller_id=$1`
	if _, err := r.db.Pool.Exec(ctx, q, sellerID, accessToken, expiresAt, refreshEncrypted); err != nil {
		return fmt.Errorf("update sheets tokens: %w", err)
	}
	return nil
}

func (r *ConnectionRepo) TouchLastSync(ctx context.Context, sellerID uuid.UUID, at time.Time) error {
	const q = `UPDATE google_sheets_connections SET last_sync_at=$2 WHERE seller_id=$1`
	if _, err := r.db.Pool.Exec(ctx, q, sellerID, at); err != nil {
		return fmt.Errorf("touch last sync: %w", err)
	}
	return nil
}

func (r *ConnectionRepo) DeleteBySeller(ctx context.Context, sellerID uuid.UUID) error {
	const q = `DELETE FROM google_sheets_connections WHERE seller_id=$1`
	if _, err := r.db.Pool.Exec(ctx, q, sellerID); err != nil {
		return fmt.Errorf("delete sheets connection: %w", err)
	}
	return nil
}
