// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"livey-backend/internal/models"
)

// OrderRepository persists orders and their sheet sync state.
type OrderRepository interface {
	// Create inserts o and fills its ID and CreatedAt. A duplicate order number yields errs.ErrAlreadyExists.
	Create(ctx context.Context, o *models.Order) error
	// GetForSeller loads an order owned by sellerID.
	GetForSeller(ctx context.Context, sellerID, id uuid.UUID) (*models.Order, error)
	// ListForSeller returns a page of the seller's orders, newest first, and the total count.
	ListForSeller(ctx context.Context, sellerID uuid.UUID, limit, offset int) ([]models.Order, int, error)
	// UpdateStatus sets the status of an order owned by sellerID and returns the updated row.
	UpdateStatus(ctx context.Context, sellerID, id uuid.UUID, status models.OrderStatus) (*models.Order, error)
	// MarkSynced records a successful append. A zero row is stored as unknown.
	MarkSynced(ctx context.Context, id uuid.UUID, row int) error
	// MarkSyncFailed leaves the order unsynced and bumps its retry counter by one.
	MarkSyncFailed(ctx context.Context, id uuid.UUID) error
	// ListUnsynced returns up to limit unsynced orders under maxRetries, oldest first.
	ListUnsynced(ctx context.Context, maxRetries, limit int) ([]models.Order, error)
	// CountUnsynced counts the seller's orders still waiting for a sheet row.
	CountUnsynced(ctx context.Context, sellerID uuid.UUID) (int, error)
}

// ProductRepository exposes the product fields the order flow snapshots.
type ProductRepository interface {
	// GetActive loads a product that is not soft-deleted.
	GetActive(ctx context.Context, id uuid.UUID) (*models.Product, error)
	// DecrementStock lowers tracked stock by up to qty and returns how many units
	// it took. With strict set, it takes all of qty or returns errs.ErrOutOfStock.
	DecrementStock(ctx context.Context, id uuid.UUID, qty int, strict bool) (int, error)
	// RestoreStock adds qty back to tracked stock.
	RestoreStock(ctx context.Context, id uuid.UUID, qty int) error
}

// ConnectionRepository stores one sheet connection per seller.
type ConnectionRepository interface {
	GetBySeller(ctx context.Context, sellerID uuid.UUID) (*models.SheetsConnection, error)
	// Upsert creates or replaces the seller's connection.
	Upsert(ctx context.Context, c *models.SheetsConnection) error
	// UpdateTokens caches a fresh access token. An empty refreshEncrypted keeps the stored one.
	UpdateTokens(ctx context.Context, sellerID uuid.UUID, accessToken string, expiresAt time.Time, refreshEncrypted string) error
	TouchLastSync(ctx context.Context, sellerID uuid.UUID, at time.Time) error
	DeleteBySeller(ctx context.Context, sellerID uuid.UUID) error
}
