package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"livey-backend/internal/errs"
	"livey-backend/internal/models"
)

const orderColumns = `id, order_number, seller_id, product_id, session_id, product_name, product_price, quantity, total_price, customer_name, customer_phone, customer_address, status, google_sheets_synced, google_sheets_row_number, sync_retry_count, created_at, updated_at`

// OrderRepo implements repository.OrderRepository using PostgreSQL.
type OrderRepo struct{ db *DB }

func NewOrderRepo(db *DB) *OrderRepo { return &OrderRepo{db: db} }

func scanOrder(row scanner) (*models.Order, error) {
	var (
		o      models.Order
		status string
	)
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.SellerID, &o.ProductID, &o.SessionID,
		&o.ProductName, &o.ProductPrice, &o.Quantity, &o.TotalPrice,
		&o.CustomerName, &o.CustomerPhone, &o.CustomerAddress, &status,
		&o.Synced, &o.SheetRowNumber, &o.SyncRetryCount, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.Status = models.OrderStatus(status)
	return &o, nil
}

func (r *OrderRepo) Create(ctx context.Context, o *models.Order) error {
	const q = `INSERT INTO orders (order_number, seller_id, product_id, session_id, product_name, product_price, quantity, total_price, customer_name, customer_phone, customer_address, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING id, created_at`

	err := r.db.Pool.QueryRow(ctx, q,
		o.OrderNumber, o.SellerID, o.ProductID, o.SessionID, o.ProductName, o.ProductPrice,
		o.Quantity, o.TotalPrice, o.CustomerName, o.CustomerPhone, o.CustomerAddress, string(o.Status),
	).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return errs.ErrAlreadyExists
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *OrderRepo) GetForSeller(ctx context.Context, sellerID, id uuid.UUID) (*models.Order, error) {
	const q = `SELECT ` + orderColumns + ` FROM orders WHERE id=$1 AND seller_id=$2`
	o, err := scanOrder(r.db.Pool.QueryRow(ctx, q, id, sellerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

func (r *OrderRepo) ListForSeller(ctx context.Context, sellerID uuid.UUID, limit, offset int) ([]models.Order, int, error) {
	const count = `SELECT count(*) FROM orders WHERE seller_id=$1`
	var total int
	if err := r.db.Pool.QueryRow(ctx, count, sellerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	const q = `SELECT ` + orderColumns + ` FROM orders WHERE seller_id=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	orders, err := r.list(ctx, q, sellerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *OrderRepo) UpdateStatus(ctx context.Context, sellerID, id uuid.UUID, status models.OrderStatus) (*models.Order, error) {
	const q = `UPDATE orders SET status=$3, updated_at=now() WHERE id=$1 AND seller_id=$2 RETURNING ` + orderColumns
	o, err := scanOrder(r.db.Pool.QueryRow(ctx, q, id, sellerID, string(status)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	return o, nil
}

func (r *OrderRepo) MarkSynced(ctx context.Context, id uuid.UUID, row int) error {
	const q = `UPDATE orders SET google_sheets_synced=true, google_sheets_row_number=NULLIF($2, 0), updated_at=now() WHERE id=$1`
	if _, err := r.db.Pool.Exec(ctx, q, id, row); err != nil {
		return fmt.Errorf("mark order synced: %w", err)
	}
	return nil
}

func (r *OrderRepo) MarkSyncFailed(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE orders SET google_sheets_synced=false, sync_retry_count=sync_retry_count+1, updated_at=now() WHERE id=$1`
	if _, err := r.db.Pool.Exec(ctx, q, id); err != nil {
		return fmt.Errorf("mark order sync failed: %w", err)
	}
	return nil
}

func (r *OrderRepo) ListUnsynced(ctx context.Context, maxRetries, limit int) ([]models.Order, error) {
	const q = `SELECT ` + orderColumns + ` FROM orders WHERE google_sheets_synced=false AND sync_retry_count < $1 ORDER BY created_at ASC LIMIT $2`
	return r.list(ctx, q, maxRetries, limit)
}

func (r *OrderRepo) CountUnsynced(ctx context.Context, sellerID uuid.UUID) (int, error) {
	const q = `SELECT count(*) FROM orders WHERE seller_id=$1 AND google_sheets_synced=false`
	var n int
	if err := r.db.Pool.QueryRow(ctx, q, sellerID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count unsynced orders: %w", err)
	}
	return n, nil
}

func (r *OrderRepo) list(ctx context.Context, q string, args ...any) ([]models.Order, error) {
	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var out []models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return out, nil
}
