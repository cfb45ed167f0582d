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

// ProductRepo implements repository.ProductRepository using PostgreSQL.
type ProductRepo struct{ db *DB }

func NewProductRepo(db *DB) *ProductRepo { return &ProductRepo{db: db} }

func (r *ProductRepo) GetActive(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	const q = `SELECT id, seller_id, name, price, stock FROM products WHERE id=$1 AND deleted_at IS NULL`
	var p models.Product
	err := r.db.Pool.QueryRow(ctx, q, id).Scan(&p.ID, &p.SellerID, &p.Name, &p.Price, &p.Stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

// DecrementStock is a single relative UPDATE, so concurrent orders never
// overwrite each other's decrement. Untracked stock (NULL) is left alone and
// reports 0 taken. Without strict the stock is floored at zero, so fewer than
// qty units may be taken.
func (r *ProductRepo) DecrementStock(ctx context.Context, id uuid.UUID, qty int, strict bool) (int, error) {
	if strict {
		const q = `UPDATE products SET stock = stock - $2 WHERE id=$1 AND stock IS NOT NULL AND stock >= $2`
		tag, err := r.db.Pool.Exec(ctx, q, id, qty)
		if err != nil {
			return 0, fmt.Errorf("decrement stock: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return 0, errs.ErrOutOfStock
		}
		return qty, nil
	}

	const q = `WITH cur AS (
		SELECT id, stock FROM products WHERE id=$1 AND stock IS NOT NULL FOR UPDATE
	)
	UPDATE products p SET stock = GREATEST(cur.stock - $2, 0)
	FROM cur WHERE p.id = cur.id
	RETURNING LEAST(cur.stock, $2)`
	var taken int
	err := r.db.Pool.QueryRow(ctx, q, id, qty).Scan(&taken)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("decrement stock: %w", err)
	}
	return taken, nil
}

func (r *ProductRepo) RestoreStock(ctx context.Context, id uuid.UUID, qty int) error {
	const q = `UPDATE products SET stock = stock + $2 WHERE id=$1 AND stock IS NOT NULL`
	if _, err := r.db.Pool.Exec(ctx, q, id, qty); err != nil {
		return fmt.Errorf("restore stock: %w", err)
	}
	return nil
}
