package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campus-market/meetup-hub/internal/domain/product"
)

// ProductRepository implements product.Repository.
type ProductRepository struct {
	pool *pgxpool.Pool
}

func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

func (r *ProductRepository) GetByID(ctx context.Context, productID string) (*product.Product, error) {
	var p product.Product
	err := r.pool.QueryRow(ctx, `
		SELECT id, product_id, seller_id, title, default_meetup_location, status, created_at, updated_at
		FROM products WHERE product_id=$1
	`, productID).Scan(&p.ID, &p.ProductID, &p.SellerID, &p.Title, &p.DefaultMeetupLocation, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}
