package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/agrovalue/marketplace-api/internal/domain/product"
)

const (
	createProductSQL = `INSERT INTO products (id, farmer_id, name, description, price, stock_quantity, image_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	updateProductSQL = `UPDATE products
		SET name = $2, description = $3, price = $4, stock_quantity = $5, image_url = $6
		WHERE id = $1`

	deleteProductSQL = `DELETE FROM products WHERE id = $1`

	listProductsSQL = `SELECT id, farmer_id, name, description, price, stock_quantity, image_url, created_at
		FROM products ORDER BY id`

	listProductsByFarmerSQL = `SELECT id, farmer_id, name, description, price, stock_quantity, image_url, created_at
		FROM products WHERE farmer_id = $1 ORDER BY id`

	getProductByIDSQL = `SELECT id, farmer_id, name, description, price, stock_quantity, image_url, created_at
		FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT id, farmer_id, name, description, price, stock_quantity, image_url, created_at
		FROM products WHERE id = ANY($1)`

	deleteProductsByFarmerSQL = `DELETE FROM products WHERE farmer_id = $1`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// Create persists a new product.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	_, err := r.pool.Exec(ctx, createProductSQL,
		p.ID, p.FarmerID, p.Name, p.Description, p.Price, p.StockQuantity, p.ImageURL, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating product %q: %w", p.ID, err)
	}
	return nil
}

// Update replaces the mutable fields of a product.
func (r *ProductRepository) Update(ctx context.Context, p *product.Product) error {
	tag, err := r.pool.Exec(ctx, updateProductSQL,
		p.ID, p.Name, p.Description, p.Price, p.StockQuantity, p.ImageURL,
	)
	if err != nil {
		return fmt.Errorf("updating product %q: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// Delete removes a product by id.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteProductSQL, id)
	if err != nil {
		return fmt.Errorf("deleting product %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// List returns all products from the catalog ordered by ID.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// ListByFarmer returns the products owned by the given farmer.
func (r *ProductRepository) ListByFarmer(ctx context.Context, farmerID string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsByFarmerSQL, farmerID)
	if err != nil {
		return nil, fmt.Errorf("listing products for farmer %q: %w", farmerID, err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// GetByIDs returns products matching any of the given IDs.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// DeleteByFarmer removes every product owned by the given farmer and reports
// how many rows were deleted.
func (r *ProductRepository) DeleteByFarmer(ctx context.Context, farmerID string) (int64, error) {
	tag, err := r.pool.Exec(ctx, deleteProductsByFarmerSQL, farmerID)
	if err != nil {
		return 0, fmt.Errorf("deleting products for farmer %q: %w", farmerID, err)
	}
	return tag.RowsAffected(), nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p     product.Product
		price decimal.Decimal
	)
	err := row.Scan(
		&p.ID, &p.FarmerID, &p.Name, &p.Description, &price,
		&p.StockQuantity, &p.ImageURL, &p.CreatedAt,
	)
	p.Price = price
	return p, err
}
