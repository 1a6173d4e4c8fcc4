package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// ErrNotOwner is returned when someone other than the owning farmer attempts
// to mutate a product.
var ErrNotOwner = errors.New("not the owning farmer")

// Product represents a catalog item listed by a farmer.
type Product struct {
	ID            string
	FarmerID      string
	Name          string
	Description   string
	Price         decimal.Decimal
	StockQuantity int
	ImageURL      string
	CreatedAt     time.Time
}

// Repository defines persistence operations for the product catalog.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]Product, error)
	ListByFarmer(ctx context.Context, farmerID string) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	DeleteByFarmer(ctx context.Context, farmerID string) (int64, error)
}

// AuthorizeMutation enforces that only the owning farmer may mutate or delete
// a product. Pure function, no I/O.
func AuthorizeMutation(p *Product, actingFarmerID string) error {
	if p.FarmerID != actingFarmerID {
		return ErrNotOwner
	}
	return nil
}
