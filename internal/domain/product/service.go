package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agrovalue/marketplace-api/internal/domain/user"
)

// ErrInvalidPrice is returned when a listing has a non-positive price.
var ErrInvalidPrice = errors.New("price must be greater than 0")

// CreateRequest holds the input for listing a new product.
type CreateRequest struct {
	Name          string
	Description   string
	Price         decimal.Decimal
	StockQuantity int
	ImageURL      string
}

// Service encapsulates catalog mutations and the ownership guard. The acting
// identity is always an explicit argument.
type Service struct {
	products Repository
	now      func() time.Time
}

// NewService creates a product Service backed by the given repository.
func NewService(products Repository) *Service {
	return &Service{products: products, now: time.Now}
}

// Create lists a new product owned by the acting farmer.
func (s *Service) Create(ctx context.Context, actor user.Identity, req CreateRequest) (*Product, error) {
	if !req.Price.IsPositive() {
		return nil, ErrInvalidPrice
	}

	p := &Product{
		ID:            uuid.New().String(),
		FarmerID:      actor.UserID,
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
		ImageURL:      req.ImageURL,
		CreatedAt:     s.now(),
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, errors.Wrap(err, "create product")
	}
	return p, nil
}

// Update replaces a product's listing fields after verifying ownership.
// The ownership check runs before any mutating call.
func (s *Service) Update(ctx context.Context, actor user.Identity, id string, req CreateRequest) (*Product, error) {
	existing, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := AuthorizeMutation(existing, actor.UserID); err != nil {
		return nil, err
	}
	if !req.Price.IsPositive() {
		return nil, ErrInvalidPrice
	}

	existing.Name = req.Name
	existing.Description = req.Description
	existing.Price = req.Price
	existing.StockQuantity = req.StockQuantity
	existing.ImageURL = req.ImageURL

	if err := s.products.Update(ctx, existing); err != nil {
		return nil, errors.Wrapf(err, "update product %s", id)
	}
	return existing, nil
}

// Delete removes a product after verifying ownership.
func (s *Service) Delete(ctx context.Context, actor user.Identity, id string) error {
	existing, err := s.products.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := AuthorizeMutation(existing, actor.UserID); err != nil {
		return err
	}
	if err := s.products.Delete(ctx, id); err != nil {
		return errors.Wrapf(err, "delete product %s", id)
	}
	return nil
}

// List returns the full catalog.
func (s *Service) List(ctx context.Context) ([]Product, error) {
	return s.products.List(ctx)
}

// ListByFarmer returns the products owned by the given farmer.
func (s *Service) ListByFarmer(ctx context.Context, farmerID string) ([]Product, error) {
	return s.products.ListByFarmer(ctx, farmerID)
}

// GetByID returns a single product.
func (s *Service) GetByID(ctx context.Context, id string) (*Product, error) {
	return s.products.GetByID(ctx, id)
}
