// Package admin groups the administrator-only read projections and the
// explicit cascading user deletion.
package admin

import (
	"context"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/agrovalue/marketplace-api/internal/domain/product"
	"github.com/agrovalue/marketplace-api/internal/domain/user"
)

// Service exposes administrative operations. Role checks happen at the
// transport boundary; every operation here assumes an already authorized
// admin caller.
type Service struct {
	users    user.Repository
	products product.Repository
	lg       *zap.Logger
}

// NewService creates an admin Service.
func NewService(users user.Repository, products product.Repository, lg *zap.Logger) *Service {
	return &Service{users: users, products: products, lg: lg}
}

// ListUsers returns every registered user.
func (s *Service) ListUsers(ctx context.Context) ([]user.User, error) {
	return s.users.List(ctx)
}

// DeleteUser removes a user as an explicit two-step operation: first the
// user's products, then the user record. Keeping the steps explicit makes
// the deletion auditable instead of relying on an implicit cascade.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}

	deleted, err := s.products.DeleteByFarmer(ctx, u.ID)
	if err != nil {
		return errors.Wrapf(err, "delete products of user %s", id)
	}

	if err := s.users.Delete(ctx, u.ID); err != nil {
		return errors.Wrapf(err, "delete user %s", id)
	}

	s.lg.Info("user deleted",
		zap.String("user_id", u.ID),
		zap.String("role", string(u.Role)),
		zap.Int64("products_deleted", deleted),
	)
	return nil
}
