package user

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested user does not exist.
var ErrNotFound = errors.New("user not found")

// ErrEmailTaken is returned when registering with an already used email.
var ErrEmailTaken = errors.New("email already registered")

// ErrHasOrders is returned when deleting a user whose order history must be
// preserved.
var ErrHasOrders = errors.New("user has order history")

// Role classifies a user's capabilities on the marketplace.
type Role string

const (
	RoleFarmer   Role = "FARMER"
	RoleCustomer Role = "CUSTOMER"
	RoleAdmin    Role = "ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleFarmer, RoleCustomer, RoleAdmin:
		return true
	}
	return false
}

// User represents a registered marketplace account.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// Identity is the authenticated caller passed explicitly into every
// operation that needs authorization. It is never recovered from ambient
// state.
type Identity struct {
	UserID string
	Email  string
	Role   Role
}

// Repository defines persistence operations for users.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]User, error)
	Delete(ctx context.Context, id string) error
}
