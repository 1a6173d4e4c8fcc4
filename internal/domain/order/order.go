package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status is the fulfillment state of an order.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusFulfilled Status = "FULFILLED"
	StatusCancelled Status = "CANCELLED"
)

// PaymentStatus mirrors the status of the order's linked payment transaction.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentSucceeded PaymentStatus = "SUCCEEDED"
	PaymentFailed    PaymentStatus = "FAILED"
)

// ErrNotFound is returned when a requested order does not exist.
var ErrNotFound = errors.New("order not found")

// ErrInvalidTransition is returned when an order status change violates the
// state machine: PENDING to CONFIRMED or CANCELLED, CONFIRMED to FULFILLED
// or CANCELLED.
var ErrInvalidTransition = errors.New("invalid order status transition")

// Order is a customer's purchase, persisted atomically with its items.
type Order struct {
	ID            string
	CustomerID    string
	Items         []OrderItem
	TotalAmount   decimal.Decimal
	OrderStatus   Status
	PaymentStatus PaymentStatus
	OrderDate     time.Time
}

// OrderItem is one line of an order. Price is a snapshot of the product's
// price at placement time and is never re-derived from the catalog.
type OrderItem struct {
	ID        string
	OrderID   string
	ProductID string
	Quantity  int
	Price     decimal.Decimal
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusConfirmed || to == StatusCancelled
	case StatusConfirmed:
		return to == StatusFulfilled || to == StatusCancelled
	}
	return false
}

// Repository defines persistence operations for the order ledger.
type Repository interface {
	// CreateWithItems persists the order and all of its items as a single
	// atomic unit. On error nothing is visible to readers.
	CreateWithItems(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	FindByCustomer(ctx context.Context, customerID string) ([]Order, error)
	FindAll(ctx context.Context) ([]Order, error)
	// UpdateStatus sets the order status, and the payment status when
	// paymentStatus is non-empty.
	UpdateStatus(ctx context.Context, id string, status Status, paymentStatus PaymentStatus) error
}
