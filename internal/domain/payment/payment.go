package payment

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/agrovalue/marketplace-api/internal/domain/order"
)

// Status is the state of a payment transaction.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusSucceeded Status = "SUCCEEDED"
	StatusFailed    Status = "FAILED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSucceeded, StatusFailed:
		return true
	}
	return false
}

var (
	// ErrNotFound is returned when no transaction matches the lookup.
	ErrNotFound = errors.New("transaction not found")
	// ErrAlreadyExists is returned when an order already has a transaction.
	ErrAlreadyExists = errors.New("order already has a transaction")
	// ErrInvalidAmount is returned for non-positive intent amounts.
	ErrInvalidAmount = errors.New("amount must be greater than 0")
	// ErrInvalidCurrency is returned for an empty currency code.
	ErrInvalidCurrency = errors.New("currency code required")
	// ErrConflictingOutcome is returned when a webhook reports an outcome
	// that contradicts an already terminal transaction.
	ErrConflictingOutcome = errors.New("conflicting payment outcome for settled transaction")
	// ErrAlreadySettled is returned by Repository.SettleOutcome when the
	// transaction is no longer PENDING, meaning another delivery settled it
	// first.
	ErrAlreadySettled = errors.New("transaction already settled")
)

// Transaction links an order to an external payment intent, one per order.
type Transaction struct {
	ID                string
	OrderID           string
	ExternalPaymentID string
	Amount            decimal.Decimal
	Status            Status
	CreatedAt         time.Time
}

// Repository defines persistence operations for payment transactions.
type Repository interface {
	Create(ctx context.Context, t *Transaction) error
	GetByExternalID(ctx context.Context, externalID string) (*Transaction, error)
	FindAll(ctx context.Context) ([]Transaction, error)
	// SettleOutcome atomically moves a PENDING transaction to a terminal
	// status and mirrors it onto the linked order's payment and order
	// status. A transaction that is already terminal is left untouched and
	// reported as ErrAlreadySettled.
	SettleOutcome(ctx context.Context, txnID string, status Status, orderStatus order.Status) error
}

// MinorUnits converts a monetary amount into the processor's integer
// minor-unit representation: round half-up to 2 decimal places, then
// multiply by 100. The arithmetic stays in decimal the whole way, so the
// result is exact for any 2-decimal input.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Round(2).Mul(decimal.NewFromInt(100)).IntPart()
}
