package payment

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agrovalue/marketplace-api/internal/domain/order"
	"github.com/agrovalue/marketplace-api/internal/domain/user"
	"github.com/agrovalue/marketplace-api/internal/metrics"
)

// ErrForbidden is returned when a customer tries to pay for someone else's
// order.
var ErrForbidden = errors.New("order does not belong to the caller")

// Intent is the processor's opaque handle for a payment attempt. The client
// confirms the payment against the processor using ClientSecret.
type Intent struct {
	ID           string
	ClientSecret string
}

// Processor creates payment intents with an external processor. Amounts are
// already converted to minor units; errors are surfaced as-is and never
// retried here.
type Processor interface {
	CreateIntent(ctx context.Context, amountMinorUnits int64, currency string) (*Intent, error)
}

// Service bridges orders to the external payment processor and reconciles
// processor outcomes back onto transactions and orders.
type Service struct {
	processor Processor
	txns      Repository
	orders    order.Repository
	now       func() time.Time
}

// NewService creates a payment Service.
func NewService(processor Processor, txns Repository, orders order.Repository) *Service {
	return &Service{
		processor: processor,
		txns:      txns,
		orders:    orders,
		now:       time.Now,
	}
}

// CreateIntent obtains a payment intent for an arbitrary amount. Nothing is
// persisted; linking the intent to an order is AttachIntent's job.
func (s *Service) CreateIntent(ctx context.Context, amount decimal.Decimal, currency string) (*Intent, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if currency == "" {
		return nil, ErrInvalidCurrency
	}
	return s.processor.CreateIntent(ctx, MinorUnits(amount), currency)
}

// AttachIntent creates a payment intent for the order's total and persists a
// Transaction linking the order to the external payment id. At most one
// transaction may exist per order.
func (s *Service) AttachIntent(ctx context.Context, actor user.Identity, orderID, currency string) (*Intent, *Transaction, error) {
	if currency == "" {
		return nil, nil, ErrInvalidCurrency
	}

	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if o.CustomerID != actor.UserID && actor.Role != user.RoleAdmin {
		return nil, nil, ErrForbidden
	}
	if !o.TotalAmount.IsPositive() {
		return nil, nil, ErrInvalidAmount
	}

	intent, err := s.processor.CreateIntent(ctx, MinorUnits(o.TotalAmount), currency)
	if err != nil {
		return nil, nil, err
	}

	t := &Transaction{
		ID:                uuid.New().String(),
		OrderID:           o.ID,
		ExternalPaymentID: intent.ID,
		Amount:            o.TotalAmount,
		Status:            StatusPending,
		CreatedAt:         s.now(),
	}
	if err := s.txns.Create(ctx, t); err != nil {
		return nil, nil, err
	}
	return intent, t, nil
}

// RecordOutcome reconciles a processor-reported outcome onto the linked
// transaction and order. The processor delivers at least once: redelivery of
// an already recorded outcome is a no-op, while an outcome contradicting a
// settled transaction is rejected without mutation.
func (s *Service) RecordOutcome(ctx context.Context, externalPaymentID string, outcome Status) error {
	if outcome != StatusSucceeded && outcome != StatusFailed {
		return errors.Errorf("outcome must be terminal, got %q", outcome)
	}

	t, err := s.txns.GetByExternalID(ctx, externalPaymentID)
	if err != nil {
		return err
	}

	if t.Status == outcome {
		return nil
	}
	if t.Status != StatusPending {
		return ErrConflictingOutcome
	}

	orderStatus := order.StatusConfirmed
	if outcome == StatusFailed {
		orderStatus = order.StatusCancelled
	}

	if err := s.txns.SettleOutcome(ctx, t.ID, outcome, orderStatus); err != nil {
		if errors.Is(err, ErrAlreadySettled) {
			// Another delivery settled the transaction between our read and
			// the update. Re-read to tell a redelivery of the same outcome
			// from a genuine conflict.
			t, err = s.txns.GetByExternalID(ctx, externalPaymentID)
			if err != nil {
				return err
			}
			if t.Status == outcome {
				return nil
			}
			return ErrConflictingOutcome
		}
		return errors.Wrapf(err, "settle transaction %s", t.ID)
	}
	metrics.PaymentOutcomes.WithLabelValues(string(outcome)).Inc()
	return nil
}

// ListTransactions returns every payment transaction. Admin-only at the
// transport boundary.
func (s *Service) ListTransactions(ctx context.Context) ([]Transaction, error) {
	return s.txns.FindAll(ctx)
}
