package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/agrovalue/marketplace-api/internal/domain/order"
	"github.com/agrovalue/marketplace-api/internal/domain/payment"
)

const (
	createTransactionSQL = `INSERT INTO transactions (id, order_id, external_payment_id, amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	getTransactionByExternalIDSQL = `SELECT id, order_id, external_payment_id, amount, status, created_at
		FROM transactions WHERE external_payment_id = $1`

	findAllTransactionsSQL = `SELECT id, order_id, external_payment_id, amount, status, created_at
		FROM transactions ORDER BY created_at DESC`

	settleTransactionSQL = `UPDATE transactions SET status = $2
		WHERE id = $1 AND status = 'PENDING' RETURNING order_id`

	settleOrderSQL = `UPDATE orders SET order_status = $2, payment_status = $3 WHERE id = $1`
)

var _ payment.Repository = (*TransactionRepository)(nil)

// TransactionRepository implements payment.Repository backed by PostgreSQL.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository returns a TransactionRepository that uses the
// given pool.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

// Create persists a new transaction. The UNIQUE constraint on order_id maps
// to payment.ErrAlreadyExists.
func (r *TransactionRepository) Create(ctx context.Context, t *payment.Transaction) error {
	_, err := r.pool.Exec(ctx, createTransactionSQL,
		t.ID, t.OrderID, t.ExternalPaymentID, t.Amount, string(t.Status), t.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return payment.ErrAlreadyExists
		}
		return fmt.Errorf("creating transaction %q: %w", t.ID, err)
	}
	return nil
}

// GetByExternalID returns the transaction linked to an external payment id.
func (r *TransactionRepository) GetByExternalID(ctx context.Context, externalID string) (*payment.Transaction, error) {
	rows, err := r.pool.Query(ctx, getTransactionByExternalIDSQL, externalID)
	if err != nil {
		return nil, fmt.Errorf("getting transaction for payment %q: %w", externalID, err)
	}

	t, err := pgx.CollectExactlyOneRow(rows, scanTransaction)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payment.ErrNotFound
		}
		return nil, fmt.Errorf("getting transaction for payment %q: %w", externalID, err)
	}
	return &t, nil
}

// FindAll returns every transaction, newest first.
func (r *TransactionRepository) FindAll(ctx context.Context) ([]payment.Transaction, error) {
	rows, err := r.pool.Query(ctx, findAllTransactionsSQL)
	if err != nil {
		return nil, fmt.Errorf("finding all transactions: %w", err)
	}
	return pgx.CollectRows(rows, scanTransaction)
}

// SettleOutcome updates the transaction status and mirrors it onto the
// linked order inside one transaction, so the two records never disagree.
// The UPDATE only matches a PENDING row; zero rows means another delivery
// got there first and the caller receives payment.ErrAlreadySettled.
func (r *TransactionRepository) SettleOutcome(ctx context.Context, txnID string, status payment.Status, orderStatus order.Status) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var orderID string
		if err := tx.QueryRow(ctx, settleTransactionSQL, txnID, string(status)).Scan(&orderID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return payment.ErrAlreadySettled
			}
			return errors.Wrap(err, "update transaction")
		}

		_, err := tx.Exec(ctx, settleOrderSQL, orderID, string(orderStatus), string(status))
		if err != nil {
			return errors.Wrap(err, "update order")
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, payment.ErrAlreadySettled) {
			return payment.ErrAlreadySettled
		}
		return fmt.Errorf("settling transaction %q: %w", txnID, err)
	}
	return nil
}

func scanTransaction(row pgx.CollectableRow) (payment.Transaction, error) {
	var (
		t          payment.Transaction
		externalID *string
		amount     decimal.Decimal
		status     string
	)
	err := row.Scan(&t.ID, &t.OrderID, &externalID, &amount, &status, &t.CreatedAt)
	if externalID != nil {
		t.ExternalPaymentID = *externalID
	}
	t.Amount = amount
	t.Status = payment.Status(status)
	return t, err
}
