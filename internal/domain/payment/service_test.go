package payment

import (
	"context"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrovalue/marketplace-api/internal/domain/order"
	"github.com/agrovalue/marketplace-api/internal/domain/user"
)

// --- Mock implementations ---

type mockProcessor struct {
	intent      *Intent
	err         error
	gotAmount   int64
	gotCurrency string
	calls       int
}

func (m *mockProcessor) CreateIntent(_ context.Context, amount int64, currency string) (*Intent, error) {
	m.calls++
	m.gotAmount = amount
	m.gotCurrency = currency
	if m.err != nil {
		return nil, m.err
	}
	return m.intent, nil
}

type mockTxnRepo struct {
	byExternal map[string]*Transaction
	created    *Transaction
	createErr  error

	settledID     string
	settledStatus Status
	settledOrder  order.Status

	settleErr error
	onSettle  func()
}

func (m *mockTxnRepo) Create(_ context.Context, t *Transaction) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = t
	return nil
}

func (m *mockTxnRepo) GetByExternalID(_ context.Context, externalID string) (*Transaction, error) {
	t, ok := m.byExternal[externalID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *mockTxnRepo) FindAll(_ context.Context) ([]Transaction, error) { return nil, nil }

func (m *mockTxnRepo) SettleOutcome(_ context.Context, txnID string, status Status, orderStatus order.Status) error {
	if m.onSettle != nil {
		m.onSettle()
	}
	if m.settleErr != nil {
		return m.settleErr
	}
	m.settledID = txnID
	m.settledStatus = status
	m.settledOrder = orderStatus
	return nil
}

// settlingTxnRepo holds real transaction state behind a mutex so concurrent
// deliveries contend on the settle the way the database guard does.
type settlingTxnRepo struct {
	mu      sync.Mutex
	txn     Transaction
	settles int
}

func (m *settlingTxnRepo) Create(_ context.Context, _ *Transaction) error { return nil }

func (m *settlingTxnRepo) GetByExternalID(_ context.Context, externalID string) (*Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.txn.ExternalPaymentID != externalID {
		return nil, ErrNotFound
	}
	cp := m.txn
	return &cp, nil
}

func (m *settlingTxnRepo) FindAll(_ context.Context) ([]Transaction, error) { return nil, nil }

func (m *settlingTxnRepo) SettleOutcome(_ context.Context, txnID string, status Status, _ order.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.txn.ID != txnID || m.txn.Status != StatusPending {
		return ErrAlreadySettled
	}
	m.txn.Status = status
	m.settles++
	return nil
}

type mockOrderRepo struct {
	byID map[string]*order.Order
}

func (m *mockOrderRepo) CreateWithItems(_ context.Context, _ *order.Order) error { return nil }

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*order.Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o, nil
}

func (m *mockOrderRepo) FindByCustomer(_ context.Context, _ string) ([]order.Order, error) {
	return nil, nil
}

func (m *mockOrderRepo) FindAll(_ context.Context) ([]order.Order, error) { return nil, nil }

func (m *mockOrderRepo) UpdateStatus(_ context.Context, _ string, _ order.Status, _ order.PaymentStatus) error {
	return nil
}

// --- Tests ---

func TestMinorUnits(t *testing.T) {
	cases := []struct {
		amount string
		want   int64
	}{
		{"19.99", 1999},
		{"0.10", 10},
		{"10.00", 1000},
		{"10.005", 1001}, // half-up at the third decimal
		{"10.004", 1000},
		{"0.01", 1},
	}
	for _, tc := range cases {
		got := MinorUnits(decimal.RequireFromString(tc.amount))
		assert.Equal(t, tc.want, got, "amount %s", tc.amount)
	}
}

func TestCreateIntent_Validation(t *testing.T) {
	proc := &mockProcessor{intent: &Intent{ID: "pi_1", ClientSecret: "cs_1"}}
	svc := NewService(proc, &mockTxnRepo{}, &mockOrderRepo{})

	_, err := svc.CreateIntent(context.Background(), decimal.Zero, "usd")
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.CreateIntent(context.Background(), decimal.NewFromInt(-5), "usd")
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.CreateIntent(context.Background(), decimal.RequireFromString("19.99"), "")
	require.ErrorIs(t, err, ErrInvalidCurrency)

	assert.Zero(t, proc.calls, "processor must not be called on invalid input")
}

func TestCreateIntent_ConvertsToMinorUnits(t *testing.T) {
	proc := &mockProcessor{intent: &Intent{ID: "pi_1", ClientSecret: "cs_1"}}
	svc := NewService(proc, &mockTxnRepo{}, &mockOrderRepo{})

	intent, err := svc.CreateIntent(context.Background(), decimal.RequireFromString("19.99"), "usd")
	require.NoError(t, err)
	assert.Equal(t, "pi_1", intent.ID)
	assert.Equal(t, int64(1999), proc.gotAmount)
	assert.Equal(t, "usd", proc.gotCurrency)
}

func TestAttachIntent_PersistsTransaction(t *testing.T) {
	proc := &mockProcessor{intent: &Intent{ID: "pi_42", ClientSecret: "cs_42"}}
	txns := &mockTxnRepo{}
	orders := &mockOrderRepo{byID: map[string]*order.Order{
		"o1": {ID: "o1", CustomerID: "cust-1", TotalAmount: decimal.RequireFromString("13.50")},
	}}
	svc := NewService(proc, txns, orders)

	actor := user.Identity{UserID: "cust-1", Role: user.RoleCustomer}
	intent, txn, err := svc.AttachIntent(context.Background(), actor, "o1", "usd")

	require.NoError(t, err)
	assert.Equal(t, "pi_42", intent.ID)
	assert.Equal(t, int64(1350), proc.gotAmount)

	require.NotNil(t, txns.created)
	assert.Equal(t, "o1", txn.OrderID)
	assert.Equal(t, "pi_42", txn.ExternalPaymentID)
	assert.Equal(t, StatusPending, txn.Status)
	assert.True(t, decimal.RequireFromString("13.50").Equal(txn.Amount))
}

func TestAttachIntent_ForbiddenForOtherCustomer(t *testing.T) {
	proc := &mockProcessor{intent: &Intent{ID: "pi_1"}}
	orders := &mockOrderRepo{byID: map[string]*order.Order{
		"o1": {ID: "o1", CustomerID: "cust-1", TotalAmount: decimal.NewFromInt(10)},
	}}
	svc := NewService(proc, &mockTxnRepo{}, orders)

	_, _, err := svc.AttachIntent(context.Background(), user.Identity{UserID: "cust-2", Role: user.RoleCustomer}, "o1", "usd")
	require.ErrorIs(t, err, ErrForbidden)
	assert.Zero(t, proc.calls)

	// Admins may attach intents to any order.
	_, _, err = svc.AttachIntent(context.Background(), user.Identity{UserID: "admin-1", Role: user.RoleAdmin}, "o1", "usd")
	require.NoError(t, err)
}

func TestAttachIntent_DuplicateTransaction(t *testing.T) {
	proc := &mockProcessor{intent: &Intent{ID: "pi_1"}}
	txns := &mockTxnRepo{createErr: ErrAlreadyExists}
	orders := &mockOrderRepo{byID: map[string]*order.Order{
		"o1": {ID: "o1", CustomerID: "cust-1", TotalAmount: decimal.NewFromInt(10)},
	}}
	svc := NewService(proc, txns, orders)

	_, _, err := svc.AttachIntent(context.Background(), user.Identity{UserID: "cust-1"}, "o1", "usd")
	require.ErrorIs(t, err, ErrAlreadyExists)
}

func TestRecordOutcome_SettlesTransactionAndOrder(t *testing.T) {
	txns := &mockTxnRepo{byExternal: map[string]*Transaction{
		"pi_1": {ID: "t1", OrderID: "o1", ExternalPaymentID: "pi_1", Status: StatusPending},
	}}
	svc := NewService(&mockProcessor{}, txns, &mockOrderRepo{})

	require.NoError(t, svc.RecordOutcome(context.Background(), "pi_1", StatusSucceeded))
	assert.Equal(t, "t1", txns.settledID)
	assert.Equal(t, StatusSucceeded, txns.settledStatus)
	assert.Equal(t, order.StatusConfirmed, txns.settledOrder)
}

func TestRecordOutcome_FailureCancelsOrder(t *testing.T) {
	txns := &mockTxnRepo{byExternal: map[string]*Transaction{
		"pi_1": {ID: "t1", OrderID: "o1", ExternalPaymentID: "pi_1", Status: StatusPending},
	}}
	svc := NewService(&mockProcessor{}, txns, &mockOrderRepo{})

	require.NoError(t, svc.RecordOutcome(context.Background(), "pi_1", StatusFailed))
	assert.Equal(t, StatusFailed, txns.settledStatus)
	assert.Equal(t, order.StatusCancelled, txns.settledOrder)
}

func TestRecordOutcome_RedeliveryIsNoOp(t *testing.T) {
	txns := &mockTxnRepo{byExternal: map[string]*Transaction{
		"pi_1": {ID: "t1", OrderID: "o1", ExternalPaymentID: "pi_1", Status: StatusSucceeded},
	}}
	svc := NewService(&mockProcessor{}, txns, &mockOrderRepo{})

	require.NoError(t, svc.RecordOutcome(context.Background(), "pi_1", StatusSucceeded))
	assert.Empty(t, txns.settledID, "settle must not run on redelivery")
}

func TestRecordOutcome_ConflictAfterSettlement(t *testing.T) {
	txns := &mockTxnRepo{byExternal: map[string]*Transaction{
		"pi_1": {ID: "t1", OrderID: "o1", ExternalPaymentID: "pi_1", Status: StatusSucceeded},
	}}
	svc := NewService(&mockProcessor{}, txns, &mockOrderRepo{})

	err := svc.RecordOutcome(context.Background(), "pi_1", StatusFailed)
	require.ErrorIs(t, err, ErrConflictingOutcome)
	assert.Empty(t, txns.settledID)
}

func TestRecordOutcome_LostRaceToSameOutcome(t *testing.T) {
	txns := &mockTxnRepo{
		byExternal: map[string]*Transaction{
			"pi_1": {ID: "t1", OrderID: "o1", ExternalPaymentID: "pi_1", Status: StatusPending},
		},
		settleErr: ErrAlreadySettled,
	}
	// A competing delivery of the same outcome lands between our read and
	// the settle.
	txns.onSettle = func() { txns.byExternal["pi_1"].Status = StatusSucceeded }
	svc := NewService(&mockProcessor{}, txns, &mockOrderRepo{})

	require.NoError(t, svc.RecordOutcome(context.Background(), "pi_1", StatusSucceeded))
	assert.Empty(t, txns.settledID)
}

func TestRecordOutcome_LostRaceToConflictingOutcome(t *testing.T) {
	txns := &mockTxnRepo{
		byExternal: map[string]*Transaction{
			"pi_1": {ID: "t1", OrderID: "o1", ExternalPaymentID: "pi_1", Status: StatusPending},
		},
		settleErr: ErrAlreadySettled,
	}
	txns.onSettle = func() { txns.byExternal["pi_1"].Status = StatusSucceeded }
	svc := NewService(&mockProcessor{}, txns, &mockOrderRepo{})

	err := svc.RecordOutcome(context.Background(), "pi_1", StatusFailed)
	require.ErrorIs(t, err, ErrConflictingOutcome)
	assert.Empty(t, txns.settledID)
}

func TestRecordOutcome_ConcurrentConflictingDeliveries(t *testing.T) {
	txns := &settlingTxnRepo{
		txn: Transaction{ID: "t1", OrderID: "o1", ExternalPaymentID: "pi_1", Status: StatusPending},
	}
	svc := NewService(&mockProcessor{}, txns, &mockOrderRepo{})

	outcomes := []Status{StatusSucceeded, StatusFailed}
	errs := make([]error, len(outcomes))
	var wg sync.WaitGroup
	for i, outcome := range outcomes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = svc.RecordOutcome(context.Background(), "pi_1", outcome)
		}()
	}
	wg.Wait()

	require.Equal(t, 1, txns.settles, "exactly one delivery may settle the transaction")
	winner := txns.txn.Status
	for i, outcome := range outcomes {
		if outcome == winner {
			assert.NoError(t, errs[i])
		} else {
			assert.ErrorIs(t, errs[i], ErrConflictingOutcome)
		}
	}
}

func TestRecordOutcome_RejectsNonTerminal(t *testing.T) {
	svc := NewService(&mockProcessor{}, &mockTxnRepo{}, &mockOrderRepo{})

	err := svc.RecordOutcome(context.Background(), "pi_1", StatusPending)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestRecordOutcome_UnknownIntent(t *testing.T) {
	svc := NewService(&mockProcessor{}, &mockTxnRepo{byExternal: map[string]*Transaction{}}, &mockOrderRepo{})

	err := svc.RecordOutcome(context.Background(), "pi_missing", StatusSucceeded)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAttachIntent_ProcessorError(t *testing.T) {
	cause := errors.New("processor unavailable")
	proc := &mockProcessor{err: cause}
	orders := &mockOrderRepo{byID: map[string]*order.Order{
		"o1": {ID: "o1", CustomerID: "cust-1", TotalAmount: decimal.NewFromInt(10)},
	}}
	txns := &mockTxnRepo{}
	svc := NewService(proc, txns, orders)

	_, _, err := svc.AttachIntent(context.Background(), user.Identity{UserID: "cust-1"}, "o1", "usd")
	require.ErrorIs(t, err, cause)
	assert.Nil(t, txns.created, "no transaction may be persisted without an intent")
}
