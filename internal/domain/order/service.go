package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/agrovalue/marketplace-api/internal/domain/product"
	"github.com/agrovalue/marketplace-api/internal/domain/user"
	"github.com/agrovalue/marketplace-api/internal/metrics"
	"github.com/agrovalue/marketplace-api/internal/notify"
)

// Sentinel errors for order validation.
var (
	ErrEmptyItems = errors.New("items required")
	ErrForbidden  = errors.New("order does not belong to the caller")
)

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// CustomerNotFoundError indicates the ordering customer does not exist.
type CustomerNotFoundError struct {
	CustomerID string
}

func (e *CustomerNotFoundError) Error() string {
	return fmt.Sprintf("customer %s not found", e.CustomerID)
}

// LedgerWriteError indicates the atomic order persistence failed. The order
// is not visible in any partial form; the caller may retry.
type LedgerWriteError struct {
	Err error
}

func (e *LedgerWriteError) Error() string {
	return fmt.Sprintf("order ledger write failed: %v", e.Err)
}

func (e *LedgerWriteError) Unwrap() error { return e.Err }

// ItemRequest is one requested line of an order.
type ItemRequest struct {
	ProductID string
	Quantity  int
}

// PlaceOrderRequest holds the input for placing an order. CustomerID is the
// authenticated customer's identity, supplied explicitly by the transport.
type PlaceOrderRequest struct {
	CustomerID string
	Items      []ItemRequest
}

const notifyTimeout = 10 * time.Second

// Service orchestrates order placement: it resolves the customer and each
// product, snapshots prices, computes the total, persists the order with its
// items atomically, and dispatches a best-effort confirmation.
type Service struct {
	users    user.Repository
	products product.Repository
	orders   Repository
	notifier notify.Notifier
	lg       *zap.Logger
	now      func() time.Time
}

// NewService creates an order Service with the required dependencies.
func NewService(
	users user.Repository,
	products product.Repository,
	orders Repository,
	notifier notify.Notifier,
	lg *zap.Logger,
) *Service {
	return &Service{
		users:    users,
		products: products,
		orders:   orders,
		notifier: notifier,
		lg:       lg,
		now:      time.Now,
	}
}

// PlaceOrder validates the request, resolves the customer and products,
// snapshots current prices into line items, and persists everything as one
// atomic unit. All validation happens before any mutating step. A failed
// confirmation notification never affects the placed order.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	// Validate quantities and collect product IDs.
	ids := make([]string, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: item.ProductID}
		}
		ids[i] = item.ProductID
	}

	customer, err := s.users.GetByID(ctx, req.CustomerID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, &CustomerNotFoundError{CustomerID: req.CustomerID}
		}
		return nil, errors.Wrap(err, "get customer")
	}

	// Batch fetch all products in a single query.
	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}

	productMap := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		productMap[p.ID] = p
	}

	orderID := uuid.New().String()

	// Snapshot prices into line items and sum the total without any
	// intermediate rounding.
	items := make([]OrderItem, len(req.Items))
	total := decimal.Zero
	for i, item := range req.Items {
		p, ok := productMap[item.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: item.ProductID}
		}

		items[i] = OrderItem{
			ID:        uuid.New().String(),
			OrderID:   orderID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     p.Price,
		}
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	o := &Order{
		ID:            orderID,
		CustomerID:    customer.ID,
		Items:         items,
		TotalAmount:   total,
		OrderStatus:   StatusPending,
		PaymentStatus: PaymentPending,
		OrderDate:     s.now(),
	}

	if err := s.orders.CreateWithItems(ctx, o); err != nil {
		return nil, &LedgerWriteError{Err: err}
	}
	metrics.OrdersPlaced.Inc()

	// Confirmation is dispatched only after the ledger write committed.
	// Delivery is fire-and-forget: the response does not wait on it.
	go s.sendConfirmation(context.WithoutCancel(ctx), customer.Email, o.ID)

	return o, nil
}

func (s *Service) sendConfirmation(ctx context.Context, email, orderID string) {
	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()

	err := s.notifier.Send(ctx, email, "Order placed", "Your order has been created.")
	if err != nil {
		metrics.NotificationFailures.Inc()
		s.lg.Warn("order confirmation not delivered",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
	}
}

// ListForCustomer returns the caller's own orders.
func (s *Service) ListForCustomer(ctx context.Context, customerID string) ([]Order, error) {
	return s.orders.FindByCustomer(ctx, customerID)
}

// ListAll returns every order. Access control is the transport's concern.
func (s *Service) ListAll(ctx context.Context) ([]Order, error) {
	return s.orders.FindAll(ctx)
}

// Cancel moves a PENDING order to CANCELLED. Only the owning customer may
// cancel; cancelling after confirmation is rejected by the state machine.
func (s *Service) Cancel(ctx context.Context, actor user.Identity, orderID string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.CustomerID != actor.UserID {
		return nil, ErrForbidden
	}
	if !CanTransition(o.OrderStatus, StatusCancelled) {
		return nil, ErrInvalidTransition
	}

	if err := s.orders.UpdateStatus(ctx, orderID, StatusCancelled, ""); err != nil {
		return nil, errors.Wrapf(err, "cancel order %s", orderID)
	}
	o.OrderStatus = StatusCancelled
	return o, nil
}

// MarkFulfilled moves a CONFIRMED order to FULFILLED.
func (s *Service) MarkFulfilled(ctx context.Context, orderID string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(o.OrderStatus, StatusFulfilled) {
		return nil, ErrInvalidTransition
	}

	if err := s.orders.UpdateStatus(ctx, orderID, StatusFulfilled, ""); err != nil {
		return nil, errors.Wrapf(err, "fulfill order %s", orderID)
	}
	o.OrderStatus = StatusFulfilled
	return o, nil
}
