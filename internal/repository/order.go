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
)

const (
	createOrderSQL = `INSERT INTO orders (id, customer_id, total_amount, order_status, payment_status, order_date)
		VALUES ($1, $2, $3, $4, $5, $6)`

	createOrderItemSQL = `INSERT INTO order_items (id, order_id, product_id, quantity, price)
		VALUES ($1, $2, $3, $4, $5)`

	getOrderByIDSQL = `SELECT id, customer_id, total_amount, order_status, payment_status, order_date
		FROM orders WHERE id = $1`

	findOrdersByCustomerSQL = `SELECT id, customer_id, total_amount, order_status, payment_status, order_date
		FROM orders WHERE customer_id = $1 ORDER BY order_date DESC`

	findAllOrdersSQL = `SELECT id, customer_id, total_amount, order_status, payment_status, order_date
		FROM orders ORDER BY order_date DESC`

	getOrderItemsSQL = `SELECT id, order_id, product_id, quantity, price
		FROM order_items WHERE order_id = ANY($1) ORDER BY id`

	updateOrderStatusSQL = `UPDATE orders SET order_status = $2 WHERE id = $1`

	updateOrderBothStatusSQL = `UPDATE orders SET order_status = $2, payment_status = $3 WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// CreateWithItems persists the order and its line items inside a single
// transaction. A failure on any insert rolls back the whole write, so no
// partial order is ever visible to readers.
func (r *OrderRepository) CreateWithItems(ctx context.Context, o *order.Order) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, createOrderSQL,
			o.ID, o.CustomerID, o.TotalAmount,
			string(o.OrderStatus), string(o.PaymentStatus), o.OrderDate,
		)
		if err != nil {
			return errors.Wrap(err, "insert order")
		}

		for _, item := range o.Items {
			_, err := tx.Exec(ctx, createOrderItemSQL,
				item.ID, item.OrderID, item.ProductID, item.Quantity, item.Price,
			)
			if err != nil {
				return errors.Wrapf(err, "insert item for product %s", item.ProductID)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID returns a single order with its items.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	orders := []order.Order{o}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// FindByCustomer returns the given customer's orders, newest first.
func (r *OrderRepository) FindByCustomer(ctx context.Context, customerID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, findOrdersByCustomerSQL, customerID)
	if err != nil {
		return nil, fmt.Errorf("finding orders for customer %q: %w", customerID, err)
	}

	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("finding orders for customer %q: %w", customerID, err)
	}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// FindAll returns every order, newest first.
func (r *OrderRepository) FindAll(ctx context.Context) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, findAllOrdersSQL)
	if err != nil {
		return nil, fmt.Errorf("finding all orders: %w", err)
	}

	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("finding all orders: %w", err)
	}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateStatus sets the order status, and the payment status when
// paymentStatus is non-empty.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status order.Status, paymentStatus order.PaymentStatus) error {
	var (
		tag pgconn.CommandTag
		err error
	)
	if paymentStatus == "" {
		tag, err = r.pool.Exec(ctx, updateOrderStatusSQL, id, string(status))
	} else {
		tag, err = r.pool.Exec(ctx, updateOrderBothStatusSQL, id, string(status), string(paymentStatus))
	}
	if err != nil {
		return fmt.Errorf("updating status of order %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// attachItems loads the items for all given orders in one batch query.
func (r *OrderRepository) attachItems(ctx context.Context, orders []order.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, len(orders))
	index := make(map[string]*order.Order, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		index[orders[i].ID] = &orders[i]
	}

	rows, err := r.pool.Query(ctx, getOrderItemsSQL, ids)
	if err != nil {
		return fmt.Errorf("getting order items: %w", err)
	}

	items, err := pgx.CollectRows(rows, scanOrderItem)
	if err != nil {
		return fmt.Errorf("getting order items: %w", err)
	}

	for _, item := range items {
		if o, ok := index[item.OrderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o             order.Order
		total         decimal.Decimal
		status        string
		paymentStatus string
	)
	err := row.Scan(&o.ID, &o.CustomerID, &total, &status, &paymentStatus, &o.OrderDate)
	o.TotalAmount = total
	o.OrderStatus = order.Status(status)
	o.PaymentStatus = order.PaymentStatus(paymentStatus)
	return o, err
}

func scanOrderItem(row pgx.CollectableRow) (order.OrderItem, error) {
	var (
		item  order.OrderItem
		price decimal.Decimal
	)
	err := row.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &price)
	item.Price = price
	return item, err
}
