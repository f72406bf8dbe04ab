package repo

import (
	"context"
	"database/sql"
	"errors"
	"marketplace-checkout/internal/domain"
	"time"
)

type OrderRepo interface {
	CreateOrder(ctx context.Context, tx *sql.Tx, order *domain.Order) error
	CreateOrderItem(ctx context.Context, tx *sql.Tx, item *domain.OrderItem) error
	// FindByIdForUser returns (nil, nil) when the order is missing or owned by
	// someone else. tx may be nil.
	FindByIdForUser(ctx context.Context, tx *sql.Tx, id int64, userID int64) (*domain.Order, error)
	LockByIdForUser(ctx context.Context, tx *sql.Tx, id int64, userID int64) (*domain.Order, error)
	LockById(ctx context.Context, tx *sql.Tx, id int64) (*domain.Order, error)
	FindItems(ctx context.Context, tx *sql.Tx, orderID int64) ([]domain.OrderItem, error)
	UpdateOrderStatus(ctx context.Context, tx *sql.Tx, order *domain.Order) error
	FindByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Order, int, error)
	FindStalePending(ctx context.Context, olderThan time.Duration, limit int) ([]domain.Order, error)
}

type orderRepo struct {
	db *sql.DB
}

func NewOrderRepo(db *sql.DB) OrderRepo {
	return &orderRepo{db: db}
}

const orderColumns = `id, user_id, status, total_amount, shipping_cost, payment_method, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var o domain.Order
	err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.Status,
		&o.TotalAmount,
		&o.ShippingCost,
		&o.PaymentMethod,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) CreateOrder(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	return tx.QueryRowContext(ctx,
		`INSERT INTO orders (user_id, status, total_amount, shipping_cost, payment_method, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		order.UserID, order.Status, order.TotalAmount, order.ShippingCost, order.PaymentMethod, order.CreatedAt, order.UpdatedAt,
	).Scan(&order.ID)
}

func (r *orderRepo) CreateOrderItem(ctx context.Context, tx *sql.Tx, item *domain.OrderItem) error {
	return tx.QueryRowContext(ctx,
		`INSERT INTO order_items (order_id, product_id, product_name_snapshot, price_snapshot, quantity)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		item.OrderID, item.ProductID, item.ProductNameSnapshot, item.PriceSnapshot, item.Quantity,
	).Scan(&item.ID)
}

func (r *orderRepo) findOne(ctx context.Context, q querier, query string, args ...any) (*domain.Order, error) {
	order, err := scanOrder(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // not found
	}
	if err != nil {
		return nil, err // system error
	}
	return order, nil
}

func (r *orderRepo) FindByIdForUser(ctx context.Context, tx *sql.Tx, id int64, userID int64) (*domain.Order, error) {
	return r.findOne(ctx, on(r.db, tx),
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 AND user_id = $2`, id, userID)
}

func (r *orderRepo) LockByIdForUser(ctx context.Context, tx *sql.Tx, id int64, userID int64) (*domain.Order, error) {
	return r.findOne(ctx, tx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 AND user_id = $2 FOR UPDATE`, id, userID)
}

func (r *orderRepo) LockById(ctx context.Context, tx *sql.Tx, id int64) (*domain.Order, error) {
	return r.findOne(ctx, tx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
}

func (r *orderRepo) FindItems(ctx context.Context, tx *sql.Tx, orderID int64) ([]domain.OrderItem, error) {
	rows, err := on(r.db, tx).QueryContext(ctx,
		`SELECT id, order_id, product_id, product_name_snapshot, price_snapshot, quantity
		 FROM order_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(
			&it.ID,
			&it.OrderID,
			&it.ProductID,
			&it.ProductNameSnapshot,
			&it.PriceSnapshot,
			&it.Quantity,
		); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *orderRepo) UpdateOrderStatus(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	_, err := tx.ExecContext(ctx, "UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3", order.Status, order.UpdatedAt, order.ID)
	if err != nil {
		return err
	}
	return nil
}

func (r *orderRepo) FindByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Order, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM orders WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, *o)
	}
	return orders, total, rows.Err()
}

func (r *orderRepo) FindStalePending(ctx context.Context, olderThan time.Duration, limit int) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE status = $1 AND created_at < $2 ORDER BY created_at LIMIT $3`,
		domain.OrderPending, time.Now().Add(-olderThan), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}
