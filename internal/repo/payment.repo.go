package repo

import (
	"context"
	"database/sql"
	"errors"
	"marketplace-checkout/internal/domain"
)

type PaymentRepo interface {
	// tx *sql.Tx -> transaction control
	CreatePayment(ctx context.Context, tx *sql.Tx, payment *domain.Payment) error
	// FindByOrderId returns (nil, nil) when the order has no payment. tx may be nil.
	FindByOrderId(ctx context.Context, tx *sql.Tx, orderID int64) (*domain.Payment, error)
	UpdatePaymentStatus(ctx context.Context, tx *sql.Tx, id int64, status domain.PaymentStatus) error
}

type paymentRepo struct {
	db *sql.DB
}

func NewPaymentRepo(db *sql.DB) PaymentRepo {
	return &paymentRepo{db: db}
}

func (r *paymentRepo) CreatePayment(ctx context.Context, tx *sql.Tx, payment *domain.Payment) error {
	query := `INSERT INTO payments (order_id, provider, status, transaction_id, amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`

	return tx.QueryRowContext(
		ctx, query, payment.OrderID, payment.Provider, payment.Status, payment.TransactionID, payment.Amount, payment.CreatedAt, payment.UpdatedAt,
	).Scan(&payment.ID)
}

func (r *paymentRepo) FindByOrderId(ctx context.Context, tx *sql.Tx, orderID int64) (*domain.Payment, error) {
	query := `SELECT id, order_id, provider, status, transaction_id, amount, created_at, updated_at FROM payments WHERE order_id = $1`
	row := on(r.db, tx).QueryRowContext(ctx, query, orderID)
	var p domain.Payment
	err := row.Scan(
		&p.ID,
		&p.OrderID,
		&p.Provider,
		&p.Status,
		&p.TransactionID,
		&p.Amount,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepo) UpdatePaymentStatus(ctx context.Context, tx *sql.Tx, id int64, status domain.PaymentStatus) error {
	query := `
		UPDATE payments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
	`
	_, err := tx.ExecContext(ctx, query, id, status)
	if err != nil {
		return err
	}
	return nil
}
