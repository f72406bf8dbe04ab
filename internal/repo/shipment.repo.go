package repo

import (
	"context"
	"database/sql"
	"errors"
	"marketplace-checkout/internal/domain"
)

type ShipmentRepo interface {
	CreateShipment(ctx context.Context, tx *sql.Tx, shipment *domain.Shipment) error
	FindByOrderId(ctx context.Context, tx *sql.Tx, orderID int64) (*domain.Shipment, error)
}

type shipmentRepo struct {
	db *sql.DB
}

func NewShipmentRepo(db *sql.DB) ShipmentRepo {
	return &shipmentRepo{db: db}
}

func (r *shipmentRepo) CreateShipment(ctx context.Context, tx *sql.Tx, shipment *domain.Shipment) error {
	return tx.QueryRowContext(ctx,
		`INSERT INTO shipments (order_id, courier, tracking_number, status, created_at) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		shipment.OrderID, shipment.Courier, shipment.TrackingNumber, shipment.Status, shipment.CreatedAt,
	).Scan(&shipment.ID)
}

func (r *shipmentRepo) FindByOrderId(ctx context.Context, tx *sql.Tx, orderID int64) (*domain.Shipment, error) {
	var s domain.Shipment
	err := on(r.db, tx).QueryRowContext(ctx,
		`SELECT id, order_id, courier, tracking_number, status, created_at FROM shipments WHERE order_id = $1`, orderID,
	).Scan(&s.ID, &s.OrderID, &s.Courier, &s.TrackingNumber, &s.Status, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
