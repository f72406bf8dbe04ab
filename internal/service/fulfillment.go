package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"marketplace-checkout/internal/domain"
	"marketplace-checkout/internal/repo"
)

// FulfillmentInitiator creates the single Payment and Shipment of a new order.
type FulfillmentInitiator struct {
	payments  repo.PaymentRepo
	shipments repo.ShipmentRepo
	now       func() time.Time
}

func NewFulfillmentInitiator(payments repo.PaymentRepo, shipments repo.ShipmentRepo, now func() time.Time) *FulfillmentInitiator {
	return &FulfillmentInitiator{payments: payments, shipments: shipments, now: now}
}

// The order id makes both references unique; the timestamp keeps them
// readable for support staff.
func transactionID(at time.Time, orderID int64) string {
	return fmt.Sprintf("TXN-%d-%d", at.UnixMilli(), orderID)
}

func trackingNumber(at time.Time, orderID int64) string {
	return fmt.Sprintf("TRK-%d-%d", at.UnixMilli(), orderID)
}

func (f *FulfillmentInitiator) InitiatePayment(ctx context.Context, tx *sql.Tx, order *domain.Order, provider string) (*domain.Payment, error) {
	provider = strings.TrimSpace(provider)
	if provider == "" {
		return nil, domain.MissingField("payment.provider")
	}

	now := f.now()
	payment := &domain.Payment{
		OrderID:       order.ID,
		Provider:      provider,
		Status:        domain.PaymentPending,
		TransactionID: transactionID(now, order.ID),
		Amount:        order.TotalAmount,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := f.payments.CreatePayment(ctx, tx, payment); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}
	return payment, nil
}

// InitiateShipment generates a tracking number when none is given.
func (f *FulfillmentInitiator) InitiateShipment(ctx context.Context, tx *sql.Tx, order *domain.Order, courier, tracking string) (*domain.Shipment, error) {
	courier = strings.TrimSpace(courier)
	if courier == "" {
		return nil, domain.MissingField("shipment.courier")
	}

	now := f.now()
	tracking = strings.TrimSpace(tracking)
	if tracking == "" {
		tracking = trackingNumber(now, order.ID)
	}

	shipment := &domain.Shipment{
		OrderID:        order.ID,
		Courier:        courier,
		TrackingNumber: tracking,
		Status:         domain.ShipmentWaitingPickup,
		CreatedAt:      now,
	}
	if err := f.shipments.CreateShipment(ctx, tx, shipment); err != nil {
		return nil, fmt.Errorf("create shipment: %w", err)
	}
	return shipment, nil
}
