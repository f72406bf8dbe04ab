package service

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"marketplace-checkout/internal/domain"
	"marketplace-checkout/internal/repo"
)

// OrderAssembler persists the Order and its OrderItems from locked snapshots.
type OrderAssembler struct {
	orders repo.OrderRepo
	now    func() time.Time
}

func NewOrderAssembler(orders repo.OrderRepo, now func() time.Time) *OrderAssembler {
	return &OrderAssembler{orders: orders, now: now}
}

// Assemble writes a PENDING order whose total is the snapshot subtotal plus
// shipping. The returned order has no Items attached.
func (a *OrderAssembler) Assemble(
	ctx context.Context,
	tx *sql.Tx,
	userID int64,
	snapshots []domain.ProductSnapshot,
	shippingCost int64,
	paymentMethod string,
) (*domain.Order, error) {
	if len(snapshots) == 0 {
		return nil, domain.EmptyOrder()
	}

	total, err := orderTotal(snapshots, shippingCost)
	if err != nil {
		return nil, err
	}

	now := a.now()
	order := &domain.Order{
		UserID:        userID,
		Status:        domain.OrderPending,
		TotalAmount:   total,
		ShippingCost:  shippingCost,
		PaymentMethod: paymentMethod,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := a.orders.CreateOrder(ctx, tx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	for _, s := range snapshots {
		item := &domain.OrderItem{
			OrderID:             order.ID,
			ProductID:           s.ProductID,
			ProductNameSnapshot: s.Name,
			PriceSnapshot:       s.Price,
			Quantity:            s.Quantity,
		}
		if err := a.orders.CreateOrderItem(ctx, tx, item); err != nil {
			return nil, fmt.Errorf("create order item for product %d: %w", s.ProductID, err)
		}
	}
	return order, nil
}

var errTotalOverflow = domain.InvalidInput("order total exceeds the supported amount")

// orderTotal sums price*quantity over snapshots plus shipping, refusing any
// total that does not fit in an int64. Inputs are non-negative.
func orderTotal(snapshots []domain.ProductSnapshot, shippingCost int64) (int64, error) {
	if shippingCost < 0 {
		return 0, domain.InvalidInput("shipment.shipping_cost must not be negative")
	}

	var total int64
	for _, s := range snapshots {
		if s.Price < 0 || s.Quantity <= 0 {
			return 0, domain.InvalidInput(fmt.Sprintf("invalid price or quantity for product %d", s.ProductID))
		}
		if s.Price > 0 && s.Quantity > math.MaxInt64/s.Price {
			return 0, errTotalOverflow
		}
		line := s.Price * s.Quantity
		if total > math.MaxInt64-line {
			return 0, errTotalOverflow
		}
		total += line
	}
	if total > math.MaxInt64-shippingCost {
		return 0, errTotalOverflow
	}
	return total + shippingCost, nil
}
