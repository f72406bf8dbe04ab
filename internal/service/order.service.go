package service

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"marketplace-checkout/internal/database"
	"marketplace-checkout/internal/domain"
	"marketplace-checkout/internal/metrics"
	"marketplace-checkout/internal/repo"
)

type PaymentInput struct {
	Method   string `json:"method"`
	Provider string `json:"provider,omitempty"`
}

type ShipmentInput struct {
	Courier        string `json:"courier"`
	TrackingNumber string `json:"tracking_number,omitempty"`
	// ShippingCost is trusted as sent by the caller.
	ShippingCost int64 `json:"shipping_cost,omitempty"`
}

type OrderResult struct {
	Order    *domain.Order    `json:"order"`
	Payment  *domain.Payment  `json:"payment"`
	Shipment *domain.Shipment `json:"shipment"`
}

type OrderService interface {
	PlaceOrder(ctx context.Context, userID int64, items []domain.LineItem, payment PaymentInput, shipment ShipmentInput) (*OrderResult, error)
	CancelOrder(ctx context.Context, userID int64, orderID int64) (*domain.Order, error)
	GetOrder(ctx context.Context, userID int64, orderID int64) (*domain.Order, error)
	ListOrders(ctx context.Context, userID int64, page, limit int) (*domain.OrderPage, error)
	OrderSummary(ctx context.Context, userID int64, orderID int64) (*domain.OrderSummary, error)

	// ExpireOrder cancels a still-PENDING order on behalf of the system.
	ExpireOrder(ctx context.Context, orderID int64) (*domain.Order, error)
	// SettleOrder marks a still-PENDING order and its payment as paid.
	SettleOrder(ctx context.Context, orderID int64) (*domain.Order, error)
}

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

type orderService struct {
	db          *sql.DB
	orders      repo.OrderRepo
	payments    repo.PaymentRepo
	shipments   repo.ShipmentRepo
	inventory   *InventoryGuard
	assembler   *OrderAssembler
	fulfillment *FulfillmentInitiator
	logger      *zap.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
}

func NewOrderService(
	db *sql.DB,
	productRepo repo.ProductRepo,
	orderRepo repo.OrderRepo,
	paymentRepo repo.PaymentRepo,
	shipmentRepo repo.ShipmentRepo,
	logger *zap.Logger,
	m *metrics.Metrics,
) OrderService {
	now := func() time.Time { return time.Now().UTC() }
	return &orderService{
		db:          db,
		orders:      orderRepo,
		payments:    paymentRepo,
		shipments:   shipmentRepo,
		inventory:   NewInventoryGuard(productRepo, logger),
		assembler:   NewOrderAssembler(orderRepo, now),
		fulfillment: NewFulfillmentInitiator(paymentRepo, shipmentRepo, now),
		logger:      logger,
		metrics:     m,
		now:         now,
	}
}

func validatePlaceOrder(items []domain.LineItem, payment PaymentInput, shipment ShipmentInput) error {
	if len(items) == 0 {
		return domain.InvalidInput("items are required and must not be empty")
	}
	if strings.TrimSpace(payment.Method) == "" {
		return domain.MissingField("payment.method")
	}
	if strings.TrimSpace(shipment.Courier) == "" {
		return domain.MissingField("shipment.courier")
	}
	if shipment.ShippingCost < 0 {
		return domain.InvalidInput("shipment.shipping_cost must not be negative")
	}
	for _, it := range items {
		if it.ProductID <= 0 {
			return domain.InvalidInput(fmt.Sprintf("invalid product_id %d", it.ProductID))
		}
		if it.Quantity <= 0 {
			return domain.InvalidQuantity(it.ProductID, it.Quantity)
		}
	}
	return nil
}

// lockOrder returns items sorted by product id so concurrent checkouts over
// overlapping products acquire row locks in the same order.
func lockOrder(items []domain.LineItem) []domain.LineItem {
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b domain.LineItem) int {
		return cmp.Compare(a.ProductID, b.ProductID)
	})
	return sorted
}

// classify keeps domain errors as they are and tags persistence failures.
func classify(err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	if database.IsLockTimeout(err) {
		return domain.LockTimeout(err)
	}
	return domain.Unexpected(err)
}

func (s *orderService) PlaceOrder(
	ctx context.Context,
	userID int64,
	items []domain.LineItem,
	payment PaymentInput,
	shipment ShipmentInput,
) (result *OrderResult, err error) {
	run := newTxRun("place_order", s.logger, s.metrics, zap.Int64("user_id", userID))
	defer func() { run.finish(err) }()

	if err := validatePlaceOrder(items, payment, shipment); err != nil {
		return nil, err
	}
	provider := strings.TrimSpace(payment.Provider)
	if provider == "" {
		provider = strings.TrimSpace(payment.Method)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify(err)
	}
	defer tx.Rollback()

	run.advance(StateValidating)
	snapshots, err := s.inventory.Reserve(ctx, tx, lockOrder(items))
	if err != nil {
		return nil, classify(err)
	}

	run.advance(StateDecrementing)
	if err := s.inventory.CommitDecrement(ctx, tx, snapshots); err != nil {
		return nil, classify(err)
	}

	run.advance(StatePersisting)
	order, err := s.assembler.Assemble(ctx, tx, userID, snapshots, shipment.ShippingCost, strings.TrimSpace(payment.Method))
	if err != nil {
		return nil, classify(err)
	}
	run.with(zap.Int64("order_id", order.ID))

	pay, err := s.fulfillment.InitiatePayment(ctx, tx, order, provider)
	if err != nil {
		return nil, classify(err)
	}
	ship, err := s.fulfillment.InitiateShipment(ctx, tx, order, shipment.Courier, shipment.TrackingNumber)
	if err != nil {
		return nil, classify(err)
	}

	order.Items, err = s.orders.FindItems(ctx, tx, order.ID)
	if err != nil {
		return nil, classify(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, classify(err)
	}
	run.advance(StateCommitted)

	var units int64
	for _, sn := range snapshots {
		units += sn.Quantity
	}
	if s.metrics != nil {
		s.metrics.StockDecremented.Add(float64(units))
	}

	return &OrderResult{Order: order, Payment: pay, Shipment: ship}, nil
}

func (s *orderService) CancelOrder(ctx context.Context, userID int64, orderID int64) (order *domain.Order, err error) {
	run := newTxRun("cancel_order", s.logger, s.metrics, zap.Int64("user_id", userID), zap.Int64("order_id", orderID))
	defer func() { run.finish(err) }()

	return s.cancelTx(ctx, run, func(tx *sql.Tx) (*domain.Order, error) {
		return s.orders.LockByIdForUser(ctx, tx, orderID, userID)
	}, orderID, false)
}

func (s *orderService) ExpireOrder(ctx context.Context, orderID int64) (order *domain.Order, err error) {
	run := newTxRun("expire_order", s.logger, s.metrics, zap.Int64("order_id", orderID))
	defer func() { run.finish(err) }()

	return s.cancelTx(ctx, run, func(tx *sql.Tx) (*domain.Order, error) {
		return s.orders.LockById(ctx, tx, orderID)
	}, orderID, true)
}

// cancelTx runs the cancellation in its own transaction. With onlyPending
// set, an order that has moved on from PENDING is returned untouched.
func (s *orderService) cancelTx(
	ctx context.Context,
	run *txRun,
	load func(tx *sql.Tx) (*domain.Order, error),
	orderID int64,
	onlyPending bool,
) (*domain.Order, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify(err)
	}
	defer tx.Rollback()

	run.advance(StateValidating)
	order, err := load(tx)
	if err != nil {
		return nil, classify(err)
	}
	if order == nil {
		return nil, domain.OrderNotFound(orderID)
	}
	if onlyPending && order.Status != domain.OrderPending {
		return order, nil
	}
	if order.Status == domain.OrderCanceled {
		return nil, domain.AlreadyCanceled(order.ID)
	}
	if !order.Status.Cancelable() {
		return nil, domain.NotCancelable(order.Status)
	}

	items, err := s.orders.FindItems(ctx, tx, order.ID)
	if err != nil {
		return nil, classify(err)
	}

	run.advance(StateRestoring)
	restored, err := s.inventory.Restore(ctx, tx, items)
	if err != nil {
		return nil, classify(err)
	}

	run.advance(StatePersisting)
	order.Status = domain.OrderCanceled
	order.UpdatedAt = s.now()
	if err := s.orders.UpdateOrderStatus(ctx, tx, order); err != nil {
		return nil, classify(err)
	}

	pay, err := s.payments.FindByOrderId(ctx, tx, order.ID)
	if err != nil {
		return nil, classify(err)
	}
	if pay != nil && pay.Status == domain.PaymentPending {
		if err := s.payments.UpdatePaymentStatus(ctx, tx, pay.ID, domain.PaymentCanceled); err != nil {
			return nil, classify(err)
		}
		pay.Status = domain.PaymentCanceled
	}

	if err := tx.Commit(); err != nil {
		return nil, classify(err)
	}
	run.advance(StateCommitted)

	if s.metrics != nil {
		s.metrics.StockRestored.Add(float64(restored))
	}

	order.Items = items
	order.Payment = pay
	return order, nil
}

func (s *orderService) SettleOrder(ctx context.Context, orderID int64) (order *domain.Order, err error) {
	run := newTxRun("settle_order", s.logger, s.metrics, zap.Int64("order_id", orderID))
	defer func() { run.finish(err) }()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify(err)
	}
	defer tx.Rollback()

	run.advance(StateValidating)
	order, err = s.orders.LockById(ctx, tx, orderID)
	if err != nil {
		return nil, classify(err)
	}
	if order == nil {
		return nil, domain.OrderNotFound(orderID)
	}
	if order.Status != domain.OrderPending {
		return order, nil
	}

	run.advance(StatePersisting)
	order.Status = domain.OrderPaid
	order.UpdatedAt = s.now()
	if err := s.orders.UpdateOrderStatus(ctx, tx, order); err != nil {
		return nil, classify(err)
	}

	pay, err := s.payments.FindByOrderId(ctx, tx, order.ID)
	if err != nil {
		return nil, classify(err)
	}
	if pay != nil && pay.Status == domain.PaymentPending {
		if err := s.payments.UpdatePaymentStatus(ctx, tx, pay.ID, domain.PaymentSuccess); err != nil {
			return nil, classify(err)
		}
		pay.Status = domain.PaymentSuccess
	}

	if err := tx.Commit(); err != nil {
		return nil, classify(err)
	}
	run.advance(StateCommitted)

	order.Payment = pay
	return order, nil
}

func (s *orderService) GetOrder(ctx context.Context, userID int64, orderID int64) (*domain.Order, error) {
	order, err := s.orders.FindByIdForUser(ctx, nil, orderID, userID)
	if err != nil {
		return nil, classify(err)
	}
	if order == nil {
		return nil, domain.OrderNotFound(orderID)
	}

	if order.Items, err = s.orders.FindItems(ctx, nil, order.ID); err != nil {
		return nil, classify(err)
	}
	if order.Payment, err = s.payments.FindByOrderId(ctx, nil, order.ID); err != nil {
		return nil, classify(err)
	}
	if order.Shipment, err = s.shipments.FindByOrderId(ctx, nil, order.ID); err != nil {
		return nil, classify(err)
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, userID int64, page, limit int) (*domain.OrderPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	limit = min(limit, maxPageLimit)
	if page-1 > math.MaxInt/limit {
		return nil, domain.InvalidInput(fmt.Sprintf("page %d is out of range", page))
	}

	orders, total, err := s.orders.FindByUser(ctx, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, classify(err)
	}

	return &domain.OrderPage{
		Orders:     orders,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit,
	}, nil
}

func (s *orderService) OrderSummary(ctx context.Context, userID int64, orderID int64) (*domain.OrderSummary, error) {
	order, err := s.GetOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	summary := order.Summarize()
	return &summary, nil
}
