package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"marketplace-checkout/internal/domain"
	"marketplace-checkout/internal/infrastructure/payment"
	"marketplace-checkout/internal/metrics"
	"marketplace-checkout/internal/repo"
)

const batchSize = 100

// OrderResolver is the part of the order service the worker drives.
type OrderResolver interface {
	ExpireOrder(ctx context.Context, orderID int64) (*domain.Order, error)
	SettleOrder(ctx context.Context, orderID int64) (*domain.Order, error)
}

// ExpiryWorker resolves orders left PENDING longer than expiry: settled at
// the gateway means PAID, anything else is canceled and its stock returned.
type ExpiryWorker struct {
	orderRepo   repo.OrderRepo
	paymentRepo repo.PaymentRepo
	gateway     payment.PaymentGateway
	orders      OrderResolver
	expiry      time.Duration
	interval    time.Duration
	logger      *zap.Logger
	metrics     *metrics.Metrics
}

func NewExpiryWorker(
	orderRepo repo.OrderRepo,
	paymentRepo repo.PaymentRepo,
	gateway payment.PaymentGateway,
	orders OrderResolver,
	expiry time.Duration,
	interval time.Duration,
	logger *zap.Logger,
	m *metrics.Metrics,
) *ExpiryWorker {
	return &ExpiryWorker{
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		gateway:     gateway,
		orders:      orders,
		expiry:      expiry,
		interval:    interval,
		logger:      logger.Named("expiry_worker"),
		metrics:     m,
	}
}

func (w *ExpiryWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("expiry worker started",
		zap.Duration("expiry", w.expiry), zap.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("expiry worker stopped")
			return
		case <-ticker.C:
			if err := w.process(ctx); err != nil {
				w.logger.Error("expiry sweep failed", zap.Error(err))
			}
		}
	}
}

// process runs one sweep. Per-order failures are logged and left for the
// next sweep; only a failed lookup of stale orders aborts it.
func (w *ExpiryWorker) process(ctx context.Context) error {
	stale, err := w.orderRepo.FindStalePending(ctx, w.expiry, batchSize)
	if err != nil {
		return err
	}
	if len(stale) == 0 {
		return nil
	}

	w.logger.Info("resolving stale pending orders", zap.Int("count", len(stale)))

	for _, order := range stale {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		resolution := w.resolve(ctx, order.ID)
		if w.metrics != nil {
			w.metrics.ExpiredOrders.WithLabelValues(resolution).Inc()
		}
	}
	return nil
}

func (w *ExpiryWorker) resolve(ctx context.Context, orderID int64) string {
	log := w.logger.With(zap.Int64("order_id", orderID))

	pay, err := w.paymentRepo.FindByOrderId(ctx, nil, orderID)
	if err != nil {
		log.Error("load payment failed", zap.Error(err))
		return "error"
	}

	paid := false
	if pay != nil {
		paid, err = w.gateway.CheckStatus(ctx, pay.TransactionID)
		if err != nil {
			log.Warn("gateway status check failed", zap.String("transaction_id", pay.TransactionID), zap.Error(err))
			return "error"
		}
	}

	if paid {
		order, err := w.orders.SettleOrder(ctx, orderID)
		if err != nil {
			log.Error("settle order failed", zap.Error(err))
			return "error"
		}
		if order.Status != domain.OrderPaid {
			log.Info("order no longer pending, skipped", zap.String("status", string(order.Status)))
			return "skipped"
		}
		log.Info("pending order settled by gateway")
		return "paid"
	}

	order, err := w.orders.ExpireOrder(ctx, orderID)
	if err != nil {
		log.Error("expire order failed", zap.Error(err))
		return "error"
	}
	if order.Status != domain.OrderCanceled {
		log.Info("order no longer pending, skipped", zap.String("status", string(order.Status)))
		return "skipped"
	}
	log.Info("pending order expired")
	return "canceled"
}
