package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"marketplace-checkout/internal/config"
	"marketplace-checkout/internal/database"
	"marketplace-checkout/internal/domain"
	"marketplace-checkout/internal/infrastructure/payment"
	"marketplace-checkout/internal/logger"
	"marketplace-checkout/internal/metrics"
	"marketplace-checkout/internal/repo"
	"marketplace-checkout/internal/service"
	"marketplace-checkout/internal/worker"
)

func main() {
	stock := flag.Int64("stock", 10, "units of the flash-sale product")
	buyers := flag.Int("buyers", 50, "concurrent buyers, one unit each")
	cancels := flag.Int("cancel", 3, "successful orders to cancel afterwards")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger, err := logger.New("warn", "console")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	db, err := database.NewPostgres(ctx, cfg.DB)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}

	productRepo := repo.NewProductRepo(db)
	orderRepo := repo.NewOrderRepo(db)
	paymentRepo := repo.NewPaymentRepo(db)
	m := metrics.New(prometheus.NewRegistry())
	orderService := service.NewOrderService(db, productRepo, orderRepo, paymentRepo, repo.NewShipmentRepo(db), logger, m)

	product := &domain.Product{
		Name:  "Flash Sale " + uuid.NewString()[:8],
		Price: 149000,
		Stock: *stock,
	}
	if err := productRepo.CreateProduct(ctx, product); err != nil {
		logger.Fatal("Failed to seed product", zap.Error(err))
	}

	fmt.Printf("--- %d BUYERS RACING FOR %d UNITS OF %q ---\n", *buyers, *stock, product.Name)

	var (
		mu       sync.Mutex
		placed   []*service.OrderResult
		rejected atomic.Int64
		retried  atomic.Int64
	)

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for i := range *buyers {
		userID := int64(1000 + i)
		g.Go(func() error {
			for attempt := 0; attempt < 3; attempt++ {
				res, err := orderService.PlaceOrder(gctx, userID,
					[]domain.LineItem{{ProductID: product.ID, Quantity: 1}},
					service.PaymentInput{Method: "bank_transfer"},
					service.ShipmentInput{Courier: "jne"},
				)
				switch kind := domain.KindOf(err); {
				case err == nil:
					mu.Lock()
					placed = append(placed, res)
					mu.Unlock()
					return nil
				case kind == domain.KindInsufficientStock:
					rejected.Add(1)
					return nil
				case kind.Retryable():
					retried.Add(1)
					continue
				default:
					return fmt.Errorf("buyer %d: %w", userID, err)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Fatal("Simulation failed", zap.Error(err))
	}

	after, err := productRepo.FindById(ctx, product.ID)
	if err != nil {
		logger.Fatal("Failed to reload product", zap.Error(err))
	}

	fmt.Printf("placed=%d rejected=%d lock_retries=%d elapsed=%s\n",
		len(placed), rejected.Load(), retried.Load(), time.Since(start).Round(time.Millisecond))
	fmt.Printf("stock left=%d (sold %d of %d)\n", after.Stock, *stock-after.Stock, *stock)
	if int64(len(placed)) != *stock-after.Stock || after.Stock < 0 {
		fmt.Println("OVERSOLD: stock and orders disagree")
	} else {
		fmt.Println("OK: no oversell")
	}

	// Cancel a few orders and pay the rest, then let the expiry worker
	// settle the paid ones and expire nothing else.
	n := min(*cancels, len(placed))
	for _, res := range placed[:n] {
		if _, err := orderService.CancelOrder(ctx, res.Order.UserID, res.Order.ID); err != nil {
			fmt.Printf("cancel order %d: %v\n", res.Order.ID, err)
		}
	}
	if after, err = productRepo.FindById(ctx, product.ID); err == nil {
		fmt.Printf("after %d cancellations stock=%d\n", n, after.Stock)
	}

	gateway := payment.NewPaymentGateway()
	for _, res := range placed[n:] {
		if _, err := gateway.Charge(ctx, res.Payment.TransactionID, res.Payment.Amount); err != nil {
			fmt.Printf("charge order %d: %v\n", res.Order.ID, err)
		}
	}

	wctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	worker.NewExpiryWorker(orderRepo, paymentRepo, gateway, orderService, time.Nanosecond, 500*time.Millisecond, logger, m).Run(wctx)

	paid := 0
	for _, res := range placed[n:] {
		order, err := orderService.GetOrder(ctx, res.Order.UserID, res.Order.ID)
		if err == nil && order.Status == domain.OrderPaid {
			paid++
		}
	}
	fmt.Printf("settled by worker=%d of %d charged\n", paid, len(placed)-n)
}
