package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"marketplace-checkout/internal/config"
	"marketplace-checkout/internal/database"
	"marketplace-checkout/internal/infrastructure/payment"
	"marketplace-checkout/internal/logger"
	"marketplace-checkout/internal/metrics"
	"marketplace-checkout/internal/repo"
	"marketplace-checkout/internal/server"
	"marketplace-checkout/internal/service"
	"marketplace-checkout/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.DB)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	dbService := database.New(db, cfg.DB.Name, logger)
	defer dbService.Close()

	if err := database.Migrate(ctx, db); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	productRepo := repo.NewProductRepo(db)
	orderRepo := repo.NewOrderRepo(db)
	paymentRepo := repo.NewPaymentRepo(db)
	shipmentRepo := repo.NewShipmentRepo(db)
	orderService := service.NewOrderService(db, productRepo, orderRepo, paymentRepo, shipmentRepo, logger, m)

	if cfg.OrderExpiry > 0 {
		expiry := worker.NewExpiryWorker(orderRepo, paymentRepo, payment.NewPaymentGateway(), orderService,
			cfg.OrderExpiry, cfg.OrderExpiryInterval, logger, m)
		go expiry.Run(ctx)
	} else {
		logger.Info("Order expiry disabled")
	}

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := server.NewRouter(server.Options{
		Orders:         orderService,
		DB:             dbService,
		Metrics:        m,
		Gatherer:       reg,
		Logger:         logger,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	logger.Info("Checkout service started", zap.String("addr", srv.Addr))

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
