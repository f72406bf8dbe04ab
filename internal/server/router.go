package server

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"marketplace-checkout/internal/database"
	"marketplace-checkout/internal/metrics"
	"marketplace-checkout/internal/service"
)

type Options struct {
	Orders         service.OrderService
	DB             database.Service
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	Logger         *zap.Logger
	AllowedOrigins []string
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", headerUserID, headerRequestID},
		ExposeHeaders: []string{headerRequestID, "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func NewRouter(opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(LoggerMiddleware(opts.Logger))
	r.Use(MetricsMiddleware(opts.Metrics))
	r.Use(cors.New(corsConfig(opts.AllowedOrigins)))

	r.GET("/health", healthHandler(opts.DB))
	r.GET("/metrics", gin.WrapH(metrics.Handler(opts.Gatherer)))

	h := NewOrderHandler(opts.Orders, opts.Logger)
	orders := r.Group("/orders", RequireUser())
	orders.POST("", h.PlaceOrder)
	orders.GET("", h.ListOrders)
	orders.GET("/:id", h.GetOrder)
	orders.GET("/:id/summary", h.OrderSummary)
	orders.DELETE("/:id", h.CancelOrder)

	return r
}

func healthHandler(db database.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := db.Health(c.Request.Context())
		status := http.StatusOK
		if stats["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, stats)
	}
}
