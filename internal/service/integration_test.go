//go:build integration

package service_test

import (
	"context"
	"database/sql"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap/zaptest"
	"golang.org/x/sync/errgroup"

	"marketplace-checkout/internal/config"
	"marketplace-checkout/internal/database"
	"marketplace-checkout/internal/domain"
	"marketplace-checkout/internal/metrics"
	"marketplace-checkout/internal/repo"
	"marketplace-checkout/internal/service"
)

type env struct {
	db       *sql.DB
	products repo.ProductRepo
	svc      service.OrderService
}

func setupPostgres(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("checkout"),
		postgres.WithUsername("checkout"),
		postgres.WithPassword("checkout"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	db, err := database.NewPostgres(ctx, config.Database{
		Host:             host,
		Port:             port.Port(),
		Username:         "checkout",
		Password:         "checkout",
		Name:             "checkout",
		LockTimeout:      5 * time.Second,
		StatementTimeout: 30 * time.Second,
		MaxOpenConns:     20,
		MaxIdleConns:     5,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(ctx, db))

	products := repo.NewProductRepo(db)
	svc := service.NewOrderService(db,
		products, repo.NewOrderRepo(db), repo.NewPaymentRepo(db), repo.NewShipmentRepo(db),
		zaptest.NewLogger(t), metrics.New(prometheus.NewRegistry()),
	)
	return &env{db: db, products: products, svc: svc}
}

func (e *env) seed(t *testing.T, name string, price, stock int64) *domain.Product {
	t.Helper()
	p := &domain.Product{Name: name, Price: price, Stock: stock}
	require.NoError(t, e.products.CreateProduct(context.Background(), p))
	return p
}

func (e *env) stock(t *testing.T, id int64) int64 {
	t.Helper()
	p, err := e.products.FindById(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p.Stock
}

func (e *env) count(t *testing.T, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, e.db.QueryRow(query, args...).Scan(&n))
	return n
}

var (
	cod = service.PaymentInput{Method: "cod"}
	jne = service.ShipmentInput{Courier: "jne"}
)

func TestCheckout_Postgres(t *testing.T) {
	e := setupPostgres(t)
	ctx := context.Background()

	t.Run("insufficient stock leaves no trace", func(t *testing.T) {
		a := e.seed(t, "Kopi Gayo", 100, 5)
		b := e.seed(t, "Teh Tarik", 250, 0)

		_, err := e.svc.PlaceOrder(ctx, 101,
			[]domain.LineItem{{ProductID: a.ID, Quantity: 2}, {ProductID: b.ID, Quantity: 1}}, cod, jne)

		assert.Equal(t, domain.KindInsufficientStock, domain.KindOf(err))
		assert.Equal(t, int64(5), e.stock(t, a.ID))
		assert.Equal(t, 0, e.count(t, `SELECT count(*) FROM orders WHERE user_id = $1`, 101))
		assert.Equal(t, 0, e.count(t, `SELECT count(*) FROM order_items WHERE product_id = $1`, a.ID))
	})

	t.Run("total is subtotal plus shipping", func(t *testing.T) {
		a := e.seed(t, "Kopi Gayo", 100, 5)
		b := e.seed(t, "Teh Tarik", 250, 5)

		res, err := e.svc.PlaceOrder(ctx, 102,
			[]domain.LineItem{{ProductID: a.ID, Quantity: 2}, {ProductID: b.ID, Quantity: 1}}, cod, jne)
		require.NoError(t, err)
		assert.Equal(t, int64(450), res.Order.TotalAmount)
		assert.Equal(t, int64(450), res.Payment.Amount)
		assert.Len(t, res.Order.Items, 2)

		res, err = e.svc.PlaceOrder(ctx, 102,
			[]domain.LineItem{{ProductID: a.ID, Quantity: 1}}, cod, service.ShipmentInput{Courier: "jne", ShippingCost: 20})
		require.NoError(t, err)
		assert.Equal(t, int64(120), res.Order.TotalAmount)
	})

	t.Run("cancel restores stock exactly", func(t *testing.T) {
		a := e.seed(t, "Sambal", 30, 7)
		b := e.seed(t, "Kerupuk", 15, 4)

		res, err := e.svc.PlaceOrder(ctx, 103,
			[]domain.LineItem{{ProductID: b.ID, Quantity: 4}, {ProductID: a.ID, Quantity: 3}, {ProductID: a.ID, Quantity: 1}}, cod, jne)
		require.NoError(t, err)
		assert.Equal(t, int64(3), e.stock(t, a.ID))
		assert.Equal(t, int64(0), e.stock(t, b.ID))

		order, err := e.svc.CancelOrder(ctx, 103, res.Order.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderCanceled, order.Status)
		assert.Equal(t, domain.PaymentCanceled, order.Payment.Status)
		assert.Equal(t, int64(7), e.stock(t, a.ID))
		assert.Equal(t, int64(4), e.stock(t, b.ID))

		_, err = e.svc.CancelOrder(ctx, 103, res.Order.ID)
		assert.Equal(t, domain.KindAlreadyCanceled, domain.KindOf(err))
		assert.Equal(t, int64(7), e.stock(t, a.ID))
	})

	t.Run("items keep their snapshot", func(t *testing.T) {
		a := e.seed(t, "Rendang", 500, 3)

		res, err := e.svc.PlaceOrder(ctx, 104, []domain.LineItem{{ProductID: a.ID, Quantity: 1}}, cod, jne)
		require.NoError(t, err)

		a.Name, a.Price, a.Stock = "Rendang Premium", 900, 2
		require.NoError(t, e.products.UpdateProduct(ctx, a))

		order, err := e.svc.GetOrder(ctx, 104, res.Order.ID)
		require.NoError(t, err)
		require.Len(t, order.Items, 1)
		assert.Equal(t, "Rendang", order.Items[0].ProductNameSnapshot)
		assert.Equal(t, int64(500), order.Items[0].PriceSnapshot)
	})

	t.Run("shipped orders cannot be canceled", func(t *testing.T) {
		a := e.seed(t, "Gudeg", 40, 2)
		res, err := e.svc.PlaceOrder(ctx, 105, []domain.LineItem{{ProductID: a.ID, Quantity: 1}}, cod, jne)
		require.NoError(t, err)
		_, err = e.db.Exec(`UPDATE orders SET status = 'SHIPPED' WHERE id = $1`, res.Order.ID)
		require.NoError(t, err)

		_, err = e.svc.CancelOrder(ctx, 105, res.Order.ID)

		assert.Equal(t, domain.KindNotCancelable, domain.KindOf(err))
		assert.Equal(t, int64(1), e.stock(t, a.ID))
		order, err := e.svc.GetOrder(ctx, 105, res.Order.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderShipped, order.Status)
		assert.Equal(t, domain.PaymentPending, order.Payment.Status)
	})

	t.Run("other users' orders are not found", func(t *testing.T) {
		a := e.seed(t, "Soto", 25, 2)
		res, err := e.svc.PlaceOrder(ctx, 106, []domain.LineItem{{ProductID: a.ID, Quantity: 1}}, cod, jne)
		require.NoError(t, err)

		_, err = e.svc.CancelOrder(ctx, 999, res.Order.ID)
		assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
		_, err = e.svc.CancelOrder(ctx, 999, res.Order.ID+100000)
		assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
		assert.Equal(t, int64(1), e.stock(t, a.ID))
	})

	t.Run("schema rejects negative amounts", func(t *testing.T) {
		_, err := e.db.Exec(`INSERT INTO orders (user_id, total_amount, shipping_cost, payment_method) VALUES (108, -1, 0, 'cod')`)
		assert.Error(t, err)

		a := e.seed(t, "Pempek", 35, 1)
		res, err := e.svc.PlaceOrder(ctx, 108, []domain.LineItem{{ProductID: a.ID, Quantity: 1}}, cod, jne)
		require.NoError(t, err)
		_, err = e.db.Exec(`UPDATE payments SET amount = -1 WHERE order_id = $1`, res.Order.ID)
		assert.Error(t, err)
	})

	t.Run("overflowing shipping cost is rejected", func(t *testing.T) {
		a := e.seed(t, "Martabak", 100, 3)

		_, err := e.svc.PlaceOrder(ctx, 109, []domain.LineItem{{ProductID: a.ID, Quantity: 1}}, cod,
			service.ShipmentInput{Courier: "jne", ShippingCost: math.MaxInt64})

		assert.Equal(t, domain.KindInvalidInput, domain.KindOf(err))
		assert.Equal(t, int64(3), e.stock(t, a.ID))
		assert.Equal(t, 0, e.count(t, `SELECT count(*) FROM orders WHERE user_id = $1`, 109))
	})

	t.Run("expired order returns stock", func(t *testing.T) {
		a := e.seed(t, "Bakso", 20, 2)
		res, err := e.svc.PlaceOrder(ctx, 107, []domain.LineItem{{ProductID: a.ID, Quantity: 2}}, cod, jne)
		require.NoError(t, err)

		order, err := e.svc.ExpireOrder(ctx, res.Order.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderCanceled, order.Status)
		assert.Equal(t, int64(2), e.stock(t, a.ID))
	})
}

func TestCheckout_ConcurrentOversell(t *testing.T) {
	e := setupPostgres(t)
	ctx := context.Background()

	t.Run("last unit goes to exactly one buyer", func(t *testing.T) {
		p := e.seed(t, "Last Unit", 1000, 1)

		var g errgroup.Group
		errs := make([]error, 2)
		for i := range errs {
			g.Go(func() error {
				_, errs[i] = e.svc.PlaceOrder(ctx, int64(200+i), []domain.LineItem{{ProductID: p.ID, Quantity: 1}}, cod, jne)
				return nil
			})
		}
		require.NoError(t, g.Wait())

		var ok, short int
		for _, err := range errs {
			switch domain.KindOf(err) {
			case domain.KindInsufficientStock:
				short++
			default:
				if err == nil {
					ok++
				}
			}
		}
		assert.Equal(t, 1, ok)
		assert.Equal(t, 1, short)
		assert.Equal(t, int64(0), e.stock(t, p.ID))
	})

	t.Run("overlapping carts in opposite order do not deadlock", func(t *testing.T) {
		a := e.seed(t, "Nasi", 10, 40)
		b := e.seed(t, "Ayam", 20, 40)

		var (
			mu     sync.Mutex
			placed int64
		)
		var g errgroup.Group
		for i := range 20 {
			items := []domain.LineItem{{ProductID: a.ID, Quantity: 1}, {ProductID: b.ID, Quantity: 1}}
			if i%2 == 1 {
				items[0], items[1] = items[1], items[0]
			}
			g.Go(func() error {
				_, err := e.svc.PlaceOrder(ctx, int64(300+i), items, cod, jne)
				if err != nil {
					return err
				}
				mu.Lock()
				placed++
				mu.Unlock()
				return nil
			})
		}
		require.NoError(t, g.Wait())

		assert.Equal(t, int64(20), placed)
		assert.Equal(t, int64(20), e.stock(t, a.ID))
		assert.Equal(t, int64(20), e.stock(t, b.ID))
	})
}
