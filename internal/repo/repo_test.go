package repo

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-checkout/internal/domain"
)

func setupRepoTest(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func beginTx(t *testing.T, db *sql.DB, mock sqlmock.Sqlmock) *sql.Tx {
	t.Helper()
	mock.ExpectBegin()
	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)
	return tx
}

var orderCols = []string{"id", "user_id", "status", "total_amount", "shipping_cost", "payment_method", "created_at", "updated_at"}

func TestProductRepo_LockByID(t *testing.T) {
	db, mock := setupRepoTest(t)
	r := NewProductRepo(db)
	tx := beginTx(t, db, mock)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM products WHERE id = $1 FOR UPDATE`)).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price", "stock", "created_at", "updated_at"}).
			AddRow(1, "Kopi Gayo", 100, 5, now, now))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM products WHERE id = $1 FOR UPDATE`)).
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	p, err := r.LockByID(context.Background(), tx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Kopi Gayo", p.Name)
	assert.Equal(t, int64(5), p.Stock)

	p, err = r.LockByID(context.Background(), tx, 99)
	assert.NoError(t, err)
	assert.Nil(t, p)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepo_StockUpdates(t *testing.T) {
	db, mock := setupRepoTest(t)
	r := NewProductRepo(db)
	tx := beginTx(t, db, mock)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE products SET stock = stock - $2`)).
		WithArgs(int64(1), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE products SET stock = stock + $2`)).
		WithArgs(int64(7), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, r.DecrementStock(context.Background(), tx, 1, 2))
	assert.ErrorIs(t, r.IncrementStock(context.Background(), tx, 7, 3), sql.ErrNoRows)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo_CreateOrderAndItem(t *testing.T) {
	db, mock := setupRepoTest(t)
	r := NewOrderRepo(db)
	tx := beginTx(t, db, mock)
	now := time.Now()

	order := &domain.Order{UserID: 4, Status: domain.OrderPending, TotalAmount: 450, PaymentMethod: "bank_transfer", CreatedAt: now, UpdatedAt: now}
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO orders`)).
		WithArgs(int64(4), domain.OrderPending, int64(450), int64(0), "bank_transfer", now, now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))

	item := &domain.OrderItem{OrderID: 11, ProductID: 1, ProductNameSnapshot: "Kopi Gayo", PriceSnapshot: 100, Quantity: 2}
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO order_items`)).
		WithArgs(int64(11), int64(1), "Kopi Gayo", int64(100), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(21))

	require.NoError(t, r.CreateOrder(context.Background(), tx, order))
	require.NoError(t, r.CreateOrderItem(context.Background(), tx, item))
	assert.Equal(t, int64(11), order.ID)
	assert.Equal(t, int64(21), item.ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo_FindByIdForUser(t *testing.T) {
	db, mock := setupRepoTest(t)
	r := NewOrderRepo(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM orders WHERE id = $1 AND user_id = $2`)).
		WithArgs(int64(11), int64(4)).
		WillReturnRows(sqlmock.NewRows(orderCols).AddRow(11, 4, "PENDING", 450, 0, "bank_transfer", now, now))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM orders WHERE id = $1 AND user_id = $2`)).
		WithArgs(int64(11), int64(5)).
		WillReturnRows(sqlmock.NewRows(orderCols))

	o, err := r.FindByIdForUser(context.Background(), nil, 11, 4)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPending, o.Status)

	o, err = r.FindByIdForUser(context.Background(), nil, 11, 5)
	assert.NoError(t, err)
	assert.Nil(t, o)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo_LockByIdForUser(t *testing.T) {
	db, mock := setupRepoTest(t)
	r := NewOrderRepo(db)
	tx := beginTx(t, db, mock)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE id = $1 AND user_id = $2 FOR UPDATE`)).
		WithArgs(int64(11), int64(4)).
		WillReturnRows(sqlmock.NewRows(orderCols).AddRow(11, 4, "SHIPPED", 450, 0, "bank_transfer", now, now))

	o, err := r.LockByIdForUser(context.Background(), tx, 11, 4)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderShipped, o.Status)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo_FindItems(t *testing.T) {
	db, mock := setupRepoTest(t)
	r := NewOrderRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM order_items WHERE order_id = $1`)).
		WithArgs(int64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "product_id", "product_name_snapshot", "price_snapshot", "quantity"}).
			AddRow(1, 11, 1, "Kopi Gayo", 100, 2).
			AddRow(2, 11, 2, "Teh Tarik", 250, 1))

	items, err := r.FindItems(context.Background(), nil, 11)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, int64(200), items[0].Subtotal())
	assert.Equal(t, "Teh Tarik", items[1].ProductNameSnapshot)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo_FindByUser(t *testing.T) {
	db, mock := setupRepoTest(t)
	r := NewOrderRepo(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM orders WHERE user_id = $1`)).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`)).
		WithArgs(int64(4), 10, 10).
		WillReturnRows(sqlmock.NewRows(orderCols).
			AddRow(2, 4, "PENDING", 100, 0, "cod", now, now).
			AddRow(1, 4, "CANCELED", 300, 0, "cod", now, now))

	orders, total, err := r.FindByUser(context.Background(), 4, 10, 10)
	require.NoError(t, err)
	assert.Equal(t, 12, total)
	assert.Len(t, orders, 2)
	assert.Equal(t, domain.OrderCanceled, orders[1].Status)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepo_FindByOrderId(t *testing.T) {
	db, mock := setupRepoTest(t)
	r := NewPaymentRepo(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM payments WHERE order_id = $1`)).
		WithArgs(int64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "provider", "status", "transaction_id", "amount", "created_at", "updated_at"}).
			AddRow(3, 11, "midtrans", "pending", "TXN-1-11", 450, now, now))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM payments WHERE order_id = $1`)).
		WithArgs(int64(12)).
		WillReturnError(sql.ErrNoRows)

	p, err := r.FindByOrderId(context.Background(), nil, 11)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPending, p.Status)
	assert.Equal(t, int64(450), p.Amount)

	p, err = r.FindByOrderId(context.Background(), nil, 12)
	assert.NoError(t, err)
	assert.Nil(t, p)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShipmentRepo_CreateShipment(t *testing.T) {
	db, mock := setupRepoTest(t)
	r := NewShipmentRepo(db)
	tx := beginTx(t, db, mock)
	now := time.Now()

	s := &domain.Shipment{OrderID: 11, Courier: "jne", TrackingNumber: "TRK-1-11", Status: domain.ShipmentWaitingPickup, CreatedAt: now}
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO shipments`)).
		WithArgs(int64(11), "jne", "TRK-1-11", domain.ShipmentWaitingPickup, now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(8))

	require.NoError(t, r.CreateShipment(context.Background(), tx, s))
	assert.Equal(t, int64(8), s.ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}
