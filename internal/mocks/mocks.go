package mocks

import (
	"context"
	"database/sql"
	"time"

	"github.com/stretchr/testify/mock"

	"marketplace-checkout/internal/domain"
)

type MockProductRepo struct {
	mock.Mock
}

func (m *MockProductRepo) LockByID(ctx context.Context, tx *sql.Tx, id int64) (*domain.Product, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockProductRepo) DecrementStock(ctx context.Context, tx *sql.Tx, id int64, quantity int64) error {
	args := m.Called(ctx, tx, id, quantity)
	return args.Error(0)
}

func (m *MockProductRepo) IncrementStock(ctx context.Context, tx *sql.Tx, id int64, quantity int64) error {
	args := m.Called(ctx, tx, id, quantity)
	return args.Error(0)
}

func (m *MockProductRepo) FindById(ctx context.Context, id int64) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockProductRepo) CreateProduct(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepo) UpdateProduct(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

type MockOrderRepo struct {
	mock.Mock
}

func (m *MockOrderRepo) CreateOrder(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	args := m.Called(ctx, tx, order)
	return args.Error(0)
}

func (m *MockOrderRepo) CreateOrderItem(ctx context.Context, tx *sql.Tx, item *domain.OrderItem) error {
	args := m.Called(ctx, tx, item)
	return args.Error(0)
}

func (m *MockOrderRepo) FindByIdForUser(ctx context.Context, tx *sql.Tx, id int64, userID int64) (*domain.Order, error) {
	args := m.Called(ctx, tx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderRepo) LockByIdForUser(ctx context.Context, tx *sql.Tx, id int64, userID int64) (*domain.Order, error) {
	args := m.Called(ctx, tx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderRepo) LockById(ctx context.Context, tx *sql.Tx, id int64) (*domain.Order, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderRepo) FindItems(ctx context.Context, tx *sql.Tx, orderID int64) ([]domain.OrderItem, error) {
	args := m.Called(ctx, tx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.OrderItem), args.Error(1)
}

func (m *MockOrderRepo) UpdateOrderStatus(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	args := m.Called(ctx, tx, order)
	return args.Error(0)
}

func (m *MockOrderRepo) FindByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Order, int, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Order), args.Int(1), args.Error(2)
}

func (m *MockOrderRepo) FindStalePending(ctx context.Context, olderThan time.Duration, limit int) ([]domain.Order, error) {
	args := m.Called(ctx, olderThan, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Order), args.Error(1)
}

type MockPaymentRepo struct {
	mock.Mock
}

func (m *MockPaymentRepo) CreatePayment(ctx context.Context, tx *sql.Tx, payment *domain.Payment) error {
	args := m.Called(ctx, tx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepo) FindByOrderId(ctx context.Context, tx *sql.Tx, orderID int64) (*domain.Payment, error) {
	args := m.Called(ctx, tx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentRepo) UpdatePaymentStatus(ctx context.Context, tx *sql.Tx, id int64, status domain.PaymentStatus) error {
	args := m.Called(ctx, tx, id, status)
	return args.Error(0)
}

type MockShipmentRepo struct {
	mock.Mock
}

func (m *MockShipmentRepo) CreateShipment(ctx context.Context, tx *sql.Tx, shipment *domain.Shipment) error {
	args := m.Called(ctx, tx, shipment)
	return args.Error(0)
}

func (m *MockShipmentRepo) FindByOrderId(ctx context.Context, tx *sql.Tx, orderID int64) (*domain.Shipment, error) {
	args := m.Called(ctx, tx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Shipment), args.Error(1)
}

type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) Charge(ctx context.Context, transactionID string, amount int64) (bool, error) {
	args := m.Called(ctx, transactionID, amount)
	return args.Bool(0), args.Error(1)
}

func (m *MockPaymentGateway) CheckStatus(ctx context.Context, transactionID string) (bool, error) {
	args := m.Called(ctx, transactionID)
	return args.Bool(0), args.Error(1)
}
