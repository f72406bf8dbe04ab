package payment

import (
	"context"
	"errors"
	"sync"
)

var ErrInvalidAmount = errors.New("payment: amount must be positive")

// PaymentGateway is the provider side of a payment, keyed by the
// transaction id the checkout issued.
type PaymentGateway interface {
	Charge(ctx context.Context, transactionID string, amount int64) (bool, error)
	CheckStatus(ctx context.Context, transactionID string) (bool, error)
}

type paymentGateway struct {
	mu      sync.RWMutex
	charged map[string]int64
}

// NewPaymentGateway returns an in-process gateway. Charges are idempotent per
// transaction id and always settle.
func NewPaymentGateway() PaymentGateway {
	return &paymentGateway{charged: make(map[string]int64)}
}

func (pg *paymentGateway) Charge(ctx context.Context, transactionID string, amount int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if amount <= 0 {
		return false, ErrInvalidAmount
	}

	pg.mu.RLock()
	_, exists := pg.charged[transactionID]
	pg.mu.RUnlock()
	if exists {
		return true, nil
	}

	pg.mu.Lock()
	defer pg.mu.Unlock()
	if _, exists := pg.charged[transactionID]; !exists {
		pg.charged[transactionID] = amount
	}
	return true, nil
}

func (pg *paymentGateway) CheckStatus(ctx context.Context, transactionID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	pg.mu.RLock()
	defer pg.mu.RUnlock()
	_, paid := pg.charged[transactionID]
	return paid, nil
}
