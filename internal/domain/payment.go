package domain

import (
	"time"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentSuccess  PaymentStatus = "success"
	PaymentFailed   PaymentStatus = "failed"
	PaymentCanceled PaymentStatus = "canceled"
)

type Payment struct {
	ID            int64         `json:"id"`
	OrderID       int64         `json:"order_id"`
	Provider      string        `json:"provider"`
	Status        PaymentStatus `json:"status"`
	TransactionID string        `json:"transaction_id"`
	Amount        int64         `json:"amount"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}
