package domain

import (
	"time"
)

// Product is owned by the catalog. Checkout only reads price/name and moves
// stock, always under a row lock.
type Product struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Price     int64     `json:"price"`
	Stock     int64     `json:"stock"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LineItem is a requested (product, quantity) pair.
type LineItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

// ProductSnapshot is a validated line item with the product fields captured
// under lock. Stock is the value read before any decrement.
type ProductSnapshot struct {
	ProductID int64
	Name      string
	Price     int64
	Quantity  int64
	Stock     int64
}
