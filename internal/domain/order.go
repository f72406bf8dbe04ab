package domain

import (
	"time"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderPaid      OrderStatus = "PAID"
	OrderShipped   OrderStatus = "SHIPPED"
	OrderDelivered OrderStatus = "DELIVERED"
	OrderCompleted OrderStatus = "COMPLETED"
	OrderCanceled  OrderStatus = "CANCELED"
)

// Cancelable reports whether an order in this status may still be canceled
// by its owner. CANCELED is handled separately so callers can tell the two
// refusals apart.
func (s OrderStatus) Cancelable() bool {
	switch s {
	case OrderShipped, OrderDelivered, OrderCompleted, OrderCanceled:
		return false
	}
	return true
}

type Order struct {
	ID            int64       `json:"id"`
	UserID        int64       `json:"user_id"`
	Status        OrderStatus `json:"status"`
	TotalAmount   int64       `json:"total_amount"`
	ShippingCost  int64       `json:"shipping_cost"`
	PaymentMethod string      `json:"payment_method"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`

	Items    []OrderItem `json:"items,omitempty"`
	Payment  *Payment    `json:"payment,omitempty"`
	Shipment *Shipment   `json:"shipment,omitempty"`
}

// OrderItem is immutable once written. Name and price are copied from the
// product at purchase time and never re-read.
type OrderItem struct {
	ID                  int64  `json:"id"`
	OrderID             int64  `json:"order_id"`
	ProductID           int64  `json:"product_id"`
	ProductNameSnapshot string `json:"product_name_snapshot"`
	PriceSnapshot       int64  `json:"price_snapshot"`
	Quantity            int64  `json:"quantity"`
}

func (i OrderItem) Subtotal() int64 {
	return i.PriceSnapshot * i.Quantity
}

// OrderSummary is a flattened read model of an order.
type OrderSummary struct {
	OrderID        int64          `json:"order_id"`
	Status         OrderStatus    `json:"status"`
	ItemsCount     int            `json:"items_count"`
	Subtotal       int64          `json:"subtotal"`
	ShippingCost   int64          `json:"shipping_cost"`
	Total          int64          `json:"total"`
	PaymentMethod  string         `json:"payment_method"`
	PaymentStatus  PaymentStatus  `json:"payment_status"`
	Courier        string         `json:"courier,omitempty"`
	TrackingNumber string         `json:"tracking_number,omitempty"`
	ShipmentStatus ShipmentStatus `json:"shipment_status,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Summarize builds the summary from a fully loaded order.
func (o *Order) Summarize() OrderSummary {
	var subtotal int64
	for _, it := range o.Items {
		subtotal += it.Subtotal()
	}

	s := OrderSummary{
		OrderID:       o.ID,
		Status:        o.Status,
		ItemsCount:    len(o.Items),
		Subtotal:      subtotal,
		ShippingCost:  o.ShippingCost,
		Total:         o.TotalAmount,
		PaymentMethod: o.PaymentMethod,
		PaymentStatus: PaymentPending,
		CreatedAt:     o.CreatedAt,
	}
	if o.Payment != nil {
		s.PaymentStatus = o.Payment.Status
	}
	if o.Shipment != nil {
		s.Courier = o.Shipment.Courier
		s.TrackingNumber = o.Shipment.TrackingNumber
		s.ShipmentStatus = o.Shipment.Status
	}
	return s
}

// OrderPage is one page of a user's order history.
type OrderPage struct {
	Orders     []Order `json:"orders"`
	Total      int     `json:"total"`
	Page       int     `json:"page"`
	Limit      int     `json:"limit"`
	TotalPages int     `json:"total_pages"`
}
