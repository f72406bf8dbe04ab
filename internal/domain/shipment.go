package domain

import (
	"time"
)

type ShipmentStatus string

const (
	ShipmentWaitingPickup ShipmentStatus = "waiting_pickup"
	ShipmentInTransit     ShipmentStatus = "in_transit"
	ShipmentDelivered     ShipmentStatus = "delivered"
)

type Shipment struct {
	ID             int64          `json:"id"`
	OrderID        int64          `json:"order_id"`
	Courier        string         `json:"courier"`
	TrackingNumber string         `json:"tracking_number"`
	Status         ShipmentStatus `json:"status"`
	CreatedAt      time.Time      `json:"created_at"`
}
