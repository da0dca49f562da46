package payloads

import (
	"time"

	"github.com/fixhubapp/fixhub-backend/pkg/enums"
	"github.com/google/uuid"
)

// OrderCreatedEvent signals a new repair order entering the dispatch pool.
type OrderCreatedEvent struct {
	OrderID      uuid.UUID `json:"order_id"`
	CustomerID   uuid.UUID `json:"customer_id"`
	CategoryID   string    `json:"category_id"`
	DeviceBrand  string    `json:"device_brand"`
	DeviceModel  string    `json:"device_model"`
	IssueSummary string    `json:"issue_summary"`
	Latitude     *float64  `json:"latitude,omitempty"`
	Longitude    *float64  `json:"longitude,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// OrderClaimedEvent is emitted when a technician wins the claim race.
type OrderClaimedEvent struct {
	OrderID      uuid.UUID `json:"order_id"`
	CustomerID   uuid.UUID `json:"customer_id"`
	TechnicianID uuid.UUID `json:"technician_id"`
	ClaimedAt    time.Time `json:"claimed_at"`
}

// OrderStatusChangedEvent surfaces every guarded status transition.
type OrderStatusChangedEvent struct {
	OrderID      uuid.UUID         `json:"order_id"`
	CustomerID   uuid.UUID         `json:"customer_id"`
	TechnicianID *uuid.UUID        `json:"technician_id,omitempty"`
	From         enums.OrderStatus `json:"from"`
	To           enums.OrderStatus `json:"to"`
	ChangedAt    time.Time         `json:"changed_at"`
}
