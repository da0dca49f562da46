package orders

import (
	"github.com/fixhubapp/fixhub-backend/pkg/db/models"
	"github.com/fixhubapp/fixhub-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateInput carries the fields a customer submits for a new repair order.
type CreateInput struct {
	CustomerID     uuid.UUID
	DeviceBrand    string
	DeviceModel    string
	IssueID        string
	IssueSummary   string
	IssueDetail    *string
	Latitude       *float64
	Longitude      *float64
	LocationLabel  *string
	EstimatedPrice *decimal.Decimal
	MediaURLs      []string
}

// ListFilters describe the inputs supported by the customer and technician
// order lists.
type ListFilters struct {
	Status     *enums.OrderStatus
	CategoryID string
}

// OrderList wraps a page of orders plus the next page cursor.
type OrderList struct {
	Orders     []models.Order `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// AvailableQuery holds the viewer context for the claimable order list.
type AvailableQuery struct {
	CategoryID string
	Latitude   *float64
	Longitude  *float64
}

// AcceptInput identifies the order a technician is claiming.
type AcceptInput struct {
	OrderID      uuid.UUID
	TechnicianID uuid.UUID
}

// UpdateStatusInput carries a requested lifecycle transition.
type UpdateStatusInput struct {
	OrderID     uuid.UUID
	NewStatus   enums.OrderStatus
	ActorUserID uuid.UUID
	ActorRole   enums.ActorRole
}
