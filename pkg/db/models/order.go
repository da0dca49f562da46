package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fixhubapp/fixhub-backend/pkg/enums"
	"github.com/fixhubapp/fixhub-backend/pkg/types"
)

// Order is a repair request posted by a customer and claimed by at most one
// technician. TechnicianID stays nil until the claim lands.
type Order struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID     uuid.UUID         `gorm:"column:customer_id;type:uuid;not null"`
	TechnicianID   *uuid.UUID        `gorm:"column:technician_id;type:uuid"`
	DeviceBrand    string            `gorm:"column:device_brand;not null"`
	DeviceModel    string            `gorm:"column:device_model;not null"`
	IssueSummary   string            `gorm:"column:issue_summary;not null"`
	IssueDetail    *string           `gorm:"column:issue_detail"`
	CategoryID     string            `gorm:"column:category_id;not null"`
	Latitude       *float64          `gorm:"column:latitude"`
	Longitude      *float64          `gorm:"column:longitude"`
	LocationLabel  *string           `gorm:"column:location_label"`
	EstimatedPrice *decimal.Decimal  `gorm:"column:estimated_price;type:numeric(10,2)"`
	MediaURLs      types.StringArray `gorm:"column:media_urls;type:text"`
	Status         enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// HasCoordinates reports whether the order carries a usable location.
func (o Order) HasCoordinates() bool {
	return o.Latitude != nil && o.Longitude != nil
}
