package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/fixhubapp/fixhub-backend/pkg/types"
)

// Technician is the service-provider profile. Last-known coordinates are
// persisted here and mirrored into Redis for the hot path.
type Technician struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DisplayName     string            `gorm:"column:display_name;not null"`
	Phone           *string           `gorm:"column:phone"`
	CategoryIDs     types.StringArray `gorm:"column:category_ids;type:text"`
	Latitude        *float64          `gorm:"column:latitude"`
	Longitude       *float64          `gorm:"column:longitude"`
	LocationUpdated *time.Time        `gorm:"column:location_updated_at"`
	Active          bool              `gorm:"column:active;not null;default:true"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// HasCoordinates reports whether a last-known location exists.
func (t Technician) HasCoordinates() bool {
	return t.Latitude != nil && t.Longitude != nil
}
