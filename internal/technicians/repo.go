package technicians

import (
	"context"
	"time"

	"github.com/fixhubapp/fixhub-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes persistence operations for technician profiles.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, technician *models.Technician) (*models.Technician, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Technician, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, updates map[string]any) (int64, error)
	UpdateLocation(ctx context.Context, id uuid.UUID, lat, lng float64, at time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a technicians repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, technician *models.Technician) (*models.Technician, error) {
	if err := r.db.WithContext(ctx).Create(technician).Error; err != nil {
		return nil, err
	}
	return technician, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Technician, error) {
	var technician models.Technician
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&technician).Error
	if err != nil {
		return nil, err
	}
	return &technician, nil
}

func (r *repository) UpdateProfile(ctx context.Context, id uuid.UUID, updates map[string]any) (int64, error) {
	if len(updates) == 0 {
		return 0, nil
	}
	updates["updated_at"] = time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&models.Technician{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repository) UpdateLocation(ctx context.Context, id uuid.UUID, lat, lng float64, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Technician{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"latitude":            lat,
			"longitude":           lng,
			"location_updated_at": at,
			"updated_at":          at,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
