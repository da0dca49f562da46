package orders

import (
	"context"

	"github.com/fixhubapp/fixhub-backend/pkg/db/models"
	"github.com/fixhubapp/fixhub-backend/pkg/enums"
	"github.com/fixhubapp/fixhub-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes persistence operations for repair orders. The
// conditional writes (ClaimPending, UpdateStatusFrom) are the only way the
// status and technician columns change.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListPending(ctx context.Context) ([]models.Order, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters ListFilters) ([]models.Order, *pagination.Cursor, error)
	ListByTechnician(ctx context.Context, technicianID uuid.UUID, params pagination.Params, filters ListFilters) ([]models.Order, *pagination.Cursor, error)
	ClaimPending(ctx context.Context, orderID, technicianID uuid.UUID) (int64, error)
	UpdateStatusFrom(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus) (int64, error)
}
