package technicians

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fixhubapp/fixhub-backend/pkg/catalog"
	"github.com/fixhubapp/fixhub-backend/pkg/db/models"
	pkgerrors "github.com/fixhubapp/fixhub-backend/pkg/errors"
	"github.com/fixhubapp/fixhub-backend/pkg/logger"
	"github.com/fixhubapp/fixhub-backend/pkg/redis"
	"github.com/fixhubapp/fixhub-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	locationRateScope  = "technician_location"
	locationRateLimit  = 12
	locationRateWindow = time.Minute
)

type locationCache interface {
	StoreLocation(ctx context.Context, technicianID string, loc redis.Location, ttl time.Duration) error
	GetLocation(ctx context.Context, technicianID string) (redis.Location, bool, error)
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// UpdateLocationInput carries a technician's position report.
type UpdateLocationInput struct {
	TechnicianID uuid.UUID
	Latitude     float64
	Longitude    float64
}

// RegisterInput carries the fields for a new technician profile.
type RegisterInput struct {
	TechnicianID uuid.UUID
	DisplayName  string
	Phone        *string
	CategoryIDs  []string
}

// Service defines technician profile and location operations.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*models.Technician, error)
	Me(ctx context.Context, technicianID uuid.UUID) (*models.Technician, error)
	UpdateLocation(ctx context.Context, input UpdateLocationInput) error
	Location(ctx context.Context, technicianID uuid.UUID) (*redis.Location, error)
}

type service struct {
	repo        Repository
	cache       locationCache
	locationTTL time.Duration
	logg        *logger.Logger
}

// NewService builds a technician service with the required dependencies.
func NewService(repo Repository, cache locationCache, locationTTL time.Duration, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("technicians repository required")
	}
	if cache == nil {
		return nil, fmt.Errorf("location cache required")
	}
	if locationTTL <= 0 {
		return nil, fmt.Errorf("location ttl must be positive")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:        repo,
		cache:       cache,
		locationTTL: locationTTL,
		logg:        logg,
	}, nil
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*models.Technician, error) {
	if input.TechnicianID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if strings.TrimSpace(input.DisplayName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "display name required")
	}
	for _, id := range input.CategoryIDs {
		if !catalog.IsValidCategoryID(id) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown category id").
				WithDetails(map[string]any{"category_id": id})
		}
	}

	technician := &models.Technician{
		ID:          input.TechnicianID,
		DisplayName: strings.TrimSpace(input.DisplayName),
		Phone:       input.Phone,
		CategoryIDs: types.StringArray(input.CategoryIDs),
		Active:      true,
	}
	created, err := s.repo.Create(ctx, technician)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create technician")
	}
	return created, nil
}

func (s *service) Me(ctx context.Context, technicianID uuid.UUID) (*models.Technician, error) {
	if technicianID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	technician, err := s.repo.FindByID(ctx, technicianID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "technician not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load technician")
	}
	return technician, nil
}

func (s *service) UpdateLocation(ctx context.Context, input UpdateLocationInput) error {
	if input.TechnicianID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.Latitude < -90 || input.Latitude > 90 || input.Longitude < -180 || input.Longitude > 180 {
		return pkgerrors.New(pkgerrors.CodeValidation, "coordinates out of range")
	}

	scope := locationRateScope + ":" + input.TechnicianID.String()
	allowed, _, err := s.cache.FixedWindowAllow(ctx, scope, locationRateLimit, locationRateWindow)
	if err != nil {
		s.logg.Warn(s.logg.WithTechnicianID(ctx, input.TechnicianID.String()), "location rate limit check failed, allowing")
	} else if !allowed {
		return pkgerrors.New(pkgerrors.CodeValidation, "location updates too frequent")
	}

	now := time.Now().UTC()
	rows, err := s.repo.UpdateLocation(ctx, input.TechnicianID, input.Latitude, input.Longitude, now)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist location")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "technician not found")
	}

	loc := redis.Location{
		Lat:       input.Latitude,
		Lng:       input.Longitude,
		UpdatedAt: now,
	}
	if err := s.cache.StoreLocation(ctx, input.TechnicianID.String(), loc, s.locationTTL); err != nil {
		// The DB row is the source of truth, the cache is warm-path only.
		s.logg.Warn(s.logg.WithTechnicianID(ctx, input.TechnicianID.String()), "location cache write failed")
	}
	return nil
}

// Location reads the hot cached coordinate, falling back to the persisted
// profile row when the cache entry expired.
func (s *service) Location(ctx context.Context, technicianID uuid.UUID) (*redis.Location, error) {
	if technicianID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	loc, found, err := s.cache.GetLocation(ctx, technicianID.String())
	if err != nil {
		s.logg.Warn(s.logg.WithTechnicianID(ctx, technicianID.String()), "location cache read failed")
	} else if found {
		return &loc, nil
	}

	technician, err := s.repo.FindByID(ctx, technicianID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "technician not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load technician")
	}
	if !technician.HasCoordinates() {
		return nil, nil
	}

	stored := redis.Location{
		Lat: *technician.Latitude,
		Lng: *technician.Longitude,
	}
	if technician.LocationUpdated != nil {
		stored.UpdatedAt = *technician.LocationUpdated
	}
	if err := s.cache.StoreLocation(ctx, technicianID.String(), stored, s.locationTTL); err != nil {
		s.logg.Warn(s.logg.WithTechnicianID(ctx, technicianID.String()), "location cache backfill failed")
	}
	return &stored, nil
}
