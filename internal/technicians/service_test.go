package technicians

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fixhubapp/fixhub-backend/pkg/db/models"
	pkgerrors "github.com/fixhubapp/fixhub-backend/pkg/errors"
	"github.com/fixhubapp/fixhub-backend/pkg/logger"
	"github.com/fixhubapp/fixhub-backend/pkg/redis"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type stubTechRepo struct {
	technician *models.Technician
	updateRows int64
	updateErr  error

	updatedLat float64
	updatedLng float64
}

func (s *stubTechRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubTechRepo) Create(ctx context.Context, technician *models.Technician) (*models.Technician, error) {
	s.technician = technician
	return technician, nil
}

func (s *stubTechRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Technician, error) {
	if s.technician == nil || s.technician.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.technician
	return &copied, nil
}

func (s *stubTechRepo) UpdateProfile(ctx context.Context, id uuid.UUID, updates map[string]any) (int64, error) {
	return s.updateRows, s.updateErr
}

func (s *stubTechRepo) UpdateLocation(ctx context.Context, id uuid.UUID, lat, lng float64, at time.Time) (int64, error) {
	if s.updateErr != nil {
		return 0, s.updateErr
	}
	if s.updateRows == 1 {
		s.updatedLat, s.updatedLng = lat, lng
		if s.technician != nil {
			s.technician.Latitude = &lat
			s.technician.Longitude = &lng
			s.technician.LocationUpdated = &at
		}
	}
	return s.updateRows, nil
}

type stubLocationCache struct {
	stored    map[string]redis.Location
	getErr    error
	storeErr  error
	allow     bool
	allowErr  error
	allowSeen []string
}

func newStubCache() *stubLocationCache {
	return &stubLocationCache{stored: map[string]redis.Location{}, allow: true}
}

func (s *stubLocationCache) StoreLocation(ctx context.Context, technicianID string, loc redis.Location, ttl time.Duration) error {
	if s.storeErr != nil {
		return s.storeErr
	}
	s.stored[technicianID] = loc
	return nil
}

func (s *stubLocationCache) GetLocation(ctx context.Context, technicianID string) (redis.Location, bool, error) {
	if s.getErr != nil {
		return redis.Location{}, false, s.getErr
	}
	loc, ok := s.stored[technicianID]
	return loc, ok, nil
}

func (s *stubLocationCache) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	s.allowSeen = append(s.allowSeen, scope)
	return s.allow, 1, s.allowErr
}

func newTestService(t *testing.T, repo Repository, cache locationCache) Service {
	t.Helper()
	svc, err := NewService(repo, cache, 15*time.Minute, logger.New(logger.Options{ServiceName: "technicians-test"}))
	if err != nil {
		t.Fatal(err)
	}
	return svc
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", code)
	}
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != code {
		t.Fatalf("expected code %s, got %v", code, err)
	}
}

func TestRegisterValidatesCategories(t *testing.T) {
	svc := newTestService(t, &stubTechRepo{}, newStubCache())

	_, err := svc.Register(context.Background(), RegisterInput{
		TechnicianID: uuid.New(),
		DisplayName:  "Sara",
		CategoryIDs:  []string{"screen", "flux_capacitor"},
	})
	requireCode(t, err, pkgerrors.CodeValidation)

	technician, err := svc.Register(context.Background(), RegisterInput{
		TechnicianID: uuid.New(),
		DisplayName:  "Sara",
		CategoryIDs:  []string{"screen", "battery"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !technician.Active {
		t.Fatal("expected new technician active")
	}
}

func TestUpdateLocationPersistsAndCaches(t *testing.T) {
	technicianID := uuid.New()
	repo := &stubTechRepo{technician: &models.Technician{ID: technicianID}, updateRows: 1}
	cache := newStubCache()
	svc := newTestService(t, repo, cache)

	err := svc.UpdateLocation(context.Background(), UpdateLocationInput{
		TechnicianID: technicianID,
		Latitude:     24.71,
		Longitude:    46.67,
	})
	if err != nil {
		t.Fatal(err)
	}
	loc, ok := cache.stored[technicianID.String()]
	if !ok {
		t.Fatal("expected cached location")
	}
	if loc.Lat != 24.71 || loc.Lng != 46.67 {
		t.Fatalf("unexpected cached location %+v", loc)
	}
	if len(cache.allowSeen) != 1 {
		t.Fatal("expected rate limit check")
	}
}

func TestUpdateLocationRejectsOutOfRange(t *testing.T) {
	svc := newTestService(t, &stubTechRepo{updateRows: 1}, newStubCache())

	err := svc.UpdateLocation(context.Background(), UpdateLocationInput{
		TechnicianID: uuid.New(),
		Latitude:     120,
		Longitude:    46.67,
	})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestUpdateLocationRateLimited(t *testing.T) {
	cache := newStubCache()
	cache.allow = false
	svc := newTestService(t, &stubTechRepo{updateRows: 1}, cache)

	err := svc.UpdateLocation(context.Background(), UpdateLocationInput{
		TechnicianID: uuid.New(),
		Latitude:     24.71,
		Longitude:    46.67,
	})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestUpdateLocationUnknownTechnician(t *testing.T) {
	svc := newTestService(t, &stubTechRepo{updateRows: 0}, newStubCache())

	err := svc.UpdateLocation(context.Background(), UpdateLocationInput{
		TechnicianID: uuid.New(),
		Latitude:     24.71,
		Longitude:    46.67,
	})
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestUpdateLocationSurvivesCacheFailure(t *testing.T) {
	technicianID := uuid.New()
	cache := newStubCache()
	cache.storeErr = errors.New("redis down")
	svc := newTestService(t, &stubTechRepo{technician: &models.Technician{ID: technicianID}, updateRows: 1}, cache)

	err := svc.UpdateLocation(context.Background(), UpdateLocationInput{
		TechnicianID: technicianID,
		Latitude:     24.71,
		Longitude:    46.67,
	})
	if err != nil {
		t.Fatalf("cache failure should not fail the update: %v", err)
	}
}

func TestLocationCacheHit(t *testing.T) {
	technicianID := uuid.New()
	cache := newStubCache()
	cache.stored[technicianID.String()] = redis.Location{Lat: 24.71, Lng: 46.67, UpdatedAt: time.Now().UTC()}
	svc := newTestService(t, &stubTechRepo{}, cache)

	loc, err := svc.Location(context.Background(), technicianID)
	if err != nil {
		t.Fatal(err)
	}
	if loc == nil || loc.Lat != 24.71 {
		t.Fatalf("unexpected location %+v", loc)
	}
}

func TestLocationFallsBackToProfile(t *testing.T) {
	technicianID := uuid.New()
	lat, lng := 24.80, 46.80
	at := time.Now().UTC()
	repo := &stubTechRepo{technician: &models.Technician{
		ID:              technicianID,
		Latitude:        &lat,
		Longitude:       &lng,
		LocationUpdated: &at,
	}}
	cache := newStubCache()
	svc := newTestService(t, repo, cache)

	loc, err := svc.Location(context.Background(), technicianID)
	if err != nil {
		t.Fatal(err)
	}
	if loc == nil || loc.Lat != lat || loc.Lng != lng {
		t.Fatalf("unexpected location %+v", loc)
	}
	if _, ok := cache.stored[technicianID.String()]; !ok {
		t.Fatal("expected cache backfill")
	}
}

func TestLocationUnknown(t *testing.T) {
	technicianID := uuid.New()
	repo := &stubTechRepo{technician: &models.Technician{ID: technicianID}}
	svc := newTestService(t, repo, newStubCache())

	loc, err := svc.Location(context.Background(), technicianID)
	if err != nil {
		t.Fatal(err)
	}
	if loc != nil {
		t.Fatalf("expected nil location, got %+v", loc)
	}
}

func TestLocationMissingTechnician(t *testing.T) {
	svc := newTestService(t, &stubTechRepo{}, newStubCache())

	_, err := svc.Location(context.Background(), uuid.New())
	requireCode(t, err, pkgerrors.CodeNotFound)
}
