package orders

import (
	"context"
	"testing"
	"time"

	"github.com/fixhubapp/fixhub-backend/pkg/db/models"
	"github.com/fixhubapp/fixhub-backend/pkg/enums"
	pkgerrors "github.com/fixhubapp/fixhub-backend/pkg/errors"
	"github.com/fixhubapp/fixhub-backend/pkg/outbox"
	"github.com/fixhubapp/fixhub-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type stubOrdersRepo struct {
	order      *models.Order
	pending    []models.Order
	claimRows  int64
	claimErr   error
	updateRows int64
	findErr    error
	createErr  error

	created   *models.Order
	claimedBy *uuid.UUID
	updatedTo *enums.OrderStatus
}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubOrdersRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	order.CreatedAt = time.Now().UTC()
	order.UpdatedAt = order.CreatedAt
	s.created = order
	return order, nil
}

func (s *stubOrdersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.order == nil || s.order.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.order
	return &copied, nil
}

func (s *stubOrdersRepo) ListPending(ctx context.Context) ([]models.Order, error) {
	return s.pending, nil
}

func (s *stubOrdersRepo) ListByCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters ListFilters) ([]models.Order, *pagination.Cursor, error) {
	return s.pending, nil, nil
}

func (s *stubOrdersRepo) ListByTechnician(ctx context.Context, technicianID uuid.UUID, params pagination.Params, filters ListFilters) ([]models.Order, *pagination.Cursor, error) {
	return s.pending, nil, nil
}

func (s *stubOrdersRepo) ClaimPending(ctx context.Context, orderID, technicianID uuid.UUID) (int64, error) {
	if s.claimErr != nil {
		return 0, s.claimErr
	}
	if s.claimRows == 1 && s.order != nil {
		s.order.Status = enums.OrderStatusConfirmed
		s.order.TechnicianID = &technicianID
		s.order.UpdatedAt = time.Now().UTC()
		s.claimedBy = &technicianID
	}
	return s.claimRows, nil
}

func (s *stubOrdersRepo) UpdateStatusFrom(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus) (int64, error) {
	if s.updateRows == 1 && s.order != nil {
		s.order.Status = to
		s.updatedTo = &to
	}
	return s.updateRows, nil
}

type stubOutboxPublisher struct {
	events []outbox.DomainEvent
	err    error
}

func (s *stubOutboxPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", code)
	}
	appErr := pkgerrors.As(err)
	if appErr == nil {
		t.Fatalf("expected app error, got %v", err)
	}
	if appErr.Code() != code {
		t.Fatalf("expected code %s, got %s (%v)", code, appErr.Code(), err)
	}
}

func pendingOrder(customerID uuid.UUID) *models.Order {
	now := time.Now().UTC()
	return &models.Order{
		ID:           uuid.New(),
		CustomerID:   customerID,
		DeviceBrand:  "Apple",
		DeviceModel:  "iPhone 13",
		IssueSummary: "battery drains fast",
		CategoryID:   "battery",
		Status:       enums.OrderStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestNewServiceRequiresDeps(t *testing.T) {
	if _, err := NewService(nil, stubTxRunner{}, &stubOutboxPublisher{}); err == nil {
		t.Fatal("expected error for nil repository")
	}
	if _, err := NewService(&stubOrdersRepo{}, nil, &stubOutboxPublisher{}); err == nil {
		t.Fatal("expected error for nil tx runner")
	}
	if _, err := NewService(&stubOrdersRepo{}, stubTxRunner{}, nil); err == nil {
		t.Fatal("expected error for nil outbox publisher")
	}
}

func TestCreateMapsIssueToCategory(t *testing.T) {
	repo := &stubOrdersRepo{}
	pub := &stubOutboxPublisher{}
	svc, err := NewService(repo, stubTxRunner{}, pub)
	if err != nil {
		t.Fatal(err)
	}

	order, err := svc.Create(context.Background(), CreateInput{
		CustomerID:   uuid.New(),
		DeviceBrand:  "Apple",
		DeviceModel:  "iPhone 13",
		IssueID:      "cracked_screen",
		IssueSummary: "screen shattered after a drop",
	})
	if err != nil {
		t.Fatal(err)
	}
	if order.CategoryID != "screen" {
		t.Fatalf("expected screen category, got %s", order.CategoryID)
	}
	if order.Status != enums.OrderStatusPending {
		t.Fatalf("expected pending status, got %s", order.Status)
	}
	if len(pub.events) != 1 || pub.events[0].EventType != enums.EventOrderCreated {
		t.Fatalf("expected one order_created event, got %+v", pub.events)
	}
}

func TestCreateUnknownIssueFallsBack(t *testing.T) {
	repo := &stubOrdersRepo{}
	svc, _ := NewService(repo, stubTxRunner{}, &stubOutboxPublisher{})

	order, err := svc.Create(context.Background(), CreateInput{
		CustomerID:   uuid.New(),
		DeviceBrand:  "Nokia",
		DeviceModel:  "3310",
		IssueID:      "haunted_by_ghosts",
		IssueSummary: "something is very wrong",
	})
	if err != nil {
		t.Fatal(err)
	}
	if order.CategoryID != "other" {
		t.Fatalf("expected other category, got %s", order.CategoryID)
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _ := NewService(&stubOrdersRepo{}, stubTxRunner{}, &stubOutboxPublisher{})
	lat := 24.7

	_, err := svc.Create(context.Background(), CreateInput{
		CustomerID:   uuid.New(),
		DeviceModel:  "iPhone 13",
		IssueSummary: "broken",
	})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.Create(context.Background(), CreateInput{
		CustomerID:   uuid.New(),
		DeviceBrand:  "Apple",
		DeviceModel:  "iPhone 13",
		IssueSummary: "broken",
		Latitude:     &lat,
	})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.Create(context.Background(), CreateInput{
		DeviceBrand:  "Apple",
		DeviceModel:  "iPhone 13",
		IssueSummary: "broken",
	})
	requireCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestAcceptWinner(t *testing.T) {
	order := pendingOrder(uuid.New())
	repo := &stubOrdersRepo{order: order, claimRows: 1}
	pub := &stubOutboxPublisher{}
	svc, _ := NewService(repo, stubTxRunner{}, pub)

	technicianID := uuid.New()
	claimed, err := svc.Accept(context.Background(), AcceptInput{OrderID: order.ID, TechnicianID: technicianID})
	if err != nil {
		t.Fatal(err)
	}
	if claimed.Status != enums.OrderStatusConfirmed {
		t.Fatalf("expected confirmed status, got %s", claimed.Status)
	}
	if claimed.TechnicianID == nil || *claimed.TechnicianID != technicianID {
		t.Fatalf("expected technician %s bound, got %v", technicianID, claimed.TechnicianID)
	}
	if len(pub.events) != 1 || pub.events[0].EventType != enums.EventOrderClaimed {
		t.Fatalf("expected one order_claimed event, got %+v", pub.events)
	}
}

func TestAcceptAlreadyClaimed(t *testing.T) {
	winner := uuid.New()
	order := pendingOrder(uuid.New())
	order.Status = enums.OrderStatusConfirmed
	order.TechnicianID = &winner
	repo := &stubOrdersRepo{order: order, claimRows: 0}
	pub := &stubOutboxPublisher{}
	svc, _ := NewService(repo, stubTxRunner{}, pub)

	_, err := svc.Accept(context.Background(), AcceptInput{OrderID: order.ID, TechnicianID: uuid.New()})
	requireCode(t, err, pkgerrors.CodeAlreadyClaimed)
	if len(pub.events) != 0 {
		t.Fatalf("expected no events on lost claim, got %+v", pub.events)
	}

	// Re-accepting by the winner is not a silent success either.
	_, err = svc.Accept(context.Background(), AcceptInput{OrderID: order.ID, TechnicianID: winner})
	requireCode(t, err, pkgerrors.CodeAlreadyClaimed)
}

func TestAcceptMissingOrder(t *testing.T) {
	repo := &stubOrdersRepo{}
	svc, _ := NewService(repo, stubTxRunner{}, &stubOutboxPublisher{})

	_, err := svc.Accept(context.Background(), AcceptInput{OrderID: uuid.New(), TechnicianID: uuid.New()})
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestAcceptCancelledOrder(t *testing.T) {
	order := pendingOrder(uuid.New())
	order.Status = enums.OrderStatusCancelled
	repo := &stubOrdersRepo{order: order, claimRows: 0}
	svc, _ := NewService(repo, stubTxRunner{}, &stubOutboxPublisher{})

	_, err := svc.Accept(context.Background(), AcceptInput{OrderID: order.ID, TechnicianID: uuid.New()})
	requireCode(t, err, pkgerrors.CodeStateConflict)
}

func TestUpdateStatusTransitions(t *testing.T) {
	customerID := uuid.New()
	technicianID := uuid.New()

	cases := []struct {
		name     string
		from     enums.OrderStatus
		to       enums.OrderStatus
		actorID  uuid.UUID
		role     enums.ActorRole
		bound    bool
		wantCode pkgerrors.Code
	}{
		{name: "customer cancels pending", from: enums.OrderStatusPending, to: enums.OrderStatusCancelled, actorID: customerID, role: enums.ActorRoleCustomer},
		{name: "customer cancels confirmed", from: enums.OrderStatusConfirmed, to: enums.OrderStatusCancelled, actorID: customerID, role: enums.ActorRoleCustomer, bound: true},
		{name: "technician cancels confirmed", from: enums.OrderStatusConfirmed, to: enums.OrderStatusCancelled, actorID: technicianID, role: enums.ActorRoleTechnician, bound: true},
		{name: "technician starts work", from: enums.OrderStatusConfirmed, to: enums.OrderStatusInProgress, actorID: technicianID, role: enums.ActorRoleTechnician, bound: true},
		{name: "technician completes work", from: enums.OrderStatusInProgress, to: enums.OrderStatusCompleted, actorID: technicianID, role: enums.ActorRoleTechnician, bound: true},
		{name: "confirm via update rejected", from: enums.OrderStatusPending, to: enums.OrderStatusConfirmed, actorID: technicianID, role: enums.ActorRoleTechnician, wantCode: pkgerrors.CodeStateConflict},
		{name: "completed is terminal", from: enums.OrderStatusCompleted, to: enums.OrderStatusCancelled, actorID: customerID, role: enums.ActorRoleCustomer, wantCode: pkgerrors.CodeStateConflict},
		{name: "pending cannot complete", from: enums.OrderStatusPending, to: enums.OrderStatusCompleted, actorID: technicianID, role: enums.ActorRoleTechnician, wantCode: pkgerrors.CodeStateConflict},
		{name: "stranger cannot cancel", from: enums.OrderStatusPending, to: enums.OrderStatusCancelled, actorID: uuid.New(), role: enums.ActorRoleCustomer, wantCode: pkgerrors.CodeForbidden},
		{name: "customer cannot start work", from: enums.OrderStatusConfirmed, to: enums.OrderStatusInProgress, actorID: customerID, role: enums.ActorRoleCustomer, bound: true, wantCode: pkgerrors.CodeForbidden},
		{name: "unbound technician cannot complete", from: enums.OrderStatusInProgress, to: enums.OrderStatusCompleted, actorID: uuid.New(), role: enums.ActorRoleTechnician, bound: true, wantCode: pkgerrors.CodeForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order := pendingOrder(customerID)
			order.Status = tc.from
			if tc.bound {
				order.TechnicianID = &technicianID
			}
			repo := &stubOrdersRepo{order: order, updateRows: 1}
			pub := &stubOutboxPublisher{}
			svc, _ := NewService(repo, stubTxRunner{}, pub)

			updated, err := svc.UpdateStatus(context.Background(), UpdateStatusInput{
				OrderID:     order.ID,
				NewStatus:   tc.to,
				ActorUserID: tc.actorID,
				ActorRole:   tc.role,
			})
			if tc.wantCode != "" {
				requireCode(t, err, tc.wantCode)
				if len(pub.events) != 0 {
					t.Fatalf("expected no events on rejected transition, got %+v", pub.events)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if updated.Status != tc.to {
				t.Fatalf("expected status %s, got %s", tc.to, updated.Status)
			}
			if len(pub.events) != 1 || pub.events[0].EventType != enums.EventOrderStatusChanged {
				t.Fatalf("expected one status change event, got %+v", pub.events)
			}
		})
	}
}

func TestUpdateStatusConcurrentChange(t *testing.T) {
	customerID := uuid.New()
	order := pendingOrder(customerID)
	repo := &stubOrdersRepo{order: order, updateRows: 0}
	svc, _ := NewService(repo, stubTxRunner{}, &stubOutboxPublisher{})

	_, err := svc.UpdateStatus(context.Background(), UpdateStatusInput{
		OrderID:     order.ID,
		NewStatus:   enums.OrderStatusCancelled,
		ActorUserID: customerID,
		ActorRole:   enums.ActorRoleCustomer,
	})
	requireCode(t, err, pkgerrors.CodeStateConflict)
}

func TestListAvailableRanksByDistance(t *testing.T) {
	near := pendingOrder(uuid.New())
	nearLat, nearLng := 24.7136, 46.6753
	near.Latitude, near.Longitude = &nearLat, &nearLng
	near.CategoryID = "screen"

	far := pendingOrder(uuid.New())
	farLat, farLng := 24.80, 46.80
	far.Latitude, far.Longitude = &farLat, &farLng
	far.CategoryID = "screen"

	unlocated := pendingOrder(uuid.New())
	unlocated.CategoryID = "screen"

	repo := &stubOrdersRepo{pending: []models.Order{*far, *unlocated, *near}}
	svc, _ := NewService(repo, stubTxRunner{}, &stubOutboxPublisher{})

	viewerLat, viewerLng := 24.71, 46.67
	ranked, err := svc.ListAvailable(context.Background(), AvailableQuery{
		CategoryID: "screen",
		Latitude:   &viewerLat,
		Longitude:  &viewerLng,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(ranked) != 3 {
		t.Fatalf("expected 3 orders, got %d", len(ranked))
	}
	if ranked[0].Order.ID != near.ID {
		t.Fatalf("expected nearest order first, got %s", ranked[0].Order.ID)
	}
	if ranked[0].DistanceKm == nil || *ranked[0].DistanceKm > 1 {
		t.Fatalf("expected sub-kilometre distance, got %v", ranked[0].DistanceKm)
	}
	if ranked[2].Order.ID != unlocated.ID || ranked[2].DistanceKm != nil {
		t.Fatalf("expected unlocated order last with no distance, got %+v", ranked[2])
	}
}

func TestListAvailableCategoryFilter(t *testing.T) {
	screen := pendingOrder(uuid.New())
	screen.CategoryID = "screen"
	battery := pendingOrder(uuid.New())
	battery.CategoryID = "battery"

	repo := &stubOrdersRepo{pending: []models.Order{*screen, *battery}}
	svc, _ := NewService(repo, stubTxRunner{}, &stubOutboxPublisher{})

	ranked, err := svc.ListAvailable(context.Background(), AvailableQuery{CategoryID: "battery"})
	if err != nil {
		t.Fatal(err)
	}
	if len(ranked) != 1 || ranked[0].Order.ID != battery.ID {
		t.Fatalf("expected battery order only, got %+v", ranked)
	}

	ranked, err = svc.ListAvailable(context.Background(), AvailableQuery{CategoryID: "all"})
	if err != nil {
		t.Fatal(err)
	}
	if len(ranked) != 2 {
		t.Fatalf("expected both orders, got %d", len(ranked))
	}
}

func TestGetVisibility(t *testing.T) {
	customerID := uuid.New()
	order := pendingOrder(customerID)
	repo := &stubOrdersRepo{order: order}
	svc, _ := NewService(repo, stubTxRunner{}, &stubOutboxPublisher{})

	if _, err := svc.Get(context.Background(), order.ID, customerID, enums.ActorRoleCustomer); err != nil {
		t.Fatal(err)
	}
	// Any technician may inspect a claimable order.
	if _, err := svc.Get(context.Background(), order.ID, uuid.New(), enums.ActorRoleTechnician); err != nil {
		t.Fatal(err)
	}

	_, err := svc.Get(context.Background(), order.ID, uuid.New(), enums.ActorRoleCustomer)
	requireCode(t, err, pkgerrors.CodeForbidden)

	winner := uuid.New()
	order.Status = enums.OrderStatusConfirmed
	order.TechnicianID = &winner
	if _, err := svc.Get(context.Background(), order.ID, winner, enums.ActorRoleTechnician); err != nil {
		t.Fatal(err)
	}
	_, err = svc.Get(context.Background(), order.ID, uuid.New(), enums.ActorRoleTechnician)
	requireCode(t, err, pkgerrors.CodeForbidden)
}
