package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fixhubapp/fixhub-backend/internal/dispatch"
	"github.com/fixhubapp/fixhub-backend/pkg/catalog"
	"github.com/fixhubapp/fixhub-backend/pkg/db/models"
	"github.com/fixhubapp/fixhub-backend/pkg/enums"
	pkgerrors "github.com/fixhubapp/fixhub-backend/pkg/errors"
	"github.com/fixhubapp/fixhub-backend/pkg/outbox"
	"github.com/fixhubapp/fixhub-backend/pkg/outbox/payloads"
	"github.com/fixhubapp/fixhub-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines the order lifecycle operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Order, error)
	Get(ctx context.Context, orderID, actorID uuid.UUID, role enums.ActorRole) (*models.Order, error)
	ListAvailable(ctx context.Context, query AvailableQuery) ([]dispatch.RankedOrder, error)
	ListForCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error)
	ListForTechnician(ctx context.Context, technicianID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error)
	Accept(ctx context.Context, input AcceptInput) (*models.Order, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
}

// NewService builds an order service with the required dependencies.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		outbox: outbox,
	}, nil
}

// allowedTransitions lists every transition updateStatus may perform.
// pending -> confirmed is deliberately absent: claiming goes through Accept.
var allowedTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:    {enums.OrderStatusCancelled},
	enums.OrderStatusConfirmed:  {enums.OrderStatusInProgress, enums.OrderStatusCancelled},
	enums.OrderStatusInProgress: {enums.OrderStatusCompleted},
}

func transitionAllowed(from, to enums.OrderStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Order, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if strings.TrimSpace(input.DeviceBrand) == "" || strings.TrimSpace(input.DeviceModel) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "device brand and model required")
	}
	if strings.TrimSpace(input.IssueSummary) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "issue summary required")
	}
	if (input.Latitude == nil) != (input.Longitude == nil) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "latitude and longitude must be provided together")
	}
	if input.Latitude != nil {
		if *input.Latitude < -90 || *input.Latitude > 90 || *input.Longitude < -180 || *input.Longitude > 180 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "coordinates out of range")
		}
	}

	category := catalog.CategoryForIssue(input.IssueID)

	order := &models.Order{
		CustomerID:     input.CustomerID,
		DeviceBrand:    strings.TrimSpace(input.DeviceBrand),
		DeviceModel:    strings.TrimSpace(input.DeviceModel),
		IssueSummary:   strings.TrimSpace(input.IssueSummary),
		IssueDetail:    input.IssueDetail,
		CategoryID:     category.ID,
		Latitude:       input.Latitude,
		Longitude:      input.Longitude,
		LocationLabel:  input.LocationLabel,
		EstimatedPrice: input.EstimatedPrice,
		MediaURLs:      input.MediaURLs,
		Status:         enums.OrderStatusPending,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		created, err := repo.Create(ctx, order)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		order = created

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(input.CustomerID, enums.ActorRoleCustomer),
			Data: payloads.OrderCreatedEvent{
				OrderID:      order.ID,
				CustomerID:   order.CustomerID,
				CategoryID:   order.CategoryID,
				DeviceBrand:  order.DeviceBrand,
				DeviceModel:  order.DeviceModel,
				IssueSummary: order.IssueSummary,
				Latitude:     order.Latitude,
				Longitude:    order.Longitude,
				CreatedAt:    order.CreatedAt,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) Get(ctx context.Context, orderID, actorID uuid.UUID, role enums.ActorRole) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if actorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if !canViewOrder(order, actorID, role) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order not visible to actor")
	}
	return order, nil
}

// canViewOrder allows the owning customer always, and technicians when
// they are bound to the order or the order is still claimable.
func canViewOrder(order *models.Order, actorID uuid.UUID, role enums.ActorRole) bool {
	switch role {
	case enums.ActorRoleCustomer:
		return order.CustomerID == actorID
	case enums.ActorRoleTechnician:
		if order.TechnicianID != nil && *order.TechnicianID == actorID {
			return true
		}
		return order.Status == enums.OrderStatusPending
	default:
		return false
	}
}

func (s *service) ListAvailable(ctx context.Context, query AvailableQuery) ([]dispatch.RankedOrder, error) {
	pending, err := s.repo.ListPending(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending orders")
	}
	return dispatch.Rank(pending, query.Latitude, query.Longitude, query.CategoryID), nil
}

func (s *service) ListForCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	orders, next, err := s.repo.ListByCustomer(ctx, customerID, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list customer orders")
	}
	return buildOrderList(orders, next), nil
}

func (s *service) ListForTechnician(ctx context.Context, technicianID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error) {
	if technicianID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	orders, next, err := s.repo.ListByTechnician(ctx, technicianID, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list technician orders")
	}
	return buildOrderList(orders, next), nil
}

func buildOrderList(orders []models.Order, next *pagination.Cursor) *OrderList {
	list := &OrderList{Orders: orders}
	if next != nil {
		list.NextCursor = pagination.EncodeCursor(*next)
	}
	return list
}

// Accept claims a pending order for a technician. The claim itself is a
// single conditional write; when it affects no rows the order is reloaded to
// tell the caller whether it lost the race or the order is simply gone.
func (s *service) Accept(ctx context.Context, input AcceptInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.TechnicianID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var claimed *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		rows, err := repo.ClaimPending(ctx, input.OrderID, input.TechnicianID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim order")
		}

		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		if rows == 0 {
			if order.TechnicianID != nil {
				return pkgerrors.New(pkgerrors.CodeAlreadyClaimed, "order already claimed").
					WithDetails(map[string]any{"order_id": order.ID, "status": order.Status})
			}
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is no longer claimable").
				WithDetails(map[string]any{"order_id": order.ID, "status": order.Status})
		}

		claimed = order
		event := outbox.DomainEvent{
			EventType:     enums.EventOrderClaimed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(input.TechnicianID, enums.ActorRoleTechnician),
			Data: payloads.OrderClaimedEvent{
				OrderID:      order.ID,
				CustomerID:   order.CustomerID,
				TechnicianID: input.TechnicianID,
				ClaimedAt:    order.UpdatedAt,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.NewStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		from := order.Status
		if !transitionAllowed(from, input.NewStatus) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "transition not allowed from current status").
				WithDetails(map[string]any{"from": from, "to": input.NewStatus})
		}
		if err := authorizeTransition(order, from, input.NewStatus, input.ActorUserID, input.ActorRole); err != nil {
			return err
		}

		rows, err := repo.UpdateStatusFrom(ctx, order.ID, from, input.NewStatus)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order changed concurrently")
		}

		order.Status = input.NewStatus
		order.UpdatedAt = time.Now().UTC()
		updated = order

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(input.ActorUserID, input.ActorRole),
			Data: payloads.OrderStatusChangedEvent{
				OrderID:      order.ID,
				CustomerID:   order.CustomerID,
				TechnicianID: order.TechnicianID,
				From:         from,
				To:           input.NewStatus,
				ChangedAt:    order.UpdatedAt,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// authorizeTransition enforces who may perform each transition: the owning
// customer cancels pending or confirmed orders, the bound technician moves
// confirmed work forward or cancels it.
func authorizeTransition(order *models.Order, from, to enums.OrderStatus, actorID uuid.UUID, role enums.ActorRole) error {
	isOwner := role == enums.ActorRoleCustomer && order.CustomerID == actorID
	isBound := role == enums.ActorRoleTechnician && order.TechnicianID != nil && *order.TechnicianID == actorID

	switch {
	case from == enums.OrderStatusPending && to == enums.OrderStatusCancelled:
		if isOwner {
			return nil
		}
	case from == enums.OrderStatusConfirmed && to == enums.OrderStatusCancelled:
		if isOwner || isBound {
			return nil
		}
	case from == enums.OrderStatusConfirmed && to == enums.OrderStatusInProgress,
		from == enums.OrderStatusInProgress && to == enums.OrderStatusCompleted:
		if isBound {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "actor may not perform this transition")
}

func buildActor(userID uuid.UUID, role enums.ActorRole) *outbox.ActorRef {
	if userID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{
		UserID: userID,
		Role:   role.String(),
	}
}
