package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fixhubapp/fixhub-backend/api/middleware"
	"github.com/fixhubapp/fixhub-backend/api/responses"
	"github.com/fixhubapp/fixhub-backend/api/validators"
	internalorders "github.com/fixhubapp/fixhub-backend/internal/orders"
	"github.com/fixhubapp/fixhub-backend/internal/technicians"
	"github.com/fixhubapp/fixhub-backend/pkg/enums"
	pkgerrors "github.com/fixhubapp/fixhub-backend/pkg/errors"
	"github.com/fixhubapp/fixhub-backend/pkg/logger"
	"github.com/fixhubapp/fixhub-backend/pkg/metrics"
	"github.com/fixhubapp/fixhub-backend/pkg/pagination"
)

type createOrderRequest struct {
	DeviceBrand    string           `json:"device_brand" validate:"required,max=120"`
	DeviceModel    string           `json:"device_model" validate:"required,max=120"`
	IssueID        string           `json:"issue_id" validate:"max=64"`
	IssueSummary   string           `json:"issue_summary" validate:"required,max=500"`
	IssueDetail    *string          `json:"issue_detail,omitempty" validate:"omitempty,max=4000"`
	Latitude       *float64         `json:"latitude,omitempty"`
	Longitude      *float64         `json:"longitude,omitempty"`
	LocationLabel  *string          `json:"location_label,omitempty" validate:"omitempty,max=255"`
	EstimatedPrice *decimal.Decimal `json:"estimated_price,omitempty"`
	MediaURLs      []string         `json:"media_urls,omitempty" validate:"omitempty,max=10,dive,url"`
}

type updateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// OrderCreate accepts a customer's repair request.
func OrderCreate(svc internalorders.Service, m *metrics.DispatchMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, _, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Create(r.Context(), internalorders.CreateInput{
			CustomerID:     actorID,
			DeviceBrand:    validators.SanitizeString(req.DeviceBrand, 120),
			DeviceModel:    validators.SanitizeString(req.DeviceModel, 120),
			IssueID:        req.IssueID,
			IssueSummary:   validators.SanitizeString(req.IssueSummary, 500),
			IssueDetail:    req.IssueDetail,
			Latitude:       req.Latitude,
			Longitude:      req.Longitude,
			LocationLabel:  req.LocationLabel,
			EstimatedPrice: req.EstimatedPrice,
			MediaURLs:      req.MediaURLs,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		m.IncOrdersCreated()
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// OrderList returns the caller's orders: customers see orders they posted,
// technicians the jobs bound to them.
func OrderList(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, role, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		filters := internalorders.ListFilters{
			CategoryID: strings.TrimSpace(r.URL.Query().Get("category")),
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, parseErr := enums.ParseOrderStatus(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid status filter"))
				return
			}
			filters.Status = &status
		}

		var list *internalorders.OrderList
		switch role {
		case enums.ActorRoleCustomer:
			list, err = svc.ListForCustomer(r.Context(), actorID, params, filters)
		case enums.ActorRoleTechnician:
			list, err = svc.ListForTechnician(r.Context(), actorID, params, filters)
		default:
			err = pkgerrors.New(pkgerrors.CodeForbidden, "unsupported actor role")
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// OrderDetail returns a single order visible to the caller.
func OrderDetail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, role, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID, actorID, role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// OrderAvailable returns pending orders ranked by distance from the caller.
// Without lat/lng query params the technician's last reported location is
// used; with neither, orders rank in arrival order.
func OrderAvailable(svc internalorders.Service, techSvc technicians.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, _, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query := internalorders.AvailableQuery{
			CategoryID: strings.TrimSpace(r.URL.Query().Get("category")),
		}
		lat, err := validators.ParseQueryFloat(r, "lat", -90, 90)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lng, err := validators.ParseQueryFloat(r, "lng", -180, 180)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if (lat == nil) != (lng == nil) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "lat and lng must be provided together"))
			return
		}
		query.Latitude = lat
		query.Longitude = lng

		if query.Latitude == nil {
			loc, err := techSvc.Location(r.Context(), actorID)
			if err != nil {
				// A missing location only degrades ranking; orders still list.
				logg.Warn(logg.WithTechnicianID(r.Context(), actorID.String()), "technician location unavailable")
			} else if loc != nil {
				query.Latitude = &loc.Lat
				query.Longitude = &loc.Lng
			}
		}

		ranked, err := svc.ListAvailable(r.Context(), query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"orders": ranked})
	}
}

// OrderAccept claims a pending order for the calling technician.
func OrderAccept(svc internalorders.Service, m *metrics.DispatchMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, _, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Accept(r.Context(), internalorders.AcceptInput{
			OrderID:      orderID,
			TechnicianID: actorID,
		})
		if err != nil {
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeAlreadyClaimed {
				m.IncClaimConflicts()
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		m.IncOrdersClaimed()
		responses.WriteSuccess(w, order)
	}
}

// OrderUpdateStatus applies a lifecycle transition requested by the caller.
func OrderUpdateStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, role, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateOrderStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseOrderStatus(strings.TrimSpace(req.Status))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		order, err := svc.UpdateStatus(r.Context(), internalorders.UpdateStatusInput{
			OrderID:     orderID,
			NewStatus:   status,
			ActorUserID: actorID,
			ActorRole:   role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func actorFromRequest(r *http.Request) (uuid.UUID, enums.ActorRole, error) {
	rawID := middleware.UserIDFromContext(r.Context())
	if rawID == "" {
		return uuid.Nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	actorID, err := uuid.Parse(rawID)
	if err != nil {
		return uuid.Nil, "", pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	role, err := enums.ParseActorRole(middleware.RoleFromContext(r.Context()))
	if err != nil {
		return uuid.Nil, "", pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "unknown actor role")
	}
	return actorID, role, nil
}

func parseOrderID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	orderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return orderID, nil
}
