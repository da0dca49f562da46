package controllers

import (
	"net/http"

	"github.com/fixhubapp/fixhub-backend/api/middleware"
	"github.com/fixhubapp/fixhub-backend/api/responses"
	"github.com/fixhubapp/fixhub-backend/api/validators"
	"github.com/fixhubapp/fixhub-backend/internal/technicians"
	pkgerrors "github.com/fixhubapp/fixhub-backend/pkg/errors"
	"github.com/fixhubapp/fixhub-backend/pkg/logger"

	"github.com/google/uuid"
)

type registerTechnicianRequest struct {
	DisplayName string   `json:"display_name" validate:"required,max=120"`
	Phone       *string  `json:"phone,omitempty" validate:"omitempty,max=32"`
	CategoryIDs []string `json:"category_ids" validate:"required,min=1,max=20"`
}

type updateLocationRequest struct {
	Latitude  float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
}

// TechnicianRegister creates the profile for the authenticated technician.
func TechnicianRegister(svc technicians.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		technicianID, err := technicianFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req registerTechnicianRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		phone := req.Phone
		if phone != nil {
			cleaned := validators.SanitizeString(*phone, 32)
			phone = &cleaned
		}
		profile, err := svc.Register(r.Context(), technicians.RegisterInput{
			TechnicianID: technicianID,
			DisplayName:  validators.SanitizeString(req.DisplayName, 120),
			Phone:        phone,
			CategoryIDs:  req.CategoryIDs,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, profile)
	}
}

// TechnicianMe returns the authenticated technician's profile.
func TechnicianMe(svc technicians.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		technicianID, err := technicianFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		profile, err := svc.Me(r.Context(), technicianID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}

// TechnicianUpdateLocation records the technician's current position.
func TechnicianUpdateLocation(svc technicians.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		technicianID, err := technicianFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateLocationRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.UpdateLocation(r.Context(), technicians.UpdateLocationInput{
			TechnicianID: technicianID,
			Latitude:     req.Latitude,
			Longitude:    req.Longitude,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"updated": true})
	}
}

func technicianFromRequest(r *http.Request) (uuid.UUID, error) {
	rawID := middleware.UserIDFromContext(r.Context())
	if rawID == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	technicianID, err := uuid.Parse(rawID)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return technicianID, nil
}
