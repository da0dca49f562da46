package controllers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/fixhubapp/fixhub-backend/api/middleware"
	"github.com/fixhubapp/fixhub-backend/api/responses"
	"github.com/fixhubapp/fixhub-backend/internal/dispatch"
	pkgerrors "github.com/fixhubapp/fixhub-backend/pkg/errors"
	"github.com/fixhubapp/fixhub-backend/pkg/logger"

	"github.com/google/uuid"
)

// DispatchStream streams new-order and claim events to the technician over
// server-sent events. Delivery is best-effort: a client that falls behind is
// disconnected and recovers by re-reading the available-orders list.
func DispatchStream(hub *dispatch.Hub, heartbeatEvery time.Duration, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rawID := middleware.UserIDFromContext(r.Context())
		technicianID, err := uuid.Parse(rawID)
		if err != nil || technicianID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing"))
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "streaming unsupported"))
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		// Disables proxy buffering so events reach the client immediately.
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)

		ctx := r.Context()
		sub := hub.Subscribe(ctx, technicianID)
		defer sub.Cancel()

		fmt.Fprintf(w, "event: connected\ndata: {\"subscription_id\":%q}\n\n", sub.ID.String())
		flusher.Flush()

		heartbeat := time.NewTicker(heartbeatEvery)
		defer heartbeat.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case event, open := <-sub.Events:
				if !open {
					return
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, event.Data)
				flusher.Flush()
			case <-heartbeat.C:
				fmt.Fprint(w, ": keep-alive\n\n")
				flusher.Flush()
			}
		}
	}
}
