package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/tutorhub/backend/internal/flash"
	"github.com/tutorhub/backend/internal/logging"
)

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "response", payload)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "response", payload)
	}
}

// redirectWithError queues an error flash and redirects. Soft failure: the
// caller sees a message on the next page, never a raw error.
func redirectWithError(w http.ResponseWriter, r *http.Request, flashes *flash.Store, target, message string) {
	if flashes != nil {
		if err := flashes.Error(w, r, message); err != nil {
			logging.FromContext(r.Context()).Warn("queue flash message", "error", err)
		}
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func redirectWithSuccess(w http.ResponseWriter, r *http.Request, flashes *flash.Store, target, message string) {
	if flashes != nil {
		if err := flashes.Success(w, r, message); err != nil {
			logging.FromContext(r.Context()).Warn("queue flash message", "error", err)
		}
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
