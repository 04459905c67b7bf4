package handlers

import (
	"errors"
	"net/http"

	"model-library/internal/logging"
	"model-library/internal/reconciler"
)

// RefreshResponse reports the outcome of one catalog refresh.
type RefreshResponse struct {
	Status   string `json:"status"`
	Duration string `json:"duration"`
	reconciler.Summary
}

// RefreshLibrary runs one reconciliation of the catalog against the
// library filesystem. A refresh already in progress is reported with 409
// rather than queued.
func (h *Handlers) RefreshLibrary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.reconciler.Refresh(r.Context())
	if err != nil {
		if errors.Is(err, reconciler.ErrRefreshInProgress) {
			writeJSONError(w, "Refresh already in progress", http.StatusConflict)
			return
		}
		logging.Error("Library refresh failed: %v", err)
		writeJSONError(w, "Refresh failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, RefreshResponse{
		Status:   "ok",
		Duration: summary.Duration.String(),
		Summary:  summary,
	})
}
