package handlers

import (
	"net/http"

	"github.com/hospitrack/backend/internal/application/services"
)

// SnapshotStatus reports the dataset load state
type SnapshotStatus interface {
	Status() (services.SnapshotState, error)
}

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	status SnapshotStatus
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(status SnapshotStatus) *HealthHandler {
	return &HealthHandler{status: status}
}

// Live handles GET /health
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// Ready handles GET /healthz. A dataset that failed to load reports 500;
// a dataset still loading reports 200 with status "starting".
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	state, err := h.status.Status()
	if state == services.SnapshotFailed {
		detail := "dataset load failed"
		if err != nil {
			detail = err.Error()
		}
		respondWithJSON(w, http.StatusInternalServerError, map[string]string{
			"status": string(services.SnapshotFailed),
			"detail": detail,
		})
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": string(state)})
}
