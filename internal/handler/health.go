package handler

import (
	"net/http"

	"github.com/jonboulle/clockwork"
)

// HealthHandler answers liveness probes.
type HealthHandler struct {
	clock clockwork.Clock
}

func NewHealthHandler(clock clockwork.Clock) *HealthHandler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &HealthHandler{clock: clock}
}

// HandlePing reports the server time in unix milliseconds.
//
// HTTP: GET /api/ping
func (h *HealthHandler) HandlePing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "ts": h.clock.Now().UnixMilli()})
}
