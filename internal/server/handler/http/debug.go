package http

import (
	"context"
	"net/http"

	"github.com/atinyakov/accountvault/internal/mirror"
	"go.uber.org/zap"
)

// DiagnosticsService defines the health and mirror introspection calls
// required by the DebugHandler.
type DiagnosticsService interface {
	Ping(ctx context.Context) error
	MirrorStatus(ctx context.Context) mirror.Status
	MirrorProbe(ctx context.Context) mirror.ProbeResult
}

// DebugHandler serves the /api/debug endpoints.
type DebugHandler struct {
	DiagnosticsService DiagnosticsService
	Logger             *zap.Logger
}

type healthResponse struct {
	OK bool `json:"ok"`
}

// DB handles GET /api/debug/db.
func (h *DebugHandler) DB(w http.ResponseWriter, r *http.Request) {
	if err := h.DiagnosticsService.Ping(r.Context()); err != nil {
		if h.Logger != nil {
			h.Logger.Warn("database ping failed", zap.Error(err))
		}
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{OK: false})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{OK: true})
}

// Sheets handles GET /api/debug/sheets. It never writes to the mirror.
func (h *DebugHandler) Sheets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.DiagnosticsService.MirrorStatus(r.Context()))
}

// SheetsPing handles POST /api/debug/sheets/ping by appending a sentinel row.
func (h *DebugHandler) SheetsPing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.DiagnosticsService.MirrorProbe(r.Context()))
}
