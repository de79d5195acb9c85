package handler

import (
	"net/http"
	"runtime"
	"time"

	"cardvault-api/internal/service"
	"cardvault-api/pkg/apierror"
	"cardvault-api/pkg/response"

	"github.com/go-chi/chi/v5"
)

// AdminHandler handles admin-related HTTP requests.
type AdminHandler struct {
	svc       *service.EconomyService
	storeType string // sqlite, postgres, mysql or memory
	startTime time.Time
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(svc *service.EconomyService, storeType string) *AdminHandler {
	return &AdminHandler{
		svc:       svc,
		storeType: storeType,
		startTime: time.Now(),
	}
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := make(map[string]interface{})

	stats["uptime_seconds"] = int64(time.Since(h.startTime).Seconds())
	stats["uptime_human"] = time.Since(h.startTime).Round(time.Second).String()
	stats["server_time"] = time.Now().Format(time.RFC3339)
	stats["store_type"] = h.storeType

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats["memory"] = map[string]interface{}{
		"alloc_mb":      float64(memStats.Alloc) / 1024 / 1024,
		"sys_mb":        float64(memStats.Sys) / 1024 / 1024,
		"heap_inuse_mb": float64(memStats.HeapInuse) / 1024 / 1024,
		"num_gc":        memStats.NumGC,
		"goroutines":    runtime.NumGoroutine(),
	}

	economy, err := h.svc.GetEconomyStats(r.Context())
	if err != nil {
		stats["economy"] = map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		}
	} else {
		stats["economy"] = economy
	}

	stats["runtime"] = map[string]interface{}{
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"cpus":       runtime.NumCPU(),
	}

	response.OK(w, stats)
}

// GetHealth handles GET /api/v1/admin/health
func (h *AdminHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// ExpireTrades handles POST /api/v1/admin/trades/expire
func (h *AdminHandler) ExpireTrades(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.ExpireTrades(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, map[string]int{"expired": n})
}

// ReloadLedger handles POST /api/v1/admin/ledger/reload
func (h *AdminHandler) ReloadLedger(w http.ResponseWriter, r *http.Request) {
	h.svc.ReloadLedger()
	response.OK(w, map[string]bool{"reloaded": true})
}

type bonusRequest struct {
	Credits int `json:"credits"`
}

// GrantBonus handles POST /api/v1/admin/users/{user_id}/bonus
func (h *AdminHandler) GrantBonus(w http.ResponseWriter, r *http.Request) {
	var req bonusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Credits <= 0 {
		response.Error(w, apierror.ValidationError("invalid bonus grant",
			apierror.FieldError{Field: "credits", Message: "must be positive"}))
		return
	}
	total, err := h.svc.GrantBonusDraws(r.Context(), chi.URLParam(r, "user_id"), req.Credits)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, map[string]int{"bonus_credits": total})
}
