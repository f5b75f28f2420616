package handlers

import (
	"net/http"

	"github.com/ganizanisitara/open-moniker-svc/resolver-go/internal/audit"
	"github.com/ganizanisitara/open-moniker-svc/resolver-go/internal/cache"
	"github.com/ganizanisitara/open-moniker-svc/resolver-go/internal/catalog"
	"github.com/ganizanisitara/open-moniker-svc/resolver-go/internal/telemetry"
)

// HealthHandler handles GET /health, reporting catalog counts, cache
// stats and telemetry counters (SPEC_FULL.md §6).
type HealthHandler struct {
	catalog *catalog.Registry
	cache   *cache.InMemory
	emitter *telemetry.Emitter
	audit   *audit.Store
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(reg *catalog.Registry, c *cache.InMemory, emitter *telemetry.Emitter, auditStore *audit.Store) *HealthHandler {
	return &HealthHandler{catalog: reg, cache: c, emitter: emitter, audit: auditStore}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":  "ok",
		"catalog": h.catalog.Count(),
		"cache":   h.cache.Stats(),
	}
	if h.emitter != nil {
		response["telemetry"] = h.emitter.Counters()
	}
	if h.audit != nil {
		response["audit"] = map[string]interface{}{"dropped": h.audit.DroppedCount()}
	}

	writeJSON(w, http.StatusOK, response)
}
