package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ganizanisitara/open-moniker-svc/resolver-go/internal/auth"
	"github.com/ganizanisitara/open-moniker-svc/resolver-go/internal/catalog"
)

// cachePurger is the narrow cache slice admin handlers need.
type cachePurger interface {
	PurgeByPrefix(prefix string) int
	Clear()
}

// UpdateStatusHandler handles PUT /catalog/{path}/status.
type UpdateStatusHandler struct {
	catalog *catalog.Registry
	cache   cachePurger
}

// NewUpdateStatusHandler creates a new update status handler.
func NewUpdateStatusHandler(reg *catalog.Registry, c cachePurger) *UpdateStatusHandler {
	return &UpdateStatusHandler{catalog: reg, cache: c}
}

func (h *UpdateStatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := mux.Vars(r)["path"]
	if path == "" {
		writeError(w, http.StatusBadRequest, "invalid_moniker", "missing path", nil)
		return
	}

	var body struct {
		Status             string `json:"status"`
		Actor              string `json:"actor"`
		Reason             string `json:"reason"`
		DeprecationMessage string `json:"deprecation_message"`
		Successor          string `json:"successor"`
		SunsetDeadline     string `json:"sunset_deadline"`
		MigrationGuideURL  string `json:"migration_guide_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_moniker", "invalid request body", nil)
		return
	}
	if body.Actor == "" {
		body.Actor = "anonymous"
	}

	newStatus := catalog.NodeStatus(body.Status)
	node := h.catalog.Get(path)
	if node == nil {
		writeError(w, http.StatusNotFound, "not_found", "node not found", map[string]interface{}{"path": path})
		return
	}
	oldStatus := node.Status

	metadata := map[string]any{
		"deprecation_message": body.DeprecationMessage,
		"successor":           body.Successor,
		"sunset_deadline":     body.SunsetDeadline,
		"migration_guide_url": body.MigrationGuideURL,
	}
	if err := h.catalog.UpdateStatus(path, newStatus, body.Actor, metadata); err != nil {
		writeError(w, http.StatusConflict, "conflict", err.Error(), map[string]interface{}{
			"path":       path,
			"old_status": string(oldStatus),
			"new_status": string(newStatus),
		})
		return
	}

	h.cache.PurgeByPrefix(path)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"path":       path,
		"old_status": string(oldStatus),
		"new_status": string(newStatus),
		"updated":    true,
	})
}

// AuditLogHandler handles GET /catalog/{path}/audit.
type AuditLogHandler struct {
	catalog *catalog.Registry
}

// NewAuditLogHandler creates a new audit log handler.
func NewAuditLogHandler(reg *catalog.Registry) *AuditLogHandler {
	return &AuditLogHandler{catalog: reg}
}

func (h *AuditLogHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := mux.Vars(r)["path"]

	entries := h.catalog.AuditLog(path, 0)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"path":    path,
		"entries": entries,
		"count":   len(entries),
	})
}

// RefreshCacheHandler handles POST /cache/refresh.
type RefreshCacheHandler struct {
	cache cachePurger
}

// NewRefreshCacheHandler creates a new cache refresh handler.
func NewRefreshCacheHandler(c cachePurger) *RefreshCacheHandler {
	return &RefreshCacheHandler{cache: c}
}

func (h *RefreshCacheHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.cache.Clear()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"message": "cache cleared",
	})
}

// roleFromRequest resolves the caller's auth.Role from its bearer token.
func roleFromRequest(gate *auth.Gate, r *http.Request) auth.Role {
	return gate.Authorize(r.Header.Get("Authorization"))
}
