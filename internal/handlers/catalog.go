package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/ganizanisitara/open-moniker-svc/resolver-go/internal/catalog"
	"github.com/ganizanisitara/open-moniker-svc/resolver-go/internal/service"
)

// CatalogListHandler handles GET /catalog.
type CatalogListHandler struct {
	catalog *catalog.Registry
}

// NewCatalogListHandler creates a new catalog list handler.
func NewCatalogListHandler(reg *catalog.Registry) *CatalogListHandler {
	return &CatalogListHandler{catalog: reg}
}

func (h *CatalogListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cursor := r.URL.Query().Get("cursor")
	limitStr := r.URL.Query().Get("limit")

	limit := 100
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 1000 {
			limit = l
		}
	}

	allPaths := h.catalog.AllPaths()
	sort.Strings(allPaths)

	startIdx := 0
	if cursor != "" {
		for i, p := range allPaths {
			if p > cursor {
				startIdx = i
				break
			}
		}
	}

	endIdx := startIdx + limit
	if endIdx > len(allPaths) {
		endIdx = len(allPaths)
	}
	paths := allPaths[startIdx:endIdx]

	response := map[string]interface{}{
		"paths": paths,
		"count": len(paths),
		"total": len(allPaths),
	}
	if endIdx < len(allPaths) {
		response["next_cursor"] = allPaths[endIdx-1]
	}

	writeJSON(w, http.StatusOK, response)
}

// SearchCatalogHandler handles GET /catalog/search?q=….
type SearchCatalogHandler struct {
	catalog *catalog.Registry
}

// NewSearchCatalogHandler creates a new search handler.
func NewSearchCatalogHandler(reg *catalog.Registry) *SearchCatalogHandler {
	return &SearchCatalogHandler{catalog: reg}
}

func (h *SearchCatalogHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "invalid_moniker", "query parameter 'q' is required", nil)
		return
	}

	limit := 50
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}

	var statusFilter *catalog.NodeStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := catalog.NodeStatus(strings.ToUpper(raw))
		statusFilter = &s
	}

	results := h.catalog.Search(query, statusFilter, limit)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"query":   query,
		"results": results,
		"count":   len(results),
	})
}

// CatalogStatsHandler handles GET /catalog/stats.
type CatalogStatsHandler struct {
	catalog *catalog.Registry
}

// NewCatalogStatsHandler creates a new stats handler.
func NewCatalogStatsHandler(reg *catalog.Registry) *CatalogStatsHandler {
	return &CatalogStatsHandler{catalog: reg}
}

func (h *CatalogStatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	counts := h.catalog.Count()

	sourceTypeCounts := make(map[string]int)
	for _, node := range h.catalog.AllNodes() {
		if node.SourceBinding != nil {
			sourceTypeCounts[string(node.SourceBinding.SourceType)]++
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"by_status":      counts,
		"by_source_type": sourceTypeCounts,
	})
}

// BatchResolveHandler handles POST /resolve/batch.
type BatchResolveHandler struct {
	service *service.MonikerService
}

// NewBatchResolveHandler creates a new batch resolve handler.
func NewBatchResolveHandler(svc *service.MonikerService) *BatchResolveHandler {
	return &BatchResolveHandler{service: svc}
}

func (h *BatchResolveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Monikers []string `json:"monikers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_moniker", "invalid request body", map[string]interface{}{"detail": err.Error()})
		return
	}
	if len(request.Monikers) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_moniker", "empty moniker list", nil)
		return
	}
	if len(request.Monikers) > 100 {
		writeError(w, http.StatusBadRequest, "invalid_moniker", "maximum 100 monikers per batch request", map[string]interface{}{
			"count": len(request.Monikers),
		})
		return
	}

	caller := callerFromRequest(r)

	results := make([]interface{}, len(request.Monikers))
	for i, rawMoniker := range request.Monikers {
		result, err := h.service.Resolve(r.Context(), rawMoniker, caller)
		if err != nil {
			results[i] = map[string]interface{}{"moniker": rawMoniker, "error": err.Error()}
			continue
		}
		results[i] = result
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"count":   len(results),
	})
}

// LineageHandler handles GET /lineage/{path}.
type LineageHandler struct {
	catalog *catalog.Registry
}

// NewLineageHandler creates a new lineage handler.
func NewLineageHandler(reg *catalog.Registry) *LineageHandler {
	return &LineageHandler{catalog: reg}
}

func (h *LineageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := mux.Vars(r)["path"]
	if path == "" {
		writeError(w, http.StatusBadRequest, "invalid_moniker", "missing path", nil)
		return
	}

	ownership := h.catalog.ResolveOwnership(path)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"path":      path,
		"ownership": ownership,
		"hierarchy": buildHierarchy(path),
	})
}

// buildHierarchy returns every prefix path from the root segment to path,
// root first.
func buildHierarchy(path string) []string {
	if path == "" {
		return []string{}
	}
	parts := strings.Split(path, "/")
	hierarchy := make([]string, 0, len(parts))
	for i := 1; i <= len(parts); i++ {
		hierarchy = append(hierarchy, strings.Join(parts[:i], "/"))
	}
	return hierarchy
}

// MetadataHandler handles GET /metadata/{path}.
type MetadataHandler struct {
	catalog *catalog.Registry
}

// NewMetadataHandler creates a new metadata handler.
func NewMetadataHandler(reg *catalog.Registry) *MetadataHandler {
	return &MetadataHandler{catalog: reg}
}

func (h *MetadataHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := mux.Vars(r)["path"]
	if path == "" {
		writeError(w, http.StatusBadRequest, "invalid_moniker", "missing path", nil)
		return
	}

	node := h.catalog.Get(path)
	if node == nil {
		writeError(w, http.StatusNotFound, "not_found", "node not found", map[string]interface{}{"path": path})
		return
	}

	ownership := h.catalog.ResolveOwnership(path)
	binding, bindingPath := h.catalog.FindSourceBinding(path)

	response := map[string]interface{}{
		"path":         path,
		"node":         node,
		"ownership":    ownership,
		"has_binding":  binding != nil,
		"binding_path": bindingPath,
	}
	if binding != nil {
		response["source_type"] = string(binding.SourceType)
	}

	writeJSON(w, http.StatusOK, response)
}

// TreeHandler handles GET /tree and GET /tree/{path}.
type TreeHandler struct {
	catalog *catalog.Registry
}

// NewTreeHandler creates a new tree handler.
func NewTreeHandler(reg *catalog.Registry) *TreeHandler {
	return &TreeHandler{catalog: reg}
}

func (h *TreeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := mux.Vars(r)["path"]

	node := h.catalog.Get(path)
	children := h.catalog.Children(path)

	childNodes := make([]map[string]interface{}, len(children))
	for i, child := range children {
		childNodes[i] = map[string]interface{}{
			"path":         child.Path,
			"display_name": child.DisplayName,
			"is_leaf":      child.IsLeaf(),
			"status":       child.Status,
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"path":     path,
		"node":     node,
		"children": childNodes,
		"count":    len(children),
	})
}

// CacheStatusHandler handles GET /cache/status.
type CacheStatusHandler struct {
	cache cacheStats
}

// cacheStats is the narrow slice of cache.InMemory this handler needs,
// declared here so the handler package doesn't need to import the concrete
// cache type everywhere it's referenced.
type cacheStats interface {
	Size() int
}

// NewCacheStatusHandler creates a new cache status handler.
func NewCacheStatusHandler(c cacheStats) *CacheStatusHandler {
	return &CacheStatusHandler{cache: c}
}

func (h *CacheStatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"backend": "in-memory",
		"size":    h.cache.Size(),
	})
}

// TelemetryAccessHandler handles POST /telemetry/access — a client-reported
// access event, distinct from the server-side usage events the resolver
// emits on its own (SPEC_FULL.md §6). Client-reported events are accepted
// and acknowledged but not persisted: there is no catalog path to validate
// them against without re-deriving the server's own resolve logic.
type TelemetryAccessHandler struct{}

// NewTelemetryAccessHandler creates a new telemetry handler.
func NewTelemetryAccessHandler() *TelemetryAccessHandler {
	return &TelemetryAccessHandler{}
}

func (h *TelemetryAccessHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var event map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_moniker", "invalid telemetry event", nil)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"status": "accepted",
	})
}

// UIHandler handles GET /ui — a minimal catalog browser landing page.
type UIHandler struct{}

// NewUIHandler creates a new UI handler.
func NewUIHandler() *UIHandler {
	return &UIHandler{}
}

func (h *UIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	html := `<!DOCTYPE html>
<html>
<head>
    <title>Moniker Catalog Browser</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        h1 { color: #333; }
        .info { background: #f0f0f0; padding: 10px; border-radius: 5px; }
    </style>
</head>
<body>
    <h1>Moniker Catalog Browser</h1>
    <div class="info">
        <p><strong>resolverd</strong></p>
        <p>Navigate to <code>/catalog</code> for catalog listing</p>
        <p>Navigate to <code>/catalog/search?q=term</code> for search</p>
        <p>Navigate to <code>/health</code> for service health</p>
    </div>
</body>
</html>`

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, html)
}
