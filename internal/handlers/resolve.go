// Package handlers binds the REST surface to the core operations
// (SPEC_FULL.md §4.L). Handlers own no business state: every behavior they
// expose is reachable by calling the underlying service/catalog/governance
// API directly, which is how the tests exercise it.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ganizanisitara/open-moniker-svc/resolver-go/internal/service"
)

// ResolveHandler handles GET /resolve/{path}.
type ResolveHandler struct {
	service *service.MonikerService
}

// NewResolveHandler creates a new resolve handler.
func NewResolveHandler(svc *service.MonikerService) *ResolveHandler {
	return &ResolveHandler{service: svc}
}

func (h *ResolveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := mux.Vars(r)["path"]
	if path == "" {
		writeError(w, http.StatusBadRequest, "invalid_moniker", "missing moniker path", nil)
		return
	}

	caller := callerFromRequest(r)

	result, err := h.service.Resolve(r.Context(), path, caller)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if result.Status == "DEPRECATED" {
		w.Header().Set("X-Moniker-Deprecated", "true")
	}
	if result.Successor != nil {
		w.Header().Set("X-Moniker-Successor", *result.Successor)
	}
	if result.RedirectedFrom != "" {
		w.Header().Set("X-Moniker-Redirected-From", result.RedirectedFrom)
	}

	writeJSON(w, http.StatusOK, result)
}

// DescribeHandler handles GET /describe/{path}.
type DescribeHandler struct {
	service *service.MonikerService
}

// NewDescribeHandler creates a new describe handler.
func NewDescribeHandler(svc *service.MonikerService) *DescribeHandler {
	return &DescribeHandler{service: svc}
}

func (h *DescribeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := mux.Vars(r)["path"]
	if path == "" {
		writeError(w, http.StatusBadRequest, "invalid_moniker", "missing path", nil)
		return
	}

	result, err := h.service.Describe(r.Context(), path)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ListHandler handles GET /list/{path} and GET /list (root).
type ListHandler struct {
	service *service.MonikerService
}

// NewListHandler creates a new list handler.
func NewListHandler(svc *service.MonikerService) *ListHandler {
	return &ListHandler{service: svc}
}

func (h *ListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := mux.Vars(r)["path"] // empty means list the root

	result, err := h.service.List(r.Context(), path)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// callerFromRequest builds a CallerIdentity from the X-App-ID and X-Team
// headers; Resolve does not attach it to usage events.
// There is no access control on read operations (SPEC_FULL.md §4.H); the
// app id and team are advisory labels the caller self-reports.
func callerFromRequest(r *http.Request) service.CallerIdentity {
	appID := r.Header.Get("X-App-ID")
	if appID == "" {
		appID = "anonymous"
	}
	return service.CallerIdentity{AppID: appID, Team: r.Header.Get("X-Team")}
}

// Helper response functions shared by every handler in this package.

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, kind, message string, details map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]interface{}{
		"error": message,
		"kind":  kind,
	}
	for k, v := range details {
		response[k] = v
	}
	_ = json.NewEncoder(w).Encode(response)
}

// handleServiceError maps a service error to its HTTP status and error kind
// per SPEC_FULL.md §7.
func handleServiceError(w http.ResponseWriter, err error) {
	switch e := err.(type) {
	case *service.NotFoundError:
		writeError(w, http.StatusNotFound, "not_found", e.Error(), map[string]interface{}{"path": e.Path})
	case *service.NoBindingError:
		writeError(w, http.StatusNotFound, "no_binding", e.Error(), map[string]interface{}{"path": e.Path})
	case *service.AccessDeniedError:
		writeError(w, http.StatusForbidden, "access_denied", e.Message, map[string]interface{}{
			"estimated_rows": e.EstimatedRows,
		})
	case *service.ResolutionError:
		writeError(w, http.StatusBadRequest, "invalid_moniker", e.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, "internal", err.Error(), nil)
	}
}
