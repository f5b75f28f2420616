package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ganizanisitara/open-moniker-svc/resolver-go/internal/auth"
	"github.com/ganizanisitara/open-moniker-svc/resolver-go/internal/catalog"
	"github.com/ganizanisitara/open-moniker-svc/resolver-go/internal/governance"
)

// SubmitRequestHandler handles POST /requests, gated on the submit lane.
type SubmitRequestHandler struct {
	controller *governance.Controller
	gate       *auth.Gate
}

// NewSubmitRequestHandler creates a new submit-request handler.
func NewSubmitRequestHandler(c *governance.Controller, gate *auth.Gate) *SubmitRequestHandler {
	return &SubmitRequestHandler{controller: c, gate: gate}
}

func (h *SubmitRequestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	role := roleFromRequest(h.gate, r)
	if !auth.CanSubmit(role) {
		writeError(w, http.StatusForbidden, "forbidden", "submit lane requires a submitter or approver token", nil)
		return
	}

	var body struct {
		Path     string              `json:"path"`
		Actor    string              `json:"actor"`
		Proposed catalog.CatalogNode `json:"proposed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_moniker", "invalid request body", nil)
		return
	}
	if body.Path == "" {
		writeError(w, http.StatusBadRequest, "invalid_moniker", "missing path", nil)
		return
	}
	if body.Actor == "" {
		body.Actor = "anonymous"
	}

	req := h.controller.Submit(body.Path, body.Proposed, body.Actor)
	writeJSON(w, http.StatusCreated, req)
}

// ListRequestsHandler handles GET /requests?status=….
type ListRequestsHandler struct {
	controller *governance.Controller
}

// NewListRequestsHandler creates a new list-requests handler.
func NewListRequestsHandler(c *governance.Controller) *ListRequestsHandler {
	return &ListRequestsHandler{controller: c}
}

func (h *ListRequestsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := governance.RequestStatus(r.URL.Query().Get("status"))
	requests := h.controller.List(status)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"requests": requests,
		"count":    len(requests),
	})
}

// ApproveRequestHandler handles POST /requests/{id}/approve, gated on the
// approve lane.
type ApproveRequestHandler struct {
	controller *governance.Controller
	gate       *auth.Gate
}

// NewApproveRequestHandler creates a new approve-request handler.
func NewApproveRequestHandler(c *governance.Controller, gate *auth.Gate) *ApproveRequestHandler {
	return &ApproveRequestHandler{controller: c, gate: gate}
}

func (h *ApproveRequestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	role := roleFromRequest(h.gate, r)
	if !auth.CanApprove(role) {
		writeError(w, http.StatusForbidden, "forbidden", "approve lane requires an approver token", nil)
		return
	}

	id := mux.Vars(r)["id"]
	var body struct {
		Actor string `json:"actor"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	if body.Actor == "" {
		body.Actor = "anonymous"
	}

	node, err := h.controller.Approve(id, body.Actor)
	if err != nil {
		writeError(w, http.StatusConflict, "conflict", err.Error(), map[string]interface{}{"id": id})
		return
	}

	writeJSON(w, http.StatusOK, node)
}

// RejectRequestHandler handles POST /requests/{id}/reject, gated on the
// approve lane — rejection is a review decision, not a submitter action.
type RejectRequestHandler struct {
	controller *governance.Controller
	gate       *auth.Gate
}

// NewRejectRequestHandler creates a new reject-request handler.
func NewRejectRequestHandler(c *governance.Controller, gate *auth.Gate) *RejectRequestHandler {
	return &RejectRequestHandler{controller: c, gate: gate}
}

func (h *RejectRequestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	role := roleFromRequest(h.gate, r)
	if !auth.CanApprove(role) {
		writeError(w, http.StatusForbidden, "forbidden", "reject lane requires an approver token", nil)
		return
	}

	id := mux.Vars(r)["id"]
	var body struct {
		Actor  string `json:"actor"`
		Reason string `json:"reason"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	if body.Actor == "" {
		body.Actor = "anonymous"
	}

	if err := h.controller.Reject(id, body.Actor, body.Reason); err != nil {
		writeError(w, http.StatusConflict, "conflict", err.Error(), map[string]interface{}{"id": id})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"id": id, "status": "rejected"})
}

// ReloadCatalogHandler handles POST /catalog/reload, gated on the approve
// lane — a breaking catalog swap is an operator action, not a submit-lane one.
type ReloadCatalogHandler struct {
	controller *governance.Controller
	gate       *auth.Gate
	catalogPath func() string
	loadCatalog func(path string) ([]*catalog.CatalogNode, error)
}

// NewReloadCatalogHandler creates a new reload handler. catalogPath and
// loadCatalog are injected so the handler doesn't need to know about
// wall-clock time or the filesystem directly.
func NewReloadCatalogHandler(c *governance.Controller, gate *auth.Gate, catalogPath func() string, loadCatalog func(path string) ([]*catalog.CatalogNode, error)) *ReloadCatalogHandler {
	return &ReloadCatalogHandler{controller: c, gate: gate, catalogPath: catalogPath, loadCatalog: loadCatalog}
}

func (h *ReloadCatalogHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	role := roleFromRequest(h.gate, r)
	if !auth.CanApprove(role) {
		writeError(w, http.StatusForbidden, "forbidden", "reload requires an approver token", nil)
		return
	}

	var body struct {
		Actor         string `json:"actor"`
		BlockBreaking *bool  `json:"block_breaking"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	if body.Actor == "" {
		body.Actor = "anonymous"
	}
	blockBreaking := true
	if body.BlockBreaking != nil {
		blockBreaking = *body.BlockBreaking
	}

	newNodes, err := h.loadCatalog(h.catalogPath())
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_moniker", "failed to load candidate catalog: "+err.Error(), nil)
		return
	}

	result := h.controller.ReloadCatalog(newNodes, blockBreaking, body.Actor)
	if !result.Applied {
		writeError(w, http.StatusConflict, "breaking_reload_rejected", "reload blocked: breaking changes present", map[string]interface{}{
			"removed_count":         result.RemovedCount,
			"binding_changed_count": result.BindingChangedCount,
			"has_breaking_changes":  result.HasBreakingChanges,
		})
		return
	}

	writeJSON(w, http.StatusOK, result)
}
