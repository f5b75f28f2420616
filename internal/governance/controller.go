// Package governance implements the two-lane request workflow and the
// catalog reload path (SPEC_FULL.md §4.F): submit proposes a moniker,
// approve materializes it; reload_catalog replaces the live snapshot.
package governance

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ganizanisitara/open-moniker-svc/resolver-go/internal/catalog"
)

// RequestStatus is the lifecycle of a submitted request, independent of
// the NodeStatus state machine of the node it eventually materializes.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// Request is a proposed new moniker awaiting review.
type Request struct {
	ID             string        `json:"id"`
	Path           string        `json:"path"`
	Proposed       catalog.CatalogNode `json:"proposed"`
	Status         RequestStatus `json:"status"`
	SubmittedBy    string        `json:"submitted_by"`
	SubmittedAt    time.Time     `json:"submitted_at"`
	DecidedBy      string        `json:"decided_by,omitempty"`
	DecidedAt      *time.Time    `json:"decided_at,omitempty"`
	RejectedReason string        `json:"rejected_reason,omitempty"`
}

// Controller owns the pending-request queue and drives status transitions
// and reloads against the registry.
type Controller struct {
	registry           *catalog.Registry
	now                func() time.Time
	deprecationEnabled bool

	mu       sync.Mutex
	requests map[string]*Request
}

// NewController wires a Controller to its registry. When deprecationEnabled
// is false, ReloadCatalog falls back to a plain atomic_replace with no diff
// (SPEC_FULL.md §4.F).
func NewController(registry *catalog.Registry, now func() time.Time, deprecationEnabled bool) *Controller {
	return &Controller{registry: registry, now: now, deprecationEnabled: deprecationEnabled, requests: make(map[string]*Request)}
}

// Submit enqueues a proposed node for review. The proposed node is forced
// to DRAFT regardless of what the caller set; it only becomes ACTIVE on
// Approve.
func (c *Controller) Submit(path string, proposed catalog.CatalogNode, actor string) *Request {
	proposed.Path = path
	proposed.Status = catalog.StatusDraft

	req := &Request{
		ID:          uuid.NewString(),
		Path:        path,
		Proposed:    proposed,
		Status:      RequestPending,
		SubmittedBy: actor,
		SubmittedAt: c.now(),
	}

	c.mu.Lock()
	c.requests[req.ID] = req
	c.mu.Unlock()
	return req
}

// List returns requests, optionally filtered by status.
func (c *Controller) List(status RequestStatus) []*Request {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make([]*Request, 0, len(c.requests))
	for _, req := range c.requests {
		if status != "" && req.Status != status {
			continue
		}
		result = append(result, req)
	}
	return result
}

// Get returns a request by id.
func (c *Controller) Get(id string) (*Request, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	req, ok := c.requests[id]
	return req, ok
}

// Approve materializes a pending request's proposed node as ACTIVE and
// registers it. It fails if the request is unknown or already decided.
func (c *Controller) Approve(id, actor string) (*catalog.CatalogNode, error) {
	c.mu.Lock()
	req, ok := c.requests[id]
	if !ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("governance: unknown request %q", id)
	}
	if req.Status != RequestPending {
		c.mu.Unlock()
		return nil, fmt.Errorf("governance: request %q already %s", id, req.Status)
	}

	node := req.Proposed
	node.Status = catalog.StatusActive
	node.ApprovedBy = actor
	node.CreatedAt = c.now()
	node.UpdatedAt = c.now()

	now := c.now()
	req.Status = RequestApproved
	req.DecidedBy = actor
	req.DecidedAt = &now
	c.mu.Unlock()

	c.registry.Register(&node)
	return &node, nil
}

// Reject marks a pending request rejected with a reason.
func (c *Controller) Reject(id, actor, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	req, ok := c.requests[id]
	if !ok {
		return fmt.Errorf("governance: unknown request %q", id)
	}
	if req.Status != RequestPending {
		return fmt.Errorf("governance: request %q already %s", id, req.Status)
	}

	now := c.now()
	req.Status = RequestRejected
	req.DecidedBy = actor
	req.DecidedAt = &now
	req.RejectedReason = reason
	return nil
}

// UpdateNodeStatus drives the state machine for an existing node.
func (c *Controller) UpdateNodeStatus(path string, newStatus catalog.NodeStatus, actor string, metadata map[string]any) error {
	return c.registry.UpdateStatus(path, newStatus, actor, metadata)
}

// ReloadResult is the response shape of ReloadCatalog.
type ReloadResult struct {
	Applied             bool     `json:"applied"`
	AddedCount          int      `json:"added_count"`
	RemovedCount        int      `json:"removed_count"`
	BindingChangedCount int      `json:"binding_changed_count"`
	StatusChangedCount  int      `json:"status_changed_count"`
	HasBreakingChanges  bool     `json:"has_breaking_changes"`
	SuccessorErrors     []string `json:"successor_errors,omitempty"`
}

// ReloadCatalog validates and applies a candidate node set as the new
// snapshot. Successor-chain errors are warnings: they are returned but do
// not cause the reload to be reverted (SPEC_FULL.md §4.F). When the
// deprecation feature toggle is off, this falls back to atomic_replace with
// no diff and no breaking-change check.
func (c *Controller) ReloadCatalog(newNodes []*catalog.CatalogNode, blockBreaking bool, actor string) ReloadResult {
	if !c.deprecationEnabled {
		c.registry.AtomicReplace(newNodes)
		return ReloadResult{Applied: true}
	}

	diff, applied := c.registry.ValidatedReplace(newNodes, blockBreaking, actor)

	result := ReloadResult{
		Applied:             applied,
		AddedCount:          len(diff.AddedPaths),
		RemovedCount:        len(diff.RemovedPaths),
		BindingChangedCount: len(diff.BindingChangedPaths),
		StatusChangedCount:  len(diff.StatusChangedPaths),
		HasBreakingChanges:  diff.HasBreakingChanges(),
	}
	if applied {
		result.SuccessorErrors = c.registry.ValidateSuccessors()
	}
	return result
}
