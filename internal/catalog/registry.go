package catalog

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Registry is a thread-safe registry of catalog nodes.
type Registry struct {
	nodes    map[string]*CatalogNode
	children map[string]map[string]bool // parent -> children paths
	mu       sync.RWMutex                // read-heavy workload
	auditMu  sync.Mutex
	auditLog []AuditEntry
	now      func() time.Time
}

// NewRegistry creates a new empty catalog registry. now is injected so
// tests can control timestamps; pass time.Now in production.
func NewRegistry(now func() time.Time) *Registry {
	return &Registry{
		nodes:    make(map[string]*CatalogNode),
		children: make(map[string]map[string]bool),
		auditLog: make([]AuditEntry, 0),
		now:      now,
	}
}

// Register registers a single catalog node, outside of any reload.
func (r *Registry) Register(node *CatalogNode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registerLocked(node)
}

func (r *Registry) registerLocked(node *CatalogNode) {
	r.nodes[node.Path] = node
	if parent := parentPath(node.Path); parent != nil {
		if r.children[*parent] == nil {
			r.children[*parent] = make(map[string]bool)
		}
		r.children[*parent][node.Path] = true
	}
}

// RegisterMany registers multiple nodes under a single lock acquisition.
func (r *Registry) RegisterMany(nodes []*CatalogNode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, node := range nodes {
		r.registerLocked(node)
	}
}

// Get returns a node by path, or nil.
func (r *Registry) Get(path string) *CatalogNode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nodes[path]
}

// Exists reports whether path is registered.
func (r *Registry) Exists(path string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.nodes[path]
	return ok
}

// Children returns the direct child nodes of path.
func (r *Registry) Children(path string) []*CatalogNode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	childPaths := r.children[path]
	result := make([]*CatalogNode, 0, len(childPaths))
	for p := range childPaths {
		if node, ok := r.nodes[p]; ok {
			result = append(result, node)
		}
	}
	return result
}

// ChildrenPaths returns immediate child path suffixes of path.
func (r *Registry) ChildrenPaths(path string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	childPaths := r.children[path]
	result := make([]string, 0, len(childPaths))
	for p := range childPaths {
		result = append(result, p)
	}
	return result
}

// ResolveOwnership walks the hierarchy from root to path, letting each
// ownership field inherit independently from the nearest ancestor that
// defines it, and records which path supplied each value.
func (r *Registry) ResolveOwnership(path string) ResolvedOwnership {
	r.mu.RLock()
	defer r.mu.RUnlock()

	paths := append(ancestorPaths(path), path)
	var result ResolvedOwnership

	apply := func(val *string, target *string, source *string, p string) {
		if val != nil {
			*target = *val
			*source = p
		}
	}

	for _, p := range paths {
		node, ok := r.nodes[p]
		if !ok {
			continue
		}
		o := node.Ownership
		apply(o.AccountableOwner, &result.AccountableOwner, &result.AccountableOwnerSource, p)
		apply(o.DataSpecialist, &result.DataSpecialist, &result.DataSpecialistSource, p)
		apply(o.SupportChannel, &result.SupportChannel, &result.SupportChannelSource, p)
		apply(o.ADOP, &result.ADOP, &result.ADOPSource, p)
		apply(o.ADS, &result.ADS, &result.ADSSource, p)
		apply(o.ADAL, &result.ADAL, &result.ADALSource, p)
		if o.ADOPName != nil {
			result.ADOPName = *o.ADOPName
		}
		if o.ADSName != nil {
			result.ADSName = *o.ADSName
		}
		if o.ADALName != nil {
			result.ADALName = *o.ADALName
		}
		if o.UI != nil {
			result.UI = *o.UI
		}
	}
	return result
}

// FindSourceBinding returns the binding to use for path and the path of the
// node that defined it: the exact node if it carries one, otherwise the
// nearest ancestor's.
func (r *Registry) FindSourceBinding(path string) (*SourceBinding, string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if node, ok := r.nodes[path]; ok && node.SourceBinding != nil {
		return node.SourceBinding, path
	}

	ancestors := ancestorPaths(path)
	for i := len(ancestors) - 1; i >= 0; i-- {
		ancestor := ancestors[i]
		if node, ok := r.nodes[ancestor]; ok && node.SourceBinding != nil {
			return node.SourceBinding, ancestor
		}
	}
	return nil, ""
}

// ExistsInChain reports whether path or any of its ancestors is registered,
// used to distinguish "no catalog node at all" (not_found) from "a node
// exists but no binding is inheritable" (no_binding).
func (r *Registry) ExistsInChain(path string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.nodes[path]; ok {
		return true
	}
	for _, ancestor := range ancestorPaths(path) {
		if _, ok := r.nodes[ancestor]; ok {
			return true
		}
	}
	return false
}

// AllPaths returns every registered path.
func (r *Registry) AllPaths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	paths := make([]string, 0, len(r.nodes))
	for p := range r.nodes {
		paths = append(paths, p)
	}
	return paths
}

// AllNodes returns every registered node.
func (r *Registry) AllNodes() []*CatalogNode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	nodes := make([]*CatalogNode, 0, len(r.nodes))
	for _, node := range r.nodes {
		nodes = append(nodes, node)
	}
	return nodes
}

// Clear removes every node. Used by tests; production code should prefer
// AtomicReplace / ValidatedReplace so a reload is never observed as empty.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes = make(map[string]*CatalogNode)
	r.children = make(map[string]map[string]bool)
}

func buildSnapshot(nodes []*CatalogNode) (map[string]*CatalogNode, map[string]map[string]bool) {
	nodeMap := make(map[string]*CatalogNode, len(nodes))
	children := make(map[string]map[string]bool)
	for _, node := range nodes {
		nodeMap[node.Path] = node
		if parent := parentPath(node.Path); parent != nil {
			if children[*parent] == nil {
				children[*parent] = make(map[string]bool)
			}
			children[*parent][node.Path] = true
		}
	}
	return nodeMap, children
}

// AtomicReplace publishes newNodes as the new snapshot in one step. Readers
// never observe a partially applied reload: the new maps are built fully
// before the lock is taken, and the swap itself is a single assignment.
func (r *Registry) AtomicReplace(newNodes []*CatalogNode) {
	nodeMap, children := buildSnapshot(newNodes)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes = nodeMap
	r.children = children
}

// CatalogDiff summarizes the effect of replacing the current snapshot with
// a candidate node set.
type CatalogDiff struct {
	AddedPaths          []string
	RemovedPaths        []string
	BindingChangedPaths []string
	StatusChangedPaths  []string
}

// HasBreakingChanges reports whether the diff removed any node or changed
// any binding's fingerprint.
func (d CatalogDiff) HasBreakingChanges() bool {
	return len(d.RemovedPaths) > 0 || len(d.BindingChangedPaths) > 0
}

// Diff compares the current snapshot against a candidate node set without
// applying it.
func (r *Registry) Diff(newNodes []*CatalogNode) CatalogDiff {
	r.mu.RLock()
	defer r.mu.RUnlock()

	newMap := make(map[string]*CatalogNode, len(newNodes))
	for _, n := range newNodes {
		newMap[n.Path] = n
	}

	var diff CatalogDiff
	for path, oldNode := range r.nodes {
		newNode, stillPresent := newMap[path]
		if !stillPresent {
			diff.RemovedPaths = append(diff.RemovedPaths, path)
			continue
		}
		if bindingFingerprint(oldNode) != bindingFingerprint(newNode) {
			diff.BindingChangedPaths = append(diff.BindingChangedPaths, path)
		}
		if oldNode.Status != newNode.Status {
			diff.StatusChangedPaths = append(diff.StatusChangedPaths, path)
		}
	}
	for path := range newMap {
		if _, existed := r.nodes[path]; !existed {
			diff.AddedPaths = append(diff.AddedPaths, path)
		}
	}
	return diff
}

func bindingFingerprint(n *CatalogNode) string {
	if n == nil || n.SourceBinding == nil {
		return ""
	}
	return n.SourceBinding.Fingerprint()
}

// ValidatedReplace computes the diff against newNodes. When blockBreaking is
// set and the diff has breaking changes, it appends a single
// "reload_rejected" audit entry holding the whole diff and leaves the
// registry unchanged; no per-path entries are written for a rejected reload.
// Otherwise it appends one audit entry per changed path and applies the
// replacement.
func (r *Registry) ValidatedReplace(newNodes []*CatalogNode, blockBreaking bool, actor string) (CatalogDiff, bool) {
	diff := r.Diff(newNodes)
	if blockBreaking && diff.HasBreakingChanges() {
		r.appendAudit(NewAuditEntry(r.now(), actor, "", "reload_rejected", "breaking changes present", diff, nil))
		return diff, false
	}

	for _, p := range diff.AddedPaths {
		r.appendAudit(NewAuditEntry(r.now(), actor, p, "node_added", "", nil, nil))
	}
	for _, p := range diff.RemovedPaths {
		r.appendAudit(NewAuditEntry(r.now(), actor, p, "node_removed", "", nil, nil))
	}
	for _, p := range diff.BindingChangedPaths {
		r.appendAudit(NewAuditEntry(r.now(), actor, p, "binding_changed", "", nil, nil))
	}
	for _, p := range diff.StatusChangedPaths {
		r.appendAudit(NewAuditEntry(r.now(), actor, p, "status_changed", "", nil, nil))
	}

	r.AtomicReplace(newNodes)
	return diff, true
}

// ValidateSuccessors reports one error string per node whose successor is
// missing, self-referential, or heads a chain deeper than 5 hops.
func (r *Registry) ValidateSuccessors() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var errs []string
	for path, node := range r.nodes {
		if node.Status != StatusDeprecated || node.Successor == nil {
			continue
		}
		if *node.Successor == path {
			errs = append(errs, fmt.Sprintf("%s: successor is self-referential", path))
			continue
		}

		seen := map[string]bool{path: true}
		current := *node.Successor
		depth := 1
		for {
			if seen[current] {
				errs = append(errs, fmt.Sprintf("%s: successor chain contains a cycle at %s", path, current))
				break
			}
			seen[current] = true

			next, exists := r.nodes[current]
			if !exists {
				errs = append(errs, fmt.Sprintf("%s: successor %s does not exist", path, current))
				break
			}
			if next.Status != StatusDeprecated || next.Successor == nil {
				break
			}
			if depth >= 5 {
				errs = append(errs, fmt.Sprintf("%s: successor chain exceeds 5 hops", path))
				break
			}
			current = *next.Successor
			depth++
		}
	}
	return errs
}

// UpdateStatus transitions a node's status, enforcing the state machine,
// and writes an audit entry. It returns an error if the path is unknown or
// the transition is illegal.
func (r *Registry) UpdateStatus(path string, newStatus NodeStatus, actor string, metadata map[string]any) error {
	r.mu.Lock()
	node, ok := r.nodes[path]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("catalog: unknown path %q", path)
	}
	if !ValidTransition(node.Status, newStatus) {
		r.mu.Unlock()
		return fmt.Errorf("catalog: illegal transition %s -> %s for %q", node.Status, newStatus, path)
	}

	before := node.Status
	node.Status = newStatus
	node.UpdatedAt = r.now()

	if newStatus == StatusDeprecated {
		if msg, ok := metadata["deprecation_message"].(string); ok {
			node.DeprecationMessage = msg
		}
		if succ, ok := metadata["successor"].(string); ok && succ != "" {
			node.Successor = &succ
		}
		if deadline, ok := metadata["sunset_deadline"].(string); ok && deadline != "" {
			node.SunsetDeadline = &deadline
		}
		if url, ok := metadata["migration_guide_url"].(string); ok {
			node.MigrationGuideURL = url
		}
	}
	r.mu.Unlock()

	r.appendAudit(NewAuditEntry(r.now(), actor, path, "status_updated", "", before, newStatus))
	return nil
}

func (r *Registry) appendAudit(entry AuditEntry) {
	r.auditMu.Lock()
	defer r.auditMu.Unlock()
	r.auditLog = append(r.auditLog, entry)
}

// AuditLog returns audit entries, optionally filtered by path and limited
// to the most recent `limit` entries.
func (r *Registry) AuditLog(path string, limit int) []AuditEntry {
	r.auditMu.Lock()
	defer r.auditMu.Unlock()

	result := make([]AuditEntry, 0, len(r.auditLog))
	for _, entry := range r.auditLog {
		if path != "" && entry.Path != path {
			continue
		}
		result = append(result, entry)
	}
	if limit > 0 && len(result) > limit {
		result = result[len(result)-limit:]
	}
	return result
}

// FindByStatus returns every node with the given lifecycle status.
func (r *Registry) FindByStatus(status NodeStatus) []*CatalogNode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*CatalogNode, 0)
	for _, node := range r.nodes {
		if node.Status == status {
			result = append(result, node)
		}
	}
	return result
}

// FindActive returns every ACTIVE node.
func (r *Registry) FindActive() []*CatalogNode { return r.FindByStatus(StatusActive) }

// FindDeprecated returns every DEPRECATED node.
func (r *Registry) FindDeprecated() []*CatalogNode { return r.FindByStatus(StatusDeprecated) }

// Search matches query case-insensitively against path, display name,
// description and tags, optionally filtered by status.
func (r *Registry) Search(query string, status *NodeStatus, limit int) []*CatalogNode {
	queryLower := strings.ToLower(query)

	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]*CatalogNode, 0, limit)
	for _, node := range r.nodes {
		if status != nil && node.Status != *status {
			continue
		}
		matched := strings.Contains(strings.ToLower(node.Path), queryLower) ||
			strings.Contains(strings.ToLower(node.DisplayName), queryLower) ||
			strings.Contains(strings.ToLower(node.Description), queryLower)
		if !matched {
			for _, tag := range node.Tags {
				if strings.Contains(strings.ToLower(tag), queryLower) {
					matched = true
					break
				}
			}
		}
		if matched {
			results = append(results, node)
			if limit > 0 && len(results) >= limit {
				break
			}
		}
	}
	return results
}

// Count returns node counts by status, plus a "total" key.
func (r *Registry) Count() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[string]int)
	for _, node := range r.nodes {
		counts[string(node.Status)]++
	}
	counts["total"] = len(r.nodes)
	return counts
}

// parentPath returns the parent path, or nil at root. Handles both '/' and
// '.' as hierarchy separators, since moniker domains are dotted while
// segments are slash-separated.
func parentPath(path string) *string {
	if path == "" {
		return nil
	}
	if idx := strings.LastIndex(path, "/"); idx != -1 {
		parent := path[:idx]
		return &parent
	}
	if idx := strings.LastIndex(path, "."); idx != -1 {
		parent := path[:idx]
		return &parent
	}
	root := ""
	return &root
}

// ancestorPaths returns every ancestor from root to the immediate parent,
// root first. Example: "analytics.risk/var" -> ["analytics", "analytics.risk"].
func ancestorPaths(path string) []string {
	if path == "" {
		return []string{}
	}
	var result []string
	current := path
	for {
		var parent string
		if idx := strings.LastIndex(current, "/"); idx != -1 {
			parent = current[:idx]
		} else if idx := strings.LastIndex(current, "."); idx != -1 {
			parent = current[:idx]
		} else {
			break
		}
		if parent == "" {
			break
		}
		result = append([]string{parent}, result...)
		current = parent
	}
	return result
}
