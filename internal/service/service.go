package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ganizanisitara/open-moniker-svc/resolver-go/internal/cache"
	"github.com/ganizanisitara/open-moniker-svc/resolver-go/internal/catalog"
	"github.com/ganizanisitara/open-moniker-svc/resolver-go/internal/moniker"
	"github.com/ganizanisitara/open-moniker-svc/resolver-go/internal/telemetry"
	"github.com/ganizanisitara/open-moniker-svc/resolver-go/internal/template"
)

const maxSuccessorDepth = 5

// MonikerService orchestrates resolve/describe/list over the catalog
// registry, expanding query templates, applying access policy, caching
// results and emitting usage telemetry.
type MonikerService struct {
	catalog           *catalog.Registry
	cache             *cache.InMemory
	emitter           *telemetry.Emitter
	deprecationEnabled bool
}

// NewMonikerService wires a MonikerService to its dependencies.
func NewMonikerService(reg *catalog.Registry, cacheInst *cache.InMemory, emitter *telemetry.Emitter, deprecationEnabled bool) *MonikerService {
	return &MonikerService{catalog: reg, cache: cacheInst, emitter: emitter, deprecationEnabled: deprecationEnabled}
}

// Resolve resolves a moniker string to a ResolveResult, following
// deprecation redirects, applying access policy, and caching on success
// (SPEC_FULL.md §4.E).
func (s *MonikerService) Resolve(ctx context.Context, rawMoniker string, caller CallerIdentity) (*ResolveResult, error) {
	start := time.Now()
	requestID := uuid.NewString()

	path, err := moniker.Parse(rawMoniker)
	if err != nil {
		return nil, &ResolutionError{Message: err.Error()}
	}
	canonical := path.String()

	if cached, ok := s.cache.Get(canonical); ok {
		return cached.(*ResolveResult), nil
	}

	key := path.Key()
	binding, bindingPath := s.catalog.FindSourceBinding(key)
	if binding == nil {
		if !s.catalog.ExistsInChain(key) {
			s.emit(requestID, canonical, telemetry.OpResolve, telemetry.OutcomeNotFound, "", start, false, "", "")
			return nil, &NotFoundError{Path: key}
		}
		s.emit(requestID, canonical, telemetry.OpResolve, telemetry.OutcomeError, "", start, false, "", "")
		return nil, &NoBindingError{Path: key}
	}

	resolvedPath := key
	node := s.catalog.Get(bindingPath)
	originalNode := node
	redirectedFrom := ""

	if s.deprecationEnabled && node != nil && node.Status == catalog.StatusDeprecated && node.Successor != nil {
		finalBinding, finalBindingPath, finalNode, hops := s.followSuccessors(key, node)
		if finalBinding != nil && hops > 0 {
			redirectedFrom = key
			binding, bindingPath, node = finalBinding, finalBindingPath, finalNode
			resolvedPath = key // reported path stays the originally requested one
		}
	}

	if node != nil && node.AccessPolicy != nil {
		verdict := node.AccessPolicy.Validate(path.Segments)
		if !verdict.Allowed {
			s.emit(requestID, canonical, telemetry.OpResolve, telemetry.OutcomeError, string(binding.SourceType), start, originalNode.Status == catalog.StatusDeprecated, "", redirectedFrom)
			return nil, &AccessDeniedError{Message: verdict.Message, EstimatedRows: verdict.EstimatedRows}
		}
		if verdict.Warn {
			result, err := s.buildResolveResult(path, canonical, resolvedPath, binding, bindingPath, originalNode, redirectedFrom)
			if err != nil {
				return nil, err
			}
			result.Warning = verdict.Message
			s.cacheAndEmit(requestID, canonical, start, binding, originalNode, redirectedFrom, result)
			return result, nil
		}
	}

	result, err := s.buildResolveResult(path, canonical, resolvedPath, binding, bindingPath, originalNode, redirectedFrom)
	if err != nil {
		s.emit(requestID, canonical, telemetry.OpResolve, telemetry.OutcomeError, string(binding.SourceType), start, false, "", redirectedFrom)
		return nil, err
	}
	s.cacheAndEmit(requestID, canonical, start, binding, originalNode, redirectedFrom, result)
	return result, nil
}

// followSuccessors walks the successor chain starting at node, up to
// maxSuccessorDepth hops, stopping at the first non-deprecated (or
// binding-less chain end) node it can resolve a binding for.
func (s *MonikerService) followSuccessors(originalPath string, node *catalog.CatalogNode) (*catalog.SourceBinding, string, *catalog.CatalogNode, int) {
	current := node
	hops := 0
	for hops < maxSuccessorDepth && current.Status == catalog.StatusDeprecated && current.Successor != nil {
		next := s.catalog.Get(*current.Successor)
		if next == nil {
			break
		}
		current = next
		hops++
		if current.Status != catalog.StatusDeprecated {
			break
		}
	}
	if hops == 0 {
		return nil, "", node, 0
	}
	binding, bindingPath := s.catalog.FindSourceBinding(current.Path)
	if binding == nil {
		return nil, "", node, 0
	}
	return binding, bindingPath, current, hops
}

func (s *MonikerService) buildResolveResult(path *moniker.MonikerPath, canonical, resolvedPath string, binding *catalog.SourceBinding, bindingPath string, node *catalog.CatalogNode, redirectedFrom string) (*ResolveResult, error) {
	ownership := s.catalog.ResolveOwnership(resolvedPath)

	connection := make(map[string]interface{}, len(binding.Config))
	for k, v := range binding.Config {
		if k != "query" {
			connection[k] = v
		}
	}

	source := &ResolvedSource{
		SourceType: string(binding.SourceType),
		Connection: connection,
		Schema:     binding.Schema,
		ReadOnly:   binding.ReadOnly,
	}

	if rawQuery, ok := binding.Config["query"].(string); ok {
		expanded, err := template.Expand(rawQuery, path)
		if err != nil {
			return nil, &ResolutionError{Message: err.Error()}
		}
		source.Query = &expanded
	}

	var subPath *string
	if bindingPath != resolvedPath && strings.HasPrefix(resolvedPath, bindingPath+"/") {
		sp := strings.TrimPrefix(resolvedPath, bindingPath+"/")
		subPath = &sp
	}

	result := &ResolveResult{
		Moniker:        canonical,
		Path:           resolvedPath,
		Source:         source,
		Ownership:      ownership,
		BindingPath:    bindingPath,
		SubPath:        subPath,
		RedirectedFrom: redirectedFrom,
	}
	if node != nil {
		result.Status = node.Status
		result.DeprecationMessage = node.DeprecationMessage
		result.Successor = node.Successor
		result.SunsetDeadline = node.SunsetDeadline
		result.MigrationGuideURL = node.MigrationGuideURL
	}
	return result, nil
}

func (s *MonikerService) cacheAndEmit(requestID, canonical string, start time.Time, binding *catalog.SourceBinding, node *catalog.CatalogNode, redirectedFrom string, result *ResolveResult) {
	s.cache.Set(canonical, result)
	deprecated := node != nil && node.Status == catalog.StatusDeprecated
	successor := ""
	if result.Successor != nil {
		successor = *result.Successor
	}
	s.emit(requestID, canonical, telemetry.OpResolve, telemetry.OutcomeSuccess, string(binding.SourceType), start, deprecated, successor, redirectedFrom)
}

func (s *MonikerService) emit(requestID, monikerStr string, op telemetry.Operation, outcome telemetry.Outcome, sourceType string, start time.Time, deprecated bool, successor, redirectedFrom string) {
	if s.emitter == nil {
		return
	}
	s.emitter.Emit(telemetry.UsageEvent{
		Timestamp:      time.Now(),
		RequestID:      requestID,
		Moniker:        monikerStr,
		Operation:      op,
		Outcome:        outcome,
		SourceType:     sourceType,
		LatencyMs:      time.Since(start).Milliseconds(),
		Deprecated:     deprecated,
		Successor:      successor,
		RedirectedFrom: redirectedFrom,
	})
}

// Describe returns catalog metadata for a path without expanding any
// template.
func (s *MonikerService) Describe(ctx context.Context, path string) (*DescribeResult, error) {
	node := s.catalog.Get(path)
	if node == nil {
		return nil, &NotFoundError{Path: path}
	}
	ownership := s.catalog.ResolveOwnership(path)
	binding, _ := s.catalog.FindSourceBinding(path)

	result := &DescribeResult{Node: node, Ownership: ownership, Path: path, HasSourceBinding: binding != nil}
	if binding != nil {
		result.SourceType = string(binding.SourceType)
	}
	return result, nil
}

// List returns the immediate children of path.
func (s *MonikerService) List(ctx context.Context, path string) (*ListResult, error) {
	children := s.catalog.ChildrenPaths(path)
	ownership := s.catalog.ResolveOwnership(path)
	return &ListResult{Children: children, Path: path, Ownership: ownership}, nil
}
