// Package service implements the resolver's core orchestration: resolve,
// describe and list operations over the catalog registry (SPEC_FULL.md
// §4.E).
package service

import (
	"github.com/ganizanisitara/open-moniker-svc/resolver-go/internal/catalog"
)

// ResolvedSource is the backend-facing half of a ResolveResult.
type ResolvedSource struct {
	SourceType string                 `json:"source_type"`
	Connection map[string]interface{} `json:"connection"`
	Query      *string                `json:"query,omitempty"`
	Schema     []catalog.ColumnSchema `json:"schema,omitempty"`
	ReadOnly   bool                   `json:"read_only"`
}

// ResolveResult is the full outcome of a resolve operation.
type ResolveResult struct {
	Moniker            string                    `json:"moniker"`
	Path               string                    `json:"path"`
	Source             *ResolvedSource           `json:"source"`
	Ownership          catalog.ResolvedOwnership `json:"ownership"`
	Status             catalog.NodeStatus        `json:"status"`
	DeprecationMessage string                    `json:"deprecation_message,omitempty"`
	Successor          *string                   `json:"successor,omitempty"`
	SunsetDeadline     *string                   `json:"sunset_deadline,omitempty"`
	MigrationGuideURL  string                    `json:"migration_guide_url,omitempty"`
	BindingPath        string                    `json:"binding_path"`
	SubPath            *string                   `json:"sub_path,omitempty"`
	RedirectedFrom     string                    `json:"redirected_from,omitempty"`
	Warning            string                    `json:"warning,omitempty"`
}

// DescribeResult is the outcome of a describe operation.
type DescribeResult struct {
	Node             *catalog.CatalogNode      `json:"node,omitempty"`
	Ownership        catalog.ResolvedOwnership `json:"ownership"`
	Path             string                    `json:"path"`
	HasSourceBinding bool                      `json:"has_source_binding"`
	SourceType       string                    `json:"source_type,omitempty"`
}

// ListResult is the outcome of a list operation.
type ListResult struct {
	Children  []string                  `json:"children"`
	Path      string                    `json:"path"`
	Ownership catalog.ResolvedOwnership `json:"ownership"`
}

// CallerIdentity carries the app id and team an API caller self-reports.
// Resolve accepts it but does not copy it into the usage events it emits,
// so their CallerAppID and CallerTeam fields stay empty.
type CallerIdentity struct {
	AppID string `json:"app_id"`
	Team  string `json:"team,omitempty"`
}

// ResolutionError is a generic resolution failure that doesn't fit a more
// specific error kind.
type ResolutionError struct {
	Message string
}

func (e *ResolutionError) Error() string { return e.Message }

// NotFoundError means no catalog node matched the requested path.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string { return "no catalog node for path: " + e.Path }

// NoBindingError means a node exists but no binding could be found
// anywhere up the ancestor chain.
type NoBindingError struct {
	Path string
}

func (e *NoBindingError) Error() string { return "no source binding inheritable for path: " + e.Path }

// AccessDeniedError means an access-policy guardrail blocked resolution.
type AccessDeniedError struct {
	Message       string
	EstimatedRows int64
}

func (e *AccessDeniedError) Error() string { return e.Message }
