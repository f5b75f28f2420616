// Package catalog holds the node, binding and ownership types that make up
// the registry tree, plus the registry itself (registry.go) and the YAML
// loader (loader.go).
package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// SourceType enumerates the kinds of backend a SourceBinding can describe.
type SourceType string

const (
	SourceSnowflake  SourceType = "snowflake"
	SourceOracle     SourceType = "oracle"
	SourceREST       SourceType = "rest"
	SourceStatic     SourceType = "static"
	SourceExcel      SourceType = "excel"
	SourceOpenSearch SourceType = "opensearch"
	SourceBloomberg  SourceType = "bloomberg"
	SourceRefinitiv  SourceType = "refinitiv"
	SourceFile       SourceType = "file"
)

// NodeStatus is the governance lifecycle state of a CatalogNode.
type NodeStatus string

const (
	StatusDraft      NodeStatus = "DRAFT"
	StatusActive     NodeStatus = "ACTIVE"
	StatusDeprecated NodeStatus = "DEPRECATED"
	StatusArchived   NodeStatus = "ARCHIVED"
)

// allowedTransitions enumerates the state machine. A transition not present
// here is rejected (property 7, SPEC_FULL.md §8).
var allowedTransitions = map[NodeStatus]map[NodeStatus]bool{
	StatusDraft:      {StatusActive: true},
	StatusActive:     {StatusDeprecated: true, StatusArchived: true},
	StatusDeprecated: {StatusArchived: true},
	StatusArchived:   {},
}

// ValidTransition reports whether from -> to is a legal status transition.
func ValidTransition(from, to NodeStatus) bool {
	next, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}

// SourceBinding is the contract describing where and how to fetch data for
// a node.
type SourceBinding struct {
	SourceType         SourceType        `json:"source_type"`
	Config             map[string]any    `json:"config"`
	AllowedOperations  []string          `json:"allowed_operations"`
	Schema             []ColumnSchema    `json:"schema,omitempty"`
	ReadOnly           bool              `json:"read_only"`
}

// ColumnSchema describes one column of a source's result shape.
type ColumnSchema struct {
	Name        string `json:"name" yaml:"name"`
	Type        string `json:"type" yaml:"type"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Nullable    bool   `json:"nullable,omitempty" yaml:"nullable,omitempty"`
}

// fingerprintPayload is the canonical projection fingerprinted by
// Fingerprint. Field order here is irrelevant: json.Marshal on a map sorts
// keys, and the struct tags fix the key names independent of Go field order.
type fingerprintPayload struct {
	SourceType        SourceType     `json:"source_type"`
	Config            map[string]any `json:"config"`
	AllowedOperations []string       `json:"allowed_operations"`
	Schema            []ColumnSchema `json:"schema"`
	ReadOnly          bool           `json:"read_only"`
}

// Fingerprint returns the 16-hex-char prefix of the SHA-256 digest over the
// canonical JSON of source_type, config, allowed_operations, schema and
// read_only. Two bindings with an equal fingerprint are contract-equivalent;
// any change to those five fields flips it (property 4, SPEC_FULL.md §8).
func (b SourceBinding) Fingerprint() string {
	ops := append([]string(nil), b.AllowedOperations...)
	sort.Strings(ops)

	payload := fingerprintPayload{
		SourceType:        b.SourceType,
		Config:            canonicalizeMap(b.Config),
		AllowedOperations: ops,
		Schema:            b.Schema,
		ReadOnly:          b.ReadOnly,
	}
	// json.Marshal on a struct preserves declared field order, but the
	// fields that actually vary (map keys) are sorted by encoding/json
	// regardless, which is what makes this invariant under key reorder.
	raw, err := json.Marshal(payload)
	if err != nil {
		// Config cannot contain anything json.Marshal rejects once it has
		// come through the YAML loader; a marshal failure here means the
		// caller built a binding by hand with an unsupported value.
		panic(fmt.Sprintf("catalog: binding config is not JSON-serializable: %v", err))
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])[:16]
}

func canonicalizeMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

// AccessPolicy is a descriptive row-volume guardrail evaluated during
// resolution (SPEC_FULL.md §4.E). It never touches live data; row estimates
// are heuristics declared by the catalog author.
type AccessPolicy struct {
	RequiredSegments       []int          `json:"required_segments,omitempty" yaml:"required_segments,omitempty"`
	MinFilters             int            `json:"min_filters,omitempty" yaml:"min_filters,omitempty"`
	BlockedPatterns        []string       `json:"blocked_patterns,omitempty" yaml:"blocked_patterns,omitempty"`
	MaxRowsWarn            int64          `json:"max_rows_warn,omitempty" yaml:"max_rows_warn,omitempty"`
	MaxRowsBlock           int64          `json:"max_rows_block,omitempty" yaml:"max_rows_block,omitempty"`
	BaseRowCount           int64          `json:"base_row_count,omitempty" yaml:"base_row_count,omitempty"`
	CardinalityMultipliers map[int]int64  `json:"cardinality_multipliers,omitempty" yaml:"cardinality_multipliers,omitempty"`
	DenialMessage          string         `json:"denial_message,omitempty" yaml:"denial_message,omitempty"`
	AllowedRoles           []string       `json:"allowed_roles,omitempty" yaml:"allowed_roles,omitempty"`
}

// AccessVerdict is the outcome of evaluating an AccessPolicy against a set
// of requested segments.
type AccessVerdict struct {
	Allowed       bool
	Warn          bool
	EstimatedRows int64
	Message       string
}

// EstimateRows applies the base count and any per-segment cardinality
// multipliers declared for segments equal to ALL.
func (p *AccessPolicy) EstimateRows(segments []string) int64 {
	base := p.BaseRowCount
	if base == 0 {
		base = 1
	}
	for idx, seg := range segments {
		if seg != "ALL" {
			continue
		}
		if mult, ok := p.CardinalityMultipliers[idx]; ok {
			base *= mult
		}
	}
	return base
}

// Validate checks segments against the policy's required-segment,
// minimum-filter and blocked-pattern rules and estimates row volume. A
// required segment given as ALL counts as not provided. The receiver must be
// non-nil: callers skip the check entirely when a node carries no
// AccessPolicy.
func (p *AccessPolicy) Validate(segments []string) AccessVerdict {
	for _, idx := range p.RequiredSegments {
		if idx >= len(segments) || segments[idx] == "" || segments[idx] == "ALL" {
			return AccessVerdict{
				Allowed: false,
				Message: p.denialOr(fmt.Sprintf("segment %d is required and was not provided", idx)),
			}
		}
	}
	if p.MinFilters > 0 {
		provided := 0
		for _, seg := range segments {
			if seg != "" && seg != "ALL" {
				provided++
			}
		}
		if provided < p.MinFilters {
			return AccessVerdict{
				Allowed: false,
				Message: p.denialOr(fmt.Sprintf("at least %d filter(s) required, got %d", p.MinFilters, provided)),
			}
		}
	}
	for _, pattern := range p.BlockedPatterns {
		for _, seg := range segments {
			if seg == pattern {
				return AccessVerdict{
					Allowed: false,
					Message: p.denialOr(fmt.Sprintf("segment %q is blocked by policy", seg)),
				}
			}
		}
	}

	estimated := p.EstimateRows(segments)
	if p.MaxRowsBlock > 0 && estimated > p.MaxRowsBlock {
		return AccessVerdict{
			Allowed:       false,
			EstimatedRows: estimated,
			Message:       p.denialOr(fmt.Sprintf("estimated %d rows exceeds the block threshold of %d", estimated, p.MaxRowsBlock)),
		}
	}
	if p.MaxRowsWarn > 0 && estimated > p.MaxRowsWarn {
		return AccessVerdict{Allowed: true, Warn: true, EstimatedRows: estimated,
			Message: fmt.Sprintf("estimated %d rows exceeds the warn threshold of %d", estimated, p.MaxRowsWarn)}
	}
	return AccessVerdict{Allowed: true, EstimatedRows: estimated}
}

func (p *AccessPolicy) denialOr(fallback string) string {
	if p.DenialMessage != "" {
		return p.DenialMessage
	}
	return fallback
}

// Ownership is a per-node triple of accountability fields plus governance
// roles. Any field may be nil, in which case it is inherited from the
// nearest ancestor that sets it (field-by-field, SPEC_FULL.md §3).
type Ownership struct {
	AccountableOwner *string `json:"accountable_owner,omitempty" yaml:"accountable_owner,omitempty"`
	DataSpecialist   *string `json:"data_specialist,omitempty" yaml:"data_specialist,omitempty"`
	SupportChannel   *string `json:"support_channel,omitempty" yaml:"support_channel,omitempty"`

	ADOP     *string `json:"adop,omitempty" yaml:"adop,omitempty"`
	ADOPName *string `json:"adop_name,omitempty" yaml:"adop_name,omitempty"`
	ADS      *string `json:"ads,omitempty" yaml:"ads,omitempty"`
	ADSName  *string `json:"ads_name,omitempty" yaml:"ads_name,omitempty"`
	ADAL     *string `json:"adal,omitempty" yaml:"adal,omitempty"`
	ADALName *string `json:"adal_name,omitempty" yaml:"adal_name,omitempty"`

	UI *string `json:"ui,omitempty" yaml:"ui,omitempty"`
}

// IsEmpty reports whether every field is unset.
func (o Ownership) IsEmpty() bool {
	return o.AccountableOwner == nil && o.DataSpecialist == nil && o.SupportChannel == nil &&
		o.ADOP == nil && o.ADOPName == nil && o.ADS == nil && o.ADSName == nil &&
		o.ADAL == nil && o.ADALName == nil && o.UI == nil
}

// MergeWithParent returns a new Ownership with every unset field in o
// filled from parent. o's own set fields always win.
func (o Ownership) MergeWithParent(parent Ownership) Ownership {
	return Ownership{
		AccountableOwner: firstNonNil(o.AccountableOwner, parent.AccountableOwner),
		DataSpecialist:   firstNonNil(o.DataSpecialist, parent.DataSpecialist),
		SupportChannel:   firstNonNil(o.SupportChannel, parent.SupportChannel),
		ADOP:             firstNonNil(o.ADOP, parent.ADOP),
		ADOPName:         firstNonNil(o.ADOPName, parent.ADOPName),
		ADS:              firstNonNil(o.ADS, parent.ADS),
		ADSName:          firstNonNil(o.ADSName, parent.ADSName),
		ADAL:             firstNonNil(o.ADAL, parent.ADAL),
		ADALName:         firstNonNil(o.ADALName, parent.ADALName),
		UI:               firstNonNil(o.UI, parent.UI),
	}
}

func firstNonNil(a, b *string) *string {
	if a != nil {
		return a
	}
	return b
}

// ResolvedOwnership is the output of a root-to-leaf inheritance walk: every
// Ownership field plus the path that supplied its value, for the
// /lineage/{path} operation.
type ResolvedOwnership struct {
	AccountableOwner string `json:"accountable_owner"`
	AccountableOwnerSource string `json:"accountable_owner_source,omitempty"`
	DataSpecialist   string `json:"data_specialist"`
	DataSpecialistSource string `json:"data_specialist_source,omitempty"`
	SupportChannel   string `json:"support_channel"`
	SupportChannelSource string `json:"support_channel_source,omitempty"`

	ADOP           string `json:"adop"`
	ADOPSource     string `json:"adop_source,omitempty"`
	ADOPName       string `json:"adop_name"`
	ADS            string `json:"ads"`
	ADSSource      string `json:"ads_source,omitempty"`
	ADSName        string `json:"ads_name"`
	ADAL           string `json:"adal"`
	ADALSource     string `json:"adal_source,omitempty"`
	ADALName       string `json:"adal_name"`

	UI string `json:"ui,omitempty"`
}

// Documentation carries free-form links surfaced verbatim on describe/
// metadata responses.
type Documentation struct {
	GlossaryURL string `json:"glossary_url,omitempty" yaml:"glossary_url,omitempty"`
	RunbookURL  string `json:"runbook_url,omitempty" yaml:"runbook_url,omitempty"`
}

// IsEmpty reports whether no documentation links are set.
func (d Documentation) IsEmpty() bool {
	return d.GlossaryURL == "" && d.RunbookURL == ""
}

// DataQuality, SLA and Freshness are descriptive metadata, never validated
// against live data (Non-goals).
type DataQuality struct {
	Score       float64  `json:"score,omitempty" yaml:"score,omitempty"`
	Issues      []string `json:"issues,omitempty" yaml:"issues,omitempty"`
	LastChecked string   `json:"last_checked,omitempty" yaml:"last_checked,omitempty"`
}

type SLA struct {
	AvailabilityPct float64 `json:"availability_pct,omitempty" yaml:"availability_pct,omitempty"`
	MaxLatencyMs    int     `json:"max_latency_ms,omitempty" yaml:"max_latency_ms,omitempty"`
}

type Freshness struct {
	ExpectedIntervalSeconds int    `json:"expected_interval_seconds,omitempty" yaml:"expected_interval_seconds,omitempty"`
	LastUpdated             string `json:"last_updated,omitempty" yaml:"last_updated,omitempty"`
}

// DataSchema is the set of columns a node's source is expected to expose,
// distinct from SourceBinding.Schema which describes the binding's own
// driver-level shape.
type DataSchema struct {
	Columns []ColumnSchema `json:"columns,omitempty" yaml:"columns,omitempty"`
}

// AuditEntry is one append-only record of a mutating registry operation.
type AuditEntry struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Actor     string          `json:"actor"`
	Path      string          `json:"path"`
	Kind      string          `json:"kind"`
	Before    json.RawMessage `json:"before,omitempty"`
	After     json.RawMessage `json:"after,omitempty"`
	Reason    string          `json:"reason,omitempty"`
}

// NewAuditEntry stamps a new entry with a fresh id and the given timestamp.
func NewAuditEntry(now time.Time, actor, path, kind, reason string, before, after any) AuditEntry {
	return AuditEntry{
		ID:        uuid.NewString(),
		Timestamp: now,
		Actor:     actor,
		Path:      path,
		Kind:      kind,
		Before:    marshalOrNil(before),
		After:     marshalOrNil(after),
		Reason:    reason,
	}
}

func marshalOrNil(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}

// CatalogNode is the unit of the catalog tree.
type CatalogNode struct {
	Path        string `json:"path"`
	DisplayName string `json:"display_name"`
	Description string `json:"description,omitempty"`

	Status             NodeStatus `json:"status"`
	DeprecationMessage string     `json:"deprecation_message,omitempty"`
	Successor          *string    `json:"successor,omitempty"`
	SunsetDeadline     *string    `json:"sunset_deadline,omitempty"`
	MigrationGuideURL  string     `json:"migration_guide_url,omitempty"`

	Ownership     Ownership      `json:"ownership"`
	SourceBinding *SourceBinding `json:"source_binding,omitempty"`
	AccessPolicy  *AccessPolicy  `json:"access_policy,omitempty"`

	Documentation Documentation `json:"documentation"`
	DataSchema    *DataSchema   `json:"data_schema,omitempty"`
	DataQuality   *DataQuality  `json:"data_quality,omitempty"`
	SLA           *SLA          `json:"sla,omitempty"`
	Freshness     *Freshness    `json:"freshness,omitempty"`

	Tags         []string `json:"tags,omitempty"`
	SemanticTags []string `json:"semantic_tags,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	CreatedBy string    `json:"created_by,omitempty"`
	ApprovedBy string   `json:"approved_by,omitempty"`
}

// IsLeaf reports whether this node carries a source binding of its own.
func (n *CatalogNode) IsLeaf() bool {
	return n.SourceBinding != nil
}
