package catalog

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// CatalogYAML is the shape of a catalog definition file: a flat map of
// path -> node, with no enclosing "nodes" wrapper (SPEC_FULL.md §6).
type CatalogYAML map[string]*CatalogNodeYAML

// CatalogNodeYAML is one node as it appears in the catalog file.
type CatalogNodeYAML struct {
	DisplayName        string             `yaml:"display_name"`
	Description        string             `yaml:"description"`
	Ownership          *OwnershipYAML     `yaml:"ownership"`
	SourceBinding      *SourceBindingYAML `yaml:"source_binding"`
	AccessPolicy       *AccessPolicyYAML  `yaml:"access_policy"`
	Documentation      *DocumentationYAML `yaml:"documentation"`
	DataSchema         *DataSchema        `yaml:"data_schema"`
	DataQuality        *DataQuality       `yaml:"data_quality"`
	SLA                *SLA               `yaml:"sla"`
	Freshness          *Freshness         `yaml:"freshness"`
	Tags               []string           `yaml:"tags"`
	SemanticTags       []string           `yaml:"semantic_tags"`
	Status             string             `yaml:"status"`
	DeprecationMessage string             `yaml:"deprecation_message"`
	Successor          *string            `yaml:"successor"`
	SunsetDeadline     *string            `yaml:"sunset_deadline"`
	MigrationGuideURL  string             `yaml:"migration_guide_url"`
}

// OwnershipYAML is the ownership block of a catalog node.
type OwnershipYAML struct {
	AccountableOwner *string `yaml:"accountable_owner"`
	DataSpecialist   *string `yaml:"data_specialist"`
	SupportChannel   *string `yaml:"support_channel"`
	ADOP             *string `yaml:"adop"`
	ADOPName         *string `yaml:"adop_name"`
	ADS              *string `yaml:"ads"`
	ADSName          *string `yaml:"ads_name"`
	ADAL             *string `yaml:"adal"`
	ADALName         *string `yaml:"adal_name"`
	UI               *string `yaml:"ui"`
}

// SourceBindingYAML is the source_binding block of a catalog node.
type SourceBindingYAML struct {
	Type              string           `yaml:"type"`
	Config            map[string]any   `yaml:"config"`
	AllowedOperations []string         `yaml:"allowed_operations"`
	Schema            []ColumnSchema   `yaml:"schema"`
	ReadOnly          *bool            `yaml:"read_only"`
}

// AccessPolicyYAML is the access_policy block of a catalog node.
type AccessPolicyYAML struct {
	RequiredSegments       []int         `yaml:"required_segments"`
	MinFilters             int           `yaml:"min_filters"`
	BlockedPatterns        []string      `yaml:"blocked_patterns"`
	MaxRowsWarn            int64         `yaml:"max_rows_warn"`
	MaxRowsBlock           int64         `yaml:"max_rows_block"`
	BaseRowCount           int64         `yaml:"base_row_count"`
	CardinalityMultipliers map[int]int64 `yaml:"cardinality_multipliers"`
	DenialMessage          string        `yaml:"denial_message"`
	AllowedRoles           []string      `yaml:"allowed_roles"`
}

// DocumentationYAML is the documentation block of a catalog node.
type DocumentationYAML struct {
	GlossaryURL string `yaml:"glossary_url"`
	RunbookURL  string `yaml:"runbook_url"`
}

// LoadCatalog reads and parses a catalog definition file into CatalogNode
// values. It does not register them; callers pass the result to
// Registry.RegisterMany or Registry.ValidatedReplace.
func LoadCatalog(path string, now time.Time) ([]*CatalogNode, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}

	var raw CatalogYAML
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("catalog: parse %s: %w", path, err)
	}

	nodes := make([]*CatalogNode, 0, len(raw))
	for nodePath, nodeYAML := range raw {
		if nodeYAML == nil {
			continue
		}
		nodes = append(nodes, convertYAMLToNode(nodePath, nodeYAML, now))
	}
	return nodes, nil
}

func convertYAMLToNode(path string, y *CatalogNodeYAML, now time.Time) *CatalogNode {
	node := &CatalogNode{
		Path:               path,
		DisplayName:        y.DisplayName,
		Description:        y.Description,
		Tags:               y.Tags,
		SemanticTags:       y.SemanticTags,
		DeprecationMessage: y.DeprecationMessage,
		Successor:          y.Successor,
		SunsetDeadline:     y.SunsetDeadline,
		MigrationGuideURL:  y.MigrationGuideURL,
		DataSchema:         y.DataSchema,
		DataQuality:        y.DataQuality,
		SLA:                y.SLA,
		Freshness:          y.Freshness,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if y.Status != "" {
		node.Status = NodeStatus(y.Status)
	} else {
		node.Status = StatusActive
	}

	if y.Ownership != nil {
		node.Ownership = Ownership{
			AccountableOwner: y.Ownership.AccountableOwner,
			DataSpecialist:   y.Ownership.DataSpecialist,
			SupportChannel:   y.Ownership.SupportChannel,
			ADOP:             y.Ownership.ADOP,
			ADOPName:         y.Ownership.ADOPName,
			ADS:              y.Ownership.ADS,
			ADSName:          y.Ownership.ADSName,
			ADAL:             y.Ownership.ADAL,
			ADALName:         y.Ownership.ADALName,
			UI:               y.Ownership.UI,
		}
	}

	if y.SourceBinding != nil {
		readOnly := true
		if y.SourceBinding.ReadOnly != nil {
			readOnly = *y.SourceBinding.ReadOnly
		}
		node.SourceBinding = &SourceBinding{
			SourceType:        SourceType(y.SourceBinding.Type),
			Config:            y.SourceBinding.Config,
			AllowedOperations: y.SourceBinding.AllowedOperations,
			Schema:            y.SourceBinding.Schema,
			ReadOnly:          readOnly,
		}
	}

	if y.AccessPolicy != nil {
		baseRowCount := y.AccessPolicy.BaseRowCount
		if baseRowCount == 0 {
			baseRowCount = 100
		}
		node.AccessPolicy = &AccessPolicy{
			RequiredSegments:       y.AccessPolicy.RequiredSegments,
			MinFilters:             y.AccessPolicy.MinFilters,
			BlockedPatterns:        y.AccessPolicy.BlockedPatterns,
			MaxRowsWarn:            y.AccessPolicy.MaxRowsWarn,
			MaxRowsBlock:           y.AccessPolicy.MaxRowsBlock,
			BaseRowCount:           baseRowCount,
			CardinalityMultipliers: y.AccessPolicy.CardinalityMultipliers,
			DenialMessage:          y.AccessPolicy.DenialMessage,
			AllowedRoles:           y.AccessPolicy.AllowedRoles,
		}
	}

	if y.Documentation != nil {
		node.Documentation = Documentation{
			GlossaryURL: y.Documentation.GlossaryURL,
			RunbookURL:  y.Documentation.RunbookURL,
		}
	}

	return node
}
