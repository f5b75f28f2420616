// Package moniker implements the path grammar described by the catalog:
//
//	[namespace "@"] domain [ "/" segments ] [ "@" version ] [ "/v" revision ] [ "?" params ]
package moniker

import (
	"fmt"
	"sort"
	"strings"
)

// MonikerPath is the parsed form of a moniker string.
type MonikerPath struct {
	Namespace string
	Domain    string
	Segments  []string
	Version   string // "" if absent, otherwise "latest" or an 8-digit date
	Revision  int    // 0 if absent
	Params    map[string]string
}

// HasNamespace reports whether a namespace prefix was present.
func (p *MonikerPath) HasNamespace() bool {
	return p.Namespace != ""
}

// HasVersion reports whether a version suffix was present.
func (p *MonikerPath) HasVersion() bool {
	return p.Version != ""
}

// IsLatest reports whether the version is the "latest" keyword.
func (p *MonikerPath) IsLatest() bool {
	return p.Version == "latest"
}

// HasRevision reports whether a /vN revision suffix was present.
func (p *MonikerPath) HasRevision() bool {
	return p.Revision > 0
}

// Key returns the registry lookup key: domain + "/" + segments, joined by "/".
// Namespace is deliberately excluded — it is advisory only (SPEC_FULL.md §9).
func (p *MonikerPath) Key() string {
	if len(p.Segments) == 0 {
		return p.Domain
	}
	return p.Domain + "/" + strings.Join(p.Segments, "/")
}

// SegmentsJoined returns the segments joined with "/", used by the {path} placeholder.
func (p *MonikerPath) SegmentsJoined() string {
	return strings.Join(p.Segments, "/")
}

// Segment returns the Nth segment (0-indexed) and whether it exists.
func (p *MonikerPath) Segment(n int) (string, bool) {
	if n < 0 || n >= len(p.Segments) {
		return "", false
	}
	return p.Segments[n], true
}

// String renders the canonical form of the path. Parsing String() always
// round-trips to an equal MonikerPath (property 1, SPEC_FULL.md §8).
func (p *MonikerPath) String() string {
	var b strings.Builder
	if p.Namespace != "" {
		b.WriteString(p.Namespace)
		b.WriteByte('@')
	}
	b.WriteString(p.Domain)
	for _, seg := range p.Segments {
		b.WriteByte('/')
		b.WriteString(seg)
	}
	if p.Version != "" {
		b.WriteByte('@')
		b.WriteString(p.Version)
	}
	if p.Revision > 0 {
		fmt.Fprintf(&b, "/v%d", p.Revision)
	}
	if len(p.Params) > 0 {
		keys := make([]string, 0, len(p.Params))
		for k := range p.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('?')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte('&')
			}
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(p.Params[k])
		}
	}
	return b.String()
}
