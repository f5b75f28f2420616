// Package template expands query templates against a parsed moniker path,
// producing the concrete query string a SourceBinding hands to its backend
// (SPEC_FULL.md §4.C).
package template

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ganizanisitara/open-moniker-svc/resolver-go/internal/moniker"
)

// ErrTemplateMissing is returned when a template references a placeholder
// this expander does not recognize, or an out-of-range segment index.
type ErrTemplateMissing struct {
	Placeholder string
}

func (e *ErrTemplateMissing) Error() string {
	return fmt.Sprintf("template: unresolved placeholder %q", e.Placeholder)
}

// placeholderPattern matches any {...} token, raw or SQL-translated alike.
var placeholderPattern = regexp.MustCompile(`\{[^{}]+\}`)

// Expand substitutes every placeholder in tmpl using path, choosing the raw
// or SQL-translated substitution rule per placeholder name. A {version}
// placeholder with no version on the path expands to the empty string; only
// the SQL-translated {version_date} defaults to CURRENT_DATE() (decided,
// SPEC_FULL.md §9).
func Expand(tmpl string, path *moniker.MonikerPath) (string, error) {
	var outerErr error
	result := placeholderPattern.ReplaceAllStringFunc(tmpl, func(token string) string {
		if outerErr != nil {
			return token
		}
		name := strings.Trim(token, "{}")
		value, err := substitute(name, path)
		if err != nil {
			outerErr = err
			return token
		}
		return value
	})
	if outerErr != nil {
		return "", outerErr
	}
	return result, nil
}

func substitute(name string, path *moniker.MonikerPath) (string, error) {
	switch {
	case name == "path":
		return path.SegmentsJoined(), nil
	case name == "version":
		return path.Version, nil
	case name == "revision":
		if path.Revision == 0 {
			return "", nil
		}
		return strconv.Itoa(path.Revision), nil
	case name == "namespace":
		return path.Namespace, nil
	case name == "version_date":
		return versionDate(path), nil
	case name == "is_latest":
		return quoteBool(path.IsLatest()), nil
	case strings.HasPrefix(name, "segments[") && strings.HasSuffix(name, "]"):
		idx, err := segmentIndex(name, "segments[", "]")
		if err != nil {
			return "", err
		}
		seg, ok := path.Segment(idx)
		if !ok {
			return "", &ErrTemplateMissing{Placeholder: name}
		}
		return seg, nil
	case strings.HasPrefix(name, "is_all[") && strings.HasSuffix(name, "]"):
		idx, err := segmentIndex(name, "is_all[", "]")
		if err != nil {
			return "", err
		}
		seg, ok := path.Segment(idx)
		if !ok {
			return "", &ErrTemplateMissing{Placeholder: name}
		}
		return quoteBool(seg == moniker.SegmentAll), nil
	case strings.HasPrefix(name, "filter[") && strings.Contains(name, ":"):
		return filterClause(name, path)
	default:
		return "", &ErrTemplateMissing{Placeholder: name}
	}
}

// versionDate renders the SQL-translated {version_date} placeholder:
// CURRENT_DATE() when no version is present, the '__LATEST__' sentinel for
// the latest keyword, or TO_DATE(...) for an explicit date.
func versionDate(path *moniker.MonikerPath) string {
	switch {
	case path.Version == "":
		return "CURRENT_DATE()"
	case path.IsLatest():
		return "'__LATEST__'"
	default:
		return fmt.Sprintf("TO_DATE('%s','YYYYMMDD')", path.Version)
	}
}

// filterClause renders {filter[N]:column}: an equality test against the
// literal segment, or 1=1 when the segment is ALL.
func filterClause(name string, path *moniker.MonikerPath) (string, error) {
	inner := strings.TrimPrefix(name, "filter[")
	parts := strings.SplitN(inner, ":", 2)
	if len(parts) != 2 || !strings.HasSuffix(parts[0], "]") {
		return "", &ErrTemplateMissing{Placeholder: name}
	}
	idxStr := strings.TrimSuffix(parts[0], "]")
	column := parts[1]

	idx, err := strconv.Atoi(idxStr)
	if err != nil {
		return "", &ErrTemplateMissing{Placeholder: name}
	}
	seg, ok := path.Segment(idx)
	if !ok {
		return "", &ErrTemplateMissing{Placeholder: name}
	}
	if seg == moniker.SegmentAll {
		return "1=1", nil
	}
	return fmt.Sprintf("%s = %s", column, quoteSQL(seg)), nil
}

func segmentIndex(name, prefix, suffix string) (int, error) {
	inner := strings.TrimSuffix(strings.TrimPrefix(name, prefix), suffix)
	idx, err := strconv.Atoi(inner)
	if err != nil {
		return 0, &ErrTemplateMissing{Placeholder: name}
	}
	return idx, nil
}

// quoteSQL single-quotes a value, doubling any embedded single quotes.
func quoteSQL(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

func quoteBool(b bool) string {
	if b {
		return "'true'"
	}
	return "'false'"
}
