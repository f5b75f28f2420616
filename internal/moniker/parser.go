package moniker

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Reason classifies why a moniker string failed to parse.
type Reason string

const (
	ReasonBadDomain  Reason = "bad_domain"
	ReasonBadSegment Reason = "bad_segment"
	ReasonBadVersion Reason = "bad_version"
	ReasonBadRevision Reason = "bad_revision"
	ReasonBadParams  Reason = "bad_params"
)

// ErrInvalidMoniker is returned for any moniker string the parser rejects.
type ErrInvalidMoniker struct {
	Reason  Reason
	Message string
}

func (e *ErrInvalidMoniker) Error() string {
	return fmt.Sprintf("invalid moniker (%s): %s", e.Reason, e.Message)
}

func invalid(reason Reason, format string, args ...interface{}) error {
	return &ErrInvalidMoniker{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

var (
	namespacePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_\-]*$`)
	domainPattern    = regexp.MustCompile(`^[a-z][a-z0-9_]*(\.[a-z][a-z0-9_]*)*$`)
	segmentPattern   = regexp.MustCompile(`^[A-Za-z0-9_.\-]+$`)
	dateVersionPattern = regexp.MustCompile(`^\d{8}$`)
	revisionPattern  = regexp.MustCompile(`^(\d+)$`)
)

// SegmentAll is the literal segment value meaning "all values".
const SegmentAll = "ALL"

// ValidateSegment reports whether a single path segment is well-formed.
func ValidateSegment(segment string) bool {
	if segment == "" {
		return false
	}
	if segment == SegmentAll {
		return true
	}
	return segmentPattern.MatchString(segment)
}

// ValidateDomain reports whether a dotted domain string is well-formed.
func ValidateDomain(domain string) bool {
	return domain != "" && domainPattern.MatchString(domain)
}

// ValidateNamespace reports whether a namespace identifier is well-formed.
func ValidateNamespace(namespace string) bool {
	return namespace != "" && namespacePattern.MatchString(namespace)
}

// ValidateVersion reports whether a version suffix is "latest" or an 8-digit
// calendar date (YYYYMMDD).
func ValidateVersion(version string) bool {
	if version == "latest" {
		return true
	}
	return isValidDateVersion(version)
}

func isValidDateVersion(version string) bool {
	if !dateVersionPattern.MatchString(version) {
		return false
	}
	_, err := time.Parse("20060102", version)
	return err == nil
}

// Parse parses a raw moniker string into a MonikerPath, or returns
// ErrInvalidMoniker describing why it was rejected.
//
// Parsing policy (SPEC_FULL.md §4.A): greedy-left. Split off "?params"
// first, then the trailing "/vN" revision, then the trailing "@version".
// What remains is "[namespace@]domain[/segments]".
func Parse(raw string) (*MonikerPath, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, invalid(ReasonBadDomain, "moniker string is empty")
	}

	body, paramsStr, hasParams := cutFirst(s, "?")

	params := map[string]string{}
	if hasParams {
		values, err := url.ParseQuery(paramsStr)
		if err != nil {
			return nil, invalid(ReasonBadParams, "malformed query parameters: %v", err)
		}
		for k, v := range values {
			if len(v) > 0 {
				params[k] = v[0]
			}
		}
	}

	body = strings.Trim(body, "/")
	if body == "" {
		return nil, invalid(ReasonBadDomain, "moniker has no domain")
	}

	revision := 0
	if idx := lastRevisionSlash(body); idx != -1 {
		after := body[idx+2:]
		if revisionPattern.MatchString(after) {
			rev, err := strconv.Atoi(after)
			if err != nil || rev <= 0 {
				return nil, invalid(ReasonBadRevision, "revision must be a positive integer, got %q", after)
			}
			revision = rev
			body = body[:idx]
		}
		// A trailing "/v..." that isn't all digits (e.g. a segment that
		// merely starts with "v") is not a revision suffix; fall through
		// and let it be parsed as an ordinary segment.
	}

	version := ""
	if idx := strings.LastIndex(body, "@"); idx != -1 {
		candidate := body[idx+1:]
		// An '@' followed by a '/' ("ns@domain/seg"), or a lone '@' joining a
		// valid namespace to a valid bare domain ("ns@domain"), is the
		// namespace separator, not a version suffix.
		namespaceSep := strings.Contains(candidate, "/") ||
			(strings.Count(body, "@") == 1 && !ValidateVersion(candidate) &&
				ValidateNamespace(body[:idx]) && ValidateDomain(candidate))
		if !namespaceSep {
			if candidate == "" {
				return nil, invalid(ReasonBadVersion, "version suffix is empty")
			}
			if !ValidateVersion(candidate) {
				return nil, invalid(ReasonBadVersion, "version must be 'latest' or an 8-digit date (YYYYMMDD), got %q", candidate)
			}
			version = candidate
			body = body[:idx]
		}
	}

	if body == "" {
		return nil, invalid(ReasonBadDomain, "moniker has no domain")
	}

	namespace := ""
	domainAndSegments := body
	if idx := strings.Index(body, "@"); idx != -1 {
		firstSlash := strings.Index(body, "/")
		if firstSlash == -1 || idx < firstSlash {
			namespace = body[:idx]
			if !ValidateNamespace(namespace) {
				return nil, invalid(ReasonBadDomain, "invalid namespace %q", namespace)
			}
			domainAndSegments = body[idx+1:]
		}
	}

	parts := strings.Split(domainAndSegments, "/")
	domain := parts[0]
	if !ValidateDomain(domain) {
		return nil, invalid(ReasonBadDomain, "invalid domain %q: must match ^[a-z][a-z0-9_]*(\\.[a-z][a-z0-9_]*)*$", domain)
	}

	segments := make([]string, 0, len(parts)-1)
	for _, seg := range parts[1:] {
		if seg == "" {
			return nil, invalid(ReasonBadSegment, "empty path segment")
		}
		if !ValidateSegment(seg) {
			return nil, invalid(ReasonBadSegment, "invalid path segment %q", seg)
		}
		segments = append(segments, seg)
	}

	return &MonikerPath{
		Namespace: namespace,
		Domain:    domain,
		Segments:  segments,
		Version:   version,
		Revision:  revision,
		Params:    params,
	}, nil
}

// Canonicalize parses s and re-renders its canonical string form.
func Canonicalize(raw string) (string, error) {
	p, err := Parse(raw)
	if err != nil {
		return "", err
	}
	return p.String(), nil
}

// cutFirst splits s on the first occurrence of sep, reporting whether sep was found.
func cutFirst(s, sep string) (before, after string, found bool) {
	idx := strings.Index(s, sep)
	if idx == -1 {
		return s, "", false
	}
	return s[:idx], s[idx+len(sep):], true
}

// lastRevisionSlash returns the index of the last "/v" or "/V" in s, or -1.
// It does not check what follows; the caller decides whether it is a
// revision suffix.
func lastRevisionSlash(s string) int {
	lower := strings.ToLower(s)
	return strings.LastIndex(lower, "/v")
}
