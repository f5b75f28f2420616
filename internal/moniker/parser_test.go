package moniker

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse_RoundTrip(t *testing.T) {
	cases := []string{
		"prices.equity",
		"prices.equity/AAPL",
		"prices.equity/AAPL@20260115",
		"prices.equity/ALL@latest",
		"prices.equity/AAPL/v2",
		"trading@prices.equity/AAPL",
		"prices.equity/AAPL?format=csv",
	}

	for _, raw := range cases {
		t.Run(raw, func(t *testing.T) {
			p, err := Parse(raw)
			require.NoError(t, err)

			p2, err := Parse(p.String())
			require.NoError(t, err)
			require.Equal(t, p, p2)
		})
	}
}

func TestParse_Fields(t *testing.T) {
	p, err := Parse("trading@prices.equity/AAPL/US@20260115/v2?format=csv")
	require.NoError(t, err)

	require.Equal(t, "trading", p.Namespace)
	require.Equal(t, "prices.equity", p.Domain)
	require.Equal(t, []string{"AAPL", "US"}, p.Segments)
	require.Equal(t, "20260115", p.Version)
	require.Equal(t, 2, p.Revision)
	require.Equal(t, "csv", p.Params["format"])
	require.True(t, p.HasNamespace())
	require.True(t, p.HasVersion())
	require.True(t, p.HasRevision())
	require.False(t, p.IsLatest())
}

func TestParse_Key(t *testing.T) {
	p, err := Parse("prices.equity/AAPL/US")
	require.NoError(t, err)
	require.Equal(t, "prices.equity/AAPL/US", p.Key())

	root, err := Parse("prices.equity")
	require.NoError(t, err)
	require.Equal(t, "prices.equity", root.Key())
}

func TestParse_InvalidMonikers(t *testing.T) {
	cases := map[string]Reason{
		"":                     ReasonBadDomain,
		"Prices.Equity":        ReasonBadDomain,
		"prices.equity/AAPL@":  ReasonBadVersion,
		"prices.equity@bad":    ReasonBadVersion,
		"prices.equity//AAPL":  ReasonBadSegment,
		"prices.equity/AAPL/v0": ReasonBadRevision,
	}

	for raw, wantReason := range cases {
		t.Run(raw, func(t *testing.T) {
			_, err := Parse(raw)
			require.Error(t, err)
			invalidErr, ok := err.(*ErrInvalidMoniker)
			require.True(t, ok)
			require.Equal(t, wantReason, invalidErr.Reason)
		})
	}
}

func TestParse_NamespaceIsAdvisoryOnly(t *testing.T) {
	withNS, err := Parse("trading@prices.equity/AAPL")
	require.NoError(t, err)
	withoutNS, err := Parse("prices.equity/AAPL")
	require.NoError(t, err)

	require.Equal(t, withNS.Key(), withoutNS.Key())
}

func TestCanonicalize(t *testing.T) {
	canon, err := Canonicalize("prices.equity/AAPL")
	require.NoError(t, err)
	require.Equal(t, "prices.equity/AAPL", canon)
}
