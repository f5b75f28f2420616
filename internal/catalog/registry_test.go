package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time { return time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC) }

func newTestRegistry() *Registry { return NewRegistry(fixedNow) }

func TestRegistry_ResolveOwnership_FieldByFieldInheritance(t *testing.T) {
	r := newTestRegistry()
	r.RegisterMany([]*CatalogNode{
		{Path: "prices", Status: StatusActive, Ownership: Ownership{AccountableOwner: strPtr("A")}},
		{Path: "prices.equity", Status: StatusActive, Ownership: Ownership{SupportChannel: strPtr("#x")}},
	})

	ownership := r.ResolveOwnership("prices.equity")
	require.Equal(t, "A", ownership.AccountableOwner)
	require.Equal(t, "prices", ownership.AccountableOwnerSource)
	require.Equal(t, "", ownership.DataSpecialist)
	require.Equal(t, "#x", ownership.SupportChannel)
	require.Equal(t, "prices.equity", ownership.SupportChannelSource)
}

func TestRegistry_FindSourceBinding_InheritsFromAncestor(t *testing.T) {
	r := newTestRegistry()
	binding := &SourceBinding{SourceType: SourceSnowflake, Config: map[string]any{"query": "SELECT 1"}}
	r.RegisterMany([]*CatalogNode{
		{Path: "prices.equity", Status: StatusActive, SourceBinding: binding},
	})

	got, path := r.FindSourceBinding("prices.equity/AAPL")
	require.Same(t, binding, got)
	require.Equal(t, "prices.equity", path)
}

func TestRegistry_FindSourceBinding_IgnoresNodeStatus(t *testing.T) {
	r := newTestRegistry()
	binding := &SourceBinding{SourceType: SourceSnowflake}
	r.Register(&CatalogNode{Path: "prices.equity", Status: StatusDraft, SourceBinding: binding})

	got, path := r.FindSourceBinding("prices.equity/AAPL")
	require.Same(t, binding, got)
	require.Equal(t, "prices.equity", path)
}

func TestRegistry_ExistsInChain(t *testing.T) {
	r := newTestRegistry()
	r.Register(&CatalogNode{Path: "prices.equity", Status: StatusActive})

	require.True(t, r.ExistsInChain("prices.equity/AAPL"))
	require.False(t, r.ExistsInChain("rates.libor/usd"))
}

func TestRegistry_UpdateStatus_EnforcesStateMachine(t *testing.T) {
	r := newTestRegistry()
	r.Register(&CatalogNode{Path: "rates.libor/usd", Status: StatusActive})

	err := r.UpdateStatus("rates.libor/usd", StatusDeprecated, "alice", map[string]any{
		"successor": "rates.sofr/usd",
	})
	require.NoError(t, err)

	node := r.Get("rates.libor/usd")
	require.Equal(t, StatusDeprecated, node.Status)
	require.NotNil(t, node.Successor)
	require.Equal(t, "rates.sofr/usd", *node.Successor)

	err = r.UpdateStatus("rates.libor/usd", StatusActive, "alice", nil)
	require.Error(t, err)
}

func TestRegistry_UpdateStatus_UnknownPath(t *testing.T) {
	r := newTestRegistry()
	err := r.UpdateStatus("nope", StatusActive, "alice", nil)
	require.Error(t, err)
}

func TestRegistry_ValidateSuccessors(t *testing.T) {
	r := newTestRegistry()
	succ := "rates.sofr/usd"
	r.RegisterMany([]*CatalogNode{
		{Path: "rates.libor/usd", Status: StatusDeprecated, Successor: &succ},
		{Path: "rates.sofr/usd", Status: StatusActive},
	})

	require.Empty(t, r.ValidateSuccessors())
}

func TestRegistry_ValidateSuccessors_MissingTarget(t *testing.T) {
	r := newTestRegistry()
	succ := "rates.sofr/usd"
	r.Register(&CatalogNode{Path: "rates.libor/usd", Status: StatusDeprecated, Successor: &succ})

	errs := r.ValidateSuccessors()
	require.Len(t, errs, 1)
}

func TestRegistry_ValidateSuccessors_Cycle(t *testing.T) {
	r := newTestRegistry()
	a, b := "b", "a"
	r.RegisterMany([]*CatalogNode{
		{Path: "a", Status: StatusDeprecated, Successor: &a},
		{Path: "b", Status: StatusDeprecated, Successor: &b},
	})

	errs := r.ValidateSuccessors()
	require.NotEmpty(t, errs)
}

func TestRegistry_AtomicReplace_IdempotentDiff(t *testing.T) {
	r := newTestRegistry()
	nodes := []*CatalogNode{{Path: "prices.equity", Status: StatusActive}}
	r.AtomicReplace(nodes)

	diff := r.Diff(nodes)
	require.Empty(t, diff.AddedPaths)
	require.Empty(t, diff.RemovedPaths)
	require.Empty(t, diff.BindingChangedPaths)
	require.Empty(t, diff.StatusChangedPaths)
	require.False(t, diff.HasBreakingChanges())
}

func TestRegistry_ValidatedReplace_BlocksBreakingChanges(t *testing.T) {
	r := newTestRegistry()
	r.RegisterMany([]*CatalogNode{
		{Path: "rates.libor/usd", Status: StatusActive, SourceBinding: &SourceBinding{SourceType: SourceSnowflake}},
	})

	diff, applied := r.ValidatedReplace([]*CatalogNode{}, true, "alice")
	require.False(t, applied)
	require.True(t, diff.HasBreakingChanges())
	require.True(t, r.Exists("rates.libor/usd"))
}

func TestRegistry_ValidatedReplace_AppliesNonBreaking(t *testing.T) {
	r := newTestRegistry()
	r.Register(&CatalogNode{Path: "prices.equity", Status: StatusActive})

	diff, applied := r.ValidatedReplace([]*CatalogNode{
		{Path: "prices.equity", Status: StatusActive},
		{Path: "prices.fixed_income", Status: StatusActive},
	}, true, "alice")
	require.True(t, applied)
	require.Contains(t, diff.AddedPaths, "prices.fixed_income")
	require.True(t, r.Exists("prices.fixed_income"))
}
