package governance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ganizanisitara/open-moniker-svc/resolver-go/internal/catalog"
)

func fixedNow() time.Time { return time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC) }

func newTestController() (*Controller, *catalog.Registry) {
	reg := catalog.NewRegistry(fixedNow)
	return NewController(reg, fixedNow, true), reg
}

func TestController_Submit_ForcesDraftStatus(t *testing.T) {
	c, _ := newTestController()
	req := c.Submit("prices.equity", catalog.CatalogNode{Status: catalog.StatusActive}, "alice")

	require.Equal(t, RequestPending, req.Status)
	require.Equal(t, catalog.StatusDraft, req.Proposed.Status)
	require.Equal(t, "alice", req.SubmittedBy)
	require.NotEmpty(t, req.ID)
}

func TestController_ListFiltersByStatus(t *testing.T) {
	c, _ := newTestController()
	c.Submit("a", catalog.CatalogNode{}, "alice")
	c.Submit("b", catalog.CatalogNode{}, "bob")

	require.Len(t, c.List(""), 2)
	require.Len(t, c.List(RequestPending), 2)
	require.Len(t, c.List(RequestApproved), 0)
}

func TestController_Approve_MaterializesNodeAsActive(t *testing.T) {
	c, reg := newTestController()
	req := c.Submit("prices.equity", catalog.CatalogNode{}, "alice")

	node, err := c.Approve(req.ID, "bob")
	require.NoError(t, err)
	require.Equal(t, catalog.StatusActive, node.Status)
	require.Equal(t, "bob", node.ApprovedBy)
	require.True(t, reg.Exists("prices.equity"))

	got, _ := c.Get(req.ID)
	require.Equal(t, RequestApproved, got.Status)
	require.Equal(t, "bob", got.DecidedBy)
	require.NotNil(t, got.DecidedAt)
}

func TestController_Approve_UnknownRequest(t *testing.T) {
	c, _ := newTestController()
	_, err := c.Approve("nope", "bob")
	require.Error(t, err)
}

func TestController_Approve_AlreadyDecided(t *testing.T) {
	c, _ := newTestController()
	req := c.Submit("prices.equity", catalog.CatalogNode{}, "alice")

	_, err := c.Approve(req.ID, "bob")
	require.NoError(t, err)

	_, err = c.Approve(req.ID, "bob")
	require.Error(t, err)
}

func TestController_Reject(t *testing.T) {
	c, reg := newTestController()
	req := c.Submit("prices.equity", catalog.CatalogNode{}, "alice")

	err := c.Reject(req.ID, "bob", "not needed")
	require.NoError(t, err)

	got, _ := c.Get(req.ID)
	require.Equal(t, RequestRejected, got.Status)
	require.Equal(t, "not needed", got.RejectedReason)
	require.False(t, reg.Exists("prices.equity"))
}

func TestController_Reject_AlreadyDecided(t *testing.T) {
	c, _ := newTestController()
	req := c.Submit("prices.equity", catalog.CatalogNode{}, "alice")
	require.NoError(t, c.Reject(req.ID, "bob", "no"))

	err := c.Reject(req.ID, "bob", "no")
	require.Error(t, err)
}

func TestController_UpdateNodeStatus_DelegatesToRegistry(t *testing.T) {
	c, reg := newTestController()
	reg.Register(&catalog.CatalogNode{Path: "rates.libor/usd", Status: catalog.StatusActive})

	err := c.UpdateNodeStatus("rates.libor/usd", catalog.StatusDeprecated, "alice", nil)
	require.NoError(t, err)
	require.Equal(t, catalog.StatusDeprecated, reg.Get("rates.libor/usd").Status)
}

func TestController_ReloadCatalog_AppliesAndChecksSuccessors(t *testing.T) {
	c, reg := newTestController()
	reg.Register(&catalog.CatalogNode{Path: "prices.equity", Status: catalog.StatusActive})

	succ := "rates.sofr/usd"
	result := c.ReloadCatalog([]*catalog.CatalogNode{
		{Path: "prices.equity", Status: catalog.StatusActive},
		{Path: "rates.libor/usd", Status: catalog.StatusDeprecated, Successor: &succ},
	}, true, "alice")

	require.True(t, result.Applied)
	require.False(t, result.HasBreakingChanges)
	require.NotEmpty(t, result.SuccessorErrors)
}

func TestController_ReloadCatalog_RejectsBreakingChange(t *testing.T) {
	c, reg := newTestController()
	reg.Register(&catalog.CatalogNode{
		Path:          "prices.equity",
		Status:        catalog.StatusActive,
		SourceBinding: &catalog.SourceBinding{SourceType: catalog.SourceSnowflake},
	})

	result := c.ReloadCatalog([]*catalog.CatalogNode{}, true, "alice")

	require.False(t, result.Applied)
	require.True(t, result.HasBreakingChanges)
}

func TestController_ReloadCatalog_DeprecationDisabledFallsBackToAtomicReplace(t *testing.T) {
	reg := catalog.NewRegistry(fixedNow)
	c := NewController(reg, fixedNow, false)
	reg.Register(&catalog.CatalogNode{
		Path:          "prices.equity",
		Status:        catalog.StatusActive,
		SourceBinding: &catalog.SourceBinding{SourceType: catalog.SourceSnowflake},
	})

	result := c.ReloadCatalog([]*catalog.CatalogNode{}, true, "alice")

	require.True(t, result.Applied)
	require.False(t, result.HasBreakingChanges)
	require.Zero(t, result.RemovedCount, "toggle-off path reports no diff")
	require.False(t, reg.Exists("prices.equity"), "atomic_replace with an empty set still removes everything")
}
