package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ganizanisitara/open-moniker-svc/resolver-go/internal/cache"
	"github.com/ganizanisitara/open-moniker-svc/resolver-go/internal/catalog"
)

func fixedNow() time.Time { return time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC) }

func newTestService(nodes ...*catalog.CatalogNode) *MonikerService {
	reg := catalog.NewRegistry(fixedNow)
	reg.RegisterMany(nodes)
	c := cache.NewInMemory(time.Minute, 0)
	return NewMonikerService(reg, c, nil, true)
}

func TestResolve_NotFound(t *testing.T) {
	s := newTestService()
	_, err := s.Resolve(context.Background(), "prices.equity/AAPL", CallerIdentity{AppID: "test"})

	require.Error(t, err)
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestResolve_NoBinding(t *testing.T) {
	s := newTestService(&catalog.CatalogNode{Path: "prices.equity", Status: catalog.StatusActive})

	_, err := s.Resolve(context.Background(), "prices.equity/AAPL", CallerIdentity{AppID: "test"})

	require.Error(t, err)
	var noBinding *NoBindingError
	require.ErrorAs(t, err, &noBinding)
}

func TestResolve_Success_ExpandsTemplateAndCaches(t *testing.T) {
	s := newTestService(&catalog.CatalogNode{
		Path:   "prices.equity",
		Status: catalog.StatusActive,
		SourceBinding: &catalog.SourceBinding{
			SourceType: catalog.SourceSnowflake,
			Config:     map[string]any{"query": "SELECT * FROM E WHERE {filter[0]:symbol}", "database": "MKT"},
			ReadOnly:   true,
		},
	})

	result, err := s.Resolve(context.Background(), "prices.equity/AAPL", CallerIdentity{AppID: "test"})
	require.NoError(t, err)
	require.Equal(t, "prices.equity/AAPL", result.Path)
	require.Equal(t, "prices.equity", result.BindingPath)
	require.NotNil(t, result.Source.Query)
	require.Contains(t, *result.Source.Query, "symbol = 'AAPL'")
	require.NotContains(t, result.Source.Connection, "query")
	require.Equal(t, "MKT", result.Source.Connection["database"])

	second, err := s.Resolve(context.Background(), "prices.equity/AAPL", CallerIdentity{AppID: "test"})
	require.NoError(t, err)
	require.Same(t, result, second, "second resolve should be served from cache")
}

func TestResolve_SuccessorRedirect(t *testing.T) {
	succ := "rates.sofr/usd"
	s := newTestService(
		&catalog.CatalogNode{
			Path:      "rates.libor/usd",
			Status:    catalog.StatusDeprecated,
			Successor: &succ,
			SourceBinding: &catalog.SourceBinding{
				SourceType: catalog.SourceSnowflake,
				Config:     map[string]any{"query": "SELECT 1"},
			},
		},
		&catalog.CatalogNode{
			Path:   "rates.sofr/usd",
			Status: catalog.StatusActive,
			SourceBinding: &catalog.SourceBinding{
				SourceType: catalog.SourceSnowflake,
				Config:     map[string]any{"query": "SELECT 2"},
			},
		},
	)

	result, err := s.Resolve(context.Background(), "rates.libor/usd", CallerIdentity{AppID: "test"})
	require.NoError(t, err)
	require.Equal(t, "rates.libor/usd", result.RedirectedFrom)
	require.Equal(t, "rates.sofr/usd", result.BindingPath)
	require.Contains(t, *result.Source.Query, "SELECT 2")

	require.Equal(t, catalog.StatusDeprecated, result.Status, "status must reflect the originally-resolved deprecated node, not the successor")
	require.NotNil(t, result.Successor)
	require.Equal(t, "rates.sofr/usd", *result.Successor)
}

func TestResolve_AccessDenied_Blocked(t *testing.T) {
	s := newTestService(&catalog.CatalogNode{
		Path:   "prices.equity",
		Status: catalog.StatusActive,
		SourceBinding: &catalog.SourceBinding{
			SourceType: catalog.SourceSnowflake,
			Config:     map[string]any{"query": "SELECT 1"},
		},
		AccessPolicy: &catalog.AccessPolicy{RequiredSegments: []int{0}},
	})

	_, err := s.Resolve(context.Background(), "prices.equity/ALL", CallerIdentity{AppID: "test"})
	require.Error(t, err)
	var denied *AccessDeniedError
	require.ErrorAs(t, err, &denied)
}

func TestResolve_AccessDenied_WarnReturnsResultWithWarning(t *testing.T) {
	s := newTestService(&catalog.CatalogNode{
		Path:   "prices.equity",
		Status: catalog.StatusActive,
		SourceBinding: &catalog.SourceBinding{
			SourceType: catalog.SourceSnowflake,
			Config:     map[string]any{"query": "SELECT 1"},
		},
		AccessPolicy: &catalog.AccessPolicy{BaseRowCount: 1000, MaxRowsWarn: 500},
	})

	result, err := s.Resolve(context.Background(), "prices.equity/AAPL", CallerIdentity{AppID: "test"})
	require.NoError(t, err)
	require.NotEmpty(t, result.Warning)
}

func TestDescribe_NotFound(t *testing.T) {
	s := newTestService()
	_, err := s.Describe(context.Background(), "prices.equity")
	require.Error(t, err)
}

func TestDescribe_Success(t *testing.T) {
	s := newTestService(&catalog.CatalogNode{
		Path:   "prices.equity",
		Status: catalog.StatusActive,
		SourceBinding: &catalog.SourceBinding{
			SourceType: catalog.SourceSnowflake,
		},
	})

	result, err := s.Describe(context.Background(), "prices.equity")
	require.NoError(t, err)
	require.True(t, result.HasSourceBinding)
	require.Equal(t, "snowflake", result.SourceType)
}

func TestList_ReturnsImmediateChildren(t *testing.T) {
	s := newTestService(
		&catalog.CatalogNode{Path: "prices", Status: catalog.StatusActive},
		&catalog.CatalogNode{Path: "prices.equity", Status: catalog.StatusActive},
		&catalog.CatalogNode{Path: "prices.fixed_income", Status: catalog.StatusActive},
	)

	result, err := s.List(context.Background(), "prices")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"prices.equity", "prices.fixed_income"}, result.Children)
}
