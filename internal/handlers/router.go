package handlers

import (
	"github.com/gorilla/mux"

	"github.com/ganizanisitara/open-moniker-svc/resolver-go/internal/audit"
	"github.com/ganizanisitara/open-moniker-svc/resolver-go/internal/auth"
	"github.com/ganizanisitara/open-moniker-svc/resolver-go/internal/cache"
	"github.com/ganizanisitara/open-moniker-svc/resolver-go/internal/catalog"
	"github.com/ganizanisitara/open-moniker-svc/resolver-go/internal/governance"
	"github.com/ganizanisitara/open-moniker-svc/resolver-go/internal/service"
	"github.com/ganizanisitara/open-moniker-svc/resolver-go/internal/telemetry"
)

// Dependencies bundles every component the router needs to wire its routes.
type Dependencies struct {
	Service     *service.MonikerService
	Registry    *catalog.Registry
	Cache       *cache.InMemory
	Emitter     *telemetry.Emitter
	Audit       *audit.Store
	Gate        *auth.Gate
	Controller  *governance.Controller
	CatalogPath func() string
	LoadCatalog func(path string) ([]*catalog.CatalogNode, error)
}

// NewRouter builds the full HTTP surface described in SPEC_FULL.md §6.
func NewRouter(deps Dependencies) *mux.Router {
	r := mux.NewRouter()

	r.Handle("/resolve/batch", NewBatchResolveHandler(deps.Service)).Methods("POST")
	r.Handle("/resolve/{path:.+}", NewResolveHandler(deps.Service)).Methods("GET")

	r.Handle("/describe/{path:.+}", NewDescribeHandler(deps.Service)).Methods("GET")

	r.Handle("/list", NewListHandler(deps.Service)).Methods("GET")
	r.Handle("/list/{path:.+}", NewListHandler(deps.Service)).Methods("GET")

	r.Handle("/lineage/{path:.+}", NewLineageHandler(deps.Registry)).Methods("GET")
	r.Handle("/metadata/{path:.+}", NewMetadataHandler(deps.Registry)).Methods("GET")

	r.Handle("/tree", NewTreeHandler(deps.Registry)).Methods("GET")
	r.Handle("/tree/{path:.+}", NewTreeHandler(deps.Registry)).Methods("GET")

	r.Handle("/catalog", NewCatalogListHandler(deps.Registry)).Methods("GET")
	r.Handle("/catalog/search", NewSearchCatalogHandler(deps.Registry)).Methods("GET")
	r.Handle("/catalog/stats", NewCatalogStatsHandler(deps.Registry)).Methods("GET")
	r.Handle("/catalog/reload", NewReloadCatalogHandler(deps.Controller, deps.Gate, deps.CatalogPath, deps.LoadCatalog)).Methods("POST")
	r.Handle("/catalog/{path:.+}/status", NewUpdateStatusHandler(deps.Registry, deps.Cache)).Methods("PUT")
	r.Handle("/catalog/{path:.+}/audit", NewAuditLogHandler(deps.Registry)).Methods("GET")

	r.Handle("/requests", NewSubmitRequestHandler(deps.Controller, deps.Gate)).Methods("POST")
	r.Handle("/requests", NewListRequestsHandler(deps.Controller)).Methods("GET")
	r.Handle("/requests/{id}/approve", NewApproveRequestHandler(deps.Controller, deps.Gate)).Methods("POST")
	r.Handle("/requests/{id}/reject", NewRejectRequestHandler(deps.Controller, deps.Gate)).Methods("POST")

	r.Handle("/telemetry/access", NewTelemetryAccessHandler()).Methods("POST")
	r.Handle("/cache/status", NewCacheStatusHandler(deps.Cache)).Methods("GET")
	r.Handle("/cache/refresh", NewRefreshCacheHandler(deps.Cache)).Methods("POST")

	r.Handle("/health", NewHealthHandler(deps.Registry, deps.Cache, deps.Emitter, deps.Audit)).Methods("GET")
	r.Handle("/ui", NewUIHandler()).Methods("GET")

	return r
}
