// Package handlers implements the HTTP endpoints of the catalog API.
//
// Handlers never render errors themselves: they record an *errors.AppError
// with c.Error and let middleware.ErrorHandler write the response.
package handlers

import (
	"context"

	"servicecatalog.io/catalog/internal/model"
	"servicecatalog.io/catalog/internal/pkg/observability"
	"servicecatalog.io/catalog/internal/transfer"
)

// CatalogStore is the storage surface the endpoints need.
type CatalogStore interface {
	ListCategories(ctx context.Context) ([]model.Category, error)
	ListSubCategories(ctx context.Context) ([]model.SubCategory, error)
	ListServices(ctx context.Context) ([]model.Service, error)

	CreateCategory(ctx context.Context, c *model.Category) error
	CreateSubCategory(ctx context.Context, s *model.SubCategory) error
	CreateService(ctx context.Context, s *model.Service) error
}

// Pinger reports database reachability for the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds one list/create resource per catalog table.
type Server struct {
	db Pinger

	categories    resource[model.Category, transfer.Category]
	subcategories resource[model.SubCategory, transfer.SubCategory]
	services      resource[model.Service, transfer.Service]
}

// ServerDeps holds all dependencies for creating a Server.
type ServerDeps struct {
	Store CatalogStore
	DB    Pinger

	// Tracer defaults to the global OpenTelemetry provider.
	Tracer *observability.Tracer
}

// NewServer creates a new Server with all dependencies.
func NewServer(deps ServerDeps) *Server {
	st := deps.Store
	tracer := deps.Tracer
	if tracer == nil {
		tracer = observability.NewTracer(nil)
	}
	return &Server{
		db: deps.DB,
		categories: resource[model.Category, transfer.Category]{
			name:   "category",
			tracer: tracer,
			list:   st.ListCategories,
			decode: transfer.ToCategory,
			create: st.CreateCategory,
			encode: transfer.FromCategory,
		},
		subcategories: resource[model.SubCategory, transfer.SubCategory]{
			name:   "subcategory",
			tracer: tracer,
			list:   st.ListSubCategories,
			decode: transfer.ToSubCategory,
			create: st.CreateSubCategory,
			encode: transfer.FromSubCategory,
		},
		services: resource[model.Service, transfer.Service]{
			name:   "service",
			tracer: tracer,
			list:   st.ListServices,
			decode: transfer.ToService,
			create: st.CreateService,
			encode: transfer.FromService,
		},
	}
}
