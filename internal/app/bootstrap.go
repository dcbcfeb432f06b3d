// Package app is the composition root of the catalog service.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"servicecatalog.io/catalog/internal/api/handlers"
	"servicecatalog.io/catalog/internal/config"
	"servicecatalog.io/catalog/internal/infrastructure"
	"servicecatalog.io/catalog/internal/pkg/logger"
	"servicecatalog.io/catalog/internal/pkg/observability"
	"servicecatalog.io/catalog/internal/repository"
)

// Application holds composed application dependencies.
type Application struct {
	Config *config.Config
	Router *gin.Engine
	DB     *infrastructure.DatabaseClients
}

// Bootstrap opens the database, creates the schema when configured and wires
// the HTTP router.
func Bootstrap(ctx context.Context, cfg *config.Config) (*Application, error) {
	db, err := infrastructure.NewDatabaseClients(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}

	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
	}

	server := handlers.NewServer(handlers.ServerDeps{
		Store: repository.NewCatalogRepository(db.Gorm),
		DB:    db,
	})

	router, err := newRouter(cfg, server)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init router: %w", err)
	}

	logger.Info("Application bootstrapped",
		zap.Bool("auto_migrate", cfg.Database.AutoMigrate),
		zap.Bool("openapi_validation", cfg.Server.OpenAPIValidation),
		zap.Bool("server_timing", cfg.Server.ServerTiming),
	)

	return &Application{
		Config: cfg,
		Router: router,
		DB:     db,
	}, nil
}

// Handler returns the root HTTP handler. With server.server_timing set every
// response carries a Server-Timing header.
func (a *Application) Handler() http.Handler {
	return handlerFor(a.Config, a.Router)
}

func handlerFor(cfg *config.Config, router *gin.Engine) http.Handler {
	if cfg != nil && cfg.Server.ServerTiming {
		return observability.ServerTimingHandler(router)
	}
	return router
}
