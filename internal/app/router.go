package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"servicecatalog.io/catalog/internal/api/handlers"
	"servicecatalog.io/catalog/internal/api/middleware"
	"servicecatalog.io/catalog/internal/api/openapi"
	"servicecatalog.io/catalog/internal/config"
	"servicecatalog.io/catalog/internal/pkg/logger"
)

// defaultAllowedOrigins is used when server.allowed_origins is empty.
var defaultAllowedOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
}

// newRouter builds the gin engine. The OpenAPI validator sits outside
// ErrorHandler so that rendered error bodies are validated too.
func newRouter(cfg *config.Config, server *handlers.Server) (*gin.Engine, error) {
	router := gin.New()
	router.HandleMethodNotAllowed = true

	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.AccessLog(logger.Named("http")),
		cors.New(buildCORSConfig(cfg)),
	)

	if cfg.Server.OpenAPIValidation {
		doc, err := openapi.Load()
		if err != nil {
			return nil, err
		}
		validator, err := middleware.NewOpenAPIValidator(doc)
		if err != nil {
			return nil, err
		}
		router.Use(validator)
	}
	router.Use(middleware.ErrorHandler())

	router.NoRoute(handlers.RouteNotFound)
	router.NoMethod(handlers.MethodNotAllowed)

	server.RegisterRoutes(router)
	router.GET("/openapi.yaml", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/yaml", openapi.Raw())
	})
	if cfg.Server.ExposeLogLevel {
		router.Any("/log/level", gin.WrapH(logger.HTTPHandler()))
	}

	return router, nil
}

// buildCORSConfig derives the CORS policy. A "*" origin is honored only when
// server.unsafe_allow_all_origins is set, and then credentials are disabled.
func buildCORSConfig(cfg *config.Config) cors.Config {
	cc := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: cfg.Server.AllowCredentials,
		MaxAge:           12 * time.Hour,
	}

	if cfg.Server.UnsafeAllowAllOrigins {
		cc.AllowAllOrigins = true
		cc.AllowCredentials = false
		return cc
	}

	origins := make([]string, 0, len(cfg.Server.AllowedOrigins))
	for _, o := range cfg.Server.AllowedOrigins {
		o = strings.TrimSpace(o)
		if o == "" || o == "*" {
			continue
		}
		origins = append(origins, o)
	}
	if len(origins) == 0 {
		origins = append(origins, defaultAllowedOrigins...)
	}
	cc.AllowOrigins = origins
	return cc
}
