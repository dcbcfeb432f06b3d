package handlers

import (
	"github.com/gin-gonic/gin"

	apperrors "servicecatalog.io/catalog/internal/pkg/errors"
)

// RegisterRoutes mounts every endpoint of s on r.
func (s *Server) RegisterRoutes(r gin.IRouter) {
	r.GET("/health/live", s.GetLiveness)
	r.GET("/health/ready", s.GetReadiness)

	r.GET("/categories/", s.ListCategories)
	r.POST("/categories/", s.CreateCategory)
	r.GET("/subcategories/", s.ListSubCategories)
	r.POST("/subcategories/", s.CreateSubCategory)
	r.GET("/services/", s.ListServices)
	r.POST("/services/", s.CreateService)
}

// RouteNotFound is the gin NoRoute handler.
func RouteNotFound(c *gin.Context) {
	_ = c.Error(apperrors.ErrRouteNotFound(c.Request.URL.Path))
}

// MethodNotAllowed is the gin NoMethod handler.
func MethodNotAllowed(c *gin.Context) {
	_ = c.Error(apperrors.ErrMethodNotAllowed(c.Request.Method))
}
