package handlers

import "github.com/gin-gonic/gin"

// ListCategories handles GET /categories/.
func (s *Server) ListCategories(c *gin.Context) { s.categories.handleList(c) }

// CreateCategory handles POST /categories/.
func (s *Server) CreateCategory(c *gin.Context) { s.categories.handleCreate(c) }

// ListSubCategories handles GET /subcategories/.
func (s *Server) ListSubCategories(c *gin.Context) { s.subcategories.handleList(c) }

// CreateSubCategory handles POST /subcategories/.
func (s *Server) CreateSubCategory(c *gin.Context) { s.subcategories.handleCreate(c) }

// ListServices handles GET /services/.
func (s *Server) ListServices(c *gin.Context) { s.services.handleList(c) }

// CreateService handles POST /services/.
func (s *Server) CreateService(c *gin.Context) { s.services.handleCreate(c) }
