package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"servicecatalog.io/catalog/internal/api/handlers"
	"servicecatalog.io/catalog/internal/api/middleware"
	"servicecatalog.io/catalog/internal/config"
	"servicecatalog.io/catalog/internal/pkg/logger"
	"servicecatalog.io/catalog/internal/repository"
	"servicecatalog.io/catalog/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
	_ = logger.Init("error", "json")
}

func TestBuildCORSConfig_DefaultsToAllowlistWhenOriginsEmpty(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{
			AllowedOrigins:        nil,
			AllowCredentials:      true,
			UnsafeAllowAllOrigins: false,
		},
	}

	got := buildCORSConfig(cfg)
	if got.AllowAllOrigins {
		t.Fatalf("AllowAllOrigins = %v, want false", got.AllowAllOrigins)
	}
	if !got.AllowCredentials {
		t.Fatalf("AllowCredentials = %v, want true", got.AllowCredentials)
	}
	if len(got.AllowOrigins) != 2 {
		t.Fatalf("len(AllowOrigins) = %d, want 2", len(got.AllowOrigins))
	}
}

func TestBuildCORSConfig_StripsWildcardUnlessUnsafeFlagEnabled(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{
			AllowedOrigins:        []string{"*", " https://example.com "},
			AllowCredentials:      true,
			UnsafeAllowAllOrigins: false,
		},
	}

	got := buildCORSConfig(cfg)
	if got.AllowAllOrigins {
		t.Fatalf("AllowAllOrigins = %v, want false", got.AllowAllOrigins)
	}
	if len(got.AllowOrigins) != 1 || got.AllowOrigins[0] != "https://example.com" {
		t.Fatalf("AllowOrigins = %#v, want []string{\"https://example.com\"}", got.AllowOrigins)
	}
}

func TestBuildCORSConfig_UnsafeAllowAllDisablesCredentials(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{
			AllowedOrigins:        []string{"*"},
			AllowCredentials:      true,
			UnsafeAllowAllOrigins: true,
		},
	}

	got := buildCORSConfig(cfg)
	if !got.AllowAllOrigins {
		t.Fatalf("AllowAllOrigins = %v, want true", got.AllowAllOrigins)
	}
	if got.AllowCredentials {
		t.Fatalf("AllowCredentials = %v, want false", got.AllowCredentials)
	}
	if len(got.AllowOrigins) != 0 {
		t.Fatalf("AllowOrigins = %#v, want empty", got.AllowOrigins)
	}
}

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

func newTestRouter(t *testing.T, mutate func(*config.ServerConfig)) *gin.Engine {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:              8080,
			AllowCredentials:  true,
			OpenAPIValidation: true,
		},
	}
	if mutate != nil {
		mutate(&cfg.Server)
	}

	server := handlers.NewServer(handlers.ServerDeps{
		Store: repository.NewCatalogRepository(testutil.OpenSQLite(t)),
		DB:    okPinger{},
	})
	router, err := newRouter(cfg, server)
	require.NoError(t, err)
	return router
}

func send(r http.Handler, method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_CatalogFlowWithValidation(t *testing.T) {
	r := newTestRouter(t, nil)

	w := send(r, http.MethodPost, "/categories/", `{"category_name":"Home Repair"}`, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.JSONEq(t, `{"category_id":1,"category_name":"Home Repair"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	w = send(r, http.MethodPost, "/subcategories/", `{"category":999,"subcategory_name":"X"}`, nil)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.JSONEq(t, `{
		"code": "VALIDATION_FAILED",
		"message": "request validation failed",
		"field_errors": [{"field":"category","code":"DOES_NOT_EXIST","message":"Invalid pk \"999\" - object does not exist."}]
	}`, w.Body.String())

	w = send(r, http.MethodPost, "/subcategories/", `{"category":1,"subcategory_name":"Plumbing"}`, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = send(r, http.MethodPost, "/services/", `{"category":1,"subcategory":1,"description":"Fix leaky faucet"}`, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.JSONEq(t, `{"service_id":1,"category":1,"subcategory":1,"description":"Fix leaky faucet"}`, w.Body.String())

	w = send(r, http.MethodGet, "/categories/", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"category_id":1,"category_name":"Home Repair"}]`, w.Body.String())
}

func TestRouter_UnsupportedMediaTypeConformsToContract(t *testing.T) {
	r := newTestRouter(t, nil)

	w := send(r, http.MethodPost, "/categories/", "", map[string]string{"Content-Type": "text/plain"})
	require.Equal(t, http.StatusBadRequest, w.Code, "empty body is an empty mapping regardless of type")

	req := httptest.NewRequest(http.MethodPost, "/categories/", strings.NewReader("Home Repair"))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnsupportedMediaType, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"code":"UNSUPPORTED_MEDIA_TYPE"`)
}

func TestRouter_MethodAndRouteErrors(t *testing.T) {
	r := newTestRouter(t, nil)

	tests := []struct {
		method     string
		path       string
		wantStatus int
		wantCode   string
	}{
		{method: http.MethodPut, path: "/categories/", wantStatus: http.StatusMethodNotAllowed, wantCode: "METHOD_NOT_ALLOWED"},
		{method: http.MethodDelete, path: "/services/", wantStatus: http.StatusMethodNotAllowed, wantCode: "METHOD_NOT_ALLOWED"},
		{method: http.MethodGet, path: "/products/", wantStatus: http.StatusNotFound, wantCode: "ROUTE_NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := send(r, tt.method, tt.path, "", nil)
			require.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), `"code":"`+tt.wantCode+`"`)
		})
	}
}

func TestRouter_OpenAPIDocument(t *testing.T) {
	r := newTestRouter(t, nil)

	w := send(r, http.MethodGet, "/openapi.yaml", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/categories/:")
}

func TestRouter_HealthProbes(t *testing.T) {
	r := newTestRouter(t, nil)

	assert.Equal(t, http.StatusOK, send(r, http.MethodGet, "/health/live", "", nil).Code)

	w := send(r, http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","checks":{"database":"ok"}}`, w.Body.String())
}

func TestRouter_LogLevelEndpoint(t *testing.T) {
	hidden := newTestRouter(t, nil)
	assert.Equal(t, http.StatusNotFound, send(hidden, http.MethodGet, "/log/level", "", nil).Code)

	exposed := newTestRouter(t, func(s *config.ServerConfig) { s.ExposeLogLevel = true })
	w := send(exposed, http.MethodGet, "/log/level", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"level"`)
}

func TestRouter_CORSPreflight(t *testing.T) {
	r := newTestRouter(t, func(s *config.ServerConfig) {
		s.AllowedOrigins = []string{"https://catalog.example.com"}
	})

	w := send(r, http.MethodOptions, "/categories/", "", map[string]string{
		"Origin":                        "https://catalog.example.com",
		"Access-Control-Request-Method": http.MethodPost,
	})
	assert.Less(t, w.Code, 300)
	assert.Equal(t, "https://catalog.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	w = send(r, http.MethodGet, "/categories/", "", map[string]string{"Origin": "https://evil.example.com"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRouter_WithoutValidation(t *testing.T) {
	r := newTestRouter(t, func(s *config.ServerConfig) { s.OpenAPIValidation = false })

	w := send(r, http.MethodPost, "/categories/", `{"category_name":"Garden"}`, nil)
	require.Equal(t, http.StatusCreated, w.Code)
}

func TestHandler_ServerTiming(t *testing.T) {
	r := newTestRouter(t, nil)

	off := handlerFor(&config.Config{}, r)
	w := send(off, http.MethodGet, "/categories/", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Server-Timing"))

	on := handlerFor(&config.Config{Server: config.ServerConfig{ServerTiming: true}}, r)
	w = send(on, http.MethodPost, "/categories/", `{"category_name":"Garden"}`, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Server-Timing"), "db")
}

func TestApplication_Shutdown_Nil(t *testing.T) {
	var nilApp *Application
	assert.NotPanics(t, nilApp.Shutdown)
	assert.NotPanics(t, (&Application{}).Shutdown)
}

func TestBootstrap_NoDB(t *testing.T) {
	cfg := &config.Config{
		Database: config.DatabaseConfig{
			Host:     "localhost",
			Port:     65432,
			User:     "test",
			Password: "test",
			Database: "test",
			SSLMode:  "disable",
			MaxConns: 5,
			MinConns: 1,
		},
	}

	app, err := Bootstrap(context.Background(), cfg)
	require.Error(t, err, "Bootstrap should fail without database")
	assert.Nil(t, app)
}
