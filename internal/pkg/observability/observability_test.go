package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	servertiming "github.com/mitchellh/go-server-timing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type widget struct {
	ID   int64 `gorm:"primaryKey"`
	Name string
}

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&widget{}))
	return db
}

func TestNewTracer_NilProviderUsesGlobal(t *testing.T) {
	tr := NewTracer(nil)
	require.NotNil(t, tr)

	ctx, span := tr.StartList(context.Background(), "category")
	require.NotNil(t, ctx)
	tr.RecordError(span, errors.New("boom"))
	tr.RecordError(span, nil)
	span.End()
}

func TestTracer_StartCreate(t *testing.T) {
	tr := NewTracer(noop.NewTracerProvider())

	parent := context.Background()
	ctx, span := tr.StartCreate(parent, "service")
	defer span.End()

	assert.NotNil(t, ctx)
	assert.False(t, span.IsRecording(), "noop spans never record")
}

func TestStartServerTiming_NoHeaderIsNoop(t *testing.T) {
	m := StartServerTiming(context.Background(), "db", "SELECT")
	assert.NotPanics(t, m.Stop)

	var nilMetric *ServerTimingMetric
	assert.NotPanics(t, nilMetric.Stop)
}

func TestStartServerTiming_RecordsMetric(t *testing.T) {
	h := &servertiming.Header{}
	ctx := servertiming.NewContext(context.Background(), h)

	StartServerTiming(ctx, "db", "INSERT").Stop()

	require.Len(t, h.Metrics, 1)
	assert.Equal(t, "db", h.Metrics[0].Name)
	assert.Equal(t, "INSERT", h.Metrics[0].Desc)
}

func TestRegisterGORMCallbacks_RecordsStatementTimings(t *testing.T) {
	db := openDB(t)
	require.NoError(t, RegisterGORMCallbacks(db, NewTracer(noop.NewTracerProvider())))

	h := &servertiming.Header{}
	ctx := servertiming.NewContext(context.Background(), h)

	require.NoError(t, db.WithContext(ctx).Create(&widget{Name: "a"}).Error)
	var rows []widget
	require.NoError(t, db.WithContext(ctx).Find(&rows).Error)
	require.Len(t, rows, 1)

	descs := make([]string, 0, len(h.Metrics))
	for _, m := range h.Metrics {
		assert.Equal(t, "db", m.Name)
		descs = append(descs, m.Desc)
	}
	assert.Contains(t, descs, "INSERT")
	assert.Contains(t, descs, "SELECT")
}

func TestRegisterGORMCallbacks_WithoutTimingContext(t *testing.T) {
	db := openDB(t)
	require.NoError(t, RegisterGORMCallbacks(db, NewTracer(nil)))

	require.NoError(t, db.Create(&widget{Name: "b"}).Error)
	var n int64
	require.NoError(t, db.Model(&widget{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestServerTimingHandler_WritesHeader(t *testing.T) {
	h := ServerTimingHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		StartServerTiming(r.Context(), "db", "SELECT").Stop()
		w.WriteHeader(http.StatusNoContent)
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Server-Timing"), "db"), w.Header().Get("Server-Timing"))
}
