package observability

import (
	"context"
	"net/http"

	servertiming "github.com/mitchellh/go-server-timing"
)

// ServerTimingMetric wraps one running Server-Timing metric.
type ServerTimingMetric struct {
	metric *servertiming.Metric
}

// Stop ends the metric. Safe on a no-op metric.
func (m *ServerTimingMetric) Stop() {
	if m != nil && m.metric != nil {
		m.metric.Stop()
	}
}

// StartServerTiming starts a metric on the request's Server-Timing header.
// Without a header in ctx it returns a no-op metric.
func StartServerTiming(ctx context.Context, name, desc string) *ServerTimingMetric {
	timing := servertiming.FromContext(ctx)
	if timing == nil {
		return &ServerTimingMetric{}
	}

	m := timing.NewMetric(name)
	if desc != "" {
		m = m.WithDesc(desc)
	}
	return &ServerTimingMetric{metric: m.Start()}
}

// ServerTimingHandler attaches a Server-Timing header to every response of next.
func ServerTimingHandler(next http.Handler) http.Handler {
	return servertiming.Middleware(next, nil)
}
