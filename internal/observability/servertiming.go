package observability

import (
	"context"
	"strings"
	"time"

	servertiming "github.com/mitchellh/go-server-timing"
)

// ServerTimingMetric wraps the server-timing library's Metric type.
type ServerTimingMetric struct {
	metric *servertiming.Metric
}

// Stop stops the timing metric.
func (m *ServerTimingMetric) Stop() {
	if m != nil && m.metric != nil {
		m.metric.Stop()
	}
}

// StartServerTiming starts a server-timing metric with the given name.
// Returns a metric that should be stopped when the timed operation completes.
// If the context doesn't carry timing info, returns a no-op metric.
func StartServerTiming(ctx context.Context, name string) *ServerTimingMetric {
	timing := servertiming.FromContext(ctx)
	if timing == nil {
		return &ServerTimingMetric{}
	}
	return &ServerTimingMetric{
		metric: timing.NewMetric(name).Start(),
	}
}

// WriteTimings exports a recorded phase-duration map (see the timings
// package) into the Server-Timing header carried by ctx. Phase paths like
// "./compile/parse" become header-safe names like "compile_parse". A
// context without timing info is a no-op.
func WriteTimings(ctx context.Context, durations map[string]float64) {
	timing := servertiming.FromContext(ctx)
	if timing == nil {
		return
	}
	for key, seconds := range durations {
		metric := timing.NewMetric(timingMetricName(key))
		metric.Duration = time.Duration(seconds * float64(time.Second))
	}
}

// timingMetricName converts a phase path into a Server-Timing token.
func timingMetricName(key string) string {
	name := strings.TrimPrefix(key, "./")
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, ".", "_")
	if name == "" {
		name = "total"
	}
	return name
}
