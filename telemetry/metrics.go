// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	CommandMutations  *prometheus.CounterVec // labels: op, result
	StoreReadFailures prometheus.Counter
	AuthFailures      prometheus.Counter
	ChatReplies       *prometheus.CounterVec // labels: kind

	// Histograms (seconds)
	RenderDuration prometheus.Observer

	// Gauges
	CustomCommandsGauge prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		CommandMutations = promauto.NewCounterVec(prometheus.CounterOpts{Name: "commands_mutations_total", Help: "Custom command add/edit/delete attempts by result"}, []string{"op", "result"})
		StoreReadFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "commands_store_read_failures_total", Help: "Store reads that failed and were rendered as an empty custom set"})
		AuthFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "commands_auth_failures_total", Help: "Write requests rejected for a missing or wrong bearer token"})
		ChatReplies = promauto.NewCounterVec(prometheus.CounterOpts{Name: "commands_chat_replies_total", Help: "Messages sent to chat by the bot"}, []string{"kind"})
		RenderDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "commands_render_duration_seconds", Help: "Time to build the merged command list", Buckets: prometheus.DefBuckets})
		CustomCommandsGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "commands_custom_total", Help: "Custom commands seen on the last successful store read"})
	})
}

// RecordMutation counts one store mutation attempt.
func RecordMutation(op, result string) {
	if CommandMutations != nil {
		CommandMutations.WithLabelValues(op, result).Inc()
	}
}

// RecordStoreReadFailure counts a read that was degraded to an empty result.
func RecordStoreReadFailure() {
	if StoreReadFailures != nil {
		StoreReadFailures.Inc()
	}
}

// RecordAuthFailure counts a rejected write request.
func RecordAuthFailure() {
	if AuthFailures != nil {
		AuthFailures.Inc()
	}
}

// RecordChatReply counts a message sent to chat.
func RecordChatReply(kind string) {
	if ChatReplies != nil {
		ChatReplies.WithLabelValues(kind).Inc()
	}
}

// SetCustomCommands records the number of stored custom commands.
func SetCustomCommands(n int) {
	if CustomCommandsGauge != nil {
		CustomCommandsGauge.Set(float64(n))
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
