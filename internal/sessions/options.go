package sessions

import (
	"log/slog"
	"time"

	"github.com/strrl/health-sessions/internal/telemetry"
)

type options struct {
	timeout        time.Duration
	queueSize      int
	sampleName     string
	sampleDuration time.Duration
	metrics        *telemetry.Metrics
	logger         *slog.Logger
	now            func() time.Time
}

func defaultOptions() options {
	return options{
		timeout:        30 * time.Second,
		queueSize:      16,
		sampleName:     "Morning run",
		sampleDuration: 30 * time.Minute,
		logger:         slog.Default(),
		now:            time.Now,
	}
}

// Option configures a Controller
type Option func(*options)

// WithTimeout bounds every data service call
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithQueueSize sets how many commands may wait behind the running one
func WithQueueSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.queueSize = n
		}
	}
}

// WithSample sets the name and length of sessions added by InsertSession
func WithSample(name string, d time.Duration) Option {
	return func(o *options) {
		if name != "" {
			o.sampleName = name
		}
		if d > 0 {
			o.sampleDuration = d
		}
	}
}

// WithMetrics reports command counts, durations and the record gauge to m
func WithMetrics(m *telemetry.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithLogger sets the logger for command and failure events
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
