package queue

import (
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Option configures a queue implementation
type Option func(*options)

type options struct {
	maxAttempts int
	tracer      trace.Tracer
	now         func() time.Time
}

// WithMaxAttempts sets the delivery limit before an item is dead-lettered
func WithMaxAttempts(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxAttempts = n
		}
	}
}

// WithTracer enables tracing of queue operations
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		o.tracer = tracer
	}
}

// WithClock replaces the wall clock of the in-memory queue
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func applyOptions(opts []Option) options {
	o := options{maxAttempts: DefaultMaxAttempts, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
