// Package services holds the write-side use cases of the household data:
// expense CRUD with lazy snapshots, year transitions, categories, split
// settings and backups. Every write validates at this boundary and announces
// itself through an optional EventPublisher.
package services

import (
	"context"
	"time"

	"casa/internal/amqp"
	"casa/internal/log"
	"casa/internal/metrics"
)

// EventPublisher delivers change notifications. Publishing is best effort:
// a failure is logged and never fails the write that caused it.
type EventPublisher interface {
	Publish(ctx context.Context, ev amqp.ChangeEvent) error
}

type options struct {
	now    func() time.Time
	logger *log.Logger
}

type Option func(*options)

// WithClock sets the source of the real current date.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithLogger(logger *log.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func buildOptions(component string, opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.FromSlog(nil, component)
	}
	o.logger = o.logger.WithComponent(component)
	return o
}

type notifier struct {
	events EventPublisher
	logger *log.Logger
}

func (n notifier) notify(ctx context.Context, ev amqp.ChangeEvent) {
	if n.events == nil {
		n.logger.DebugContext(ctx, "AMQP client not available, skipping change event", "type", ev.Type)
		return
	}
	if err := n.events.Publish(ctx, ev); err != nil {
		metrics.IncEvent(string(ev.Type), metrics.ResultError)
		n.logger.WarnContext(ctx, "Failed to publish change event",
			"type", ev.Type,
			log.FieldError, err)
		return
	}
	metrics.IncEvent(string(ev.Type), metrics.ResultSuccess)
}
