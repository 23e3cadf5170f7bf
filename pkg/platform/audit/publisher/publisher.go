// Package publisher delivers audit events to a store, either synchronously
// or through a buffered background worker.
package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	id "legitid/pkg/domain"
	audit "legitid/pkg/platform/audit"
	"legitid/pkg/platform/audit/worker"
)

// Publisher is the single entry point domain code uses to emit audit
// events. In synchronous mode Emit appends directly to the store; with
// an async buffer configured, Emit enqueues and a worker drains the
// queue in the background.
type Publisher struct {
	store  audit.Store
	sinks  []audit.Sink
	logger *slog.Logger

	inbox     chan audit.Event
	closeOnce sync.Once
	done      chan struct{}
}

type Option func(*Publisher)

// WithAsyncBuffer switches the publisher to asynchronous delivery with
// the given queue capacity. Emit never blocks: a full queue is reported
// as an error to the caller.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.inbox = make(chan audit.Event, size)
	}
}

// WithSink registers an additional delivery target that receives a copy
// of every event after the store append succeeds.
func WithSink(sink audit.Sink) Option {
	return func(p *Publisher) {
		p.sinks = append(p.sinks, sink)
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		p.done = make(chan struct{})
		w := worker.New(p.deliverSink(), p.inbox, p.logger)
		go func() {
			defer close(p.done)
			w.Run(context.Background())
		}()
	}
	return p
}

// Emit records an audit event. A zero timestamp is stamped with the
// current time; a caller-provided timestamp is preserved.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	if p.inbox == nil {
		return p.deliver(ctx, event)
	}

	select {
	case p.inbox <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return errors.New("audit buffer full")
	}
}

// List returns the audit trail for a single user, oldest first.
func (p *Publisher) List(ctx context.Context, userID id.UserID) ([]audit.Event, error) {
	return p.store.ListByUser(ctx, userID)
}

// Close drains any buffered events and stops the background worker.
// Safe to call multiple times.
func (p *Publisher) Close() error {
	if p.inbox == nil {
		return nil
	}
	p.closeOnce.Do(func() {
		close(p.inbox)
	})
	<-p.done
	return nil
}

func (p *Publisher) deliver(ctx context.Context, event audit.Event) error {
	if err := p.store.Append(ctx, event); err != nil {
		return err
	}
	for _, sink := range p.sinks {
		if err := sink.Append(ctx, event); err != nil {
			p.logger.Warn("audit sink append failed",
				"action", event.Action,
				"error", err)
		}
	}
	return nil
}

// deliverSink adapts the full delivery path (store plus sinks) to the
// worker's single-sink contract.
func (p *Publisher) deliverSink() audit.Sink {
	return sinkFunc(p.deliver)
}

type sinkFunc func(ctx context.Context, event audit.Event) error

func (f sinkFunc) Append(ctx context.Context, event audit.Event) error {
	return f(ctx, event)
}
