// Package worker drains a channel of audit events into a sink. It is the
// background half of the async publisher.
package worker

import (
	"context"
	"log/slog"

	audit "legitid/pkg/platform/audit"
)

type Worker struct {
	sink   audit.Sink
	inbox  <-chan audit.Event
	logger *slog.Logger
}

func New(sink audit.Sink, inbox <-chan audit.Event, logger *slog.Logger) *Worker {
	return &Worker{
		sink:   sink,
		inbox:  inbox,
		logger: logger,
	}
}

// Run consumes events until the inbox is closed or the context is
// cancelled. Append failures are logged and skipped so one bad event
// never stalls the trail.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.inbox:
			if !ok {
				return
			}
			if err := w.sink.Append(ctx, event); err != nil {
				w.logger.Error("failed to append audit event",
					"action", event.Action,
					"user_id", event.UserID,
					"error", err)
			}
		}
	}
}
