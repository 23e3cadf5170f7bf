package audit

import (
	"context"

	id "legitid/pkg/domain"
)

// Store persists audit events and serves the review queries.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByUser(ctx context.Context, userID id.UserID) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}

// Sink receives a copy of every event without serving queries. Used for
// side channels like the Kafka stream.
type Sink interface {
	Append(ctx context.Context, event Event) error
}
