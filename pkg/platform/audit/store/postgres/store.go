// Package postgres persists audit events in a Postgres table. Appends
// join an ambient transaction from the context when one is present, so
// the trail commits atomically with the domain write.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	id "legitid/pkg/domain"
	audit "legitid/pkg/platform/audit"
	txcontext "legitid/pkg/platform/tx"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping audit database: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execerFrom(ctx context.Context) execer {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// eventPayload is the JSON shape stored alongside the indexed columns.
type eventPayload struct {
	Decision  string `json:"decision,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Email     string `json:"email,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	IP        string `json:"ip,omitempty"`
	Device    string `json:"device,omitempty"`
	ActorID   string `json:"actor_id,omitempty"`
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(eventPayload{
		Decision:  event.Decision,
		Reason:    event.Reason,
		Email:     event.Email,
		RequestID: event.RequestID,
		IP:        event.IP,
		Device:    event.Device,
		ActorID:   event.ActorID,
	})
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	_, err = s.execerFrom(ctx).ExecContext(ctx, `
		INSERT INTO audit_events (category, occurred_at, user_id, subject, action, payload)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		string(event.Category), event.Timestamp, event.UserID.String(),
		event.Subject, event.Action, payload)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *Store) ListByUser(ctx context.Context, userID id.UserID) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category, occurred_at, user_id, subject, action, payload
		FROM audit_events
		WHERE user_id = $1
		ORDER BY occurred_at ASC, id ASC`,
		userID.String())
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category, occurred_at, user_id, subject, action, payload
		FROM (
			SELECT id, category, occurred_at, user_id, subject, action, payload
			FROM audit_events
			ORDER BY occurred_at DESC, id DESC
			LIMIT $1
		) recent
		ORDER BY occurred_at ASC, id ASC`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("query recent audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event
	for rows.Next() {
		var (
			category string
			userID   string
			event    audit.Event
			raw      []byte
		)
		if err := rows.Scan(&category, &event.Timestamp, &userID,
			&event.Subject, &event.Action, &raw); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Category = audit.EventCategory(category)
		parsed, err := id.ParseUserID(userID)
		if err != nil {
			return nil, fmt.Errorf("parse audit user id: %w", err)
		}
		event.UserID = parsed

		var payload eventPayload
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &payload); err != nil {
				return nil, fmt.Errorf("unmarshal audit payload: %w", err)
			}
		}
		event.Decision = payload.Decision
		event.Reason = payload.Reason
		event.Email = payload.Email
		event.RequestID = payload.RequestID
		event.IP = payload.IP
		event.Device = payload.Device
		event.ActorID = payload.ActorID

		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
