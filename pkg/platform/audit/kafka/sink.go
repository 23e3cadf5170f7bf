// Package kafka streams audit events to a Kafka topic as a side channel
// next to the durable store. Records are keyed by user ID so each user's
// trail stays ordered within its partition.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	platformkafka "legitid/internal/platform/kafka"
	audit "legitid/pkg/platform/audit"
)

type Sink struct {
	producer *platformkafka.Producer
}

func NewSink(producer *platformkafka.Producer) *Sink {
	return &Sink{producer: producer}
}

// wireEvent is the JSON shape published to the topic.
type wireEvent struct {
	Category  string    `json:"category"`
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"user_id"`
	Subject   string    `json:"subject,omitempty"`
	Action    string    `json:"action"`
	Decision  string    `json:"decision,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Email     string    `json:"email,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	IP        string    `json:"ip,omitempty"`
	Device    string    `json:"device,omitempty"`
	ActorID   string    `json:"actor_id,omitempty"`
}

func (s *Sink) Append(ctx context.Context, event audit.Event) error {
	value, err := json.Marshal(wireEvent{
		Category:  string(event.Category),
		Timestamp: event.Timestamp,
		UserID:    event.UserID.String(),
		Subject:   event.Subject,
		Action:    event.Action,
		Decision:  event.Decision,
		Reason:    event.Reason,
		Email:     event.Email,
		RequestID: event.RequestID,
		IP:        event.IP,
		Device:    event.Device,
		ActorID:   event.ActorID,
	})
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	return s.producer.Publish(ctx, []byte(event.UserID.String()), value)
}
