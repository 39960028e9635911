// Package audit records who did what to which resource.
package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Publisher ships an encoded event to a broker.
type Publisher interface {
	Publish(routingKey string, body []byte) error
}

// Event is one audited action.
type Event struct {
	ID           string         `json:"id"`
	ActorID      uint           `json:"actor_id"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type"`
	ResourceID   uint           `json:"resource_id"`
	Details      map[string]any `json:"details,omitempty"`
	OccurredAt   time.Time      `json:"occurred_at"`
}

// RoutingKey is the broker topic for the event, e.g. "match.accepted".
func (e Event) RoutingKey() string {
	return e.ResourceType + "." + e.Action
}

// Recorder writes an audit log line for every event and, when a publisher is
// configured, forwards the event to it. Publishing failures are logged and
// never fail the audited action.
type Recorder struct {
	log       zerolog.Logger
	publisher Publisher
	now       func() time.Time
}

// NewRecorder creates a Recorder. publisher may be nil.
func NewRecorder(log zerolog.Logger, publisher Publisher) *Recorder {
	return &Recorder{
		log:       log.With().Str("component", "audit").Logger(),
		publisher: publisher,
		now:       time.Now,
	}
}

// Record audits action by actorID on the given resource.
func (r *Recorder) Record(actorID uint, action, resourceType string, resourceID uint, details map[string]any) Event {
	ev := Event{
		ID:           uuid.New().String(),
		ActorID:      actorID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      details,
		OccurredAt:   r.now().UTC(),
	}

	r.log.Info().
		Str("event_id", ev.ID).
		Uint("actor_id", actorID).
		Str("action", action).
		Str("resource_type", resourceType).
		Uint("resource_id", resourceID).
		Fields(details).
		Msg("audit")

	if r.publisher == nil {
		return ev
	}
	body, err := json.Marshal(ev)
	if err != nil {
		r.log.Error().Err(err).Str("event_id", ev.ID).Msg("failed to encode audit event")
		return ev
	}
	if err := r.publisher.Publish(ev.RoutingKey(), body); err != nil {
		r.log.Warn().Err(err).Str("event_id", ev.ID).Msg("failed to publish audit event")
	}
	return ev
}

// Decode parses an event published by Record.
func Decode(body []byte) (Event, error) {
	var ev Event
	err := json.Unmarshal(body, &ev)
	return ev, err
}
