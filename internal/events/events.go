package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/wordl-bot/wordl/internal/domain"
)

// Event types emitted by the engine.
const (
	// TypeSessionFinished is emitted once per session when it is finalized,
	// whether by the user, by reaching its question count, or by expiry.
	TypeSessionFinished = "session.finished"
)

// Event is a notification published on the in-process emitter.
// Payload holds the type-specific data serialized as JSON, so handlers can
// live outside the packages that emit.
type Event struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type names the payload shape, e.g. TypeSessionFinished
	Type string `json:"type"`

	// Payload contains the event-specific data serialized as JSON
	Payload json.RawMessage `json:"payload"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *Event) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// NewEvent creates a new Event with the specified type and payload.
func NewEvent(eventType string, payload any) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   payloadBytes,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// FinishReason tells a transport why a session ended.
type FinishReason string

// Possible finish reasons
const (
	ReasonCompleted FinishReason = "completed" // quiz reached its question count
	ReasonQuit      FinishReason = "quit"
	ReasonExpired   FinishReason = "expired" // blitz deadline
	ReasonIdle      FinishReason = "idle"
	ReasonNoWords   FinishReason = "no_words"
)

// SessionFinished is the payload of TypeSessionFinished.
type SessionFinished struct {
	SessionID uuid.UUID              `json:"session_id"`
	UserID    int64                  `json:"user_id"`
	GroupID   int64                  `json:"group_id,omitempty"`
	Kind      domain.SessionKind     `json:"kind"`
	Reason    FinishReason           `json:"reason"`
	Summary   *domain.SessionSummary `json:"summary"`
}

// NewSessionFinishedEvent wraps p in an Event.
func NewSessionFinishedEvent(p SessionFinished) (*Event, error) {
	return NewEvent(TypeSessionFinished, p)
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *Event) error
}

// HandlerFunc adapts a function to the EventHandler interface.
type HandlerFunc func(ctx context.Context, event *Event) error

// HandleEvent calls f.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *Event) error
}
