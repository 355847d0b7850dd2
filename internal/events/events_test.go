package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wordl-bot/wordl/internal/domain"
)

func TestNewSessionFinishedEvent(t *testing.T) {
	payload := SessionFinished{
		SessionID: uuid.New(),
		UserID:    42,
		Kind:      domain.SessionKindBlitz,
		Reason:    ReasonExpired,
		Summary: &domain.SessionSummary{
			Kind:       domain.SessionKindBlitz,
			Correct:    4,
			Wrong:      1,
			Percentage: 80,
			Score:      24,
		},
	}

	event, err := NewSessionFinishedEvent(payload)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, TypeSessionFinished, event.Type)
	assert.WithinDuration(t, time.Now(), event.CreatedAt, 5*time.Second)

	var decoded SessionFinished
	require.NoError(t, event.UnmarshalPayload(&decoded))
	assert.Equal(t, payload.SessionID, decoded.SessionID)
	assert.Equal(t, ReasonExpired, decoded.Reason)
	require.NotNil(t, decoded.Summary)
	assert.Equal(t, 24, decoded.Summary.Score)
}

func TestNewEventInvalidPayload(t *testing.T) {
	_, err := NewEvent("bad", make(chan int))
	assert.Error(t, err)
}

// MockEventHandler implements the EventHandler interface for testing
type MockEventHandler struct {
	HandledCount int
	LastEvent    *Event
	HandlerError error
}

// HandleEvent records the call and returns the configured error
func (h *MockEventHandler) HandleEvent(ctx context.Context, event *Event) error {
	h.HandledCount++
	h.LastEvent = event
	return h.HandlerError
}

func TestHandlerFunc(t *testing.T) {
	var got *Event
	handler := HandlerFunc(func(ctx context.Context, event *Event) error {
		got = event
		return errors.New("handler error")
	})

	event, err := NewEvent("test_type", map[string]string{"key": "value"})
	require.NoError(t, err)

	err = handler.HandleEvent(context.Background(), event)
	assert.EqualError(t, err, "handler error")
	assert.Same(t, event, got)
}
