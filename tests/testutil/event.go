package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/pharmabill/backend/internal/domain/shared"
)

// RecordingEventHandler collects the account events it receives.
type RecordingEventHandler struct {
	mu         sync.Mutex
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
}

// NewRecordingEventHandler subscribes to eventTypes, or to every event when none are given.
func NewRecordingEventHandler(eventTypes ...string) *RecordingEventHandler {
	return &RecordingEventHandler{eventTypes: eventTypes}
}

func (h *RecordingEventHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *RecordingEventHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	return h.err
}

// Handled returns a copy of the received events in arrival order.
func (h *RecordingEventHandler) Handled() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]shared.DomainEvent, len(h.handled))
	copy(out, h.handled)
	return out
}

// Types returns the event type of every received event.
func (h *RecordingEventHandler) Types() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	types := make([]string, 0, len(h.handled))
	for _, e := range h.handled {
		types = append(types, e.EventType())
	}
	return types
}

// SetError makes Handle fail with err.
func (h *RecordingEventHandler) SetError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = err
}

func (h *RecordingEventHandler) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = nil
	h.err = nil
}

// WaitForEvents reports whether handler received at least count events within timeout.
func WaitForEvents(handler *RecordingEventHandler, count int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		handler.mu.Lock()
		n := len(handler.handled)
		handler.mu.Unlock()
		if n >= count {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(10 * time.Millisecond)
	}
}
