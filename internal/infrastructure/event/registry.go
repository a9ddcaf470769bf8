package event

import (
	"slices"
	"sync"

	"github.com/pharmabill/backend/internal/domain/shared"
)

// HandlerRegistry maps event types to handlers
type HandlerRegistry struct {
	mu       sync.RWMutex
	byType   map[string][]shared.EventHandler
	catchAll []shared.EventHandler
}

func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{byType: make(map[string][]shared.EventHandler)}
}

// Register adds handler for eventTypes; no types means all events
func (r *HandlerRegistry) Register(handler shared.EventHandler, eventTypes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(eventTypes) == 0 {
		r.catchAll = append(r.catchAll, handler)
		return
	}
	for _, t := range eventTypes {
		r.byType[t] = append(r.byType[t], handler)
	}
}

// Unregister removes handler everywhere it was registered
func (r *HandlerRegistry) Unregister(handler shared.EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	isTarget := func(h shared.EventHandler) bool { return h == handler }
	r.catchAll = slices.DeleteFunc(r.catchAll, isTarget)
	for t, hs := range r.byType {
		hs = slices.DeleteFunc(hs, isTarget)
		if len(hs) == 0 {
			delete(r.byType, t)
			continue
		}
		r.byType[t] = hs
	}
}

// Handlers returns the handlers for eventType followed by the catch-all handlers
func (r *HandlerRegistry) Handlers(eventType string) []shared.EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]shared.EventHandler, 0, len(r.byType[eventType])+len(r.catchAll))
	out = append(out, r.byType[eventType]...)
	return append(out, r.catchAll...)
}

// Len counts distinct registered handlers
func (r *HandlerRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[shared.EventHandler]struct{})
	for _, h := range r.catchAll {
		seen[h] = struct{}{}
	}
	for _, hs := range r.byType {
		for _, h := range hs {
			seen[h] = struct{}{}
		}
	}
	return len(seen)
}
