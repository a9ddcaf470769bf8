package event

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/pharmabill/backend/internal/domain/client"
	"github.com/pharmabill/backend/internal/domain/shared"
)

// EventSerializer converts domain events to and from JSON by event type
type EventSerializer struct {
	mu    sync.RWMutex
	types map[string]reflect.Type
}

func NewEventSerializer() *EventSerializer {
	return &EventSerializer{types: make(map[string]reflect.Type)}
}

// NewClientEventSerializer returns a serializer that knows every client account event
func NewClientEventSerializer() *EventSerializer {
	s := NewEventSerializer()
	s.Register(client.EventTypeClientCreated, &client.ClientCreatedEvent{})
	s.Register(client.EventTypeClientUpdated, &client.ClientUpdatedEvent{})
	s.Register(client.EventTypeClientCharged, &client.ClientChargedEvent{})
	s.Register(client.EventTypeClientPaymentRecorded, &client.ClientPaymentRecordedEvent{})
	s.Register(client.EventTypeClientRefundRecorded, &client.ClientRefundRecordedEvent{})
	s.Register(client.EventTypeClientStatusChanged, &client.ClientStatusChangedEvent{})
	s.Register(client.EventTypeClientCreditLimitChanged, &client.ClientCreditLimitChangedEvent{})
	return s
}

// Register maps eventType to the concrete type of sample
func (s *EventSerializer) Register(eventType string, sample shared.DomainEvent) {
	t := reflect.TypeOf(sample)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	s.mu.Lock()
	s.types[eventType] = t
	s.mu.Unlock()
}

func (s *EventSerializer) Serialize(evt shared.DomainEvent) ([]byte, error) {
	data, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize %s: %w", evt.EventType(), err)
	}
	return data, nil
}

// Deserialize decodes data into a new instance of the type registered for eventType
func (s *EventSerializer) Deserialize(eventType string, data []byte) (shared.DomainEvent, error) {
	s.mu.RLock()
	t, ok := s.types[eventType]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}

	ptr := reflect.New(t).Interface()
	if err := json.Unmarshal(data, ptr); err != nil {
		return nil, fmt.Errorf("failed to deserialize %s: %w", eventType, err)
	}
	evt, ok := ptr.(shared.DomainEvent)
	if !ok {
		return nil, fmt.Errorf("type registered for %s is not a domain event", eventType)
	}
	return evt, nil
}

func (s *EventSerializer) IsRegistered(eventType string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.types[eventType]
	return ok
}

// RegisteredTypes returns the known event types, sorted
func (s *EventSerializer) RegisteredTypes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.types))
	for t := range s.types {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
