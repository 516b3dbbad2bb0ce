package event

import (
	"time"

	"github.com/google/uuid"
)

// Event represents a domain event about one mission order
type Event struct {
	ID            string                 `json:"id"`
	Type          Type                   `json:"type"`
	MissionID     string                 `json:"mission_id"`
	Reference     string                 `json:"reference"`
	Payload       map[string]interface{} `json:"payload"`
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id"`
}

// NewEvent creates a new domain event with auto-generated ID and timestamp
func NewEvent(eventType Type, missionID, reference string, payload map[string]interface{}) *Event {
	return NewEventWithCorrelation(eventType, missionID, reference, payload, uuid.NewString())
}

// NewEventWithCorrelation creates an event linked to a correlation chain
func NewEventWithCorrelation(eventType Type, missionID, reference string, payload map[string]interface{}, correlationID string) *Event {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		MissionID:     missionID,
		Reference:     reference,
		Payload:       payload,
		Timestamp:     time.Now(),
		CorrelationID: correlationID,
	}
}

// WithPayload returns a new Event with an added payload key-value pair (immutable operation)
func (e *Event) WithPayload(key string, value interface{}) *Event {
	newPayload := make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		newPayload[k] = v
	}
	newPayload[key] = value

	return &Event{
		ID:            e.ID,
		Type:          e.Type,
		MissionID:     e.MissionID,
		Reference:     e.Reference,
		Payload:       newPayload,
		Timestamp:     e.Timestamp,
		CorrelationID: e.CorrelationID,
	}
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		switch v := val.(type) {
		case string:
			return v
		case interface{ String() string }:
			return v.String()
		}
	}
	return ""
}

// GetPayloadFloat retrieves a float64 value from the payload
func (e *Event) GetPayloadFloat(key string) float64 {
	if val, ok := e.Payload[key]; ok {
		switch v := val.(type) {
		case float64:
			return v
		case int64:
			return float64(v)
		case int:
			return float64(v)
		}
	}
	return 0.0
}
