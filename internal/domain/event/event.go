package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/travel-reimbursement/internal/domain/entity"
)

// Payload keys used by report events
const (
	KeyFromState  = "from_state"
	KeyToState    = "to_state"
	KeyTrigger    = "trigger"
	KeySnapshotID = "snapshot_id"
	KeyActorID    = "actor_id"
	KeyOwnerID    = "owner_id"
	KeyComment    = "comment"
	// KeyDocument holds the JSON of the report as committed by a transition
	KeyDocument   = "document"
)

// Event represents a domain event about one report
type Event struct {
	ID            string                 `json:"id"`
	Type          Type                   `json:"type"`
	ReportID      string                 `json:"report_id"`
	Kind          entity.Kind            `json:"kind"`
	Payload       map[string]interface{} `json:"payload"`
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id"`
}

// NewEvent creates a new domain event with generated ID and timestamp
func NewEvent(eventType Type, reportID string, kind entity.Kind, payload map[string]interface{}) *Event {
	id := uuid.NewString()
	return &Event{
		ID:            id,
		Type:          eventType,
		ReportID:      reportID,
		Kind:          kind,
		Payload:       payload,
		Timestamp:     time.Now(),
		CorrelationID: id,
	}
}

// WithPayload returns a copy of the event with an added payload entry
func (e *Event) WithPayload(key string, value interface{}) *Event {
	payload := make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		payload[k] = v
	}
	payload[key] = value

	c := *e
	c.Payload = payload
	return &c
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}
