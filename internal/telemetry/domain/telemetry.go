package domain

import "time"

// Event represents a telemetry event emitted by the auth flows. JSON tags
// are the wire format on the Kafka topic; the Loki worker parses them for
// stream labels.
type Event struct {
	UserID    string            `json:"userId,omitempty"`
	SessionID string            `json:"sessionId,omitempty"`
	EventType string            `json:"eventType"`
	Source    string            `json:"source"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

// NewEvent returns an Event stamped with the current time.
func NewEvent(eventType, source, userID, sessionID string) *Event {
	return &Event{
		UserID:    userID,
		SessionID: sessionID,
		EventType: eventType,
		Source:    source,
		CreatedAt: time.Now().UTC(),
	}
}
