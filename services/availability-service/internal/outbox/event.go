package outbox

import (
	"encoding/json"
	"time"
)

// Topics this service produces. The Kafka topic name equals EventType.
const (
	EventRulesChanged = "availability.rules.changed.v1"
)

// Event is the domain event envelope written to the outbox table.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// RulesChanged tells consumers a participant's availability for an event changed.
type RulesChanged struct {
	EventID       string    `json:"event_id"`
	ParticipantID string    `json:"participant_id"`
	Action        string    `json:"action"`
	RuleIDs       []string  `json:"rule_ids,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// NewRulesChanged builds the outbox event for a rule write, keyed by the scheduling event so all
// changes to one event land on one partition.
func NewRulesChanged(payload RulesChanged) (Event, error) {
	if payload.OccurredAt.IsZero() {
		payload.OccurredAt = time.Now().UTC()
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: "event",
		AggregateID:   payload.EventID,
		EventType:     EventRulesChanged,
		Payload:       b,
	}, nil
}
