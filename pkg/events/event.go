package events

import "time"

// Event defines the contract for telemetry emitted by the context engine.
type Event interface {
	// EventType returns the unique code for this event (e.g., "CONTEXT_ASSEMBLED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Telemetry event codes published after each pipeline run.
const (
	TypeContextAssembled = "CONTEXT_ASSEMBLED"
	TypeIntentFallback   = "INTENT_FALLBACK"
)

// ContextAssembled reports a completed retrieval run: what was routed,
// how many chunks survived selection, and whether the result was judged
// sufficient. Chunk text never rides on the bus, only counts and scores.
func ContextAssembled(sessionID, intent string, selected, dropped int, highestScore float64, insufficient, cached bool) Event {
	return BaseEvent{
		Type: TypeContextAssembled,
		Data: map[string]interface{}{
			"session_id":    sessionID,
			"intent":        intent,
			"selected":      selected,
			"dropped":       dropped,
			"highest_score": highestScore,
			"insufficient":  insufficient,
			"cached":        cached,
		},
		OccurredAt: time.Now(),
	}
}

// IntentFallback reports a question routed away from retrieval.
func IntentFallback(sessionID, intent, reason string) Event {
	return BaseEvent{
		Type: TypeIntentFallback,
		Data: map[string]interface{}{
			"session_id": sessionID,
			"intent":     intent,
			"reason":     reason,
		},
		OccurredAt: time.Now(),
	}
}
