package events

import "time"

const (
	TypeTurnCompleted            = "chat.turn_completed"
	TypeKnowledgeIngestRequested = "knowledge.ingest_requested"
)

// TurnCompleted is published once per finished chat turn.
type TurnCompleted struct {
	UserName     string
	SessionID    int64
	Kind         string // "chat" or "rag"
	Outcome      string
	Disconnected bool
	Fragments    int
	Chars        int
	DurationMs   int64
	Error        string
	OccurredAt   time.Time
}

func (e TurnCompleted) EventType() string { return TypeTurnCompleted }

func (e TurnCompleted) Payload() map[string]interface{} {
	p := map[string]interface{}{
		"user_name":    e.UserName,
		"session_id":   e.SessionID,
		"kind":         e.Kind,
		"outcome":      e.Outcome,
		"disconnected": e.Disconnected,
		"fragments":    e.Fragments,
		"chars":        e.Chars,
		"duration_ms":  e.DurationMs,
		"occurred_at":  e.OccurredAt.Format(time.RFC3339Nano),
	}
	if e.Error != "" {
		p["error"] = e.Error
	}
	return p
}

func (e TurnCompleted) Timestamp() time.Time { return e.OccurredAt }
