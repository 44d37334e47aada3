// Package eventstream publishes query lifecycle events to an event stream
// backend. Publishing is strictly best-effort: a failed publish never fails
// the query that produced it.
package eventstream

import "time"

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeQueryAnswered is emitted after a query completes.
	EventTypeQueryAnswered = "tenglaafi.query.answered"
)

// QueryAnsweredEvent is a transport-neutral event payload for an answered query.
type QueryAnsweredEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`

	Question     string `json:"question"`
	TopK         int    `json:"top_k"`
	CacheHit     bool   `json:"cache_hit"`
	AnswerLength int    `json:"answer_length"`
	SourceIDs    []int  `json:"source_ids,omitempty"`
	DurationMs   int64  `json:"duration_ms"`
}
