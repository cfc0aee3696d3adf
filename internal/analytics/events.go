// Package analytics collects search and occupation-view events, ships them
// through Kafka (or straight into the local aggregator) and serves rolled-up
// statistics.
package analytics

import "time"

type EventType string

const (
	EventSearch     EventType = "search"
	EventCacheHit   EventType = "cache_hit"
	EventZeroResult EventType = "zero_result"
	EventView       EventType = "occupation_view"
)

type SearchEvent struct {
	Type      EventType `json:"type"`
	Query     string    `json:"query"`
	Terms     []string  `json:"terms"`
	TotalHits int       `json:"total_hits"`
	Returned  int       `json:"returned"`
	TopCode   string    `json:"top_code,omitempty"`
	TopScore  float64   `json:"top_score,omitempty"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

type ViewEvent struct {
	Type      EventType `json:"type"`
	Code      string    `json:"code"`
	Found     bool      `json:"found"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// searchType classifies a search for the event type field.
func searchType(e SearchEvent) EventType {
	switch {
	case e.TotalHits == 0:
		return EventZeroResult
	case e.CacheHit:
		return EventCacheHit
	default:
		return EventSearch
	}
}
