package model

import "time"

// CallLog is one persisted engine call. The API key is never stored.
type CallLog struct {
	ID           string    `db:"id" json:"id"`
	Slot         string    `db:"slot" json:"slot"`
	Provider     string    `db:"provider" json:"provider"`
	URL          string    `db:"url" json:"url"`
	ModelID      string    `db:"model_id" json:"model_id"`
	Cached       bool      `db:"cached" json:"cached"`
	HasImage     bool      `db:"has_image" json:"has_image"`
	ImageFormat  string    `db:"image_format" json:"image_format,omitempty"`
	StatusCode   int       `db:"status_code" json:"status_code"`
	Success      bool      `db:"success" json:"success"`
	ErrorKind    string    `db:"error_kind" json:"error_kind,omitempty"`
	ErrorMessage string    `db:"error_message" json:"error_message,omitempty"`
	AnswerLength int       `db:"answer_length" json:"answer_length"`
	Attempts     int       `db:"attempts" json:"attempts"`
	LatencyMS    int64     `db:"latency_ms" json:"latency_ms"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// SlotStats aggregates calls for one slot and provider.
type SlotStats struct {
	Slot        string  `db:"slot" json:"slot"`
	Provider    string  `db:"provider" json:"provider"`
	TotalCalls  int64   `db:"total_calls" json:"total_calls"`
	Successes   int64   `db:"successes" json:"successes"`
	CachedCalls int64   `db:"cached_calls" json:"cached_calls"`
	AvgLatency  float64 `db:"avg_latency" json:"avg_latency_ms"`
}
