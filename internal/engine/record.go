package engine

import "time"

// CallRecord summarises one public Call for the record store.
type CallRecord struct {
	Slot         string
	Provider     string
	URL          string
	ModelID      string
	Cached       bool
	HasImage     bool
	ImageFormat  string
	StatusCode   int
	Success      bool
	ErrorKind    string
	ErrorMessage string
	AnswerLength int
	Attempts     int
	Latency      time.Duration
	CreatedAt    time.Time
}

// Recorder receives call records. Implementations must not block.
type Recorder interface {
	Record(rec *CallRecord)
}
