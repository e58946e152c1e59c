package history

import (
	"sync"
	"time"
)

// Metadata carries run-level counters attached to a Record.
type Metadata struct {
	Topic       string `json:"topic"`
	LogCount    int    `json:"logCount"`
	SourceCount int    `json:"sourceCount"`
}

// Record captures the outcome of one research run.
type Record struct {
	ID         string    `json:"id"`
	Module     string    `json:"module"`
	Status     string    `json:"status"`
	Title      string    `json:"title"`
	Preview    string    `json:"preview"`
	FullResult string    `json:"fullResult"`
	Metadata   Metadata  `json:"metadata"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Sink persists completed run records.
type Sink interface {
	Save(record Record) error
	List() ([]Record, error)
}

// InMemorySink is a volatile Sink backed by a slice. Records do not survive a
// restart, which makes it best suited for tests or ephemeral demo runs.
type InMemorySink struct {
	mu      sync.RWMutex
	records []Record
}

// NewInMemorySink creates an empty in-memory sink.
func NewInMemorySink() *InMemorySink {
	return &InMemorySink{}
}

// Save appends a record. Records are stored by value so later mutation of the
// caller's copy cannot leak into the sink.
func (s *InMemorySink) Save(record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	s.records = append(s.records, record)
	return nil
}

// List returns a copy of all saved records in insertion order.
func (s *InMemorySink) List() ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out, nil
}
