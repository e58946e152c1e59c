package core

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a conversation message.
type Role string

// Conversation roles understood by the model adapters.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single conversation turn. The conversation is an append-only
// ordered sequence owned exclusively by the controller for one run.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// LogLevel categorizes run log entries.
type LogLevel string

// Log entry categories surfaced to run observers.
const (
	LogInfo    LogLevel = "info"
	LogAction  LogLevel = "action"
	LogError   LogLevel = "error"
	LogSuccess LogLevel = "success"
)

// LogEntry is one record in the append-only audit trail of a run. Entries
// carrying a CorrelationID may be replaced in place by a later entry with the
// same id (e.g. the evolving "thinking" preview for a step); they are never
// duplicated.
type LogEntry struct {
	Timestamp     time.Time `json:"timestamp"`
	Level         LogLevel  `json:"level"`
	Message       string    `json:"message"`
	Details       string    `json:"details,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// NewLogEntry creates a timestamped log entry.
func NewLogEntry(level LogLevel, message, details string) LogEntry {
	return LogEntry{Timestamp: time.Now().UTC(), Level: level, Message: message, Details: details}
}

// SourceRecord describes one discovered source. Membership in the run state
// is keyed by the normalized link; insertion order is preserved.
type SourceRecord struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet,omitempty"`
}

// ResearchRunState is the observable aggregate for one research run. It is a
// value: all mutation happens by deriving the next state from the previous
// one inside a StateManager commit.
type ResearchRunState struct {
	Topic     string         `json:"topic"`
	IsRunning bool           `json:"is_running"`
	Logs      []LogEntry     `json:"logs"`
	Report    string         `json:"report"`
	Sources   []SourceRecord `json:"sources"`
}

// Clone returns a deep copy safe for independent use by observers.
func (s ResearchRunState) Clone() ResearchRunState {
	c := s
	c.Logs = make([]LogEntry, len(s.Logs))
	copy(c.Logs, s.Logs)
	c.Sources = make([]SourceRecord, len(s.Sources))
	copy(c.Sources, s.Sources)
	return c
}

// NormalizeLink strips the trailing slash from a resource identifier. The
// normalized form is the dedup key for sources and visited tracking.
func NormalizeLink(link string) string {
	return strings.TrimSuffix(strings.TrimSpace(link), "/")
}

// HasSource reports whether a record with the same normalized link exists.
func (s ResearchRunState) HasSource(link string) bool {
	key := NormalizeLink(link)
	for _, src := range s.Sources {
		if NormalizeLink(src.Link) == key {
			return true
		}
	}
	return false
}

// AppendLog returns the next state with entry appended, or replaced in place
// when a previous entry shares a non-empty correlation id.
func AppendLog(prev ResearchRunState, entry LogEntry) ResearchRunState {
	next := prev.Clone()
	if entry.CorrelationID != "" {
		for i := range next.Logs {
			if next.Logs[i].CorrelationID == entry.CorrelationID {
				next.Logs[i] = entry
				return next
			}
		}
	}
	next.Logs = append(next.Logs, entry)
	return next
}

// AddSources returns the next state with records merged in order, skipping
// any whose normalized link is already present.
func AddSources(prev ResearchRunState, records ...SourceRecord) ResearchRunState {
	next := prev.Clone()
	seen := make(map[string]bool, len(next.Sources))
	for _, src := range next.Sources {
		seen[NormalizeLink(src.Link)] = true
	}
	for _, rec := range records {
		key := NormalizeLink(rec.Link)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		next.Sources = append(next.Sources, rec)
	}
	return next
}

// NewID generates a unique identifier for runs and log correlation.
func NewID() string { return uuid.NewString() }
