package stream

import (
	"strings"
	"sync"
)

// FieldState describes how much of a string field a prefix of the response
// has revealed.
type FieldState int

// Field extraction states.
const (
	// FieldMissing means the field (or its opening quote) has not appeared yet.
	FieldMissing FieldState = iota
	// FieldPartial means the value has started but its closing quote has not
	// arrived; Value holds everything seen so far.
	FieldPartial
	// FieldComplete means the value is fully terminated.
	FieldComplete
)

// Extraction is the result of a best-effort partial field extraction.
type Extraction struct {
	Value string
	State FieldState
}

// PartialThought extracts the in-progress value of the "thought" field from a
// growing response prefix. The extraction is monotonic: a longer prefix never
// yields a shorter value, and the complete value matches a full parse of the
// finished response. Advisory only.
func PartialThought(prefix string) Extraction {
	return extractStringField(prefix, "thought")
}

// PartialReport extracts the in-progress value of "tool_input" once the
// prefix shows the terminal tool is "finish", letting consumers preview the
// report while it is generated. Advisory only.
func PartialReport(prefix string) Extraction {
	tool := extractStringField(prefix, "tool")
	if tool.State != FieldComplete || strings.TrimSpace(tool.Value) != "finish" {
		return Extraction{}
	}
	return extractStringField(prefix, "tool_input")
}

// extractStringField scans buf for the first occurrence of `"field"` followed
// by a colon and a string value, returning the unescaped value accumulated so
// far together with an explicit found-unterminated / complete state. It never
// requires buf to be valid JSON.
func extractStringField(buf, field string) Extraction {
	needle := `"` + field + `"`
	idx := strings.Index(buf, needle)
	if idx < 0 {
		return Extraction{}
	}

	rest := buf[idx+len(needle):]
	rest = strings.TrimLeft(rest, " \t\r\n")
	if !strings.HasPrefix(rest, ":") {
		return Extraction{}
	}
	rest = strings.TrimLeft(rest[1:], " \t\r\n")
	if !strings.HasPrefix(rest, `"`) {
		return Extraction{}
	}
	rest = rest[1:]

	var sb strings.Builder
	for i := 0; i < len(rest); i++ {
		c := rest[i]
		switch c {
		case '"':
			return Extraction{Value: sb.String(), State: FieldComplete}
		case '\\':
			if i+1 >= len(rest) {
				// Escape sequence cut off mid-stream; value so far stands.
				return Extraction{Value: sb.String(), State: FieldPartial}
			}
			i++
			switch rest[i] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '"', '\\', '/':
				sb.WriteByte(rest[i])
			default:
				sb.WriteByte('\\')
				sb.WriteByte(rest[i])
			}
		default:
			sb.WriteByte(c)
		}
	}
	return Extraction{Value: sb.String(), State: FieldPartial}
}

// Extractor accumulates stream fragments and fires callbacks whenever the
// partial thought or partial report grows. Callbacks receive the full value
// seen so far, not the delta. Safe for use by a single stream at a time;
// Reset discards state between retry attempts.
type Extractor struct {
	mu          sync.Mutex
	buf         strings.Builder
	lastThought string
	lastReport  string

	// OnThought receives the running "thinking" preview.
	OnThought func(thought string)
	// OnReport receives the running report preview once the terminal tool is
	// known to be finish.
	OnReport func(report string)
}

// Feed appends a fragment and re-runs both partial extractions against the
// grown prefix.
func (e *Extractor) Feed(fragment string) {
	e.mu.Lock()
	e.buf.WriteString(fragment)
	prefix := e.buf.String()

	var thought, report string
	var thoughtGrew, reportGrew bool
	if ex := PartialThought(prefix); ex.State != FieldMissing && ex.Value != e.lastThought {
		e.lastThought = ex.Value
		thought, thoughtGrew = ex.Value, true
	}
	if ex := PartialReport(prefix); ex.State != FieldMissing && ex.Value != e.lastReport {
		e.lastReport = ex.Value
		report, reportGrew = ex.Value, true
	}
	onThought, onReport := e.OnThought, e.OnReport
	e.mu.Unlock()

	if thoughtGrew && onThought != nil {
		onThought(thought)
	}
	if reportGrew && onReport != nil {
		onReport(report)
	}
}

// Reset discards accumulated text, e.g. when a failed attempt is restarted
// from scratch.
func (e *Extractor) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.buf.Reset()
	e.lastThought = ""
	e.lastReport = ""
}
