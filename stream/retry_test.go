package stream

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hupe1980/deepresearch/model"
)

// scriptedModel plays back one scripted outcome per Stream call.
type scriptedModel struct {
	mu       sync.Mutex
	attempts []scriptedAttempt
	calls    int
}

type scriptedAttempt struct {
	fragments []string
	err       error
}

func (m *scriptedModel) Stream(ctx context.Context, req model.Request) (<-chan model.Chunk, <-chan error) {
	m.mu.Lock()
	attempt := scriptedAttempt{err: errors.New("script exhausted")}
	if m.calls < len(m.attempts) {
		attempt = m.attempts[m.calls]
	}
	m.calls++
	m.mu.Unlock()

	chunks := make(chan model.Chunk)
	errs := make(chan error, 1)
	go func() {
		defer close(chunks)
		defer close(errs)
		for _, f := range attempt.fragments {
			chunks <- model.Chunk{Text: f}
		}
		if attempt.err != nil {
			errs <- attempt.err
		}
	}()
	return chunks, errs
}

func (m *scriptedModel) Info() model.Info {
	return model.Info{Name: "scripted", Provider: "test"}
}

func (m *scriptedModel) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// countingLogger counts warn-level records.
type countingLogger struct {
	mu    sync.Mutex
	warns int
}

func (l *countingLogger) Debug(string, ...any) {}
func (l *countingLogger) Info(string, ...any)  {}
func (l *countingLogger) Error(string, ...any) {}
func (l *countingLogger) Warn(string, ...any) {
	l.mu.Lock()
	l.warns++
	l.mu.Unlock()
}

func fastPolicy() Policy {
	return Policy{MaxAttempts: 3, Delay: time.Millisecond, Retryable: model.IsTransient}
}

func TestCaller_SucceedsFirstAttempt(t *testing.T) {
	m := &scriptedModel{attempts: []scriptedAttempt{
		{fragments: []string{`{"tool": `, `"search"}`}},
	}}
	c := NewCaller(m, fastPolicy(), nil)

	text, err := c.Call(context.Background(), model.Request{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != `{"tool": "search"}` {
		t.Errorf("text = %q", text)
	}
	if m.callCount() != 1 {
		t.Errorf("calls = %d, want 1", m.callCount())
	}
}

func TestCaller_RetriesTransientThenSucceeds(t *testing.T) {
	m := &scriptedModel{attempts: []scriptedAttempt{
		{err: &model.Error{Provider: "test", StatusCode: 500, Err: errors.New("server error")}},
		{fragments: []string{"ok"}},
	}}
	logger := &countingLogger{}
	c := NewCaller(m, fastPolicy(), logger)

	text, err := c.Call(context.Background(), model.Request{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "ok" {
		t.Errorf("text = %q", text)
	}
	if m.callCount() != 2 {
		t.Errorf("calls = %d, want 2", m.callCount())
	}
	if logger.warns != 1 {
		t.Errorf("retry notices = %d, want exactly 1", logger.warns)
	}
}

func TestCaller_NonTransientFailsImmediately(t *testing.T) {
	m := &scriptedModel{attempts: []scriptedAttempt{
		{err: &model.Error{Provider: "test", StatusCode: 401, Err: errors.New("unauthorized")}},
		{fragments: []string{"should never run"}},
	}}
	c := NewCaller(m, fastPolicy(), nil)

	if _, err := c.Call(context.Background(), model.Request{}, nil); err == nil {
		t.Fatal("expected error")
	}
	if m.callCount() != 1 {
		t.Errorf("calls = %d, want 1 (no retry on 401)", m.callCount())
	}
}

func TestCaller_ExhaustsRetries(t *testing.T) {
	fail := scriptedAttempt{err: &model.Error{Provider: "test", StatusCode: 429, Err: errors.New("rate limited")}}
	m := &scriptedModel{attempts: []scriptedAttempt{fail, fail, fail}}
	c := NewCaller(m, fastPolicy(), nil)

	_, err := c.Call(context.Background(), model.Request{}, nil)
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	var me *model.Error
	if !errors.As(err, &me) || me.StatusCode != 429 {
		t.Errorf("error = %v", err)
	}
	if m.callCount() != 3 {
		t.Errorf("calls = %d, want 3", m.callCount())
	}
}

func TestCaller_DiscardsPartialOutputOnRetry(t *testing.T) {
	m := &scriptedModel{attempts: []scriptedAttempt{
		{fragments: []string{`{"thought": "half`}, err: &model.Error{StatusCode: 503, Err: errors.New("bad gateway")}},
		{fragments: []string{`{"thought": "whole"}`}},
	}}
	c := NewCaller(m, fastPolicy(), nil)

	var last string
	ex := &Extractor{OnThought: func(s string) { last = s }}
	if _, err := c.Call(context.Background(), model.Request{}, ex); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if last != "whole" {
		t.Errorf("thought = %q, want the retried attempt only", last)
	}
}
