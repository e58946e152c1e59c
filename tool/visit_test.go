package tool

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/deepresearch/core"
)

// fakeFetcher returns canned content per target and records call counts.
type fakeFetcher struct {
	mu      sync.Mutex
	pages   map[string]string
	err     error
	fetches map[string]int
}

func newFakeFetcher(pages map[string]string) *fakeFetcher {
	return &fakeFetcher{pages: pages, fetches: make(map[string]int)}
}

func (f *fakeFetcher) Fetch(ctx context.Context, target string) (string, error) {
	f.mu.Lock()
	f.fetches[target]++
	f.mu.Unlock()

	if f.err != nil {
		return "", f.err
	}
	content, ok := f.pages[target]
	if !ok {
		return "", errors.New("not found")
	}
	return content, nil
}

func (f *fakeFetcher) count(target string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches[target]
}

func TestVisitTool_SingleFetch(t *testing.T) {
	primary := newFakeFetcher(map[string]string{
		"https://a.com": "# Article A\n\nBody of A.",
	})
	state := newRunningManager("t")
	vt := NewVisitTool(primary, nil, state)

	obs := vt.Execute(context.Background(), []string{"https://a.com"})

	assert.Contains(t, obs, "Content from https://a.com (Article A):")
	assert.Contains(t, obs, "Body of A.")

	s := state.State()
	assert.Len(t, s.Sources, 1)
	assert.Equal(t, "Article A", s.Sources[0].Title)
}

func TestVisitTool_DuplicateTargetsFetchedOnce(t *testing.T) {
	primary := newFakeFetcher(map[string]string{
		"https://u1.com": "# U1\ncontent",
	})
	vt := NewVisitTool(primary, nil, newRunningManager("t"))

	obs := vt.Execute(context.Background(), []string{"https://u1.com", "https://u1.com"})

	assert.Equal(t, 1, primary.count("https://u1.com"))
	assert.Equal(t, 1, strings.Count(obs, "Content from https://u1.com"))
}

func TestVisitTool_BatchCap(t *testing.T) {
	pages := map[string]string{}
	targets := []string{
		"https://1.com", "https://2.com", "https://3.com",
		"https://4.com", "https://5.com", "https://6.com", "https://7.com",
	}
	for _, u := range targets {
		pages[u] = "# page\ncontent"
	}
	primary := newFakeFetcher(pages)
	vt := NewVisitTool(primary, nil, newRunningManager("t"))

	obs := vt.Execute(context.Background(), targets)

	assert.Equal(t, 5, strings.Count(obs, "Content from"))
	assert.Equal(t, 0, primary.count("https://6.com"))
	assert.Equal(t, 0, primary.count("https://7.com"))
}

func TestVisitTool_FallbackChain(t *testing.T) {
	primary := newFakeFetcher(nil)
	primary.err = errors.New("reader timeout")
	fallback := newFakeFetcher(map[string]string{
		"https://blocked.com": "# Scraped\nrendered content",
	})

	state := newRunningManager("t")
	vt := NewVisitTool(primary, fallback, state)

	obs := vt.Execute(context.Background(), []string{"https://blocked.com"})

	assert.Equal(t, 1, primary.count("https://blocked.com"))
	assert.Equal(t, 1, fallback.count("https://blocked.com"))
	assert.Contains(t, obs, "rendered content")
}

func TestVisitTool_FailureMarkerWhenAllFetchesFail(t *testing.T) {
	primary := newFakeFetcher(nil)
	primary.err = errors.New("reader down")

	state := newRunningManager("t")
	vt := NewVisitTool(primary, nil, state)

	obs := vt.Execute(context.Background(), []string{"https://dead.com"})

	assert.Contains(t, obs, "[Could not retrieve https://dead.com: all fetch attempts failed]")
	s := state.State()
	assert.Empty(t, s.Sources)
	if assert.NotEmpty(t, s.Logs) {
		assert.Equal(t, core.LogError, s.Logs[len(s.Logs)-1].Level)
	}
}

func TestVisitTool_PartialFailureKeepsSuccesses(t *testing.T) {
	primary := newFakeFetcher(map[string]string{
		"https://good.com": "# Good\nworks",
	})
	vt := NewVisitTool(primary, nil, newRunningManager("t"))

	obs := vt.Execute(context.Background(), []string{"https://good.com", "https://bad.com"})

	parts := strings.Split(obs, "\n\n---\n\n")
	assert.Len(t, parts, 2)
	assert.Contains(t, parts[0], "works")
	assert.Contains(t, parts[1], "[Could not retrieve https://bad.com")
}

func TestVisitTool_Truncation(t *testing.T) {
	long := "# Long\n" + strings.Repeat("x", 9000)
	primary := newFakeFetcher(map[string]string{"https://long.com": long})
	vt := NewVisitTool(primary, nil, newRunningManager("t"), func(o *VisitToolOptions) {
		o.MaxContentChars = 100
	})

	obs := vt.Execute(context.Background(), []string{"https://long.com"})

	assert.Contains(t, obs, "[TRUNCATED]")
	assert.Less(t, len(obs), 300)
}

func TestVisitTool_TitleFallsBackToHost(t *testing.T) {
	primary := newFakeFetcher(map[string]string{
		"https://example.com/page": "no headings here, just text",
	})
	state := newRunningManager("t")
	vt := NewVisitTool(primary, nil, state)

	vt.Execute(context.Background(), []string{"https://example.com/page"})

	s := state.State()
	assert.Len(t, s.Sources, 1)
	assert.Equal(t, "example.com", s.Sources[0].Title)
}

func TestVisitTool_ConcurrentCommitsDoNotLoseUpdates(t *testing.T) {
	pages := map[string]string{}
	targets := make([]string, 0, 5)
	for _, u := range []string{"https://c1.com", "https://c2.com", "https://c3.com", "https://c4.com", "https://c5.com"} {
		pages[u] = "# " + u + "\ncontent"
		targets = append(targets, u)
	}
	primary := newFakeFetcher(pages)
	state := newRunningManager("t")
	vt := NewVisitTool(primary, nil, state)
	vt.Execute(context.Background(), targets)

	s := state.State()
	assert.Len(t, s.Sources, 5)
	logActions := 0
	for _, entry := range s.Logs {
		if entry.Level == core.LogAction {
			logActions++
		}
	}
	assert.Equal(t, 5, logActions)
}
