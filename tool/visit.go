package tool

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/hupe1980/deepresearch/core"
	"github.com/hupe1980/deepresearch/logging"
)

// Fetcher retrieves the readable content of a resource.
type Fetcher interface {
	Fetch(ctx context.Context, target string) (string, error)
}

// VisitToolOptions configures a VisitTool.
type VisitToolOptions struct {
	// MaxBatch caps how many resources one visit call fetches concurrently.
	MaxBatch int
	// MaxContentChars truncates each fetched page to bound prompt growth.
	MaxContentChars int
	Logger          logging.Logger
}

// VisitTool executes the visit action: it fetches a batch of resources
// concurrently through a primary-then-fallback chain, records each successful
// page as a source, and returns the per-resource outcomes concatenated in the
// original request order.
type VisitTool struct {
	primary  Fetcher
	fallback Fetcher // nil when no fallback credential is configured
	state    *core.StateManager

	maxBatch        int
	maxContentChars int
	logger          logging.Logger
}

// NewVisitTool constructs a visit executor. Pass a nil fallback to disable
// the scraping fallback. Defaults: batch of 5, 8000 chars per page.
func NewVisitTool(primary, fallback Fetcher, state *core.StateManager, optFns ...func(o *VisitToolOptions)) *VisitTool {
	opts := VisitToolOptions{MaxBatch: 5, MaxContentChars: 8000, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &VisitTool{
		primary:         primary,
		fallback:        fallback,
		state:           state,
		maxBatch:        opts.MaxBatch,
		maxContentChars: opts.MaxContentChars,
		logger:          opts.Logger,
	}
}

// observationDelimiter separates per-resource outcomes in the combined observation.
const observationDelimiter = "\n\n---\n\n"

// Execute fetches the requested resources and returns the combined
// observation. Targets are deduplicated preserving order and capped at the
// batch limit; every fetch failure yields an explicit failure marker instead
// of an error, and faster successes are kept regardless of slower failures.
func (t *VisitTool) Execute(ctx context.Context, targets []string) string {
	targets = dedupeTargets(targets, t.maxBatch)
	if len(targets) == 0 {
		return "No valid URLs were provided to visit."
	}

	outcomes := make([]string, len(targets))

	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func(idx int, target string) {
			defer wg.Done()
			outcomes[idx] = t.visitOne(ctx, target)
		}(i, target)
	}
	wg.Wait()

	return strings.Join(outcomes, observationDelimiter)
}

// visitOne runs the primary-then-fallback fetch chain for one resource and
// commits its state transition.
func (t *VisitTool) visitOne(ctx context.Context, target string) string {
	t.logger.Info("tool.visit.fetch", "url", target)

	content, err := t.primary.Fetch(ctx, target)
	if err != nil && t.fallback != nil {
		t.logger.Debug("tool.visit.fallback", "url", target, "primary_error", err.Error())
		content, err = t.fallback.Fetch(ctx, target)
	}
	if err != nil {
		t.logger.Warn("tool.visit.failed", "url", target, "error", err.Error())
		t.state.Commit(func(prev core.ResearchRunState) core.ResearchRunState {
			return core.AppendLog(prev, core.NewLogEntry(core.LogError,
				fmt.Sprintf("Failed to read %s", target), err.Error()))
		})
		return fmt.Sprintf("[Could not retrieve %s: all fetch attempts failed]", target)
	}

	content = truncateContent(content, t.maxContentChars)
	title := deriveTitle(content, target)

	// Source insert and log append are one atomic transition computed from
	// the state current at commit time, so two concurrent fetches of distinct
	// URLs (or a racing duplicate) can never both insert the same link.
	t.state.Commit(func(prev core.ResearchRunState) core.ResearchRunState {
		next := core.AddSources(prev, core.SourceRecord{Title: title, Link: target})
		entry := core.NewLogEntry(core.LogAction, fmt.Sprintf("Read: %s", title), target)
		return core.AppendLog(next, entry)
	})

	t.logger.Info("tool.visit.success", "url", target, "title", title, "chars", len(content))
	return fmt.Sprintf("Content from %s (%s):\n%s", target, title, content)
}

// dedupeTargets trims, deduplicates (order preserving) and caps the batch.
func dedupeTargets(targets []string, limit int) []string {
	seen := make(map[string]bool, len(targets))
	out := make([]string, 0, len(targets))
	for _, target := range targets {
		target = strings.TrimSpace(target)
		key := core.NormalizeLink(target)
		if target == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, target)
		if len(out) >= limit {
			break
		}
	}
	return out
}

// truncateContent bounds content length, rune-safe.
func truncateContent(content string, max int) string {
	runes := []rune(content)
	if len(runes) <= max {
		return content
	}
	return string(runes[:max]) + "\n[TRUNCATED]"
}

// deriveTitle picks a title for a fetched page: the first level-one heading
// in the content, else the resource's host name, else the raw identifier.
func deriveTitle(content, target string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			if title := strings.TrimSpace(line[2:]); title != "" {
				return title
			}
		}
	}
	if u, err := url.Parse(target); err == nil && u.Host != "" {
		return u.Host
	}
	return target
}
