package tool

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/deepresearch/core"
	"github.com/hupe1980/deepresearch/logging"
	"github.com/hupe1980/deepresearch/search"
)

// SearchToolOptions configures a SearchTool.
type SearchToolOptions struct {
	// ResultCount bounds how many results are requested per query.
	ResultCount int
	Logger      logging.Logger
}

// SearchTool executes the search action: it queries the retrieval service,
// merges newly seen links into the shared source collection, and renders the
// observation listing returned to the controller.
type SearchTool struct {
	provider    search.Provider
	state       *core.StateManager
	resultCount int
	logger      logging.Logger
}

// NewSearchTool constructs a search executor. Defaults: 5 results per query.
func NewSearchTool(provider search.Provider, state *core.StateManager, optFns ...func(o *SearchToolOptions)) *SearchTool {
	opts := SearchToolOptions{ResultCount: 5, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &SearchTool{
		provider:    provider,
		state:       state,
		resultCount: opts.ResultCount,
		logger:      opts.Logger,
	}
}

// Execute runs one query and returns the observation. Request failures and
// empty result sets come back as explicit observations, keeping the loop
// alive, and are also recorded in the run log.
func (t *SearchTool) Execute(ctx context.Context, query string) string {
	query = strings.TrimSpace(query)
	t.logger.Info("tool.search.start", "query", query)

	results, err := t.provider.Search(ctx, query, t.resultCount)
	if err != nil {
		t.logger.Warn("tool.search.failed", "query", query, "error", err.Error())
		t.state.Commit(func(prev core.ResearchRunState) core.ResearchRunState {
			return core.AppendLog(prev, core.NewLogEntry(core.LogError, "Search failed", err.Error()))
		})
		return fmt.Sprintf("Search for %q failed: %v. Try a different query or another tool.", query, err)
	}

	if len(results) == 0 {
		t.state.Commit(func(prev core.ResearchRunState) core.ResearchRunState {
			return core.AppendLog(prev, core.NewLogEntry(core.LogInfo, "Search returned no results", query))
		})
		return fmt.Sprintf("No results found for %q. Try a broader or differently phrased query.", query)
	}

	records := make([]core.SourceRecord, 0, len(results))
	var listing strings.Builder
	listing.WriteString(fmt.Sprintf("Search results for %q:\n", query))
	for i, r := range results {
		listing.WriteString(fmt.Sprintf("%d. %s\n   URL: %s\n   %s\n", i+1, r.Title, r.Link, r.Snippet))
		records = append(records, core.SourceRecord{Title: r.Title, Link: r.Link, Snippet: r.Snippet})
	}

	// Source merge and log append are one atomic transition.
	t.state.Commit(func(prev core.ResearchRunState) core.ResearchRunState {
		next := core.AddSources(prev, records...)
		entry := core.NewLogEntry(core.LogAction, fmt.Sprintf("Searched: %s", query),
			fmt.Sprintf("%d results", len(results)))
		return core.AppendLog(next, entry)
	})

	t.logger.Info("tool.search.success", "query", query, "results", len(results))
	return listing.String()
}
