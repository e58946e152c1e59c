package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/deepresearch/core"
	"github.com/hupe1980/deepresearch/history"
	"github.com/hupe1980/deepresearch/logging"
	"github.com/hupe1980/deepresearch/model"
	"github.com/hupe1980/deepresearch/stream"
)

// Configuration errors reported before any step executes.
var (
	ErrMissingSearchCredential = errors.New("missing retrieval service credential")
	ErrMissingModelCredential  = errors.New("missing model credential")
	ErrAlreadyRunning          = errors.New("a research run is already in progress")
)

// MaxSteps is the default step budget for one run.
const MaxSteps = 30

// previewLen bounds the report preview stored in a history record.
const previewLen = 200

// Phase is the controller's lifecycle state.
type Phase int

// Controller lifecycle phases.
const (
	PhaseIdle Phase = iota
	PhaseRunning
	PhaseFinished
	PhaseAborted
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRunning:
		return "running"
	case PhaseFinished:
		return "finished"
	case PhaseAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Searcher executes a search query and returns the observation text.
type Searcher interface {
	Execute(ctx context.Context, query string) string
}

// Visitor fetches a batch of resources and returns the combined observation.
type Visitor interface {
	Execute(ctx context.Context, targets []string) string
}

// Config carries the credentials and defaults a run is validated against.
// SearchAPIKey and ModelAPIKey are required; ScrapeAPIKey is optional and
// only enables the fallback fetcher.
type Config struct {
	SearchAPIKey string
	ModelAPIKey  string
	ScrapeAPIKey string
	DefaultTopic string
}

// ControllerOptions configures a Controller instance.
type ControllerOptions struct {
	MaxSteps    int
	RetryPolicy stream.Policy
	HistorySink history.Sink
	Logger      logging.Logger
}

// Controller runs the research loop. One Controller drives one run at a time;
// all run state flows through the StateManager so concurrent tool completions
// merge safely.
type Controller struct {
	config   Config
	model    model.Model
	searcher Searcher
	visitor  Visitor
	state    *core.StateManager
	visited  *core.VisitedSet
	caller   *stream.Caller
	sink     history.Sink
	logger   logging.Logger
	maxSteps int

	mu    sync.Mutex
	phase Phase
}

// NewController wires a controller around its collaborators.
func NewController(config Config, m model.Model, searcher Searcher, visitor Visitor, state *core.StateManager, optFns ...func(o *ControllerOptions)) *Controller {
	opts := ControllerOptions{
		MaxSteps:    MaxSteps,
		RetryPolicy: stream.DefaultPolicy(),
		Logger:      logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.MaxSteps <= 0 {
		opts.MaxSteps = MaxSteps
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.HistorySink == nil {
		opts.HistorySink = history.NewInMemorySink()
	}
	if config.DefaultTopic == "" {
		config.DefaultTopic = DefaultTopic
	}

	return &Controller{
		config:   config,
		model:    m,
		searcher: searcher,
		visitor:  visitor,
		state:    state,
		visited:  core.NewVisitedSet(),
		caller:   stream.NewCaller(m, opts.RetryPolicy, opts.Logger),
		sink:     opts.HistorySink,
		logger:   opts.Logger,
		maxSteps: opts.MaxSteps,
	}
}

// Phase returns the controller's current lifecycle phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Visited returns the identifiers consumed so far in the current run.
func (c *Controller) Visited() []string {
	return c.visited.List()
}

// Run executes one research run to a terminal state and returns the final
// run state. A blank topic falls back to the configured default topic.
// Missing credentials abort before any step executes.
func (c *Controller) Run(ctx context.Context, topic string) (core.ResearchRunState, error) {
	if strings.TrimSpace(topic) == "" {
		topic = c.config.DefaultTopic
	}

	if c.config.SearchAPIKey == "" {
		return core.ResearchRunState{}, ErrMissingSearchCredential
	}
	if c.config.ModelAPIKey == "" {
		return core.ResearchRunState{}, ErrMissingModelCredential
	}

	if err := c.enterRunning(); err != nil {
		return core.ResearchRunState{}, err
	}

	c.visited.Reset()
	c.state.Begin(topic)
	c.state.Commit(func(prev core.ResearchRunState) core.ResearchRunState {
		return core.AppendLog(prev, core.NewLogEntry(core.LogInfo, fmt.Sprintf("Starting research: %s", topic), ""))
	})
	c.logger.Info("run.start", "topic", topic, "max_steps", c.maxSteps)

	conversation := []core.Message{
		{Role: core.RoleSystem, Content: systemInstruction},
		{Role: core.RoleUser, Content: topicPrompt(topic)},
	}

	for step := 1; step <= c.maxSteps; step++ {
		raw, err := c.callModel(ctx, conversation, stepReminder(step, c.maxSteps, c.visited.List()), step)
		if err != nil {
			return c.abort(fmt.Errorf("model call failed at step %d: %w", step, err))
		}

		action, parseErr := core.ParseAction(raw)
		if parseErr != nil {
			c.logger.Warn("run.parse_failure", "step", step, "error", parseErr.Error())
			c.state.Commit(func(prev core.ResearchRunState) core.ResearchRunState {
				return core.AppendLog(prev, core.NewLogEntry(core.LogError, "Could not process the model response", parseErr.Error()))
			})
			conversation = append(conversation,
				core.Message{Role: core.RoleAssistant, Content: raw},
				core.Message{Role: core.RoleUser, Content: parseCorrective(parseErr)},
			)
			continue
		}

		switch action.Tool {
		case core.ToolFinish:
			return c.finish(topic, action.Input, false)

		case core.ToolSearch:
			observation := c.searcher.Execute(ctx, action.Input)
			conversation = append(conversation,
				core.Message{Role: core.RoleAssistant, Content: raw},
				core.Message{Role: core.RoleUser, Content: observation},
			)

		case core.ToolVisit:
			observation := c.dispatchVisit(ctx, action)
			conversation = append(conversation,
				core.Message{Role: core.RoleAssistant, Content: raw},
				core.Message{Role: core.RoleUser, Content: observation},
			)

		case core.ToolUnknown:
			c.logger.Warn("run.unknown_tool", "step", step, "tool", action.RawTool)
			c.state.Commit(func(prev core.ResearchRunState) core.ResearchRunState {
				return core.AppendLog(prev, core.NewLogEntry(core.LogError, fmt.Sprintf("Model requested unknown tool %q", action.RawTool), ""))
			})
			conversation = append(conversation,
				core.Message{Role: core.RoleAssistant, Content: raw},
				core.Message{Role: core.RoleUser, Content: unknownToolCorrective(action.RawTool)},
			)
		}
	}

	return c.forceFinish(ctx, conversation, topic)
}

// enterRunning performs the Idle/terminal -> Running transition.
func (c *Controller) enterRunning() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == PhaseRunning {
		return ErrAlreadyRunning
	}
	c.phase = PhaseRunning
	return nil
}

func (c *Controller) setPhase(p Phase) {
	c.mu.Lock()
	c.phase = p
	c.mu.Unlock()
}

// callModel issues one retried streaming call. The reminder turn is included
// in the request but never persisted in the conversation. Partial thoughts
// are surfaced into the run log under a per-step correlation id, so the
// evolving preview replaces itself instead of flooding the log.
func (c *Controller) callModel(ctx context.Context, conversation []core.Message, reminder string, step int) (string, error) {
	messages := make([]core.Message, 0, len(conversation)+1)
	messages = append(messages, conversation...)
	messages = append(messages, core.Message{Role: core.RoleUser, Content: reminder})

	correlationID := fmt.Sprintf("step-%d-thought", step)
	ex := &stream.Extractor{
		OnThought: func(thought string) {
			c.state.Commit(func(prev core.ResearchRunState) core.ResearchRunState {
				entry := core.NewLogEntry(core.LogInfo, fmt.Sprintf("Thinking (step %d)", step), thought)
				entry.CorrelationID = correlationID
				return core.AppendLog(prev, entry)
			})
		},
	}

	return c.caller.Call(ctx, model.Request{Messages: messages, JSONOnly: true}, ex)
}

// dispatchVisit partitions the requested identifiers against the visited
// ledger, marks the fresh ones consumed before any fetch launches, and runs
// the executor for the fresh subset only. Repeated identifiers produce a
// warning observation instead of a second fetch.
func (c *Controller) dispatchVisit(ctx context.Context, action core.Action) string {
	targets := action.Targets()
	if len(targets) == 0 {
		return "The visit tool requires at least one URL as tool_input."
	}

	fresh, repeated := c.visited.MarkAll(targets)

	var observation string
	if len(fresh) > 0 {
		observation = c.visitor.Execute(ctx, fresh)
	}
	if len(repeated) > 0 {
		warning := repeatWarning(repeated)
		c.state.Commit(func(prev core.ResearchRunState) core.ResearchRunState {
			return core.AppendLog(prev, core.NewLogEntry(core.LogInfo, "Skipped already visited URLs", warning))
		})
		if observation == "" {
			observation = warning
		} else {
			observation += "\n\n" + warning
		}
	}
	return observation
}

// forceFinish runs the single extra call allowed after the step budget is
// spent. If the response still is not a finish action, its raw text becomes
// the report verbatim.
func (c *Controller) forceFinish(ctx context.Context, conversation []core.Message, topic string) (core.ResearchRunState, error) {
	c.logger.Warn("run.budget_exhausted", "max_steps", c.maxSteps)
	c.state.Commit(func(prev core.ResearchRunState) core.ResearchRunState {
		return core.AppendLog(prev, core.NewLogEntry(core.LogInfo, "Step budget exhausted, forcing the final report", ""))
	})

	raw, err := c.callModel(ctx, conversation, forcedFinishPrompt, c.maxSteps+1)
	if err != nil {
		return c.abort(fmt.Errorf("forced finish call failed: %w", err))
	}

	report := raw
	if action, parseErr := core.ParseAction(raw); parseErr == nil && action.Tool == core.ToolFinish {
		report = action.Input
	}
	return c.finish(topic, report, true)
}

// finish applies the terminal transition, freezing the state, and emits the
// run's single history record.
func (c *Controller) finish(topic, report string, budgetExhausted bool) (core.ResearchRunState, error) {
	message := "Research finished"
	status := "finished"
	if budgetExhausted {
		message = "Research finished (step budget exhausted)"
		status = "budget-exhausted"
	}

	c.state.Commit(func(prev core.ResearchRunState) core.ResearchRunState {
		next := core.AppendLog(prev, core.NewLogEntry(core.LogSuccess, message, ""))
		next.Report = report
		next.IsRunning = false
		return next
	})
	c.setPhase(PhaseFinished)

	final := c.state.State()
	record := history.Record{
		ID:         core.NewID(),
		Module:     "research",
		Status:     status,
		Title:      topic,
		Preview:    truncate(report, previewLen),
		FullResult: report,
		Metadata: history.Metadata{
			Topic:       topic,
			LogCount:    len(final.Logs),
			SourceCount: len(final.Sources),
		},
	}
	if err := c.sink.Save(record); err != nil {
		c.logger.Error("run.history_save_failed", "error", err.Error())
	}

	c.logger.Info("run.finished", "status", status, "sources", len(final.Sources), "report_chars", len(report))
	return final, nil
}

// abort applies the terminal transition for a fatal error.
func (c *Controller) abort(err error) (core.ResearchRunState, error) {
	c.logger.Error("run.aborted", "error", err.Error())
	c.state.Commit(func(prev core.ResearchRunState) core.ResearchRunState {
		next := core.AppendLog(prev, core.NewLogEntry(core.LogError, "Research aborted", err.Error()))
		next.IsRunning = false
		return next
	})
	c.setPhase(PhaseAborted)
	return c.state.State(), err
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
