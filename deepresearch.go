// Package deepresearch provides a high-level façade over the research agent
// core: the loop controller, the streaming model adapters, the search and
// visit executors and the shared run state. Most applications interact with
// this package by:
//  1. Creating a DeepResearch via New() with their credentials
//  2. Optionally registering a run state observer for live progress
//  3. Calling Run() with a topic and consuming the final state
//
// Defaults wire an OpenAI-compatible streaming model, the Serper retrieval
// service, the reader/scraper fetch chain and an in-memory history sink.
// Every collaborator can be overridden through functional options, which is
// also how tests substitute fakes.
package deepresearch

import (
	"context"

	"github.com/hupe1980/deepresearch/agent"
	"github.com/hupe1980/deepresearch/core"
	"github.com/hupe1980/deepresearch/fetch"
	"github.com/hupe1980/deepresearch/history"
	"github.com/hupe1980/deepresearch/logging"
	"github.com/hupe1980/deepresearch/model"
	"github.com/hupe1980/deepresearch/model/openai"
	"github.com/hupe1980/deepresearch/search"
	"github.com/hupe1980/deepresearch/stream"
	"github.com/hupe1980/deepresearch/tool"
)

// Config carries the run credentials. SearchAPIKey and ModelAPIKey are
// required; ScrapeAPIKey enables the fallback page fetcher when present.
type Config = agent.Config

// Options configures the DeepResearch instance.
type Options struct {
	// Model overrides the default OpenAI-compatible streaming model.
	Model model.Model

	// ModelName and ModelBaseURL tune the default model when Model is nil.
	ModelName    string
	ModelBaseURL string

	// SearchProvider overrides the default Serper client.
	SearchProvider search.Provider

	// HistorySink receives one record per completed run (defaults to in-memory).
	HistorySink history.Sink

	// Observer receives the evolving run state after every transition.
	Observer core.Observer

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger

	// MaxSteps bounds the run (defaults to agent.MaxSteps).
	MaxSteps int

	// RetryPolicy governs model call retries (defaults to stream.DefaultPolicy).
	RetryPolicy stream.Policy
}

// DeepResearch is the high-level façade aggregating the controller and its
// collaborators.
type DeepResearch struct {
	state      *core.StateManager
	controller *agent.Controller
	sink       history.Sink
}

// New creates a DeepResearch instance with optional overrides. Any unset
// collaborator is initialized with its default implementation.
func New(config Config, optFns ...func(o *Options)) *DeepResearch {
	opts := Options{
		Logger:      logging.NoOpLogger{},
		MaxSteps:    agent.MaxSteps,
		RetryPolicy: stream.DefaultPolicy(),
		HistorySink: history.NewInMemorySink(),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Model == nil {
		opts.Model = openai.NewModel(func(o *openai.Options) {
			o.APIKey = config.ModelAPIKey
			if opts.ModelName != "" {
				o.Model = opts.ModelName
			}
			if opts.ModelBaseURL != "" {
				o.BaseURL = opts.ModelBaseURL
			}
		})
	}
	if opts.SearchProvider == nil {
		opts.SearchProvider = search.NewSerper(config.SearchAPIKey)
	}

	state := core.NewStateManager()
	if opts.Observer != nil {
		state.SetObserver(opts.Observer)
	}

	searchTool := tool.NewSearchTool(opts.SearchProvider, state, func(o *tool.SearchToolOptions) {
		o.Logger = opts.Logger
	})

	var fallback tool.Fetcher
	if scraper := fetch.NewScraper(config.ScrapeAPIKey); scraper.Configured() {
		fallback = scraper
	}
	visitTool := tool.NewVisitTool(fetch.NewReader(), fallback, state, func(o *tool.VisitToolOptions) {
		o.Logger = opts.Logger
	})

	controller := agent.NewController(config, opts.Model, searchTool, visitTool, state, func(o *agent.ControllerOptions) {
		o.MaxSteps = opts.MaxSteps
		o.RetryPolicy = opts.RetryPolicy
		o.HistorySink = opts.HistorySink
		o.Logger = opts.Logger
	})

	return &DeepResearch{state: state, controller: controller, sink: opts.HistorySink}
}

// Run executes one research run to completion and returns the final state.
func (d *DeepResearch) Run(ctx context.Context, topic string) (core.ResearchRunState, error) {
	return d.controller.Run(ctx, topic)
}

// State returns a snapshot of the current run state.
func (d *DeepResearch) State() core.ResearchRunState {
	return d.state.State()
}

// Phase returns the controller's lifecycle phase.
func (d *DeepResearch) Phase() agent.Phase {
	return d.controller.Phase()
}

// History lists the completion records saved so far.
func (d *DeepResearch) History() ([]history.Record, error) {
	return d.sink.List()
}
