package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/hupe1980/deepresearch"
	"github.com/hupe1980/deepresearch/core"
	"github.com/hupe1980/deepresearch/logging"
)

var (
	topic        string
	modelName    string
	modelBaseURL string
	maxSteps     int
	verbose      bool
	showSources  bool
)

func main() {
	// Load .env file; it's okay if it doesn't exist as long as env vars are set
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "deepresearch",
		Short: "A terminal-based deep research agent",
		Long: `deepresearch is an autonomous agent that researches a topic by iterating
through search, page visits and model reasoning until it produces a final report.

Required environment variables:
  SERPER_API_KEY     retrieval service credential
  MODEL_API_KEY      model credential (OpenAI-compatible)
Optional:
  FIRECRAWL_API_KEY  enables the fallback page scraper
  MODEL_BASE_URL     OpenAI-compatible endpoint override`,
		RunE: runResearch,
	}

	rootCmd.Flags().StringVarP(&topic, "topic", "t", "", "The research topic")
	rootCmd.Flags().StringVarP(&modelName, "model", "m", "", "Model name override")
	rootCmd.Flags().StringVar(&modelBaseURL, "base-url", "", "OpenAI-compatible endpoint override")
	rootCmd.Flags().IntVar(&maxSteps, "max-steps", 0, "Step budget override")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.Flags().BoolVar(&showSources, "sources", true, "Print the source list after the report")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runResearch(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := logging.NewJSONLogger(os.Stderr, level)

	config := deepresearch.Config{
		SearchAPIKey: os.Getenv("SERPER_API_KEY"),
		ModelAPIKey:  os.Getenv("MODEL_API_KEY"),
		ScrapeAPIKey: os.Getenv("FIRECRAWL_API_KEY"),
	}
	if modelBaseURL == "" {
		modelBaseURL = os.Getenv("MODEL_BASE_URL")
	}

	dr := deepresearch.New(config, func(o *deepresearch.Options) {
		o.Logger = logger
		o.ModelName = modelName
		o.ModelBaseURL = modelBaseURL
		if maxSteps > 0 {
			o.MaxSteps = maxSteps
		}
		o.Observer = printProgress(os.Stderr)
	})

	state, err := dr.Run(context.Background(), strings.TrimSpace(topic))
	if err != nil {
		logger.Error("research failed", "error", err.Error())
		return err
	}

	fmt.Println(state.Report)
	if showSources && len(state.Sources) > 0 {
		fmt.Printf("\n%d sources consulted:\n", len(state.Sources))
		for _, src := range state.Sources {
			fmt.Printf("- %s (%s)\n", src.Title, src.Link)
		}
	}
	return nil
}

// printProgress streams the latest log entry to w as the run evolves.
// Commits from concurrent fetches may notify in parallel, hence the mutex.
func printProgress(w *os.File) core.Observer {
	var mu sync.Mutex
	var lastPrinted string
	return func(state core.ResearchRunState) {
		mu.Lock()
		defer mu.Unlock()
		if len(state.Logs) == 0 {
			return
		}
		entry := state.Logs[len(state.Logs)-1]
		line := fmt.Sprintf("[%s] %s", entry.Level, entry.Message)
		if line == lastPrinted {
			return
		}
		lastPrinted = line
		fmt.Fprintln(w, line)
	}
}
