package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultTavilyEndpoint = "https://api.tavily.com/search"

// Tavily calls the Tavily search API as an alternative provider.
type Tavily struct {
	APIKey string
	// Depth controls Tavily's depth parameter (basic or advanced).
	Depth    string
	endpoint string
	client   *http.Client
}

// NewTavily constructs a Tavily search provider.
func NewTavily(apiKey string) *Tavily {
	return &Tavily{
		APIKey:   apiKey,
		Depth:    "basic",
		endpoint: defaultTavilyEndpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// NewTavilyWithClient constructs a Tavily search provider using the supplied
// HTTP client and endpoint. Useful for overriding timeouts and for tests.
func NewTavilyWithClient(apiKey, endpoint string, client *http.Client) *Tavily {
	if endpoint == "" {
		endpoint = defaultTavilyEndpoint
	}
	return &Tavily{APIKey: apiKey, Depth: "basic", endpoint: endpoint, client: client}
}

// Search posts a query to Tavily. A 429 is retried with doubling delay, up to
// 30s per wait, matching Tavily's rate-limit guidance.
func (t *Tavily) Search(ctx context.Context, query string, count int) ([]Result, error) {
	if strings.TrimSpace(t.APIKey) == "" {
		return nil, errors.New("tavily: API key is missing")
	}
	if count <= 0 {
		count = 5
	}

	payload, err := json.Marshal(map[string]any{
		"query":       query,
		"api_key":     t.APIKey,
		"depth":       t.Depth,
		"max_results": count,
	})
	if err != nil {
		return nil, err
	}

	var resp *http.Response
	delay := 1 * time.Second
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err = t.client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusTooManyRequests {
			break
		}
		resp.Body.Close()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		if delay < 30*time.Second {
			delay *= 2
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily http %d", resp.StatusCode)
	}

	var response struct {
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Content string `json:"content"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(response.Results))
	for _, r := range response.Results {
		results = append(results, Result{Title: r.Title, Link: r.URL, Snippet: r.Content})
		if len(results) >= count {
			break
		}
	}
	return results, nil
}
