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

const defaultSerperEndpoint = "https://google.serper.dev/search"

// Serper calls the Serper web search API. An API key is required via the
// X-API-KEY header.
type Serper struct {
	APIKey string
	// Locale is sent as the hl parameter; defaults to "en".
	Locale   string
	endpoint string
	client   *http.Client
}

// NewSerper constructs a Serper search provider.
func NewSerper(apiKey string) *Serper {
	return &Serper{
		APIKey:   apiKey,
		Locale:   "en",
		endpoint: defaultSerperEndpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// NewSerperWithClient constructs a Serper search provider using the supplied
// HTTP client and endpoint. Useful for overriding timeouts and for tests.
func NewSerperWithClient(apiKey, endpoint string, client *http.Client) *Serper {
	if endpoint == "" {
		endpoint = defaultSerperEndpoint
	}
	return &Serper{APIKey: apiKey, Locale: "en", endpoint: endpoint, client: client}
}

// Search posts a query to Serper and returns up to count organic results.
func (s *Serper) Search(ctx context.Context, query string, count int) ([]Result, error) {
	if strings.TrimSpace(s.APIKey) == "" {
		return nil, errors.New("serper: API key is missing")
	}
	if count <= 0 {
		count = 5
	}

	payload, err := json.Marshal(map[string]any{
		"q":   query,
		"num": count,
		"hl":  s.Locale,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", s.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serper http %d", resp.StatusCode)
	}

	var response struct {
		Organic []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"organic"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(response.Organic))
	for _, r := range response.Organic {
		results = append(results, Result{Title: r.Title, Link: r.Link, Snippet: r.Snippet})
		if len(results) >= count {
			break
		}
	}
	return results, nil
}
