package fetch

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

const defaultScrapeEndpoint = "https://api.firecrawl.dev/v1/scrape"

// Scraper is the fallback page-content client: a scraping service that
// renders pages the reader cannot handle. It requires an API key and runs
// with a longer timeout than the Reader.
type Scraper struct {
	APIKey   string
	endpoint string
	client   *http.Client
}

// NewScraper creates a scraper client with the default endpoint and a 15s timeout.
func NewScraper(apiKey string) *Scraper {
	return &Scraper{
		APIKey:   apiKey,
		endpoint: defaultScrapeEndpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

// NewScraperWithClient creates a scraper client with a custom endpoint and
// HTTP client. Useful for overriding the timeout and for tests.
func NewScraperWithClient(apiKey, endpoint string, client *http.Client) *Scraper {
	if endpoint == "" {
		endpoint = defaultScrapeEndpoint
	}
	return &Scraper{APIKey: apiKey, endpoint: endpoint, client: client}
}

// Configured reports whether a fallback credential is present. The visit tool
// skips the fallback entirely when it is not.
func (s *Scraper) Configured() bool {
	return s != nil && strings.TrimSpace(s.APIKey) != ""
}

// Fetch posts the target URL to the scraping service and extracts the text
// payload. The service answers either a flat {"text": ...} object or a nested
// {"data": {...}} map carrying markdown/text/content.
func (s *Scraper) Fetch(ctx context.Context, target string) (string, error) {
	if !s.Configured() {
		return "", errors.New("scrape API key is missing")
	}

	payload, err := json.Marshal(map[string]any{
		"url":     strings.TrimSpace(target),
		"formats": []string{"markdown"},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("scrape http %d", resp.StatusCode)
	}

	var body struct {
		Text string          `json:"text"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}

	if text := strings.TrimSpace(body.Text); text != "" {
		return text, nil
	}

	if len(body.Data) > 0 {
		var data map[string]any
		if err := json.Unmarshal(body.Data, &data); err == nil {
			for _, key := range []string{"markdown", "text", "content"} {
				if v, ok := data[key].(string); ok && strings.TrimSpace(v) != "" {
					return strings.TrimSpace(v), nil
				}
			}
		}
	}

	return "", errors.New("scrape response carried no text")
}
