package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultReaderEndpoint = "https://r.jina.ai/"

// Reader fetches the readable text content of a page through a reader proxy
// that converts pages to plain text / markdown. It is the fast primary fetch
// with a short timeout.
type Reader struct {
	endpoint string
	client   *http.Client
}

// NewReader creates a reader client with the default endpoint and a 10s timeout.
func NewReader() *Reader {
	return &Reader{
		endpoint: defaultReaderEndpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// NewReaderWithClient creates a reader client with a custom endpoint and HTTP
// client. Useful for overriding the timeout and for tests.
func NewReaderWithClient(endpoint string, client *http.Client) *Reader {
	if endpoint == "" {
		endpoint = defaultReaderEndpoint
	}
	if !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}
	return &Reader{endpoint: endpoint, client: client}
}

// Fetch retrieves the readable content for target. HTML payloads slipping
// through the proxy are stripped to plain text.
func (r *Reader) Fetch(ctx context.Context, target string) (string, error) {
	trimmed := strings.TrimSpace(target)
	if trimmed == "" {
		return "", errors.New("fetch url is empty")
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return "", fmt.Errorf("invalid url %q: %w", target, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint+trimmed, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("reader http %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	text := string(body)
	if looksLikeHTML(text) {
		text = HTMLToText(text)
	}
	return strings.TrimSpace(text), nil
}

// looksLikeHTML is a cheap sniff for markup payloads.
func looksLikeHTML(s string) bool {
	head := strings.ToLower(strings.TrimSpace(s))
	if len(head) > 256 {
		head = head[:256]
	}
	return strings.Contains(head, "<!doctype html") || strings.Contains(head, "<html")
}
