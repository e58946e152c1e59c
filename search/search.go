package search

import "context"

// Result is a single item returned by a Provider.
type Result struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// Provider executes a query and returns at most count ordered results.
type Provider interface {
	Search(ctx context.Context, query string, count int) ([]Result, error)
}
