// Package fetch contains the page-content clients used by the visit tool: a
// primary Reader that returns readable plain text quickly, and a fallback
// Scraper behind an API key with a longer timeout. Both are bounded by
// per-call timeouts; deciding which to use (and what a failure means) is the
// visit tool's job.
package fetch
