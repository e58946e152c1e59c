// Package stream contains the streaming side of the research loop: the
// incremental response parser, which extracts advisory previews from an
// in-progress (possibly truncated mid-string) structured response, and the
// retrying caller, which wraps one streaming model call in a bounded retry
// policy while forwarding fragments to the parser.
package stream
