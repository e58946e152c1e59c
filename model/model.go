package model

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/hupe1980/deepresearch/core"
)

// Request captures the normalized model input for one streaming call.
type Request struct {
	// Messages is the full conversation history for this call.
	Messages []core.Message `json:"messages"`
	// JSONOnly hints the service to respond with a single JSON object
	// (structured output). Adapters translate it to the provider's native
	// response-format knob where one exists.
	JSONOnly bool `json:"json_only,omitempty"`
}

// Chunk is one text fragment of an in-progress streaming response.
type Chunk struct {
	Text string `json:"text"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", etc.
}

// Model is the streaming text source: given a message history it produces a
// lazy sequence of text fragments. End of stream is signaled by closing the
// chunk channel; terminal failures arrive on the error channel (buffered,
// size 1) carrying a status-like signature usable by the retry predicate.
type Model interface {
	Stream(ctx context.Context, req Request) (<-chan Chunk, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// Error normalizes provider failures so the retry policy can classify them
// without importing vendor SDKs. StatusCode is 0 when the failure never
// reached an HTTP response (pure transport error).
type Error struct {
	Provider   string
	StatusCode int
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s model error (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s model error: %v", e.Provider, e.Err)
}

// Unwrap exposes the underlying provider error.
func (e *Error) Unwrap() error { return e.Err }

// IsTransient reports whether err carries a transient signature: a
// rate-limiting status, a server error status, or a low-level transport
// failure. Context cancellation is never transient.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var me *Error
	if errors.As(err, &me) {
		return me.StatusCode == 0 || me.StatusCode == 429 || me.StatusCode >= 500
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
