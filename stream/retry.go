package stream

import (
	"context"
	"strings"
	"time"

	"github.com/hupe1980/deepresearch/logging"
	"github.com/hupe1980/deepresearch/model"
)

// Policy is a bounded retry policy value: maximum attempts, a fixed
// inter-retry delay, and the predicate deciding whether a failure is worth
// another attempt. It is independent of the underlying streaming transport.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	Retryable   func(error) bool
}

// DefaultPolicy retries transient failures up to 3 attempts with a fixed 5s
// delay between them.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, Delay: 5 * time.Second, Retryable: model.IsTransient}
}

// Caller wraps one streaming model call with the retry policy. Each attempt
// starts a fresh stream from the same message history (no resumption),
// accumulates all fragments into the full response text while forwarding each
// fragment to the extractor, and returns the full text on stream completion.
// Partial output from a failed attempt is discarded.
type Caller struct {
	model  model.Model
	policy Policy
	logger logging.Logger
}

// NewCaller constructs a retrying caller around a model.
func NewCaller(m model.Model, policy Policy, logger logging.Logger) *Caller {
	if policy.MaxAttempts <= 0 {
		policy = DefaultPolicy()
	}
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Caller{model: m, policy: policy, logger: logger}
}

// Call executes the model call under the retry policy. A failure is retried
// only if it is not the final allowed attempt AND the policy predicate deems
// it transient; anything else is returned to the caller, which treats it as
// an aborting condition for the run.
func (c *Caller) Call(ctx context.Context, req model.Request, ex *Extractor) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		if ex != nil {
			ex.Reset()
		}

		text, err := c.attempt(ctx, req, ex)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if attempt == c.policy.MaxAttempts || c.policy.Retryable == nil || !c.policy.Retryable(err) {
			break
		}

		c.logger.Warn("model.call.retrying",
			"attempt", attempt,
			"max_attempts", c.policy.MaxAttempts,
			"delay", c.policy.Delay.String(),
			"error", err.Error(),
		)

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.policy.Delay):
		}
	}
	return "", lastErr
}

// attempt drains one fresh stream to completion.
func (c *Caller) attempt(ctx context.Context, req model.Request, ex *Extractor) (string, error) {
	chunks, errs := c.model.Stream(ctx, req)

	var sb strings.Builder
	for chunk := range chunks {
		sb.WriteString(chunk.Text)
		if ex != nil {
			ex.Feed(chunk.Text)
		}
	}
	if err := <-errs; err != nil {
		return "", err
	}
	return sb.String(), nil
}
