// Package model defines the streaming text source abstraction consumed by
// the research loop, plus the normalized error type used by the retry policy
// to classify transient failures. Concrete adapters live in the openai and
// anthropic subpackages.
package model
