package summarizer

import (
	"context"
	"errors"
)

// ErrExhausted reports that every candidate model was unavailable.
var ErrExhausted = errors.New("no summarization model available")

// Summarizer produces a short natural-language summary for the given
// content under the given persona. An empty result with a nil error
// never occurs; failures are reported as errors and the caller leaves
// the summary unset.
type Summarizer interface {
	Summarize(ctx context.Context, persona, content string) (string, error)
}
