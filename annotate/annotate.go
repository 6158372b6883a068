// Package annotate provides the optional advisory URL annotator. Insight is
// a best-effort side channel: the batch never waits on it failing and never
// fails because of it.
package annotate

import "context"

// NoInsight is the sentinel substituted whenever analysis is unavailable,
// unconfigured, or fails.
const NoInsight = "No AI insights available"

// Annotator produces free-text insight about an input URL.
type Annotator interface {
	Analyze(ctx context.Context, url string) (string, error)
}

// Noop is the Annotator used when no credential is configured. It always
// returns the NoInsight sentinel and never errors.
type Noop struct{}

// Analyze implements Annotator.
func (Noop) Analyze(ctx context.Context, url string) (string, error) {
	return NoInsight, nil
}
