// Package batch owns the browser session lifecycle and drives the step
// sequencer across an ordered list of input URLs, one item at a time.
package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/auditflow/annotate"
	"github.com/BaSui01/auditflow/browser"
	"github.com/BaSui01/auditflow/internal/metrics"
	"github.com/BaSui01/auditflow/sequence"
)

// SessionFactory opens the browser session a run will own. It is called
// exactly once per run.
type SessionFactory func(ctx context.Context) (browser.Driver, error)

// Runner processes a batch of input URLs sequentially over one browser
// session. Items never run concurrently: they share the session.
type Runner struct {
	spec      sequence.FormSpec
	itemDelay time.Duration
	sessions  SessionFactory
	annotator annotate.Annotator
	metrics   *metrics.Collector
	logger    *zap.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithAnnotator sets the advisory annotator. Defaults to annotate.Noop.
func WithAnnotator(a annotate.Annotator) Option {
	return func(r *Runner) {
		if a != nil {
			r.annotator = a
		}
	}
}

// WithMetrics sets the metrics collector. Defaults to none.
func WithMetrics(c *metrics.Collector) Option {
	return func(r *Runner) { r.metrics = c }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRunner creates a batch runner. itemDelay is the fixed pause between
// consecutive items, a pacing knob for the remote site.
func NewRunner(spec sequence.FormSpec, itemDelay time.Duration, sessions SessionFactory, opts ...Option) *Runner {
	r := &Runner{
		spec:      spec,
		itemDelay: itemDelay,
		sessions:  sessions,
		annotator: annotate.Noop{},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run processes inputs in order and returns one outcome per input, aligned
// with the input sequence. Per-item failures are contained at the item
// boundary; only session acquisition failure is batch-fatal. The session is
// released exactly once on every exit path.
func (r *Runner) Run(ctx context.Context, inputs []string) (*Report, error) {
	runID := uuid.NewString()
	logger := r.logger.With(zap.String("run_id", runID))

	driver, err := r.sessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire browser session: %w", err)
	}
	defer func() {
		if cerr := driver.Close(); cerr != nil {
			logger.Warn("closing browser session", zap.Error(cerr))
		}
	}()

	logger.Info("batch started", zap.Int("inputs", len(inputs)))

	seq := sequence.NewRunner(driver, sequence.BuildPlan(r.spec), logger)
	limiter := r.newLimiter()

	report := &Report{RunID: runID, Outcomes: make([]Outcome, 0, len(inputs))}
	for _, input := range inputs {
		if err := limiter.Wait(ctx); err != nil {
			return report, fmt.Errorf("batch aborted: %w", err)
		}

		insight := r.annotateInput(ctx, logger, input)
		logger.Info("url insight", zap.String("url", input), zap.String("insight", insight))

		report.Outcomes = append(report.Outcomes, r.processItem(ctx, logger, seq, input))
	}

	summary := report.Summary()
	logger.Info("batch finished",
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed))
	return report, nil
}

// processItem runs one item through the sequencer. Anything that escapes the
// sequence, including a panic, becomes a failed outcome; the batch goes on.
func (r *Runner) processItem(ctx context.Context, logger *zap.Logger, seq *sequence.Runner, input string) (out Outcome) {
	out = Outcome{Input: input}
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			out.ReportURL = ""
			logger.Error("unexpected error processing item",
				zap.String("url", input),
				zap.Any("panic", p))
		}
		r.metrics.ObserveItem(out.Succeeded(), time.Since(start))
	}()

	reportURL, err := seq.Process(ctx, input)
	if err != nil {
		var stepErr *sequence.StepError
		if errors.As(err, &stepErr) {
			r.metrics.ObserveStepFailure(stepErr.Step)
		}
		logger.Warn("item failed", zap.String("url", input), zap.Error(err))
		return out
	}

	out.ReportURL = reportURL
	return out
}

// annotateInput is the best-effort advisory call. Any error yields the
// sentinel; it never surfaces as an item failure.
func (r *Runner) annotateInput(ctx context.Context, logger *zap.Logger, input string) string {
	insight, err := r.annotator.Analyze(ctx, input)
	if err != nil {
		r.metrics.ObserveAnnotatorFailure()
		logger.Warn("url analysis failed", zap.String("url", input), zap.Error(err))
		return annotate.NoInsight
	}
	if insight == "" {
		return annotate.NoInsight
	}
	return insight
}

// newLimiter paces items at one per itemDelay. The limiter starts with a
// full token, so the first item is never delayed.
func (r *Runner) newLimiter() *rate.Limiter {
	if r.itemDelay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(r.itemDelay), 1)
}
