package sequence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/auditflow/browser"
)

// StepError identifies which required step failed for an item.
type StepError struct {
	Step string
	Err  error
}

// Error implements the error interface.
func (e *StepError) Error() string {
	return fmt.Sprintf("step %s: %v", e.Step, e.Err)
}

// Unwrap returns the underlying cause.
func (e *StepError) Unwrap() error {
	return e.Err
}

// Runner drives single items through a plan on a shared browser session.
// It is not safe for concurrent use: the session admits one item at a time.
type Runner struct {
	driver browser.Driver
	plan   Plan
	logger *zap.Logger
}

// NewRunner creates a sequencer over the given session and plan.
func NewRunner(driver browser.Driver, plan Plan, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		driver: driver,
		plan:   plan,
		logger: logger.With(zap.String("component", "sequencer")),
	}
}

// Process drives one item through the plan and returns the resulting report
// URL. A required step that fails returns a *StepError and leaves the rest
// of the plan unexecuted; the caller decides what that means for the batch.
func (r *Runner) Process(ctx context.Context, itemURL string) (string, error) {
	for _, step := range r.plan.Steps {
		if step.Settle > 0 {
			select {
			case <-time.After(step.Settle):
			case <-ctx.Done():
				return "", &StepError{Step: step.Name, Err: ctx.Err()}
			}
		}

		if err := r.apply(ctx, step, itemURL); err != nil {
			if step.Optional {
				// Expected branch: the popup is not always shown.
				r.logger.Info("optional step skipped",
					zap.String("step", step.Name),
					zap.String("url", itemURL))
				continue
			}
			r.logger.Error("step failed",
				zap.String("step", step.Name),
				zap.String("url", itemURL),
				zap.Error(err))
			return "", &StepError{Step: step.Name, Err: err}
		}

		r.logger.Info("step completed",
			zap.String("step", step.Name),
			zap.String("url", itemURL))
	}

	location, err := r.driver.Location(ctx)
	if err != nil {
		return "", &StepError{Step: "read_location", Err: err}
	}

	r.logger.Info("report url captured",
		zap.String("url", itemURL),
		zap.String("report_url", location))
	return location, nil
}

func (r *Runner) apply(ctx context.Context, step Step, itemURL string) error {
	value := strings.ReplaceAll(step.Value, ItemURLToken, itemURL)

	switch step.Action {
	case ActionNavigate:
		return r.driver.Navigate(ctx, value)
	case ActionFill:
		return r.driver.Fill(ctx, step.Selector, step.By, value, step.Timeout)
	case ActionClick:
		return r.driver.Click(ctx, step.Selector, step.By, step.Timeout)
	default:
		return fmt.Errorf("unknown action %q", step.Action)
	}
}
