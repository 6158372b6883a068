package sequence

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/auditflow/browser"
)

// fakeDriver is a scripted in-memory Driver. Zero value succeeds at
// everything and reports location "".
type fakeDriver struct {
	calls []string

	navigateErr error
	fillErr     map[string]error
	clickErr    map[string]error
	location    string
	locationErr error
}

func (d *fakeDriver) Navigate(ctx context.Context, url string) error {
	d.calls = append(d.calls, "navigate:"+url)
	return d.navigateErr
}

func (d *fakeDriver) Fill(ctx context.Context, sel string, by browser.By, value string, timeout time.Duration) error {
	d.calls = append(d.calls, fmt.Sprintf("fill:%s=%s", sel, value))
	return d.fillErr[sel]
}

func (d *fakeDriver) Click(ctx context.Context, sel string, by browser.By, timeout time.Duration) error {
	d.calls = append(d.calls, "click:"+sel)
	return d.clickErr[sel]
}

func (d *fakeDriver) Location(ctx context.Context) (string, error) {
	d.calls = append(d.calls, "location")
	return d.location, d.locationErr
}

func (d *fakeDriver) Close() error { return nil }

// testSpec mirrors the default form with settle delays removed so tests run
// fast.
func testSpec() FormSpec {
	return FormSpec{
		TargetURL:    "https://neosemo.ai/",
		Identity:     "JOSH@PROJECTXLABS.AI",
		URLInput:     "input[type='text']",
		SubmitButton: "button[type='submit']",
		EmailInput:   "input#email",
		FinalSubmit:  "//button[text()='Submit']",
		PopupDismiss: "//*[@id='cta_178493']/div/div[2]",
		StepTimeout:  10 * time.Millisecond,
		PopupTimeout: 5 * time.Millisecond,
	}
}

func TestProcessSuccess(t *testing.T) {
	driver := &fakeDriver{location: "http://neosemo.ai/report/abc"}
	runner := NewRunner(driver, BuildPlan(testSpec()), zap.NewNop())

	reportURL, err := runner.Process(context.Background(), "http://a.example")
	require.NoError(t, err)
	assert.Equal(t, "http://neosemo.ai/report/abc", reportURL)

	// The full plan ran in order with the item URL and identity in place.
	assert.Equal(t, []string{
		"navigate:https://neosemo.ai/",
		"fill:input[type='text']=http://a.example",
		"click:button[type='submit']",
		"fill:input#email=JOSH@PROJECTXLABS.AI",
		"click://button[text()='Submit']",
		"click://*[@id='cta_178493']/div/div[2]",
		"location",
	}, driver.calls)
}

func TestProcessRequiredStepFailure(t *testing.T) {
	spec := testSpec()
	boom := errors.New("element not found")

	tests := []struct {
		name string
		prep func(*fakeDriver)
		step string
	}{
		{
			name: "enter_url",
			prep: func(d *fakeDriver) { d.fillErr = map[string]error{spec.URLInput: boom} },
			step: "enter_url",
		},
		{
			name: "submit_url",
			prep: func(d *fakeDriver) { d.clickErr = map[string]error{spec.SubmitButton: boom} },
			step: "submit_url",
		},
		{
			name: "enter_email",
			prep: func(d *fakeDriver) { d.fillErr = map[string]error{spec.EmailInput: boom} },
			step: "enter_email",
		},
		{
			name: "final_submit",
			prep: func(d *fakeDriver) { d.clickErr = map[string]error{spec.FinalSubmit: boom} },
			step: "final_submit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			driver := &fakeDriver{location: "http://neosemo.ai/report/abc"}
			tt.prep(driver)
			runner := NewRunner(driver, BuildPlan(spec), zap.NewNop())

			reportURL, err := runner.Process(context.Background(), "http://b.example")
			assert.Empty(t, reportURL)

			var stepErr *StepError
			require.ErrorAs(t, err, &stepErr)
			assert.Equal(t, tt.step, stepErr.Step)
			assert.ErrorIs(t, err, boom)

			// The failing step short-circuits the rest of the plan.
			assert.NotContains(t, driver.calls, "location")
		})
	}
}

func TestPopupAbsenceIsNotFailure(t *testing.T) {
	spec := testSpec()
	driver := &fakeDriver{
		location: "http://neosemo.ai/report/xyz",
		clickErr: map[string]error{spec.PopupDismiss: errors.New("timeout waiting for element")},
	}
	runner := NewRunner(driver, BuildPlan(spec), zap.NewNop())

	reportURL, err := runner.Process(context.Background(), "http://a.example")
	require.NoError(t, err)
	assert.Equal(t, "http://neosemo.ai/report/xyz", reportURL)
}

func TestNavigateFailure(t *testing.T) {
	driver := &fakeDriver{navigateErr: errors.New("net::ERR_NAME_NOT_RESOLVED")}
	runner := NewRunner(driver, BuildPlan(testSpec()), zap.NewNop())

	_, err := runner.Process(context.Background(), "http://a.example")
	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "navigate", stepErr.Step)
}

func TestLocationFailure(t *testing.T) {
	driver := &fakeDriver{locationErr: errors.New("target closed")}
	runner := NewRunner(driver, BuildPlan(testSpec()), zap.NewNop())

	_, err := runner.Process(context.Background(), "http://a.example")
	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "read_location", stepErr.Step)
}

func TestUnknownAction(t *testing.T) {
	plan := Plan{Steps: []Step{{Name: "bogus", Action: Action("hover")}}}
	runner := NewRunner(&fakeDriver{}, plan, zap.NewNop())

	_, err := runner.Process(context.Background(), "http://a.example")
	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "bogus", stepErr.Step)
}

func TestSettleRespectsContext(t *testing.T) {
	plan := Plan{Steps: []Step{{
		Name:   "slow",
		Action: ActionNavigate,
		Value:  "https://neosemo.ai/",
		Settle: time.Minute,
	}}}
	runner := NewRunner(&fakeDriver{}, plan, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.Process(ctx, "http://a.example")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildPlanMarksOnlyPopupOptional(t *testing.T) {
	plan := BuildPlan(testSpec())
	require.Len(t, plan.Steps, 6)
	for _, step := range plan.Steps[:5] {
		assert.False(t, step.Optional, "step %s must be required", step.Name)
	}
	assert.True(t, plan.Steps[5].Optional)
	assert.Equal(t, "dismiss_popup", plan.Steps[5].Name)
}

func TestBuildPlanSettles(t *testing.T) {
	spec := testSpec()
	spec.NavSettle = 2 * time.Second
	spec.PopupSettle = 5 * time.Second
	plan := BuildPlan(spec)

	settles := map[string]time.Duration{}
	for _, step := range plan.Steps {
		settles[step.Name] = step.Settle
	}

	// The page gets time to render after navigation, and the popup gets
	// time to appear; no other step pauses.
	assert.Equal(t, 2*time.Second, settles["enter_url"])
	assert.Equal(t, 5*time.Second, settles["dismiss_popup"])
	assert.Zero(t, settles["navigate"])
	assert.Zero(t, settles["submit_url"])
	assert.Zero(t, settles["enter_email"])
	assert.Zero(t, settles["final_submit"])
}

func TestStepErrorUnwrap(t *testing.T) {
	cause := errors.New("cause")
	err := &StepError{Step: "enter_url", Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "enter_url")
}
