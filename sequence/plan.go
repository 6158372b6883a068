// Package sequence executes a fixed, data-driven plan of form interactions
// against a live browser session, one item at a time.
package sequence

import (
	"time"

	"github.com/BaSui01/auditflow/browser"
)

// Action is the kind of interaction a step performs.
type Action string

const (
	ActionNavigate Action = "navigate"
	ActionFill     Action = "fill"
	ActionClick    Action = "click"
)

// ItemURLToken in a step value expands to the URL of the item being processed.
const ItemURLToken = "{url}"

// Step is one locate-and-act unit in a plan. A required step that fails
// aborts the rest of the plan for the current item; an optional step that
// fails is skipped.
type Step struct {
	Name     string        `yaml:"name"`
	Action   Action        `yaml:"action"`
	Selector string        `yaml:"selector,omitempty"`
	By       browser.By    `yaml:"by,omitempty"`
	Value    string        `yaml:"value,omitempty"`
	Timeout  time.Duration `yaml:"timeout,omitempty"`
	Optional bool          `yaml:"optional,omitempty"`
	// Settle is an unconditional pause before the step is attempted.
	Settle time.Duration `yaml:"settle,omitempty"`
}

// Plan is the ordered list of steps an item is driven through.
type Plan struct {
	Steps []Step
}

// FormSpec describes the target form: where it lives, what identity to
// submit, and how to find its controls. Selectors are configuration, not
// stable contracts; the target site owns its own markup.
type FormSpec struct {
	TargetURL string
	Identity  string

	URLInput     string // css
	SubmitButton string // css
	EmailInput   string // css
	FinalSubmit  string // xpath
	PopupDismiss string // xpath

	// NavSettle is the pause after navigation before the first form
	// interaction, giving a slow-rendering page time to draw.
	NavSettle    time.Duration
	StepTimeout  time.Duration
	PopupTimeout time.Duration
	PopupSettle  time.Duration
}

// BuildPlan expands a FormSpec into the fixed submission plan: navigate to
// the form, enter the item URL, submit, enter the identity email, confirm,
// then best-effort dismiss of the promo popup.
func BuildPlan(spec FormSpec) Plan {
	return Plan{Steps: []Step{
		{
			Name:   "navigate",
			Action: ActionNavigate,
			Value:  spec.TargetURL,
		},
		{
			Name:     "enter_url",
			Action:   ActionFill,
			Selector: spec.URLInput,
			By:       browser.ByCSS,
			Value:    ItemURLToken,
			Timeout:  spec.StepTimeout,
			Settle:   spec.NavSettle,
		},
		{
			Name:     "submit_url",
			Action:   ActionClick,
			Selector: spec.SubmitButton,
			By:       browser.ByCSS,
			Timeout:  spec.StepTimeout,
		},
		{
			Name:     "enter_email",
			Action:   ActionFill,
			Selector: spec.EmailInput,
			By:       browser.ByCSS,
			Value:    spec.Identity,
			Timeout:  spec.StepTimeout,
		},
		{
			Name:     "final_submit",
			Action:   ActionClick,
			Selector: spec.FinalSubmit,
			By:       browser.ByXPath,
			Timeout:  spec.StepTimeout,
		},
		{
			Name:     "dismiss_popup",
			Action:   ActionClick,
			Selector: spec.PopupDismiss,
			By:       browser.ByXPath,
			Timeout:  spec.PopupTimeout,
			Optional: true,
			Settle:   spec.PopupSettle,
		},
	}}
}
