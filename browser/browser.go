// Package browser provides the chromedp-backed session used to drive the
// target site's submission form.
package browser

import (
	"context"
	"time"
)

// By selects how a selector is matched against the page.
type By string

const (
	ByCSS   By = "css"
	ByXPath By = "xpath"
)

// Config configures the browser session.
type Config struct {
	Headless       bool          `json:"headless"`
	ViewportWidth  int           `json:"viewport_width"`
	ViewportHeight int           `json:"viewport_height"`
	UserAgent      string        `json:"user_agent,omitempty"`
	ProxyURL       string        `json:"proxy_url,omitempty"`
	NavTimeout     time.Duration `json:"nav_timeout"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Headless:       true,
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		NavTimeout:     30 * time.Second,
	}
}

// Driver is the browser surface the step sequencer drives. Exactly one
// driver exists per batch run; callers must not interleave items on it.
type Driver interface {
	// Navigate loads the given URL.
	Navigate(ctx context.Context, url string) error
	// Fill waits for the element, clears it, and types value into it.
	Fill(ctx context.Context, selector string, by By, value string, timeout time.Duration) error
	// Click waits for the element to become interactable and clicks it.
	Click(ctx context.Context, selector string, by By, timeout time.Duration) error
	// Location returns the page's current URL.
	Location(ctx context.Context) (string, error)
	// Close releases the underlying browser.
	Close() error
}
