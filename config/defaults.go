package config

import "time"

// DefaultConfig returns the default configuration. Target values mirror the
// neosemo.ai audit form as last observed; they are a starting point, not a
// contract, and should be revalidated against the live site.
func DefaultConfig() *Config {
	return &Config{
		Target: TargetConfig{
			URL:      "https://neosemo.ai/",
			Identity: "JOSH@PROJECTXLABS.AI",
			Selectors: SelectorConfig{
				URLInput:     "input[type='text']",
				SubmitButton: "button[type='submit']",
				EmailInput:   "input#email",
				FinalSubmit:  "//button[text()='Submit']",
				PopupDismiss: "//*[@id='cta_178493']/div/div[2]",
			},
			NavSettle:    Duration(2 * time.Second),
			StepTimeout:  Duration(10 * time.Second),
			PopupTimeout: Duration(3 * time.Second),
			PopupSettle:  Duration(5 * time.Second),
		},
		Browser: BrowserConfig{
			Headless:       true,
			ViewportWidth:  1920,
			ViewportHeight: 1080,
			NavTimeout:     Duration(30 * time.Second),
		},
		Batch: BatchConfig{
			ItemDelay:  Duration(2 * time.Second),
			InputPath:  "dealer_urls.csv",
			OutputPath: "dealer_urls_with_reports.csv",
		},
		Annotator: AnnotatorConfig{
			Model:   "gpt-3.5-turbo",
			Timeout: Duration(30 * time.Second),
		},
		Log: LogConfig{
			Level:       "info",
			Format:      "console",
			OutputPaths: []string{"stdout"},
		},
	}
}
