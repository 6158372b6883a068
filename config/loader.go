// =============================================================================
// auditflow configuration loader
// =============================================================================
// Unified configuration loading: YAML file + environment variable override.
//
// Usage:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("AUDITFLOW").
//	    Load()
//
// Precedence: defaults -> YAML file -> environment variables.
// =============================================================================
package config

import (
	"fmt"
	"net/url"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML accepts human-readable values like
// "10s" alongside integer nanoseconds, matching what the env path accepts.
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw any
	if err := value.Decode(&raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		*d = Duration(parsed)
	case int:
		*d = Duration(v)
	case int64:
		*d = Duration(v)
	case float64:
		*d = Duration(int64(v))
	default:
		return fmt.Errorf("invalid duration: %v", raw)
	}
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// Config is the complete auditflow configuration.
type Config struct {
	// Target describes the remote form and how to drive it.
	Target TargetConfig `yaml:"target" env:"TARGET"`

	// Browser configures the Chrome session.
	Browser BrowserConfig `yaml:"browser" env:"BROWSER"`

	// Batch configures batch iteration and table locations.
	Batch BatchConfig `yaml:"batch" env:"BATCH"`

	// Annotator configures the optional advisory URL annotator.
	Annotator AnnotatorConfig `yaml:"annotator" env:"ANNOTATOR"`

	// Log configures logging.
	Log LogConfig `yaml:"log" env:"LOG"`
}

// TargetConfig describes the submission form. Selectors track the target
// site's current markup and need revalidation when the site changes.
type TargetConfig struct {
	// URL is the page carrying the submission form.
	URL string `yaml:"url" env:"URL"`
	// Identity is the fixed email submitted into the secondary field.
	Identity string `yaml:"identity" env:"IDENTITY"`
	// Selectors locate the form's controls.
	Selectors SelectorConfig `yaml:"selectors" env:"SELECTORS"`
	// NavSettle is the pause after navigation before touching the form,
	// giving a slow-rendering page time to draw it.
	NavSettle Duration `yaml:"nav_settle" env:"NAV_SETTLE"`
	// StepTimeout bounds each required locate-and-act step.
	StepTimeout Duration `yaml:"step_timeout" env:"STEP_TIMEOUT"`
	// PopupTimeout bounds the optional popup dismissal.
	PopupTimeout Duration `yaml:"popup_timeout" env:"POPUP_TIMEOUT"`
	// PopupSettle is the pause before looking for the popup.
	PopupSettle Duration `yaml:"popup_settle" env:"POPUP_SETTLE"`
}

// SelectorConfig locates the form controls on the target page.
type SelectorConfig struct {
	// URLInput is the CSS selector of the URL text input.
	URLInput string `yaml:"url_input" env:"URL_INPUT"`
	// SubmitButton is the CSS selector of the first submit control.
	SubmitButton string `yaml:"submit_button" env:"SUBMIT_BUTTON"`
	// EmailInput is the CSS selector of the email input.
	EmailInput string `yaml:"email_input" env:"EMAIL_INPUT"`
	// FinalSubmit is the XPath of the final confirmation button.
	FinalSubmit string `yaml:"final_submit" env:"FINAL_SUBMIT"`
	// PopupDismiss is the XPath of the optional popup dismiss control.
	PopupDismiss string `yaml:"popup_dismiss" env:"POPUP_DISMISS"`
}

// BrowserConfig configures the Chrome session.
type BrowserConfig struct {
	Headless       bool     `yaml:"headless" env:"HEADLESS"`
	ViewportWidth  int      `yaml:"viewport_width" env:"VIEWPORT_WIDTH"`
	ViewportHeight int      `yaml:"viewport_height" env:"VIEWPORT_HEIGHT"`
	UserAgent      string   `yaml:"user_agent" env:"USER_AGENT"`
	ProxyURL       string   `yaml:"proxy_url" env:"PROXY_URL"`
	NavTimeout     Duration `yaml:"nav_timeout" env:"NAV_TIMEOUT"`
}

// BatchConfig configures batch iteration.
type BatchConfig struct {
	// ItemDelay is the fixed pause between consecutive items.
	ItemDelay Duration `yaml:"item_delay" env:"ITEM_DELAY"`
	// InputPath is the input table (.csv or .xlsx).
	InputPath string `yaml:"input_path" env:"INPUT_PATH"`
	// OutputPath is the output table (.csv or .xlsx).
	OutputPath string `yaml:"output_path" env:"OUTPUT_PATH"`
}

// AnnotatorConfig configures the advisory annotator. An empty APIKey
// disables annotation entirely.
type AnnotatorConfig struct {
	APIKey  string   `yaml:"api_key" env:"API_KEY"`
	BaseURL string   `yaml:"base_url" env:"BASE_URL"`
	Model   string   `yaml:"model" env:"MODEL"`
	Timeout Duration `yaml:"timeout" env:"TIMEOUT"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level: debug, info, warn, error.
	Level string `yaml:"level" env:"LEVEL"`
	// Format: json, console.
	Format string `yaml:"format" env:"FORMAT"`
	// OutputPaths are zap output sinks (e.g. stdout, a file path).
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
}

// Loader loads configuration with builder-style options.
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "AUDITFLOW",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath sets the YAML config file path.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix sets the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator adds a configuration validator.
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load loads the configuration.
// Precedence: defaults -> YAML file -> environment variables.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Missing file falls back to defaults.
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// setFieldsFromEnv recursively overrides struct fields from the environment.
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) || field.Type() == reflect.TypeOf(Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// Comma-separated string slices.
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// MustLoad loads the configuration and panics on failure.
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// Validate checks the configuration for values the run cannot proceed
// without.
func (c *Config) Validate() error {
	var errs []string

	if c.Target.URL == "" {
		errs = append(errs, "target url is required")
	} else if u, err := url.Parse(c.Target.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, "target url must be absolute")
	}
	if c.Target.Identity == "" {
		errs = append(errs, "target identity is required")
	}
	if c.Target.StepTimeout <= 0 {
		errs = append(errs, "step_timeout must be positive")
	}
	if c.Target.PopupTimeout <= 0 {
		errs = append(errs, "popup_timeout must be positive")
	}
	if c.Batch.ItemDelay < 0 {
		errs = append(errs, "item_delay must not be negative")
	}

	sel := c.Target.Selectors
	for _, req := range []struct{ name, value string }{
		{"url_input", sel.URLInput},
		{"submit_button", sel.SubmitButton},
		{"email_input", sel.EmailInput},
		{"final_submit", sel.FinalSubmit},
	} {
		if req.value == "" {
			errs = append(errs, fmt.Sprintf("selector %s is required", req.name))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
