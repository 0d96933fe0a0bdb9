// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Environment variables read by ApplyEnv.
const (
	EnvEnvironmentID  = "KONTENT_ENVIRONMENT_ID"
	EnvAPIKey         = "KONTENT_MANAGEMENT_API_KEY"
	EnvBaseURL        = "KONTENT_MANAGEMENT_BASE_URL"
	EnvExportFilename = "EXPORT_FILENAME"
	EnvDatabaseURL    = "DATABASE_URL"
)

// Config represents the CLI configuration that can be loaded from a JSON file.
// All fields are optional in the file; required values may come from the
// environment or CLI flags instead.
type Config struct {
	// Target
	EnvironmentID string `json:"environment_id,omitempty" validate:"required"`    // Environment (project) ID
	APIKey        string `json:"api_key,omitempty" validate:"required"`           // Management API key
	BaseURL       string `json:"base_url,omitempty" validate:"omitempty,url"`     // Management API endpoint
	DatabaseURL   string `json:"database_url,omitempty" validate:"omitempty,uri"` // PostgreSQL URL for run history

	// Output
	ExportFilename string `json:"export_filename,omitempty" validate:"required"` // Base name of the export files
	VerifyExport   bool   `json:"verify_export,omitempty"`                       // Check the JSON export against its schema

	// Polling and transport
	PollIntervalMs     int     `json:"poll_interval_ms,omitempty" validate:"gte=0"`     // Delay between status checks
	MaxPollAttempts    int     `json:"max_poll_attempts,omitempty" validate:"gte=0"`    // 0 polls until a terminal status
	PollTimeoutSeconds int     `json:"poll_timeout_seconds,omitempty" validate:"gte=0"` // 0 disables the poll timeout
	HTTPTimeoutSeconds int     `json:"http_timeout_seconds,omitempty" validate:"gte=0"` // Per-request timeout
	RequestsPerSecond  float64 `json:"requests_per_second,omitempty" validate:"gte=0"`  // Client-side request pacing; 0 means default, --requests-per-second 0 disables

	// Behavior
	Verbose bool `json:"verbose,omitempty"`  // Print debug logs and the issue summary
	LogJSON bool `json:"log_json,omitempty"` // Emit diagnostic logs as JSON
}

// Defaults returns the configuration used for values left unset.
func Defaults() Config {
	return Config{
		BaseURL:            "https://manage.kontent.ai/v2",
		ExportFilename:     "validation-result",
		PollIntervalMs:     3000,
		HTTPTimeoutSeconds: 30,
		RequestsPerSecond:  10,
	}
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// ApplyEnv overrides fields with any of the known environment variables that are set.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	set(EnvEnvironmentID, &c.EnvironmentID)
	set(EnvAPIKey, &c.APIKey)
	set(EnvBaseURL, &c.BaseURL)
	set(EnvExportFilename, &c.ExportFilename)
	set(EnvDatabaseURL, &c.DatabaseURL)
}

// Validate checks that the configuration is complete and its values are in range.
// It should be called after file, environment and flag values are merged.
func (c *Config) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(jsonFieldName)

	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("config error: %w", err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return fmt.Errorf("config error: %s", strings.Join(msgs, "; "))
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.EnvironmentID == "" {
		result.EnvironmentID = defaults.EnvironmentID
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.BaseURL == "" {
		result.BaseURL = defaults.BaseURL
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.ExportFilename == "" {
		result.ExportFilename = defaults.ExportFilename
	}

	// Numeric fields: use default if zero
	if result.PollIntervalMs == 0 {
		result.PollIntervalMs = defaults.PollIntervalMs
	}
	if result.MaxPollAttempts == 0 {
		result.MaxPollAttempts = defaults.MaxPollAttempts
	}
	if result.PollTimeoutSeconds == 0 {
		result.PollTimeoutSeconds = defaults.PollTimeoutSeconds
	}
	if result.HTTPTimeoutSeconds == 0 {
		result.HTTPTimeoutSeconds = defaults.HTTPTimeoutSeconds
	}
	if result.RequestsPerSecond == 0 {
		result.RequestsPerSecond = defaults.RequestsPerSecond
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// PollInterval returns the delay between status checks.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// PollTimeout returns the overall polling limit, 0 meaning none.
func (c *Config) PollTimeout() time.Duration {
	return time.Duration(c.PollTimeoutSeconds) * time.Second
}

// HTTPTimeout returns the per-request timeout.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// Redacted returns a copy safe to print, with secrets masked.
func (c *Config) Redacted() Config {
	result := *c
	result.APIKey = mask(result.APIKey)
	if result.DatabaseURL != "" {
		result.DatabaseURL = "<set>"
	}
	return result
}

func mask(secret string) string {
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", len(secret)-4) + secret[len(secret)-4:]
}

// jsonFieldName reports fields by their JSON key so messages match the config file.
func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return fld.Name
	}
	return name
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("'%s' is required", fe.Field())
	case "gte":
		return fmt.Sprintf("'%s' must be non-negative", fe.Field())
	case "url", "uri":
		return fmt.Sprintf("'%s' must be a valid URL", fe.Field())
	default:
		return fmt.Sprintf("'%s' failed '%s' check (value %s)", fe.Field(), fe.Tag(), strconv.Quote(fmt.Sprint(fe.Value())))
	}
}
