package internal

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/drctl/drctl/internal/index"
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config holds runtime settings of the drctl binary. Repository settings
// live in .drctl.yaml and are handled by repoconfig.
type Config struct {
	App   ApplicationConfig `yaml:"app"`
	Index IndexConfig       `yaml:"index"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	return c.Index.Validate()
}

// ApplicationConfig holds logging configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level"`
	LogFormat string     `yaml:"log_format"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	if c.LogFormat == "" {
		c.LogFormat = LogFormatText
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.Required, validation.In(LogFormatText, LogFormatJSON)),
	)
}

// IndexConfig tunes index regeneration in watch mode.
type IndexConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// Validate validates the index configuration.
func (c *IndexConfig) Validate() error {
	if c.Debounce < 0 {
		return fmt.Errorf("index: debounce must not be negative, got %s", c.Debounce)
	}
	return nil
}

// ParseLogLevel accepts slog level names case-insensitively.
func ParseLogLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return l, nil
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelWarn,
			LogFormat: LogFormatText,
		},
		Index: IndexConfig{
			Debounce: index.DefaultDebounce,
		},
	}
}
