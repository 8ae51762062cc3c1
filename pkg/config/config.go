// Package config provides YAML-based configuration loading with environment variable expansion.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Validator is an interface for configuration validation.
type Validator interface {
	Validate() error
}

// Option adjusts how a configuration file is decoded.
type Option func(*options)

type options struct {
	expandEnv bool
}

// WithoutEnvExpansion leaves $VAR references in the file as written, for
// callers that expand individual fields themselves.
func WithoutEnvExpansion() Option {
	return func(o *options) { o.expandEnv = false }
}

func buildOptions(opts []Option) options {
	o := options{expandEnv: true}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Load loads configuration from a YAML file with environment variable expansion.
func Load[T any](filename string, target *T, opts ...Option) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filename, err)
	}
	return Decode(filename, data, target, opts...)
}

// LoadOptional behaves like Load but reports found=false without error when
// the file does not exist.
func LoadOptional[T any](filename string, target *T, opts ...Option) (bool, error) {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err := Load(filename, target, opts...); err != nil {
		return true, err
	}
	return true, nil
}

// Decode parses YAML data (after environment expansion unless disabled) into
// target and validates it when target implements Validator. name is used in
// errors.
func Decode[T any](name string, data []byte, target *T, opts ...Option) error {
	if buildOptions(opts).expandEnv {
		data = []byte(os.ExpandEnv(string(data)))
	}

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", name, err)
	}

	if validator, ok := any(target).(Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}

	return nil
}
