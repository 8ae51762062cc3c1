// Package gitmode decides whether lifecycle operations commit to git.
package gitmode

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Mode is the resolved git behaviour.
type Mode string

const (
	Enabled  Mode = "enabled"
	Disabled Mode = "disabled"
)

// Source tags where a mode came from.
type Source string

const (
	SourceDetected Source = "detected"
	SourceCLI      Source = "cli"
	SourceEnv      Source = "env"
	SourceConfig   Source = "config"
)

// Override is an optional mode from one source. A nil *Override is absent.
type Override struct {
	Mode   Mode
	Source Source
}

// Input feeds Resolve. Overrides are consulted CLI, env, then config.
type Input struct {
	Root   string
	CLI    *Mode
	Env    *Mode
	Config *Mode
}

// Result is a resolved mode with provenance.
type Result struct {
	Mode   Mode
	Source Source
	// GitRoot is the nearest ancestor of Root holding a .git entry.
	GitRoot string
	// OverrideCleared names the source whose "disabled" was ignored
	// because a repository was detected.
	OverrideCleared Source
}

// Enabled reports whether commits should be made.
func (r Result) Enabled() bool {
	return r.Mode == Enabled
}

// Parse accepts enabled|disabled|true|false|on|off|1|0|yes|no.
func Parse(value string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "enabled", "enable", "true", "on", "1", "yes":
		return Enabled, nil
	case "disabled", "disable", "false", "off", "0", "no":
		return Disabled, nil
	}
	return "", fmt.Errorf("gitmode: invalid value %q", value)
}

// ParseOptional returns nil for blank input and an error for
// unrecognised values.
func ParseOptional(value string) (*Mode, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	m, err := Parse(value)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// FindGitRoot walks up from start and returns the first directory that
// contains a .git entry.
func FindGitRoot(start string) (string, bool) {
	dir := filepath.Clean(start)
	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// Resolve combines detection with the override cascade.
func Resolve(in Input) Result {
	gitRoot, detected := FindGitRoot(in.Root)

	natural := Result{Mode: Disabled, Source: SourceDetected, GitRoot: gitRoot}
	if detected {
		natural.Mode = Enabled
	}

	winner := firstOverride(
		overrideFrom(in.CLI, SourceCLI),
		overrideFrom(in.Env, SourceEnv),
		overrideFrom(in.Config, SourceConfig),
	)
	if winner == nil {
		return natural
	}
	if winner.Mode == Disabled && detected {
		natural.OverrideCleared = winner.Source
		return natural
	}
	return Result{Mode: winner.Mode, Source: winner.Source, GitRoot: gitRoot}
}

func overrideFrom(m *Mode, src Source) *Override {
	if m == nil {
		return nil
	}
	return &Override{Mode: *m, Source: src}
}

func firstOverride(candidates ...*Override) *Override {
	for _, c := range candidates {
		if c != nil {
			return c
		}
	}
	return nil
}
