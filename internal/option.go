package internal

import (
	"io"
	"time"

	"github.com/drctl/drctl/internal/gitclient"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	stdout io.Writer
	stderr io.Writer
	git    gitclient.Client
	now    func() time.Time
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithOutput sets the writers for user output and diagnostics.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(a *application) {
		a.stdout = stdout
		a.stderr = stderr
	}
}

// WithGit replaces the git client.
func WithGit(g gitclient.Client) Option {
	return func(a *application) {
		a.git = g
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *application) {
		a.now = now
	}
}
