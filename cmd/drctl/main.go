package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/drctl/drctl/internal"
	"github.com/drctl/drctl/internal/repo"
	pkgconfig "github.com/drctl/drctl/pkg/config"
)

var version = "dev"

// newApp builds the application from the global flags.
func newApp(cmd *cli.Command) (*internal.App, error) {
	cfg := internal.NewDefaultConfig()
	if path := cmd.String("settings"); path != "" {
		if err := pkgconfig.Load(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse settings: %w", err)
		}
	}
	if lvl := cmd.String("log-level"); lvl != "" {
		l, err := internal.ParseLogLevel(lvl)
		if err != nil {
			return nil, err
		}
		cfg.App.LogLevel = l
	}
	if f := cmd.String("log-format"); f != "" {
		cfg.App.LogFormat = f
	}
	return internal.New(internal.WithConfig(cfg))
}

func repoOptions(cmd *cli.Command) repo.Options {
	return repo.Options{
		Repo:       cmd.String("repo"),
		ConfigPath: cmd.String("config"),
		Git:        cmd.String("git-mode"),
	}
}

// withRepo resolves the app and repository before running fn.
func withRepo(fn func(ctx context.Context, cmd *cli.Command, app *internal.App, rc *repo.Context) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		rc, err := app.Resolve(repoOptions(cmd))
		if err != nil {
			return err
		}
		return fn(ctx, cmd, app, rc)
	}
}

func main() {
	cmd := &cli.Command{
		Name:    "drctl",
		Usage:   "Manage decision records across repositories",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "repo",
				Usage: "Repository name from config, or a directory path (env DRCTL_REPO)",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a .drctl.yaml file; skips the global config (env DRCTL_CONFIG)",
			},
			&cli.StringFlag{
				Name:  "git-mode",
				Usage: "Override git mode: enabled or disabled (env DRCTL_GIT)",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Diagnostics level: debug, info, warn, error",
				Sources: cli.EnvVars("DRCTL_LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Diagnostics format: text or json",
				Sources: cli.EnvVars("DRCTL_LOG_FORMAT"),
			},
			&cli.StringFlag{
				Name:    "settings",
				Usage:   "Path to a runtime settings YAML file",
				Sources: cli.EnvVars("DRCTL_SETTINGS"),
			},
		},
		Commands: commands(),
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("drctl failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
