package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/drctl/drctl/internal"
	"github.com/drctl/drctl/internal/governance"
	"github.com/drctl/drctl/internal/index"
	"github.com/drctl/drctl/internal/lifecycle"
	"github.com/drctl/drctl/internal/repo"
	"github.com/drctl/drctl/internal/repoconfig"
	"github.com/drctl/drctl/internal/store"
)

func commands() []*cli.Command {
	return []*cli.Command{
		createCommand("create", "Create a new draft decision", false),
		createCommand("new", "Deprecated alias of create", true),
		transitionCommand("draft", "Mark a decision as draft", (*lifecycle.Service).Draft),
		transitionCommand("propose", "Propose a draft decision", (*lifecycle.Service).Propose),
		transitionCommand("accept", "Accept a proposed decision", (*lifecycle.Service).Accept),
		transitionCommand("reject", "Reject a decision", (*lifecycle.Service).Reject),
		transitionCommand("deprecate", "Deprecate a decision", (*lifecycle.Service).Deprecate),
		transitionCommand("retire", "Retire a decision", (*lifecycle.Service).Retire),
		correctCommand(),
		reviseCommand(),
		reviewCommand(),
		supersedeCommand(),
		listCommand(),
		showCommand(),
		governanceCommand(),
		indexCommand(),
		mcpCommand(),
		configCommand(),
		repoCommand(),
	}
}

func requireArgs(cmd *cli.Command, names ...string) ([]string, error) {
	if cmd.NArg() < len(names) {
		return nil, fmt.Errorf("%s: expected arguments <%s>", cmd.Name, strings.Join(names, "> <"))
	}
	out := make([]string, len(names))
	for i := range names {
		out[i] = cmd.Args().Get(i)
	}
	return out, nil
}

func printRecord(w io.Writer, rc *repo.Context, rec *store.Record) {
	fmt.Fprintf(w, "%s  %s  v%s  %s\n", rec.ID, rec.Status, rec.Version, rec.RelPath(rc))
}

func createCommand(name, usage string, legacy bool) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "<domain> <slug>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "template", Aliases: []string{"t"}, Usage: "Template file for the body (env DRCTL_TEMPLATE)"},
			&cli.StringFlag{Name: "title", Usage: "Title substituted for {{title}}"},
			&cli.FloatFlag{Name: "confidence", Usage: "Initial confidence between 0 and 1"},
		},
		Action: withRepo(func(ctx context.Context, cmd *cli.Command, app *internal.App, rc *repo.Context) error {
			if legacy {
				app.Notices().Legacy(name, "create")
			}
			args, err := requireArgs(cmd, "domain", "slug")
			if err != nil {
				return err
			}
			opts := lifecycle.CreateOptions{Template: cmd.String("template"), Title: cmd.String("title")}
			if cmd.IsSet("confidence") {
				c := cmd.Float("confidence")
				opts.Confidence = &c
			}
			rec, err := app.Lifecycle(rc).Create(ctx, args[0], args[1], opts)
			if err != nil {
				return err
			}
			printRecord(app.Stdout(), rc, rec)
			return nil
		}),
	}
}

type transition func(s *lifecycle.Service, ctx context.Context, id string) (*store.Record, error)

func transitionCommand(name, usage string, fn transition) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "<id>",
		Action: withRepo(func(ctx context.Context, cmd *cli.Command, app *internal.App, rc *repo.Context) error {
			args, err := requireArgs(cmd, "id")
			if err != nil {
				return err
			}
			rec, err := fn(app.Lifecycle(rc), ctx, args[0])
			if err != nil {
				return err
			}
			printRecord(app.Stdout(), rc, rec)
			return nil
		}),
	}
}

func correctCommand() *cli.Command {
	return &cli.Command{
		Name:      "correct",
		Usage:     "Record a correction (patch version bump)",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "note", Aliases: []string{"m"}, Usage: "Changelog note"},
		},
		Action: withRepo(func(ctx context.Context, cmd *cli.Command, app *internal.App, rc *repo.Context) error {
			args, err := requireArgs(cmd, "id")
			if err != nil {
				return err
			}
			rec, err := app.Lifecycle(rc).Correct(ctx, args[0], cmd.String("note"))
			if err != nil {
				return err
			}
			printRecord(app.Stdout(), rc, rec)
			return nil
		}),
	}
}

func reviseCommand() *cli.Command {
	return &cli.Command{
		Name:      "revise",
		Usage:     "Record a revision (minor version bump)",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "note", Aliases: []string{"m"}, Usage: "Changelog note"},
			&cli.FloatFlag{Name: "confidence", Usage: "New confidence between 0 and 1"},
		},
		Action: withRepo(func(ctx context.Context, cmd *cli.Command, app *internal.App, rc *repo.Context) error {
			args, err := requireArgs(cmd, "id")
			if err != nil {
				return err
			}
			var conf *float64
			if cmd.IsSet("confidence") {
				c := cmd.Float("confidence")
				conf = &c
			}
			rec, err := app.Lifecycle(rc).Revise(ctx, args[0], cmd.String("note"), conf)
			if err != nil {
				return err
			}
			printRecord(app.Stdout(), rc, rec)
			return nil
		}),
	}
}

func reviewCommand() *cli.Command {
	return &cli.Command{
		Name:      "review",
		Usage:     "Record a review without changing status",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "type", Usage: "initial, scheduled or adhoc"},
			&cli.StringFlag{Name: "outcome", Usage: "keep, revise, retire or supersede"},
			&cli.StringFlag{Name: "note", Aliases: []string{"m"}, Usage: "Reason for the outcome"},
			&cli.StringFlag{Name: "reviewer", Usage: "Who reviewed"},
		},
		Action: withRepo(func(ctx context.Context, cmd *cli.Command, app *internal.App, rc *repo.Context) error {
			args, err := requireArgs(cmd, "id")
			if err != nil {
				return err
			}
			rec, err := app.Lifecycle(rc).Review(ctx, args[0], lifecycle.ReviewOptions{
				Type:     cmd.String("type"),
				Outcome:  cmd.String("outcome"),
				Note:     cmd.String("note"),
				Reviewer: cmd.String("reviewer"),
			})
			if err != nil {
				return err
			}
			printRecord(app.Stdout(), rc, rec)
			return nil
		}),
	}
}

func supersedeCommand() *cli.Command {
	return &cli.Command{
		Name:      "supersede",
		Usage:     "Mark <old-id> as superseded by <new-id>",
		ArgsUsage: "<old-id> <new-id>",
		Action: withRepo(func(ctx context.Context, cmd *cli.Command, app *internal.App, rc *repo.Context) error {
			args, err := requireArgs(cmd, "old-id", "new-id")
			if err != nil {
				return err
			}
			oldRec, newRec, err := app.Lifecycle(rc).Supersede(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			printRecord(app.Stdout(), rc, oldRec)
			printRecord(app.Stdout(), rc, newRec)
			return nil
		}),
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List decisions",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "status", Usage: "Only this status"},
			&cli.StringFlag{Name: "domain", Usage: "Only this domain"},
			&cli.BoolFlag{Name: "json", Usage: "Print JSON"},
		},
		Action: withRepo(func(ctx context.Context, cmd *cli.Command, app *internal.App, rc *repo.Context) error {
			records, err := app.Lifecycle(rc).ListAll()
			if err != nil {
				return err
			}
			status, domain := cmd.String("status"), cmd.String("domain")
			var groups []index.Group
			for _, g := range index.Build(rc, records) {
				if domain != "" && g.Domain != domain {
					continue
				}
				var kept []index.Entry
				for _, e := range g.Entries {
					if status == "" || e.Status == status {
						kept = append(kept, e)
					}
				}
				if len(kept) > 0 {
					groups = append(groups, index.Group{Domain: g.Domain, Entries: kept})
				}
			}
			if cmd.Bool("json") {
				return writeJSON(app.Stdout(), groups)
			}
			tw := tabwriter.NewWriter(app.Stdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTATUS\tVERSION\tLAST EDITED\tPATH")
			for _, g := range groups {
				for _, e := range g.Entries {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.ID, e.Status, e.Version, e.LastEdited, e.Path)
				}
			}
			return tw.Flush()
		}),
	}
}

func showCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Print a decision file",
		ArgsUsage: "<id>",
		Action: withRepo(func(ctx context.Context, cmd *cli.Command, app *internal.App, rc *repo.Context) error {
			args, err := requireArgs(cmd, "id")
			if err != nil {
				return err
			}
			rec, err := app.Lifecycle(rc).Get(args[0])
			if err != nil {
				return err
			}
			data, err := os.ReadFile(rec.Path) // #nosec G304 - path computed by store
			if err != nil {
				return err
			}
			_, err = app.Stdout().Write(data)
			return err
		}),
	}
}

func governanceCommand() *cli.Command {
	return &cli.Command{
		Name:  "governance",
		Usage: "Validate every decision; exits non-zero on errors",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Print JSON"},
		},
		Action: withRepo(func(ctx context.Context, cmd *cli.Command, app *internal.App, rc *repo.Context) error {
			records, err := app.Lifecycle(rc).ListAll()
			if err != nil {
				return err
			}
			issues := governance.Validate(records, rc)
			if cmd.Bool("json") {
				if err := writeJSON(app.Stdout(), issues); err != nil {
					return err
				}
			} else {
				for _, i := range issues {
					fmt.Fprintf(app.Stdout(), "%s\t%s\t%s\t%s\n", i.Severity, i.Code, i.Path, i.Message)
				}
				if len(issues) == 0 {
					fmt.Fprintf(app.Stdout(), "%d decisions, no issues\n", len(records))
				}
			}
			if governance.HasErrors(issues) {
				return fmt.Errorf("governance: %d issues found", len(issues))
			}
			return nil
		}),
	}
}

func indexCommand() *cli.Command {
	return &cli.Command{
		Name:  "index",
		Usage: "Write index.md at the repository root",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "watch", Aliases: []string{"w"}, Usage: "Keep regenerating on changes"},
		},
		Action: withRepo(func(ctx context.Context, cmd *cli.Command, app *internal.App, rc *repo.Context) error {
			if cmd.Bool("watch") {
				return app.WatchIndex(ctx, rc)
			}
			n, err := index.Generate(rc)
			if err != nil {
				return err
			}
			fmt.Fprintf(app.Stdout(), "wrote %s (%d decisions)\n", index.FileName, n)
			return nil
		}),
	}
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve read-only MCP tools over stdio",
		Action: withRepo(func(ctx context.Context, cmd *cli.Command, app *internal.App, rc *repo.Context) error {
			return app.ServeMCP(rc, version)
		}),
	}
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Inspect repository configuration",
		Commands: []*cli.Command{
			{
				Name:  "check",
				Usage: "Report on every configured repository",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Print JSON"},
					&cli.BoolFlag{Name: "strict", Usage: "Exit non-zero when any warning is reported"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					app, err := newApp(cmd)
					if err != nil {
						return err
					}
					diag, err := repo.Diagnose(repoOptions(cmd).WithEnvironment())
					if err != nil {
						return err
					}
					if cmd.Bool("json") {
						err = writeJSON(app.Stdout(), diag)
					} else {
						printDiagnostics(app.Stdout(), diag)
					}
					if err == nil && cmd.Bool("strict") && diag.HasWarnings() {
						return errors.New("config check: warnings reported")
					}
					return err
				},
			},
		},
	}
}

func printDiagnostics(w io.Writer, d *repo.Diagnostics) {
	if d.LocalConfig != "" {
		fmt.Fprintf(w, "local config:  %s\n", d.LocalConfig)
	}
	if d.GlobalConfig != "" {
		fmt.Fprintf(w, "global config: %s\n", d.GlobalConfig)
	}
	for _, r := range d.Repos {
		marker := " "
		if r.Default {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %s  %s  (%s, git %s)\n", marker, r.Name, r.Root, r.Scope, r.GitMode)
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "    warning: %s\n", warn)
		}
	}
	for _, warn := range d.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
}

func repoCommand() *cli.Command {
	return &cli.Command{
		Name:  "repo",
		Usage: "Manage repositories",
		Commands: []*cli.Command{
			{
				Name:      "init",
				Usage:     "Create a repository directory and register it in the local config",
				ArgsUsage: "[path]",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "git", Usage: "Run git init in the new directory"},
					&cli.StringFlag{Name: "name", Usage: "Alias for the repository (default: directory name)"},
					&cli.BoolFlag{Name: "default", Usage: "Make it the defaultRepo"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					app, err := newApp(cmd)
					if err != nil {
						return err
					}
					configPath, err := app.InitRepo(ctx, internal.InitOptions{
						Path:        cmd.Args().First(),
						Name:        cmd.String("name"),
						Git:         cmd.Bool("git"),
						MakeDefault: cmd.Bool("default"),
					})
					if err != nil {
						return err
					}
					fmt.Fprintf(app.Stdout(), "registered in %s\n", configPath)
					return nil
				},
			},
			{
				Name:      "add",
				Usage:     "Register an existing directory in a config file",
				ArgsUsage: "<name> <path>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Usage: "Config file to write (default: nearest .drctl.yaml)"},
					&cli.StringFlag{Name: "template", Usage: "Default template for the repository"},
					&cli.StringFlag{Name: "default-domain-dir", Usage: "Directory that holds domain folders"},
					&cli.BoolFlag{Name: "default", Usage: "Make it the defaultRepo"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					app, err := newApp(cmd)
					if err != nil {
						return err
					}
					args, err := requireArgs(cmd, "name", "path")
					if err != nil {
						return err
					}
					file := cmd.String("file")
					if file == "" {
						cwd, err := os.Getwd()
						if err != nil {
							return err
						}
						if file = repoconfig.FindLocal(cwd); file == "" {
							file = repoconfig.LocalFileNames[0]
						}
					}
					entry := repoconfig.RepoEntry{
						Name:             args[0],
						Path:             args[1],
						Template:         cmd.String("template"),
						DefaultDomainDir: cmd.String("default-domain-dir"),
					}
					if err := repoconfig.UpsertRepo(file, entry, cmd.Bool("default")); err != nil {
						return err
					}
					fmt.Fprintf(app.Stdout(), "registered %s in %s\n", args[0], file)
					return nil
				},
			},
		},
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
