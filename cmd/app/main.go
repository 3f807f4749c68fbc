package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/quire/internal"
	"github.com/starford/quire/internal/curator"
	"github.com/starford/quire/internal/models"
	pkgconfig "github.com/starford/quire/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// newApp wires the components for one-shot commands. Logs go to stderr so
// stdout carries only the command's result.
func newApp(cmd *cli.Command) (*internal.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	return internal.NewApp(internal.WithConfig(cfg), internal.WithLogger(logger))
}

func referenceDate(cmd *cli.Command) (time.Time, error) {
	s := cmd.String("date")
	if s == "" {
		return time.Now(), nil
	}
	d, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q: want YYYY-MM-DD", s)
	}
	now := time.Now()
	return d.Add(time.Duration(now.Hour())*time.Hour + time.Duration(now.Minute())*time.Minute), nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func runWorkflow(ctx context.Context, cmd *cli.Command) error {
	name := cmd.Args().First()
	if name == "" {
		return fmt.Errorf("workflow name is required")
	}
	now, err := referenceDate(cmd)
	if err != nil {
		return err
	}
	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	res, err := app.Runner.Run(ctx, name, now)
	if err != nil {
		return err
	}
	if res.Warning != "" {
		fmt.Fprintln(os.Stderr, res.Warning)
	}
	return printJSON(res)
}

func resolveFile(ctx context.Context, cmd *cli.Command) error {
	file := cmd.Args().First()
	if file == "" {
		return fmt.Errorf("template file is required")
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read template: %w", err)
	}
	now, err := referenceDate(cmd)
	if err != nil {
		return err
	}
	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	scope := cmd.String("scope")
	if scope == "" {
		scope = app.Runner.ScopeKey(strings.TrimSuffix(filepath.Base(file), filepath.Ext(file)))
	}
	res, err := app.Runner.Resolve(ctx, scope, data, now)
	if err != nil {
		return err
	}

	type directiveOut struct {
		Raw   string `json:"raw"`
		Error string `json:"error,omitempty"`
		Skip  string `json:"skip,omitempty"`
	}
	type sectionOut struct {
		Name       string                    `json:"name"`
		Content    string                    `json:"content"`
		Directives map[string][]directiveOut `json:"directives"`
	}
	out := make([]sectionOut, 0, len(res.Sections))
	for _, s := range res.Sections {
		so := sectionOut{Name: s.Section.Name, Content: s.Section.Content, Directives: map[string][]directiveOut{}}
		for name, results := range s.Results {
			for _, r := range results {
				d := directiveOut{Raw: r.Raw}
				if r.Err != nil {
					d.Error = r.Err.Error()
				}
				if r.Skip != nil {
					d.Skip = r.Skip.Reason
				}
				so.Directives[name] = append(so.Directives[name], d)
			}
		}
		for _, e := range s.Errors {
			so.Directives[e.Name] = append(so.Directives[e.Name], directiveOut{Error: e.Error()})
		}
		out = append(out, so)
	}
	return printJSON(out)
}

func curate(ctx context.Context, cmd *cli.Command) error {
	tpl := cmd.Args().First()
	if tpl == "" {
		return fmt.Errorf("context template name is required")
	}
	var history []models.Turn
	if path := cmd.String("history"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read history: %w", err)
		}
		if err := json.Unmarshal(data, &history); err != nil {
			return fmt.Errorf("parse history: %w", err)
		}
	}
	now, err := referenceDate(cmd)
	if err != nil {
		return err
	}
	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	out, err := app.Curator.Curate(ctx, curator.Request{
		SessionID: cmd.String("session"),
		Template:  tpl,
		History:   history,
		Now:       now,
	})
	if err != nil {
		return err
	}
	if w := out.Report.Warning(); w != "" {
		fmt.Fprintln(os.Stderr, w)
	}
	_, err = fmt.Fprintln(os.Stdout, out.Text)
	return err
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	return internal.ServeMCP(ctx, internal.WithConfig(cfg), internal.WithLogger(logger))
}

func dateFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "date",
		Usage: "Reference date (YYYY-MM-DD) for date tokens; defaults to today",
	}
}

func main() {
	cmd := &cli.Command{
		Name:   "quire",
		Usage:  "Markdown templates with directives, run as cached workflows and chat context",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the HTTP API and SSE event stream",
				Action: serve,
			},
			{
				Name:      "run",
				Usage:     "Run a workflow once and print its report",
				ArgsUsage: "<workflow>",
				Flags:     []cli.Flag{dateFlag()},
				Action:    runWorkflow,
			},
			{
				Name:      "resolve",
				Usage:     "Resolve a template file's directives without running it",
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					dateFlag(),
					&cli.StringFlag{Name: "scope", Usage: "Pending-state scope key (defaults to <vault>/<file name>)"},
				},
				Action: resolveFile,
			},
			{
				Name:      "curate",
				Usage:     "Build the curated chat context from a context template",
				ArgsUsage: "<template>",
				Flags: []cli.Flag{
					dateFlag(),
					&cli.StringFlag{Name: "session", Usage: "Chat session ID", Value: "cli"},
					&cli.StringFlag{Name: "history", Usage: "JSON file with prior turns ([{\"role\":...,\"content\":...}])"},
				},
				Action: curate,
			},
			{
				Name:   "mcp",
				Usage:  "Serve workflow and vault tools over MCP stdio",
				Action: serveMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
