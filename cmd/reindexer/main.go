package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/phospodka/reindexer/internal/checkpoint"
	"github.com/phospodka/reindexer/internal/command"
	"github.com/phospodka/reindexer/internal/config"
	"github.com/phospodka/reindexer/internal/exitcodes"
	"github.com/phospodka/reindexer/internal/logging"
	"github.com/phospodka/reindexer/internal/notify"
	"github.com/phospodka/reindexer/internal/orchestrator"
	"github.com/phospodka/reindexer/internal/progress"
	"github.com/phospodka/reindexer/internal/report"
	"github.com/phospodka/reindexer/internal/templates"
	"github.com/urfave/cli/v2"
)

var version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		code := exitcodes.FromError(err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(code)
	}
}

func dateFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "start",
			Aliases: []string{"s"},
			Usage:   "First date to process, yyyy.mm.dd (required)",
		},
		&cli.StringFlag{
			Name:    "end",
			Aliases: []string{"e"},
			Usage:   "Last date to process inclusive, yyyy.mm.dd (required)",
		},
	}
}

func newApp() *cli.App {
	flags := append(dateFlags(),
		&cli.IntFlag{
			Name:    "delay",
			Aliases: []string{"d"},
			Value:   10,
			Usage:   "Seconds to wait after a transfer before counting the destination",
		},
		&cli.StringFlag{
			Name:    "log",
			Aliases: []string{"l"},
			Value:   "info",
			Usage:   "Log level (error, warn, info, debug)",
		},
		&cli.BoolFlag{
			Name:    "snapshot",
			Aliases: []string{"n"},
			Usage:   "Snapshot the destination after each verified transfer",
		},
		&cli.StringFlag{
			Name:    "home",
			Value:   ".",
			EnvVars: []string{"REINDEXER_HOME"},
			Usage:   "Directory holding conf/config.properties and templates/",
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to YAML run configuration (default <home>/conf/reindexer.yaml if present)",
		},
		&cli.StringFlag{
			Name:  "log-format",
			Value: "text",
			Usage: "Log format: text or json",
		},
		&cli.BoolFlag{
			Name:  "output-json",
			Usage: "Output JSON result to stdout on completion (logs go to stderr)",
		},
		&cli.StringFlag{
			Name:  "output-file",
			Usage: "Write JSON result to file on completion",
		},
		&cli.StringFlag{
			Name:  "state-file",
			Usage: "Record run history in a YAML file instead of SQLite",
		},
		&cli.BoolFlag{
			Name:  "no-history",
			Usage: "Do not record run history",
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "Resolve every template without running any command",
		},
		&cli.BoolFlag{
			Name:  "fail-on-halt",
			Usage: "Exit with status 4 when any date was halted",
		},
	)

	return &cli.App{
		Name:    "reindexer",
		Usage:   "Reindex date-suffixed Elasticsearch indices one day at a time",
		Version: version,
		Flags:   flags,
		Before: func(c *cli.Context) error {
			level, err := logging.ParseLevel(c.String("log"))
			if err != nil {
				return exitcodes.NewExitError(err, exitcodes.UsageError)
			}
			logging.SetLevel(level)

			if c.String("log-format") == "json" {
				logging.SetFormat("json")
			}

			// Redirect logs to stderr when JSON output is enabled
			if c.Bool("output-json") {
				logging.SetOutput(os.Stderr)
			}
			return nil
		},
		OnUsageError: func(c *cli.Context, err error, isSubcommand bool) error {
			cli.ShowAppHelp(c)
			return exitcodes.NewExitError(err, exitcodes.UsageError)
		},
		Action: runReindex,
		Commands: []*cli.Command{
			{
				Name:   "check",
				Usage:  "Resolve every template for a date range and report problems",
				Flags:  dateFlags(),
				Action: runCheck,
				OnUsageError: func(c *cli.Context, err error, isSubcommand bool) error {
					cli.ShowCommandHelp(c, "check")
					return exitcodes.NewExitError(err, exitcodes.UsageError)
				},
			},
			{
				Name:   "history",
				Usage:  "Show recorded runs",
				Action: showHistory,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "run",
						Usage: "Show the indices of a specific run",
					},
				},
			},
		},
	}
}

// dateRange returns the start and end flags, looking at the command first
// and then the global flags.
func dateRange(c *cli.Context) (string, string, error) {
	var start, end string
	for _, ctx := range c.Lineage() {
		if ctx == nil {
			continue
		}
		if start == "" {
			start = ctx.String("start")
		}
		if end == "" {
			end = ctx.String("end")
		}
	}
	if start == "" || end == "" {
		logging.Error("halting processing; both start and end date must be provided.")
		return "", "", exitcodes.NewExitError(errors.New("both --start and --end must be provided"), exitcodes.MissingDates)
	}
	return start, end, nil
}

// loadConfig reads --config, or <home>/conf/reindexer.yaml when it exists,
// and applies flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	explicit := path != ""
	if !explicit {
		path = filepath.Join(c.String("home"), "conf", "reindexer.yaml")
	}

	var cfg *config.Config
	if _, err := os.Stat(path); err == nil || explicit {
		cfg, err = config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	} else {
		cfg = config.Default()
	}

	if c.IsSet("delay") {
		if c.Int("delay") < 0 {
			return nil, exitcodes.NewExitError(fmt.Errorf("--delay must not be negative"), exitcodes.UsageError)
		}
		cfg.Reindex.SettleDelay = c.Int("delay")
	}
	if c.Bool("snapshot") {
		cfg.Reindex.Snapshot = true
	}
	if c.Bool("no-history") {
		cfg.History.Disabled = true
	}
	if sf := c.String("state-file"); sf != "" {
		cfg.History.StateFile = sf
	}
	return cfg, nil
}

func newOrchestrator(c *cli.Context, cfg *config.Config) (*orchestrator.Orchestrator, error) {
	home := c.String("home")
	p, err := config.LoadPropertySet(home)
	if err != nil {
		return nil, err
	}
	return orchestrator.New(cfg, p, templates.NewResolver(home), command.NewRunner("")), nil
}

func openState(cfg *config.Config) (checkpoint.StateBackend, error) {
	if cfg.History.StateFile != "" {
		return checkpoint.NewFileState(cfg.History.StateFile)
	}
	return checkpoint.New(cfg.History.DataDir)
}

func runReindex(c *cli.Context) error {
	if c.Args().Present() {
		cli.ShowAppHelp(c)
		return exitcodes.NewExitError(fmt.Errorf("unexpected argument %q", c.Args().First()), exitcodes.UsageError)
	}

	start, end, err := dateRange(c)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	if c.Bool("dry-run") {
		return check(c, cfg, start, end)
	}

	orch, err := newOrchestrator(c, cfg)
	if err != nil {
		return err
	}

	if !cfg.History.Disabled {
		state, err := openState(cfg)
		if err != nil {
			return exitcodes.NewExitError(fmt.Errorf("opening run history: %w", err), exitcodes.StateError)
		}
		defer state.Close()
		orch.SetState(state)
	}
	orch.SetNotifier(notify.New(&cfg.Slack))

	tracker := progress.New(nil)
	if !logging.IsJSON() && !c.Bool("output-json") {
		tracker = progress.ForTerminal()
	}
	orch.SetProgress(tracker)

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\nInterrupted. Finishing the current stage...")
			cancel()
		case <-ctx.Done():
		}
	}()

	result, runErr := orch.Run(ctx, start, end)
	if result == nil {
		return runErr
	}

	if c.Bool("output-json") || c.String("output-file") != "" {
		if err := outputJSON(c, result); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to output JSON: %v\n", err)
		}
	} else if tracker.Enabled() {
		fmt.Fprintln(os.Stderr, report.Render(result))
	}

	if runErr != nil {
		return runErr
	}
	if c.Bool("fail-on-halt") && result.Halted > 0 {
		return exitcodes.NewExitError(fmt.Errorf("%d index(es) halted", result.Halted), exitcodes.HaltError)
	}
	return nil
}

func runCheck(c *cli.Context) error {
	start, end, err := dateRange(c)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	return check(c, cfg, start, end)
}

func check(c *cli.Context, cfg *config.Config, start, end string) error {
	orch, err := newOrchestrator(c, cfg)
	if err != nil {
		return err
	}
	result, err := orch.Check(start, end)
	if err != nil {
		return err
	}

	if c.Bool("output-json") {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal check result: %w", err)
		}
		fmt.Fprintln(c.App.Writer, string(data))
	} else {
		printCheck(c.App.Writer, result)
	}

	if result.Problems > 0 {
		return exitcodes.NewExitError(fmt.Errorf("%d iteration(s) have template problems", result.Problems), exitcodes.ConfigError)
	}
	return nil
}

func printCheck(w io.Writer, r *orchestrator.CheckResult) {
	fmt.Fprintf(w, "Dates:        %d (%s - %s)\n", len(r.Dates), r.StartDate, r.EndDate)
	fmt.Fprintf(w, "Types:        %v\n", r.Types)
	fmt.Fprintf(w, "Settle delay: %ds\n", r.SettleDelay)
	fmt.Fprintf(w, "Snapshot:     %v\n\n", r.Snapshot)

	for _, it := range r.Iterations {
		if it.OK() {
			continue
		}
		fmt.Fprintf(w, "%s (%s)\n", it.SourceIndex, it.Type)
		for _, m := range it.Missing {
			fmt.Fprintf(w, "  missing template: %s\n", m)
		}
		for _, u := range it.Unresolved {
			fmt.Fprintf(w, "  unresolved:       %s\n", u)
		}
		for _, e := range it.Errors {
			fmt.Fprintf(w, "  error:            %s\n", e)
		}
	}

	if r.Problems == 0 {
		fmt.Fprintf(w, "All %d iterations resolve cleanly\n", len(r.Iterations))
	}
}

func showHistory(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	state, err := openState(cfg)
	if err != nil {
		return exitcodes.NewExitError(fmt.Errorf("opening run history: %w", err), exitcodes.StateError)
	}
	defer state.Close()

	runID := c.String("run")
	if runID != "" && c.Bool("output-json") {
		result, err := orchestrator.BuildRunResult(state, runID)
		if err != nil {
			return err
		}
		return outputJSON(c, result)
	}
	if runID != "" {
		return orchestrator.ShowRunDetails(c.App.Writer, state, runID)
	}
	return orchestrator.ShowHistory(c.App.Writer, state)
}

// outputJSON writes the run result as JSON to stdout and/or a file
func outputJSON(c *cli.Context, result *orchestrator.RunResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	// Write to stdout if --output-json flag is set
	if c.Bool("output-json") {
		fmt.Fprintln(c.App.Writer, string(data))
	}

	// Write to file if --output-file flag is set
	if outputFile := c.String("output-file"); outputFile != "" {
		if err := os.WriteFile(outputFile, data, 0600); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
	}

	return nil
}
