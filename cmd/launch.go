package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"launchseq/bootstrap"
	"launchseq/config"
	"launchseq/extensions"
	"launchseq/host"
	"launchseq/journal"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
)

// launchReport is the machine-readable form of a bootstrap result.
type launchReport struct {
	LaunchID   string       `json:"launch_id"`
	Status     string       `json:"status"`
	FailedStep string       `json:"failed_step,omitempty"`
	Error      string       `json:"error,omitempty"`
	Hint       string       `json:"hint,omitempty"`
	NonFatal   []stepReport `json:"non_fatal,omitempty"`
	Steps      []stepReport `json:"steps"`
	DurationMS int64        `json:"duration_ms"`
}

type stepReport struct {
	Name       string `json:"name"`
	Mandatory  bool   `json:"mandatory"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

func newLaunchReport(lc *host.LaunchContext, result bootstrap.Result) launchReport {
	report := launchReport{
		LaunchID:   lc.LaunchID,
		Status:     string(result.Status),
		FailedStep: result.FailedStep(),
		Steps:      []stepReport{},
		DurationMS: result.Duration.Milliseconds(),
	}
	if result.Err != nil {
		report.Error = result.Err.Error()
		report.Hint = bootstrap.ClassifyStepError(result.Err)
	}
	for _, nf := range result.NonFatal {
		report.NonFatal = append(report.NonFatal, stepReport{Name: nf.Step, Error: nf.Err.Error()})
	}
	for _, s := range result.Steps {
		sr := stepReport{Name: s.Name, Mandatory: s.Mandatory, DurationMS: s.Duration.Milliseconds()}
		if s.Err != nil {
			sr.Error = s.Err.Error()
		}
		report.Steps = append(report.Steps, sr)
	}
	return report
}

// newLaunchCmd creates the 'launch' subcommand
func newLaunchCmd() *cobra.Command {
	var (
		optionPairs []string
		stateFile   string
		serve       bool
	)

	cmd := &cobra.Command{
		Use:   "launch",
		Short: "Run the launch sequence",
		Long: `Run the launch sequence once and report the outcome.

The command exits non-zero when the application did not become ready.
With --serve the status listener keeps running until SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			options, err := parseOptions(optionPairs)
			if err != nil {
				return err
			}

			var restored []byte
			if stateFile != "" {
				if restored, err = os.ReadFile(stateFile); err != nil {
					return fmt.Errorf("failed to read restored state: %w", err)
				}
			}

			ctx := cmd.Context()
			app, err := bootstrap.NewApp(ctx, configFile)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				app.Shutdown(shutdownCtx)
			}()

			if serve && !app.Config.Status.Enabled {
				return fmt.Errorf("--serve requires a status listener (set status.enabled)")
			}

			lc := host.NewLaunchContext(options, restored)

			var s *spinner.Spinner
			if !outputJSON && !quiet {
				s = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
				s.Writer = cmd.ErrOrStderr()
				s.Suffix = " Launching " + app.Config.App.Name + "..."
				s.Start()
			}

			result := app.Launch(ctx, lc)

			if s != nil {
				s.Stop()
			}

			if outputJSON {
				if err := outputAsJSON(out, newLaunchReport(lc, result)); err != nil {
					return err
				}
			} else {
				renderLaunchResult(out, lc, result)
			}

			if !result.Ready() {
				return fmt.Errorf("%w: %v", ErrNotReady, result.Err)
			}

			if serve {
				if addr := app.Host.ListenAddr(); addr != "" && !quiet && !outputJSON {
					infoColor.Fprintf(out, "Serving status on http://%s (Ctrl+C to stop)\n", addr)
				}
				app.WaitForShutdown(ctx)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&optionPairs, "option", "o", nil, "Launch option as key=value (repeatable)")
	cmd.Flags().StringVar(&stateFile, "state-file", "", "File holding restored state to pass to the application")
	cmd.Flags().BoolVar(&serve, "serve", false, "Keep the status listener running after a successful launch")

	return cmd
}

// newStepsCmd creates the 'steps' subcommand
func newStepsCmd() *cobra.Command {
	var outputYAML bool

	cmd := &cobra.Command{
		Use:   "steps",
		Short: "Show the launch step plan",
		Long:  "Display the launch steps in run order, as the loaded configuration would run them.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			plan := bootstrap.Plan(cfg.IsGracefulMode())
			out := cmd.OutOrStdout()

			switch {
			case outputJSON:
				return outputAsJSON(out, plan)
			case outputYAML:
				return outputAsYAML(out, plan)
			}

			registry := extensions.NewRegistry(nil, cfg.Extensions.Disabled)
			if err := extensions.RegisterBuiltins(registry, extensions.Deps{}); err != nil {
				return err
			}

			renderPlan(out, cfg, plan)
			renderExtensions(out, registry)
			return nil
		},
	}

	cmd.Flags().BoolVar(&outputYAML, "yaml", false, "Output in YAML format")

	return cmd
}

// newHistoryCmd creates the 'history' subcommand
func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent launches",
		Long:  "Display the most recent launches recorded in the launch journal.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive, got %d", limit)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
			defer cancel()

			cfg, err := config.LoadConfig(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cfg.Journal.Backend == journal.BackendNone {
				return fmt.Errorf("no launch journal configured (set journal.backend to sqlite or redis)")
			}

			_, sugar, err := bootstrap.InitLogger("error")
			if err != nil {
				return err
			}

			j, err := journal.New(ctx, bootstrap.JournalOptions(cfg), sugar)
			if err != nil {
				return fmt.Errorf("failed to open launch journal: %w", err)
			}
			defer j.Close()

			entries, err := j.Recent(ctx, limit)
			if err != nil {
				return fmt.Errorf("failed to read launch journal: %w", err)
			}

			out := cmd.OutOrStdout()
			if outputJSON {
				if entries == nil {
					entries = []journal.Entry{}
				}
				return outputAsJSON(out, entries)
			}

			renderHistory(out, entries)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of launches to show")

	return cmd
}
