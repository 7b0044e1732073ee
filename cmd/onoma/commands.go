package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/onoma/internal/common"
	"github.com/joseph-ayodele/onoma/internal/export"
	"github.com/joseph-ayodele/onoma/internal/history"
	"github.com/joseph-ayodele/onoma/internal/pipeline"
	"github.com/joseph-ayodele/onoma/internal/rename"
)

func newSaveConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "save-config [path]",
		Short: "Write the effective configuration as TOML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := common.LoadConfig(a.global.configPath, a.logger)
			if err != nil {
				return err
			}
			path := common.DefaultConfigPath()
			if len(args) == 1 {
				path = args[0]
			}
			if err := common.SaveConfig(path, cfg); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(a.out, "Configuration saved to %s\n", path)
			return nil
		},
	}
}

func newApplyCmd(a *app) *cobra.Command {
	var noHistory bool
	cmd := &cobra.Command{
		Use:   "apply <plan.yaml>",
		Short: "Apply a plan written by a dry-run with --plan-out",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := common.LoadConfig(a.global.configPath, a.logger)
			if err != nil {
				return err
			}
			plan, err := pipeline.ReadPlan(args[0])
			if err != nil {
				return err
			}
			store := openJournal(ctx, cfg, noHistory, a.logger)
			if store != nil {
				defer store.Close()
			}
			proc := pipeline.NewProcessor(nil, nil, nil, rename.NewRenamer(false, a.logger), 0, a.logger)
			runner := pipeline.NewRunner(proc, journal(store), pipeline.Options{
				Provider:   "plan:" + plan.RunID,
				Convention: plan.Convention,
				Out:        a.out,
				In:         a.in,
			}, a.logger)
			rep, err := runner.Apply(ctx, plan)
			a.printSummary(rep.Stats)
			return err
		},
	}
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "do not record the applied plan in the history store")
	return cmd
}

// openStore opens the history store for the history and undo commands,
// where a missing store is an error.
func (a *app) openStore(cmd *cobra.Command) (*history.Store, error) {
	cfg, err := common.LoadConfig(a.global.configPath, a.logger)
	if err != nil {
		return nil, err
	}
	if !cfg.History.Enabled {
		return nil, fmt.Errorf("%w: history is disabled in the configuration", common.ErrInvalidInput)
	}
	return history.Open(cmd.Context(), history.Config{DSN: cfg.History.DSN}, a.logger)
}

func newHistoryCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				_, _ = fmt.Fprintln(a.out, "No runs recorded.")
				return nil
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "RUN ID\tSTARTED\tPROVIDER\tCONVENTION\tFILES\tRENAMED\tFAILED\tMODE")
			for _, r := range runs {
				mode := "apply"
				if r.DryRun {
					mode = "dry-run"
				}
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
					r.ID, r.StartedAt.Local().Format(time.DateTime), r.Provider, r.Convention,
					r.Files, r.Renamed, r.Failed, mode)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list")
	cmd.AddCommand(newExportCmd(a), newHistoryCheckCmd(a))
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export <run-id> <out.xlsx>",
		Short: "Export one recorded run as an Excel workbook",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			data, err := export.NewService(store, a.logger).ExportRunXLSX(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := os.WriteFile(args[1], data, 0o644); err != nil {
				return fmt.Errorf("%w: %w", common.ErrIO, err)
			}
			_, _ = fmt.Fprintf(a.out, "Run %s exported to %s\n", args[0], args[1])
			return nil
		},
	}
}

func newUndoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "undo [run-id]",
		Short: "Restore the original names of a run (default: the last applied run)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			var runID string
			if len(args) == 1 {
				runID = strings.TrimSpace(args[0])
			} else if runID, err = store.LastRunID(ctx); err != nil {
				return err
			}

			res, err := history.Undo(ctx, store, runID, a.logger)
			for _, e := range res.Reverted {
				_, _ = fmt.Fprintf(a.out, "Restored '%s' to '%s'\n", e.FinalPath, e.OriginalPath)
			}
			for _, s := range res.Skipped {
				_, _ = fmt.Fprintf(a.out, "Skipped '%s': %s\n", s.Entry.FinalPath, s.Reason)
			}
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(a.out, "\nRun %s: %d restored, %d skipped\n", runID, len(res.Reverted), len(res.Skipped))
			return nil
		},
	}
}

func newHistoryCheckCmd(a *app) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check that the history store is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.HealthCheck(cmd.Context(), timeout); err != nil {
				return fmt.Errorf("%w: history health: %w", common.ErrDatabase, err)
			}
			runs, err := store.ListRuns(cmd.Context(), 1000)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(a.out, "History (%s): OK, %d run(s) recorded\n", store.Dialect(), len(runs))
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", time.Second, "ping timeout")
	return cmd
}

// suggestion is one line of 'onoma suggest' output.
type suggestion struct {
	Attempt     int      `json:"attempt"`
	File        string   `json:"file"`
	Suggestions []string `json:"suggestions,omitempty"`
	Target      string   `json:"target,omitempty"`
	ElapsedMS   int64    `json:"elapsed_ms"`
	Error       string   `json:"error,omitempty"`
}

func newSuggestCmd(a *app) *cobra.Command {
	var (
		repeat     int
		provider   string
		convention string
	)
	cmd := &cobra.Command{
		Use:   "suggest <file>",
		Short: "Print name suggestions for one file without renaming it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			flags := cmd.Flags()
			cfg, err := a.loadConfig(func(c *common.Config) {
				if flags.Changed("provider") {
					c.Provider = strings.ToLower(provider)
				}
				if flags.Changed("convention") {
					c.Naming.Convention = convention
				}
			})
			if err != nil {
				return err
			}
			if _, err := os.Stat(args[0]); err != nil {
				return fmt.Errorf("%w: %w", common.ErrNoInput, err)
			}
			gen, err := newGenerator(cfg, a.logger)
			if err != nil {
				return err
			}
			sm := newScratch(cfg, false, a.out, a.logger)

			enc := json.NewEncoder(a.out)
			for i := 1; i <= max(repeat, 1); i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				// A fresh dry-run renamer per attempt so earlier answers do
				// not count as claimed names.
				proc := newProcessor(cfg, gen, sm, "", true, a.logger)
				res := proc.ProcessFile(ctx, args[0])
				line := suggestion{
					Attempt:     i,
					File:        args[0],
					Suggestions: res.Suggestions,
					Target:      res.Outcome.FinalName,
					ElapsedMS:   res.Elapsed.Milliseconds(),
				}
				if res.Err != nil {
					line.Error = res.Err.Error()
				}
				if err := enc.Encode(line); err != nil {
					return fmt.Errorf("%w: %w", common.ErrIO, err)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&repeat, "repeat", 1, "ask this many times to compare answers")
	cmd.Flags().StringVarP(&provider, "provider", "p", "", "suggestion provider: openai, azure or mock")
	cmd.Flags().StringVar(&convention, "convention", "", "naming convention")
	return cmd
}
