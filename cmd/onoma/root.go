package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/onoma/constants"
	"github.com/joseph-ayodele/onoma/internal/common"
	"github.com/joseph-ayodele/onoma/internal/export"
	"github.com/joseph-ayodele/onoma/internal/ingest"
	"github.com/joseph-ayodele/onoma/internal/pipeline"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	verbose    bool
	logFormat  string
}

type renameFlags struct {
	dryRun      bool
	interactive bool
	debug       bool
	convention  string
	provider    string
	model       string
	format      string
	minWords    int
	maxWords    int
	report      string
	planOut     string
	noHistory   bool
	skipHidden  bool
}

// app carries the streams and the logger built from the global flags.
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	global globalFlags
	logger *slog.Logger
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	a := &app{in: stdin, out: stdout, errOut: stderr}
	var rf renameFlags

	cmd := &cobra.Command{
		Use:   "onoma [flags] <file|dir|glob>...",
		Short: "Rename files after their content using a language model",
		Long: "onoma extracts the content of each file, asks a language model for three\n" +
			"descriptive names in the chosen naming convention and renames the file\n" +
			"to the best one. Directories are walked recursively and glob patterns\n" +
			"support ** matching.",
		Version:       version,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			a.logger = newLogger(a.errOut, a.global.logFormat, a.global.verbose)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runRename(cmd, args, rf)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&a.global.configPath, "config", "c", "", "config file (default "+common.DefaultConfigPath()+")")
	pf.BoolVarP(&a.global.verbose, "verbose", "v", false, "debug logging and print the effective configuration")
	pf.StringVar(&a.global.logFormat, "log-format", "json", "log format: json or text")

	f := cmd.Flags()
	f.BoolVarP(&rf.dryRun, "dry-run", "n", false, "show the planned renames without touching any file")
	f.BoolVarP(&rf.interactive, "interactive", "i", false, "after a dry-run, ask before applying the plan (requires --dry-run)")
	f.BoolVar(&rf.debug, "debug", false, "keep scratch files and print their paths")
	f.StringVar(&rf.convention, "convention", "", "naming convention: "+strings.Join(constants.ConventionStrings(), ", "))
	f.StringVarP(&rf.provider, "provider", "p", "", "suggestion provider: openai, azure or mock")
	f.StringVarP(&rf.model, "model", "m", "", "model name for the openai provider")
	f.StringVar(&rf.format, "format", "", "treat every input as this format instead of guessing from the extension")
	f.IntVar(&rf.minWords, "min-words", 0, "minimum words per suggested name")
	f.IntVar(&rf.maxWords, "max-words", 0, "maximum words per suggested name")
	f.StringVar(&rf.report, "report", "", "write an .xlsx report of the run to this path")
	f.StringVar(&rf.planOut, "plan-out", "", "write the planned renames of a dry-run as YAML for 'onoma apply'")
	f.BoolVar(&rf.noHistory, "no-history", false, "do not record this run in the history store")
	f.BoolVar(&rf.skipHidden, "skip-hidden", true, "ignore dot-files and dot-directories found while walking")

	cmd.AddCommand(
		newSaveConfigCmd(a),
		newApplyCmd(a),
		newHistoryCmd(a),
		newUndoCmd(a),
		newSuggestCmd(a),
	)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd
}

// loadConfig reads the config file and environment, then validates.
func (a *app) loadConfig(override func(*common.Config)) (*common.Config, error) {
	cfg, err := common.LoadConfig(a.global.configPath, a.logger)
	if err != nil {
		return nil, err
	}
	if override != nil {
		override(cfg)
		cfg.Normalize(a.logger)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if a.global.verbose {
		a.logger.Debug("config.effective", "config", cfg.String())
	}
	return cfg, nil
}

func (a *app) runRename(cmd *cobra.Command, args []string, rf renameFlags) error {
	ctx := cmd.Context()
	if rf.interactive && !rf.dryRun {
		return fmt.Errorf("%w: --interactive requires --dry-run", common.ErrInvalidInput)
	}
	var force constants.Format
	if rf.format != "" {
		ff, ok := constants.ParseFormat(rf.format)
		if !ok {
			return fmt.Errorf("%w: unknown format %q", common.ErrInvalidInput, rf.format)
		}
		force = ff
	}

	flags := cmd.Flags()
	cfg, err := a.loadConfig(func(c *common.Config) {
		if flags.Changed("convention") {
			c.Naming.Convention = rf.convention
		}
		if flags.Changed("provider") {
			c.Provider = strings.ToLower(rf.provider)
		}
		if flags.Changed("model") {
			c.LLM.Model = rf.model
		}
		if flags.Changed("min-words") {
			c.Naming.MinWords = rf.minWords
		}
		if flags.Changed("max-words") {
			c.Naming.MaxWords = rf.maxWords
		}
	})
	if err != nil {
		return err
	}

	files, stats, err := ingest.NewCollector(ingest.Options{SkipHidden: rf.skipHidden}, a.logger).Collect(args)
	if err != nil {
		return err
	}
	a.logger.Info("onoma.start",
		"files", len(files),
		"duplicates", stats.Duplicates,
		"hidden_skipped", stats.Hidden,
		"provider", cfg.Provider,
		"convention", cfg.Naming.Convention,
		"dry_run", rf.dryRun,
	)

	gen, err := newGenerator(cfg, a.logger)
	if err != nil {
		return err
	}
	store := openJournal(ctx, cfg, rf.noHistory, a.logger)
	if store != nil {
		defer store.Close()
	}

	sm := newScratch(cfg, rf.debug, a.out, a.logger)
	proc := newProcessor(cfg, gen, sm, force, rf.dryRun, a.logger)
	runner := pipeline.NewRunner(proc, journal(store), pipeline.Options{
		Provider:    gen.Name(),
		Convention:  cfg.Naming.Convention,
		DryRun:      rf.dryRun,
		Interactive: rf.interactive,
		Out:         a.out,
		In:          a.in,
	}, a.logger)

	rep, runErr := runner.Run(ctx, files)

	if rf.planOut != "" {
		plan := pipeline.PlanFromReport(rep)
		if err := pipeline.WritePlan(rf.planOut, plan); err != nil {
			a.logger.Error("plan.write_failed", "path", rf.planOut, "error", err)
		} else {
			_, _ = fmt.Fprintf(a.out, "Plan with %d rename(s) written to %s\n", len(plan.Items), rf.planOut)
		}
	}
	a.writeReport(rf.report, rep)
	a.printSummary(rep.Stats)
	return runErr
}

// writeReport is best effort: a failed report never fails the run.
func (a *app) writeReport(path string, rep pipeline.Report) {
	if path == "" {
		return
	}
	data, err := export.RunXLSX(rep.Run, rep.Entries, a.logger)
	if err == nil {
		err = os.WriteFile(path, data, 0o644)
	}
	if err != nil {
		a.logger.Error("report.write_failed", "path", path, "error", err)
		return
	}
	_, _ = fmt.Fprintf(a.out, "Report written to %s\n", path)
}

func (a *app) printSummary(s pipeline.RunStats) {
	_, _ = fmt.Fprintf(a.out, "\nProcessed %d file(s): %d renamed, %d planned, %d unchanged, %d skipped, %d failed\n",
		s.Files, s.Renamed, s.Planned, s.Unchanged, s.Skipped, s.Failed)
}
