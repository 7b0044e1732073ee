package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/onoma/constants"
	"github.com/joseph-ayodele/onoma/internal/common"
	"github.com/joseph-ayodele/onoma/internal/history"
	"github.com/joseph-ayodele/onoma/internal/ingest"
	"github.com/joseph-ayodele/onoma/internal/rename"
)

// Journal persists runs. *history.Store satisfies it.
type Journal interface {
	BeginRun(ctx context.Context, run *history.Run) error
	Record(ctx context.Context, e *history.Entry) error
	FinishRun(ctx context.Context, run history.Run) error
}

type Options struct {
	Provider   string
	Convention string
	DryRun     bool
	// Interactive asks for confirmation after a dry-run and applies the
	// planned renames when the answer is yes.
	Interactive bool
	Out         io.Writer // user-facing lines; default os.Stdout
	In          io.Reader // confirmation answers; default os.Stdin
}

// RunStats counts outcomes by status.
type RunStats struct {
	Files     int
	Renamed   int
	Planned   int
	Unchanged int
	Skipped   int
	Failed    int
}

// Report is everything a run produced.
type Report struct {
	Run         history.Run
	Results     []FileResult
	Entries     []history.Entry
	Stats       RunStats
	Interrupted bool
}

type Runner struct {
	proc    *Processor
	journal Journal
	opts    Options
	logger  *slog.Logger
}

// NewRunner wires a run loop. journal may be nil.
func NewRunner(proc *Processor, journal Journal, opts Options, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.In == nil {
		opts.In = os.Stdin
	}
	return &Runner{proc: proc, journal: journal, opts: opts, logger: logger}
}

// Run processes files strictly in order. Cancellation is honoured between
// files; the returned error is ctx.Err() in that case and the report covers
// the files that finished.
func (r *Runner) Run(ctx context.Context, files []string) (Report, error) {
	return r.loop(ctx, files, r.proc.ProcessFile)
}

func (r *Runner) loop(ctx context.Context, files []string, step func(context.Context, string) FileResult) (Report, error) {
	rep := Report{Run: history.Run{
		ID:         uuid.New().String(),
		StartedAt:  time.Now().UTC(),
		Provider:   r.opts.Provider,
		Convention: r.opts.Convention,
		DryRun:     r.opts.DryRun,
	}}
	ctx = common.WithRunID(ctx, rep.Run.ID)
	r.logger.Info("pipeline.run.start", "run_id", rep.Run.ID, "files", len(files), "dry_run", r.opts.DryRun)

	var runErr error
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			rep.Interrupted = true
			runErr = err
			r.logger.Warn("pipeline.run.interrupted", "run_id", rep.Run.ID, "done", len(rep.Results), "remaining", len(files)-len(rep.Results))
			break
		}
		res := step(ctx, f)
		r.print(res)
		rep.Results = append(rep.Results, res)
	}

	if r.opts.DryRun && r.opts.Interactive && !rep.Interrupted {
		r.confirm(ctx, &rep)
	}

	rep.Stats = stats(rep.Results)
	rep.Run.Files = rep.Stats.Files
	rep.Run.Renamed = rep.Stats.Renamed
	rep.Run.Failed = rep.Stats.Failed
	rep.Run.DryRun = r.opts.DryRun && rep.Stats.Renamed == 0
	rep.Run.FinishedAt = time.Now().UTC()
	rep.Entries = r.entries(rep)

	// Journal what happened even after an interrupt.
	r.journalRun(context.WithoutCancel(ctx), rep)

	r.logger.Info("pipeline.run.done",
		"run_id", rep.Run.ID,
		"files", rep.Stats.Files,
		"renamed", rep.Stats.Renamed,
		"planned", rep.Stats.Planned,
		"unchanged", rep.Stats.Unchanged,
		"skipped", rep.Stats.Skipped,
		"failed", rep.Stats.Failed,
		"elapsed_ms", rep.Run.FinishedAt.Sub(rep.Run.StartedAt).Milliseconds(),
	)
	return rep, runErr
}

func (r *Runner) print(res FileResult) {
	w := r.opts.Out
	switch res.Status {
	case constants.StatusPlanned:
		_, _ = fmt.Fprintf(w, "%s --> %s\n", res.Path, res.Outcome.FinalName)
	case constants.StatusRenamed:
		_, _ = fmt.Fprintf(w, "Renamed '%s' to '%s'\n", filepath.Base(res.Path), res.Outcome.FinalName)
	case constants.StatusUnchanged:
		_, _ = fmt.Fprintf(w, "'%s' already has the suggested name\n", res.Path)
	case constants.StatusFailed:
		_, _ = fmt.Fprintf(w, "Error processing '%s': %v\n", res.Path, res.Err)
	}
}

// confirm asks once for all planned renames and applies them on "y".
func (r *Runner) confirm(ctx context.Context, rep *Report) {
	planned := 0
	for _, res := range rep.Results {
		if res.Status == constants.StatusPlanned {
			planned++
		}
	}
	if planned == 0 {
		return
	}

	_, _ = fmt.Fprintf(r.opts.Out, "Apply %d rename(s)? [y/N]: ", planned)
	answer := ""
	sc := bufio.NewScanner(r.opts.In)
	if sc.Scan() {
		answer = strings.ToLower(strings.TrimSpace(sc.Text()))
	}
	yes := answer == "y" || answer == "yes"

	mover := rename.NewRenamer(false, r.logger)
	for i := range rep.Results {
		res := &rep.Results[i]
		if res.Status != constants.StatusPlanned {
			continue
		}
		if !yes {
			res.Status = constants.StatusSkipped
			continue
		}
		if err := ctx.Err(); err != nil {
			res.Status = constants.StatusSkipped
			continue
		}
		outcome, err := mover.Apply(res.Path, res.Suggestions[0])
		res.Outcome = outcome
		if err != nil {
			res.Status = constants.StatusFailed
			res.Err = err
		} else if outcome.Changed {
			res.Status = constants.StatusRenamed
		} else {
			res.Status = constants.StatusUnchanged
		}
		r.print(*res)
	}
	if !yes {
		_, _ = fmt.Fprintln(r.opts.Out, "No files renamed.")
	}
}

func (r *Runner) entries(rep Report) []history.Entry {
	out := make([]history.Entry, 0, len(rep.Results))
	for i, res := range rep.Results {
		final := res.Outcome.FinalPath
		if final == "" {
			final = res.Path
		}
		e := history.Entry{
			RunID:        rep.Run.ID,
			Seq:          i + 1,
			OriginalPath: res.Path,
			FinalPath:    final,
			Suggestions:  res.Suggestions,
			Status:       res.Status,
		}
		if res.Err != nil {
			e.Error = res.Err.Error()
		}
		if res.Status == constants.StatusRenamed {
			if sum, err := ingest.Fingerprint(final); err == nil {
				e.ContentHash = sum
			} else {
				r.logger.Warn("pipeline.fingerprint_failed", "path", final, "error", err)
			}
		}
		out = append(out, e)
	}
	return out
}

func (r *Runner) journalRun(ctx context.Context, rep Report) {
	if r.journal == nil {
		return
	}
	run := rep.Run
	if err := r.journal.BeginRun(ctx, &run); err != nil {
		r.logger.Error("pipeline.journal.failed", "run_id", run.ID, "error", err)
		return
	}
	for i := range rep.Entries {
		if err := r.journal.Record(ctx, &rep.Entries[i]); err != nil {
			r.logger.Error("pipeline.journal.failed", "run_id", run.ID, "path", rep.Entries[i].OriginalPath, "error", err)
		}
	}
	if err := r.journal.FinishRun(ctx, run); err != nil {
		r.logger.Error("pipeline.journal.failed", "run_id", run.ID, "error", err)
	}
}

func stats(results []FileResult) RunStats {
	s := RunStats{Files: len(results)}
	for _, res := range results {
		switch res.Status {
		case constants.StatusRenamed:
			s.Renamed++
		case constants.StatusPlanned:
			s.Planned++
		case constants.StatusUnchanged:
			s.Unchanged++
		case constants.StatusSkipped:
			s.Skipped++
		case constants.StatusFailed:
			s.Failed++
		}
	}
	return s
}
