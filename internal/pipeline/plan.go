package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/joseph-ayodele/onoma/constants"
	"github.com/joseph-ayodele/onoma/internal/common"
)

// Plan is a dry-run written to disk so it can be reviewed, edited and
// applied later.
type Plan struct {
	RunID      string     `yaml:"run_id"`
	CreatedAt  time.Time  `yaml:"created_at"`
	Convention string     `yaml:"convention"`
	Items      []PlanItem `yaml:"items"`
}

type PlanItem struct {
	Source      string   `yaml:"source"`
	Target      string   `yaml:"target"` // file name, extension included
	Suggestions []string `yaml:"suggestions,omitempty"`
}

// PlanFromReport keeps the planned renames of a dry-run.
func PlanFromReport(rep Report) Plan {
	p := Plan{
		RunID:      rep.Run.ID,
		CreatedAt:  rep.Run.StartedAt,
		Convention: rep.Run.Convention,
	}
	for _, res := range rep.Results {
		if res.Status != constants.StatusPlanned {
			continue
		}
		p.Items = append(p.Items, PlanItem{
			Source:      res.Path,
			Target:      res.Outcome.FinalName,
			Suggestions: res.Suggestions,
		})
	}
	return p
}

func WritePlan(path string, p Plan) error {
	b, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("%w: encode plan: %w", common.ErrIO, err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("%w: write plan: %w", common.ErrIO, err)
	}
	return nil
}

func ReadPlan(path string) (Plan, error) {
	var p Plan
	b, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("%w: read plan: %w", common.ErrIO, err)
	}
	if err := yaml.Unmarshal(b, &p); err != nil {
		return p, fmt.Errorf("%w: decode plan %s: %w", common.ErrInvalidInput, path, err)
	}
	for i, it := range p.Items {
		if strings.TrimSpace(it.Source) == "" || strings.TrimSpace(it.Target) == "" {
			return p, fmt.Errorf("%w: plan item %d needs source and target", common.ErrInvalidInput, i+1)
		}
		if strings.ContainsAny(it.Target, `/\`) {
			return p, fmt.Errorf("%w: plan item %d: target %q must be a file name", common.ErrInvalidInput, i+1, it.Target)
		}
	}
	return p, nil
}

// Apply renames each plan item through the runner's renamer, resolving
// conflicts again against the directory as it is now.
func (r *Runner) Apply(ctx context.Context, p Plan) (Report, error) {
	items := make(map[string]PlanItem, len(p.Items))
	files := make([]string, 0, len(p.Items))
	for _, it := range p.Items {
		if _, dup := items[it.Source]; !dup {
			files = append(files, it.Source)
		}
		items[it.Source] = it
	}

	return r.loop(ctx, files, func(ctx context.Context, src string) FileResult {
		start := time.Now()
		it := items[src]
		out := FileResult{Path: src, Suggestions: it.Suggestions, Status: constants.StatusFailed}
		if _, err := os.Stat(src); err != nil {
			out.Err = fmt.Errorf("%w: %w", common.ErrIO, err)
			return out
		}
		// The plan stores a full name; the renamer adds the source's extension.
		base := strings.TrimSuffix(it.Target, filepath.Ext(src))
		outcome, err := r.proc.Renamer().Apply(src, base)
		out.Outcome = outcome
		out.Elapsed = time.Since(start)
		switch {
		case err != nil:
			out.Err = err
		case !outcome.Changed:
			out.Status = constants.StatusUnchanged
		case outcome.DryRun:
			out.Status = constants.StatusPlanned
		default:
			out.Status = constants.StatusRenamed
		}
		return out
	})
}
