// Package suggest turns extracted content into three name suggestions by
// querying a generator once for plain text, or in three phases for content
// that comes with page, slide or image artifacts.
package suggest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/onoma/internal/common"
	"github.com/joseph-ayodele/onoma/internal/extract"
	"github.com/joseph-ayodele/onoma/internal/llm"
	"github.com/joseph-ayodele/onoma/internal/naming"
)

// DefaultMaxContentChars bounds the text sent in a single query.
const DefaultMaxContentChars = 195000

type Config struct {
	MaxContentChars  int
	ImageConcurrency int
	Prompts          llm.Prompts
}

type Aggregator struct {
	gen     llm.Generator
	grammar *naming.Grammar
	cfg     Config
	logger  *slog.Logger
}

func New(gen llm.Generator, grammar *naming.Grammar, cfg Config, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxContentChars <= 0 {
		cfg.MaxContentChars = DefaultMaxContentChars
	}
	if cfg.ImageConcurrency < 1 {
		cfg.ImageConcurrency = 1
	}
	return &Aggregator{gen: gen, grammar: grammar, cfg: cfg, logger: logger}
}

func (a *Aggregator) Grammar() *naming.Grammar { return a.grammar }

// Suggest returns the suggestions for one extraction result.
func (a *Aggregator) Suggest(ctx context.Context, res extract.Result) (naming.SuggestionSet, error) {
	if r, ok := res.(extract.TextWithArtifacts); ok && len(r.Artifacts) > 0 {
		return a.multi(ctx, r)
	}
	return a.single(ctx, extract.Text(res))
}

func (a *Aggregator) single(ctx context.Context, content string) (naming.SuggestionSet, error) {
	return a.query(ctx, "text", a.cfg.Prompts.TextRequest(a.grammar, a.truncate(content)))
}

// producer yields a candidate set; it runs only if every earlier one failed.
type producer struct {
	phase string
	run   func(context.Context) (naming.SuggestionSet, error)
}

func (a *Aggregator) multi(ctx context.Context, r extract.TextWithArtifacts) (naming.SuggestionSet, error) {
	start := time.Now()
	guidance, err := a.perArtifact(ctx, r.Artifacts)
	if err != nil {
		return naming.SuggestionSet{}, err
	}

	producers := []producer{
		{phase: "synthesis", run: func(ctx context.Context) (naming.SuggestionSet, error) {
			content := llm.SynthesisContent(guidance, a.truncate(r.Markdown))
			return a.query(ctx, "synthesis", a.cfg.Prompts.TextRequest(a.grammar, content))
		}},
		{phase: "markdown", run: func(ctx context.Context) (naming.SuggestionSet, error) {
			req := a.cfg.Prompts.TextRequest(a.grammar, a.truncate(r.Markdown))
			req.ImagePath = r.Artifacts[0]
			return a.query(ctx, "markdown", req)
		}},
		{phase: "artifacts", run: func(context.Context) (naming.SuggestionSet, error) {
			return naming.FromCandidates(a.grammar, guidance)
		}},
	}

	var errs []error
	for _, p := range producers {
		if err := ctx.Err(); err != nil {
			return naming.SuggestionSet{}, err
		}
		set, err := p.run(ctx)
		if err == nil {
			a.logger.Info("suggest.resolved",
				"phase", p.phase,
				"artifacts", len(r.Artifacts),
				"guidance", len(guidance),
				"best", set.Best(),
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return set, nil
		}
		a.logger.Warn("suggest.phase_failed", "phase", p.phase, "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", p.phase, err))
	}
	return naming.SuggestionSet{}, fmt.Errorf("%w: all phases failed: %w", common.ErrGenerator, errors.Join(errs...))
}

// perArtifact runs one image query per artifact and flattens the successful
// answers in artifact order. Individual failures are skipped.
func (a *Aggregator) perArtifact(ctx context.Context, artifacts []string) ([]string, error) {
	results := make([][]string, len(artifacts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.ImageConcurrency)
	for i, img := range artifacts {
		g.Go(func() error {
			set, err := a.query(gctx, "artifact", a.cfg.Prompts.ImageRequest(a.grammar, img))
			if err != nil {
				a.logger.Warn("suggest.artifact_failed", "index", i+1, "artifact", img, "error", err)
				return nil
			}
			results[i] = set.All()
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var flat []string
	for _, r := range results {
		flat = append(flat, r...)
	}
	a.logger.Debug("suggest.artifacts_done", "artifacts", len(artifacts), "guidance", len(flat))
	return flat, nil
}

func (a *Aggregator) query(ctx context.Context, phase string, req llm.Request) (naming.SuggestionSet, error) {
	set, err := a.gen.Suggest(ctx, req)
	if err != nil {
		if errors.Is(err, common.ErrGenerator) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return naming.SuggestionSet{}, err
		}
		return naming.SuggestionSet{}, fmt.Errorf("%w: %s query: %w", common.ErrGenerator, phase, err)
	}
	// Validate against this aggregator's grammar.
	if set.IsZero() {
		return naming.SuggestionSet{}, fmt.Errorf("%w: %s query returned no suggestions", common.ErrGenerator, phase)
	}
	checked, err := naming.NewSuggestionSet(a.grammar, set.All())
	if err != nil {
		return naming.SuggestionSet{}, fmt.Errorf("%w: %s query: %w", common.ErrGenerator, phase, err)
	}
	return checked, nil
}

func (a *Aggregator) truncate(content string) string {
	out, cut := llm.TruncateRunes(content, a.cfg.MaxContentChars)
	if cut {
		a.logger.Debug("suggest.content_truncated", "limit", a.cfg.MaxContentChars)
	}
	return out
}
