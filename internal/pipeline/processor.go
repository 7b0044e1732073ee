// Package pipeline runs files through extraction, suggestion and renaming.
package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/onoma/constants"
	"github.com/joseph-ayodele/onoma/internal/common"
	"github.com/joseph-ayodele/onoma/internal/extract"
	"github.com/joseph-ayodele/onoma/internal/naming"
	"github.com/joseph-ayodele/onoma/internal/rename"
	"github.com/joseph-ayodele/onoma/internal/scratch"
)

// Suggester produces names for extracted content.
type Suggester interface {
	Suggest(ctx context.Context, res extract.Result) (naming.SuggestionSet, error)
}

// FileResult is the outcome of one file.
type FileResult struct {
	Path        string
	Suggestions []string
	Outcome     rename.Outcome
	Status      constants.RenameStatus
	Err         error
	Elapsed     time.Duration
}

// Processor coordinates extraction, suggestion and rename for one file.
type Processor struct {
	extractor  extract.ContentExtractor
	scratch    *scratch.Manager
	suggester  Suggester
	renamer    *rename.Renamer
	svgMaxSide int
	logger     *slog.Logger
}

func NewProcessor(
	ex extract.ContentExtractor,
	sm *scratch.Manager,
	sg Suggester,
	rn *rename.Renamer,
	svgMaxSide int,
	logger *slog.Logger,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if sm == nil {
		sm = scratch.NewManager(scratch.Options{}, logger)
	}
	if svgMaxSide <= 0 {
		svgMaxSide = 1024
	}
	return &Processor{
		extractor:  ex,
		scratch:    sm,
		suggester:  sg,
		renamer:    rn,
		svgMaxSide: svgMaxSide,
		logger:     logger,
	}
}

func (p *Processor) Renamer() *rename.Renamer { return p.renamer }

// ProcessFile extracts, asks for suggestions and renames path to the best
// one. Errors are returned in the result; scratch is released on every path.
func (p *Processor) ProcessFile(ctx context.Context, path string) FileResult {
	start := time.Now()
	ctx = common.WithFileID(ctx, uuid.New().String())
	out := FileResult{Path: path, Status: constants.StatusFailed}
	fail := func(stage string, err error) FileResult {
		out.Err = err
		out.Elapsed = time.Since(start)
		p.logger.Error("pipeline.file.failed",
			"run_id", common.RunIDFromContext(ctx),
			"file_id", common.FileIDFromContext(ctx),
			"path", path,
			"stage", stage,
			"kind", common.Kind(err),
			"error", err,
		)
		return out
	}

	// 1) extract
	res, err := p.extractor.Extract(ctx, path)
	if err != nil {
		return fail("extract", err)
	}
	res = p.withSVGRender(path, res)
	defer func() {
		if err := extract.Release(res); err != nil {
			p.logger.Warn("pipeline.scratch.release_failed", "path", path, "error", err)
		}
	}()

	// 2) suggest
	set, err := p.suggester.Suggest(ctx, res)
	if err != nil {
		return fail("suggest", err)
	}
	out.Suggestions = set.All()

	// 3) rename
	outcome, err := p.renamer.Apply(path, set.Best())
	out.Outcome = outcome
	if err != nil {
		return fail("rename", err)
	}

	switch {
	case !outcome.Changed:
		out.Status = constants.StatusUnchanged
	case outcome.DryRun:
		out.Status = constants.StatusPlanned
	default:
		out.Status = constants.StatusRenamed
	}
	out.Elapsed = time.Since(start)
	p.logger.Info("pipeline.file.ok",
		"run_id", common.RunIDFromContext(ctx),
		"file_id", common.FileIDFromContext(ctx),
		"path", path,
		"final", outcome.FinalName,
		"status", out.Status,
		"elapsed_ms", out.Elapsed.Milliseconds(),
	)
	return out
}

// withSVGRender gives an SVG result its rendered PNG as the single artifact.
// A failed render leaves the text-only result in place.
func (p *Processor) withSVGRender(path string, res extract.Result) extract.Result {
	if constants.MapExtToFormat(filepath.Ext(path)) != constants.SVG {
		return res
	}
	if _, ok := res.(extract.TextWithArtifacts); ok {
		return res
	}

	area := extract.ScratchOf(res)
	owned := false
	if area == nil {
		a, err := p.scratch.New("svg")
		if err != nil {
			p.logger.Warn("pipeline.svg.scratch_failed", "path", path, "error", err)
			return res
		}
		area, owned = a, true
	}

	png, err := extract.RenderSVG(path, area.Dir(), p.svgMaxSide)
	if err != nil {
		p.logger.Warn("pipeline.svg.render_failed", "path", path, "error", err)
		if owned {
			_ = area.Release()
		}
		return res
	}
	p.logger.Debug("pipeline.svg.rendered", "path", path, "png", png)
	return extract.TextWithArtifacts{
		Markdown:  extract.Text(res),
		Artifacts: []string{png},
		Scratch:   area,
	}
}
