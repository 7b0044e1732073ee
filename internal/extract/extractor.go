// Package extract produces text, and where useful page or slide images, from
// an input file. Every scratch area it creates is owned by the returned
// Result; on failure nothing is left behind.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/onoma/constants"
	"github.com/joseph-ayodele/onoma/internal/common"
	"github.com/joseph-ayodele/onoma/internal/scratch"
	"github.com/joseph-ayodele/onoma/internal/textenc"
)

// DebugContentFile is written into the scratch area when scratch is preserved.
const DebugContentFile = "extracted_content.md"

type Config struct {
	Pdftotext     string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm      string // if empty -> "pdftoppm"
	Soffice       string // if empty -> "soffice"
	Convert       string // ImageMagick convert; if empty -> "convert"
	HeicConverter string // heif-convert | magick | sips; if empty -> "magick"

	PDFDPI       int // page raster resolution, default 72
	SlideDensity int // default 150
	SlideQuality int // JPEG quality, default 80
	SlideMaxSide int // slide image height, default 1024
	SVGMaxSide   int // default 1024

	// ForceFormat overrides extension-based format detection when set.
	ForceFormat constants.Format
}

type Extractor struct {
	cfg        Config
	runner     Runner
	scratch    *scratch.Manager
	enc        *textenc.Normalizer
	converters *Registry
	logger     *slog.Logger
}

func NewExtractor(cfg Config, sm *scratch.Manager, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if sm == nil {
		sm = scratch.NewManager(scratch.Options{}, logger)
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Soffice == "" {
		cfg.Soffice = "soffice"
	}
	if cfg.Convert == "" {
		cfg.Convert = "convert"
	}
	if cfg.HeicConverter == "" {
		cfg.HeicConverter = "magick"
	}
	if cfg.PDFDPI <= 0 {
		cfg.PDFDPI = 72
	}
	if cfg.SlideDensity <= 0 {
		cfg.SlideDensity = 150
	}
	if cfg.SlideQuality <= 0 {
		cfg.SlideQuality = 80
	}
	if cfg.SlideMaxSide <= 0 {
		cfg.SlideMaxSide = 1024
	}
	if cfg.SVGMaxSide <= 0 {
		cfg.SVGMaxSide = 1024
	}
	return &Extractor{
		cfg:        cfg,
		runner:     execRunner{},
		scratch:    sm,
		enc:        textenc.NewNormalizer(logger),
		converters: NewRegistry(logger),
		logger:     logger,
	}
}

// WithRunner swaps the external command runner.
func (e *Extractor) WithRunner(r Runner) *Extractor {
	e.runner = r
	return e
}

// WithNormalizer swaps the encoding normalizer.
func (e *Extractor) WithNormalizer(n *textenc.Normalizer) *Extractor {
	e.enc = n
	return e
}

// Converters exposes the converter registry so callers can add formats.
func (e *Extractor) Converters() *Registry { return e.converters }

// Scratch returns the manager that owns this extractor's scratch areas.
func (e *Extractor) Scratch() *scratch.Manager { return e.scratch }

// Extract picks a strategy based on the file extension (or ForceFormat).
// Panics inside converters are recovered and reported as ErrExtraction.
func (e *Extractor) Extract(ctx context.Context, path string) (res Result, err error) {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(path))
	lease := e.scratch.Lease(leasePrefix(ext))

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("extract.panic", "path", path, "panic", r)
			err = fmt.Errorf("%w: %s: panic: %v", common.ErrExtraction, path, r)
		}
		if err != nil {
			if relErr := lease.Release(); relErr != nil {
				e.logger.Warn("extract.release_failed", "path", path, "error", relErr)
			}
			res = nil
		}
	}()

	st, statErr := os.Stat(path)
	if statErr != nil {
		return nil, fmt.Errorf("%w: %s: %v", common.ErrIO, path, statErr)
	}
	if st.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", common.ErrInvalidInput, path)
	}

	format := constants.MapExtToFormat(ext)
	if e.cfg.ForceFormat != "" {
		format = e.cfg.ForceFormat
	}
	e.logger.Debug("extract.start", "path", path, "ext", ext, "format", format)

	switch format {
	case constants.TEXT:
		res, err = e.extractText(path, lease)
	case constants.PDF:
		res, err = e.extractPDF(ctx, path, lease)
	case constants.PPTX:
		res, err = e.extractPPTX(ctx, path, lease)
	case constants.IMAGE:
		res, err = e.extractImage(ctx, path, lease)
	default:
		res, err = e.extractConverted(ctx, path, format, lease)
	}
	if err != nil {
		e.logger.Error("extract.failed", "path", path, "format", format, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}

	if e.scratch.Preserve() {
		res, err = e.dumpContent(res, lease)
		if err != nil {
			return nil, err
		}
	}

	e.logger.Info("extract.ok",
		"path", path,
		"format", format,
		"chars", len([]rune(Text(res))),
		"artifacts", artifactCount(res),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func (e *Extractor) extractText(path string, lease *scratch.Lease) (Result, error) {
	norm, err := e.enc.EnsureUTF8(path, lease)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(norm.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", common.ErrIO, norm.Path, err)
	}
	content := strings.TrimPrefix(string(b), "\ufeff")
	if area := lease.Area(); area != nil {
		return TextWithScratch{Markdown: content, Scratch: area}, nil
	}
	return TextOnly{Content: content}, nil
}

// extractConverted runs the registered converter for format, after making
// text-like inputs UTF-8.
func (e *Extractor) extractConverted(ctx context.Context, path string, format constants.Format, lease *scratch.Lease) (Result, error) {
	src := path
	if constants.IsTextLikeExt(filepath.Ext(path)) {
		norm, err := e.enc.EnsureUTF8(path, lease)
		if err != nil {
			return nil, err
		}
		src = norm.Path
	}

	md, err := e.converters.Convert(ctx, format, src)
	if err != nil {
		return nil, err
	}
	md = Normalize(md)
	if area := lease.Area(); area != nil {
		return TextWithScratch{Markdown: md, Scratch: area}, nil
	}
	return TextOnly{Content: md}, nil
}

// dumpContent saves the extracted text next to any other scratch output so
// it can be inspected after the run.
func (e *Extractor) dumpContent(res Result, lease *scratch.Lease) (Result, error) {
	area, err := lease.Get()
	if err != nil {
		return nil, err
	}
	out := area.Path(DebugContentFile)
	if err := os.WriteFile(out, []byte(Text(res)), 0o644); err != nil {
		return nil, fmt.Errorf("%w: write %s: %v", common.ErrIO, out, err)
	}
	switch v := res.(type) {
	case TextOnly:
		return TextWithScratch{Markdown: v.Content, Scratch: area}, nil
	case TextWithArtifacts:
		v.Scratch = area
		return v, nil
	case TextWithScratch:
		v.Scratch = area
		return v, nil
	}
	return res, nil
}

func leasePrefix(ext string) string {
	if ext == "" {
		return "file"
	}
	return ext
}

func artifactCount(r Result) int {
	if v, ok := r.(TextWithArtifacts); ok {
		return len(v.Artifacts)
	}
	return 0
}
