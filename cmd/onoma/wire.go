package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/joseph-ayodele/onoma/constants"
	"github.com/joseph-ayodele/onoma/internal/common"
	"github.com/joseph-ayodele/onoma/internal/extract"
	"github.com/joseph-ayodele/onoma/internal/history"
	"github.com/joseph-ayodele/onoma/internal/llm"
	"github.com/joseph-ayodele/onoma/internal/llm/mock"
	"github.com/joseph-ayodele/onoma/internal/llm/openai"
	"github.com/joseph-ayodele/onoma/internal/naming"
	"github.com/joseph-ayodele/onoma/internal/pipeline"
	"github.com/joseph-ayodele/onoma/internal/rename"
	"github.com/joseph-ayodele/onoma/internal/scratch"
	"github.com/joseph-ayodele/onoma/internal/suggest"
)

// newGenerator picks the suggestion backend for cfg.Provider.
func newGenerator(cfg *common.Config, logger *slog.Logger) (llm.Generator, error) {
	base := openai.Config{
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout.Duration,
		Lenient:     cfg.LLM.Lenient,
		MaxImageMB:  cfg.LLM.MaxImageMB,
	}
	switch cfg.Provider {
	case common.ProviderMock:
		return mock.New(logger), nil
	case common.ProviderAzure:
		base.APIKey = cfg.Azure.APIKey
		base.AzureEndpoint = cfg.Azure.Endpoint
		base.AzureDeployment = cfg.Azure.Deployment
		base.AzureAPIVersion = cfg.Azure.APIVersion
		return openai.NewClient(base, logger), nil
	case common.ProviderOpenAI:
		base.APIKey = cfg.LLM.APIKey
		base.BaseURL = cfg.LLM.BaseURL
		return openai.NewClient(base, logger), nil
	}
	return nil, fmt.Errorf("%w: unknown provider %q", common.ErrInvalidInput, cfg.Provider)
}

// newScratch returns the manager for a run; in debug mode every kept path
// is printed once.
func newScratch(cfg *common.Config, debug bool, stdout io.Writer, logger *slog.Logger) *scratch.Manager {
	opts := scratch.Options{BaseDir: cfg.Extract.TempDir, Preserve: debug}
	if debug {
		opts.Report = func(path string) {
			_, _ = fmt.Fprintf(stdout, "[DEBUG] preserved: %s\n", path)
		}
	}
	return scratch.NewManager(opts, logger)
}

func newExtractor(cfg *common.Config, force constants.Format, sm *scratch.Manager, logger *slog.Logger) *extract.Extractor {
	return extract.NewExtractor(extract.Config{
		Pdftotext:     cfg.Extract.Pdftotext,
		Pdftoppm:      cfg.Extract.Pdftoppm,
		Soffice:       cfg.Extract.Soffice,
		Convert:       cfg.Extract.Convert,
		HeicConverter: cfg.Extract.HeicConverter,
		PDFDPI:        cfg.Extract.PDFDPI,
		SlideDensity:  cfg.Extract.SlideDensity,
		SlideQuality:  cfg.Extract.SlideQuality,
		SlideMaxSide:  cfg.Extract.SlideMaxSide,
		SVGMaxSide:    cfg.Extract.SVGMaxSide,
		ForceFormat:   force,
	}, sm, logger)
}

func newAggregator(cfg *common.Config, gen llm.Generator, logger *slog.Logger) *suggest.Aggregator {
	g := naming.GrammarFor(constants.NamingConvention(cfg.Naming.Convention), cfg.Naming.MinWords, cfg.Naming.MaxWords)
	return suggest.New(gen, g, suggest.Config{
		MaxContentChars:  cfg.LLM.MaxContentChars,
		ImageConcurrency: cfg.LLM.ImageConcurrency,
		Prompts: llm.Prompts{
			System: cfg.Prompts.System,
			User:   cfg.Prompts.User,
			Image:  cfg.Prompts.Image,
		},
	}, logger)
}

// newProcessor wires extraction, suggestion and renaming for one run.
func newProcessor(cfg *common.Config, gen llm.Generator, sm *scratch.Manager, force constants.Format, dryRun bool, logger *slog.Logger) *pipeline.Processor {
	return pipeline.NewProcessor(
		newExtractor(cfg, force, sm, logger),
		sm,
		newAggregator(cfg, gen, logger),
		rename.NewRenamer(dryRun, logger),
		cfg.Extract.SVGMaxSide,
		logger,
	)
}

// openJournal opens the history store, or returns nil when history is off.
// A store that cannot be opened is logged and skipped.
func openJournal(ctx context.Context, cfg *common.Config, disabled bool, logger *slog.Logger) *history.Store {
	if disabled || !cfg.History.Enabled {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	s, err := history.Open(ctx, history.Config{DSN: cfg.History.DSN}, logger)
	if err != nil {
		logger.Warn("history.unavailable", "error", err)
		return nil
	}
	return s
}

// journal adapts a possibly nil store to the pipeline's Journal.
func journal(s *history.Store) pipeline.Journal {
	if s == nil {
		return nil
	}
	return s
}
