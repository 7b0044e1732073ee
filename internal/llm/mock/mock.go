// Package mock provides a Generator that answers without a network call.
package mock

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/joseph-ayodele/onoma/constants"
	"github.com/joseph-ayodele/onoma/internal/common"
	"github.com/joseph-ayodele/onoma/internal/llm"
	"github.com/joseph-ayodele/onoma/internal/naming"
)

var fixed = map[constants.NamingConvention][naming.SuggestionCount]string{
	constants.SnakeCase:   {"mock_file_one", "mock_file_two", "mock_file_three"},
	constants.CamelCase:   {"mockFileOne", "mockFileTwo", "mockFileThree"},
	constants.KebabCase:   {"mock-file-one", "mock-file-two", "mock-file-three"},
	constants.PascalCase:  {"MockFileOne", "MockFileTwo", "MockFileThree"},
	constants.DotNotation: {"mock.file.one", "mock.file.two", "mock.file.three"},
	constants.NaturalLang: {"Mock File One", "Mock File Two", "Mock File Three"},
}

// Generator returns the same three names for every request, shaped to the
// request's convention.
type Generator struct {
	logger *slog.Logger
	calls  atomic.Int64
}

func New(logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{logger: logger}
}

func (g *Generator) Name() string { return "mock" }

// Calls reports how many requests were answered.
func (g *Generator) Calls() int { return int(g.calls.Load()) }

// Names returns the fixed suggestions for conv.
func Names(conv constants.NamingConvention) []string {
	n, ok := fixed[conv]
	if !ok {
		n = fixed[constants.DefaultStyle]
	}
	return n[:]
}

func (g *Generator) Suggest(ctx context.Context, req llm.Request) (naming.SuggestionSet, error) {
	if err := ctx.Err(); err != nil {
		return naming.SuggestionSet{}, err
	}
	if req.Grammar == nil {
		return naming.SuggestionSet{}, fmt.Errorf("%w: request has no grammar", common.ErrInvalidInput)
	}
	g.calls.Add(1)
	g.logger.Debug("llm.mock.suggest",
		"convention", string(req.Grammar.Convention),
		"has_image", req.ImagePath != "",
		"text_len", len(req.User),
	)
	set, err := naming.NewSuggestionSet(req.Grammar, Names(req.Grammar.Convention))
	if err != nil {
		return naming.SuggestionSet{}, fmt.Errorf("%w: mock: %v", common.ErrGenerator, err)
	}
	return set, nil
}
