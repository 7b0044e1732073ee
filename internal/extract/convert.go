package extract

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/joseph-ayodele/onoma/constants"
	"github.com/joseph-ayodele/onoma/internal/common"
)

// Converter turns a document into markdown.
type Converter interface {
	Convert(ctx context.Context, path string) (string, error)
}

// ConverterFunc adapts a plain function to Converter.
type ConverterFunc func(ctx context.Context, path string) (string, error)

func (f ConverterFunc) Convert(ctx context.Context, path string) (string, error) {
	return f(ctx, path)
}

// Registry maps formats to converters. Formats without an entry use the
// fallback, which accepts anything that sniffs as text.
type Registry struct {
	mu       sync.RWMutex
	byFormat map[constants.Format]Converter
	fallback Converter
	logger   *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		byFormat: map[constants.Format]Converter{},
		logger:   logger,
	}
	r.Register(constants.HTML, newHTMLConverter())
	r.Register(constants.DOCX, ConverterFunc(docxMarkdown))
	r.Register(constants.ODT, ConverterFunc(odtMarkdown))
	r.Register(constants.SVG, ConverterFunc(svgMarkdown))
	r.fallback = ConverterFunc(sniffText)
	return r
}

func (r *Registry) Register(f constants.Format, c Converter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byFormat[f] = c
}

// Convert runs the converter for f. Converter errors are reported as ErrExtraction.
func (r *Registry) Convert(ctx context.Context, f constants.Format, path string) (string, error) {
	r.mu.RLock()
	c, ok := r.byFormat[f]
	r.mu.RUnlock()
	if !ok {
		r.logger.Debug("extract.convert.fallback", "path", path, "format", f)
		c = r.fallback
	}
	md, err := c.Convert(ctx, path)
	if err != nil {
		return "", fmt.Errorf("%w: convert %s (%s): %v", common.ErrExtraction, path, f, err)
	}
	return md, nil
}

// sniffText reads unknown files that look like text.
func sniffText(_ context.Context, path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	head := b
	if len(head) > 512 {
		head = head[:512]
	}
	ct := http.DetectContentType(head)
	if !strings.HasPrefix(ct, "text/") || !utf8.Valid(b) {
		return "", fmt.Errorf("unsupported content type %s", ct)
	}
	return string(b), nil
}
