package extract

import (
	"context"

	"github.com/joseph-ayodele/onoma/internal/scratch"
)

// ContentExtractor turns a file into the content the suggester reasons over.
type ContentExtractor interface {
	Extract(ctx context.Context, path string) (Result, error)
}

// Result is one of TextOnly, TextWithArtifacts or TextWithScratch.
type Result interface {
	result()
}

// TextOnly is content read or converted in place; nothing to clean up.
type TextOnly struct {
	Content string
}

// TextWithArtifacts carries markdown plus ordered image paths (pages,
// slides, a rendered SVG or the image itself). Artifacts under Scratch live
// as long as Scratch does; Scratch is nil when the only artifact is the
// source file.
type TextWithArtifacts struct {
	Markdown  string
	Artifacts []string
	Scratch   *scratch.Area
}

// TextWithScratch is markdown whose production needed a scratch area
// (a transcoded copy, or debug output).
type TextWithScratch struct {
	Markdown string
	Scratch  *scratch.Area
}

func (TextOnly) result()          {}
func (TextWithArtifacts) result() {}
func (TextWithScratch) result()   {}

// Text returns the textual content of any result.
func Text(r Result) string {
	switch v := r.(type) {
	case TextOnly:
		return v.Content
	case TextWithArtifacts:
		return v.Markdown
	case TextWithScratch:
		return v.Markdown
	}
	return ""
}

// ScratchOf returns the scratch area a result owns, or nil.
func ScratchOf(r Result) *scratch.Area {
	switch v := r.(type) {
	case TextWithArtifacts:
		return v.Scratch
	case TextWithScratch:
		return v.Scratch
	}
	return nil
}

// Release frees whatever scratch the result owns. Safe on nil and on
// results without scratch.
func Release(r Result) error {
	return ScratchOf(r).Release()
}
