package llm

import (
	"context"

	"github.com/joseph-ayodele/onoma/internal/naming"
)

// Request is one suggestion query. When ImagePath is set the image is
// attached to the user message.
type Request struct {
	System    string
	User      string
	ImagePath string
	Grammar   *naming.Grammar
}

// Generator is the interface the suggester depends on. Implementations
// return a SuggestionSet valid under req.Grammar or an error.
type Generator interface {
	Suggest(ctx context.Context, req Request) (naming.SuggestionSet, error)
	Name() string
}
