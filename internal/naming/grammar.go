// Package naming defines what a valid suggested file name looks like for
// each convention and the JSON contract the generator must satisfy.
package naming

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/onoma/constants"
)

const (
	// SuggestionCount is the number of names every generator call returns.
	SuggestionCount = 3
	// MaxNameLength bounds a single suggestion in characters.
	MaxNameLength = 128
	// MaxWordsCap bounds the upper word count so patterns stay small.
	MaxWordsCap = 64
)

// Grammar is the compiled shape of valid names for one convention and word range.
type Grammar struct {
	Convention constants.NamingConvention
	MinWords   int
	MaxWords   int
	Pattern    string

	re *regexp.Regexp

	once     sync.Once
	compiled *jsonschema.Schema
	err      error
}

// GrammarFor builds the grammar for conv. Bounds are clamped so that
// 1 <= min <= max <= MaxWordsCap; an unknown convention uses snake_case.
func GrammarFor(conv constants.NamingConvention, minWords, maxWords int) *Grammar {
	if c, ok := constants.ParseConvention(string(conv)); ok {
		conv = c
	} else {
		conv = constants.DefaultStyle
	}
	minWords, maxWords = ClampWords(minWords, maxWords)

	p := pattern(conv, minWords, maxWords)
	return &Grammar{
		Convention: conv,
		MinWords:   minWords,
		MaxWords:   maxWords,
		Pattern:    p,
		re:         regexp.MustCompile(p),
	}
}

// ClampWords applies the word-bound rules: min is at least 1 and max is at least min.
func ClampWords(minWords, maxWords int) (int, int) {
	if minWords < 1 {
		minWords = 1
	}
	if minWords > MaxWordsCap {
		minWords = MaxWordsCap
	}
	if maxWords < minWords {
		maxWords = minWords
	}
	if maxWords > MaxWordsCap {
		maxWords = MaxWordsCap
	}
	return minWords, maxWords
}

func pattern(conv constants.NamingConvention, minWords, maxWords int) string {
	more := fmt.Sprintf("{%d,%d}", minWords-1, maxWords-1)
	switch conv {
	case constants.CamelCase:
		return `^[a-z][a-z0-9]*(?:[A-Z][a-z0-9]*)` + more + `$`
	case constants.KebabCase:
		return `^[a-z0-9]+(?:-[a-z0-9]+)` + more + `$`
	case constants.PascalCase:
		return fmt.Sprintf(`^(?:[A-Z][a-z0-9]*){%d,%d}$`, minWords, maxWords)
	case constants.DotNotation:
		return `^[a-z0-9]+(?:\.[a-z0-9]+)` + more + `$`
	case constants.NaturalLang:
		return `^[A-Za-z0-9]+(?: [A-Za-z0-9]+)` + more + `$`
	default:
		return `^[a-z0-9]+(?:_[a-z0-9]+)` + more + `$`
	}
}

// Match reports whether name is a valid suggestion under g.
func (g *Grammar) Match(name string) bool {
	return len([]rune(name)) <= MaxNameLength && g.re.MatchString(name)
}

// Schema is the JSON schema the generator's answer must satisfy.
func (g *Grammar) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"suggestions": map[string]any{
				"type":     "array",
				"minItems": SuggestionCount,
				"maxItems": SuggestionCount,
				"items": map[string]any{
					"type":      "string",
					"pattern":   g.Pattern,
					"minLength": 1,
					"maxLength": MaxNameLength,
				},
			},
		},
		"required":             []string{"suggestions"},
		"additionalProperties": false,
	}
}

// ResponseFormat wraps Schema in the chat/completions structured output envelope.
func (g *Grammar) ResponseFormat() map[string]any {
	return map[string]any{
		"type": "json_schema",
		"json_schema": map[string]any{
			"name":   "file_name_suggestions",
			"strict": true,
			"schema": g.Schema(),
		},
	}
}

// Example returns a sample name in g's convention, for prompts.
func (g *Grammar) Example() string {
	switch g.Convention {
	case constants.CamelCase:
		return "quarterlySalesReport"
	case constants.KebabCase:
		return "quarterly-sales-report"
	case constants.PascalCase:
		return "QuarterlySalesReport"
	case constants.DotNotation:
		return "quarterly.sales.report"
	case constants.NaturalLang:
		return "Quarterly Sales Report"
	default:
		return "quarterly_sales_report"
	}
}
