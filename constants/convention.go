package constants

import (
	"strings"
)

// NamingConvention is the casing/separator scheme suggested names must follow.
type NamingConvention string

const (
	SnakeCase    NamingConvention = "snake_case"
	CamelCase    NamingConvention = "camelCase"
	KebabCase    NamingConvention = "kebab-case"
	PascalCase   NamingConvention = "PascalCase"
	DotNotation  NamingConvention = "dot.notation"
	NaturalLang  NamingConvention = "natural language"
	DefaultStyle NamingConvention = SnakeCase
)

var allConventions = []NamingConvention{
	SnakeCase,
	CamelCase,
	KebabCase,
	PascalCase,
	DotNotation,
	NaturalLang,
}

// Conventions lists every supported convention in display order.
func Conventions() []NamingConvention {
	out := make([]NamingConvention, len(allConventions))
	copy(out, allConventions)
	return out
}

func ConventionStrings() []string {
	result := make([]string, len(allConventions))
	for i, c := range allConventions {
		result[i] = string(c)
	}
	return result
}

// ParseConvention accepts canonical names and a few common spellings.
// Unknown input reports false and the default convention.
func ParseConvention(input string) (NamingConvention, bool) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return DefaultStyle, false
	}
	for _, c := range allConventions {
		if string(c) == trimmed {
			return c, true
		}
	}

	synonyms := map[string]NamingConvention{
		"snake":           SnakeCase,
		"snakecase":       SnakeCase,
		"camel":           CamelCase,
		"camelcase":       CamelCase,
		"kebab":           KebabCase,
		"kebabcase":       KebabCase,
		"pascal":          PascalCase,
		"pascalcase":      PascalCase,
		"dot":             DotNotation,
		"dotnotation":     DotNotation,
		"natural":         NaturalLang,
		"naturallanguage": NaturalLang,
	}
	key := strings.NewReplacer("_", "", "-", "", ".", "", " ", "").Replace(strings.ToLower(trimmed))
	if c, ok := synonyms[key]; ok {
		return c, true
	}
	return DefaultStyle, false
}
