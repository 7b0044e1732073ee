package naming

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrWrongCount  = errors.New("wrong number of suggestions")
	ErrInvalidName = errors.New("suggestion does not match naming convention")
)

// SuggestionSet is exactly three names, best first, each valid under the
// grammar it was built with. The zero value holds no suggestions.
type SuggestionSet struct {
	items [SuggestionCount]string
	ok    bool
}

// NewSuggestionSet validates names against g.
func NewSuggestionSet(g *Grammar, names []string) (SuggestionSet, error) {
	if len(names) != SuggestionCount {
		return SuggestionSet{}, fmt.Errorf("%w: got %d, want %d", ErrWrongCount, len(names), SuggestionCount)
	}
	var s SuggestionSet
	for i, n := range names {
		if !g.Match(n) {
			return SuggestionSet{}, fmt.Errorf("%w: %q is not %s (%d-%d words)", ErrInvalidName, n, g.Convention, g.MinWords, g.MaxWords)
		}
		s.items[i] = n
	}
	s.ok = true
	return s, nil
}

// ParseSuggestions validates a raw {"suggestions": [...]} document and builds a set.
func ParseSuggestions(g *Grammar, raw []byte) (SuggestionSet, error) {
	if err := g.Validate(raw); err != nil {
		return SuggestionSet{}, err
	}
	var doc struct {
		Suggestions []string `json:"suggestions"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return SuggestionSet{}, fmt.Errorf("unmarshal suggestions: %w", err)
	}
	return NewSuggestionSet(g, doc.Suggestions)
}

// FromCandidates keeps the names valid under g, in order, and builds a set
// from the first three. Fewer than three valid names is an error.
func FromCandidates(g *Grammar, candidates []string) (SuggestionSet, error) {
	valid := make([]string, 0, SuggestionCount)
	for _, c := range candidates {
		if g.Match(c) {
			valid = append(valid, c)
		}
		if len(valid) == SuggestionCount {
			return NewSuggestionSet(g, valid)
		}
	}
	return SuggestionSet{}, fmt.Errorf("%w: only %d valid candidates", ErrWrongCount, len(valid))
}

// Best is the first suggestion.
func (s SuggestionSet) Best() string { return s.items[0] }

// All returns a copy of the suggestions in order.
func (s SuggestionSet) All() []string {
	if !s.ok {
		return nil
	}
	out := make([]string, SuggestionCount)
	copy(out, s.items[:])
	return out
}

func (s SuggestionSet) IsZero() bool { return !s.ok }

func (s SuggestionSet) String() string {
	return strings.Join(s.All(), ", ")
}
