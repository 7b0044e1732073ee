package suggest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/onoma/constants"
	"github.com/joseph-ayodele/onoma/internal/common"
	"github.com/joseph-ayodele/onoma/internal/extract"
	"github.com/joseph-ayodele/onoma/internal/llm"
	"github.com/joseph-ayodele/onoma/internal/naming"
)

// scripted answers by request kind: image queries are keyed by path, text
// queries by "synthesis" or "markdown".
type scripted struct {
	mu      sync.Mutex
	g       *naming.Grammar
	answers map[string][]string
	fail    map[string]bool
	calls   []string
	users   []string
}

func (s *scripted) Name() string { return "scripted" }

func (s *scripted) Suggest(_ context.Context, req llm.Request) (naming.SuggestionSet, error) {
	key := "markdown"
	switch {
	case strings.Contains(req.User, "named separately"):
		key = "synthesis"
	case req.ImagePath != "" && !strings.Contains(req.User, "CONTENT:"):
		key = req.ImagePath
	}
	s.mu.Lock()
	s.calls = append(s.calls, key)
	s.users = append(s.users, req.User)
	s.mu.Unlock()
	if s.fail[key] {
		return naming.SuggestionSet{}, errors.New("boom")
	}
	return naming.NewSuggestionSet(s.g, s.answers[key])
}

func grammar() *naming.Grammar { return naming.GrammarFor(constants.SnakeCase, 1, 5) }

func TestSingleText(t *testing.T) {
	g := grammar()
	gen := &scripted{g: g, answers: map[string][]string{"markdown": {"a_b", "c_d", "e_f"}}}
	agg := New(gen, g, Config{MaxContentChars: 5}, nil)

	set, err := agg.Suggest(context.Background(), extract.TextOnly{Content: "0123456789"})
	require.NoError(t, err)
	assert.Equal(t, "a_b", set.Best())
	require.Len(t, gen.users, 1)
	assert.True(t, strings.HasSuffix(gen.users[0], "CONTENT:\n01234"))
}

func TestSingleTextFailureIsFatal(t *testing.T) {
	g := grammar()
	gen := &scripted{g: g, fail: map[string]bool{"markdown": true}}
	_, err := New(gen, g, Config{}, nil).Suggest(context.Background(), extract.TextWithScratch{Markdown: "x"})
	assert.ErrorIs(t, err, common.ErrGenerator)
	assert.Len(t, gen.calls, 1)
}

func TestArtifactsWithoutImagesUseSingleQuery(t *testing.T) {
	g := grammar()
	gen := &scripted{g: g, answers: map[string][]string{"markdown": {"a_b", "c_d", "e_f"}}}
	_, err := New(gen, g, Config{}, nil).Suggest(context.Background(), extract.TextWithArtifacts{Markdown: "x"})
	require.NoError(t, err)
	assert.Equal(t, []string{"markdown"}, gen.calls)
}

func pages() extract.TextWithArtifacts {
	return extract.TextWithArtifacts{Markdown: "## Page 1\nbudget", Artifacts: []string{"/s/page_1.png", "/s/page_2.png"}}
}

func TestMultiSynthesisWins(t *testing.T) {
	g := grammar()
	gen := &scripted{g: g, answers: map[string][]string{
		"/s/page_1.png": {"p1_a", "p1_b", "p1_c"},
		"/s/page_2.png": {"p2_a", "p2_b", "p2_c"},
		"synthesis":     {"final_a", "final_b", "final_c"},
	}}
	set, err := New(gen, g, Config{ImageConcurrency: 2}, nil).Suggest(context.Background(), pages())
	require.NoError(t, err)
	assert.Equal(t, "final_a", set.Best())
	assert.NotContains(t, gen.calls, "markdown")

	last := gen.users[len(gen.users)-1]
	assert.Contains(t, last, "- p1_a\n- p1_b\n- p1_c\n- p2_a\n- p2_b\n- p2_c")
	assert.Contains(t, last, "budget")
}

func TestMultiFallsBackToMarkdown(t *testing.T) {
	g := grammar()
	gen := &scripted{g: g,
		answers: map[string][]string{
			"/s/page_1.png": {"p1_a", "p1_b", "p1_c"},
			"markdown":      {"md_a", "md_b", "md_c"},
		},
		fail: map[string]bool{"/s/page_2.png": true, "synthesis": true},
	}
	set, err := New(gen, g, Config{}, nil).Suggest(context.Background(), pages())
	require.NoError(t, err)
	assert.Equal(t, []string{"md_a", "md_b", "md_c"}, set.All())
	assert.Equal(t, []string{"/s/page_1.png", "/s/page_2.png", "synthesis", "markdown"}, gen.calls)
}

func TestMultiFallsBackToArtifactGuidance(t *testing.T) {
	g := grammar()
	gen := &scripted{g: g,
		answers: map[string][]string{"/s/page_2.png": {"p2_a", "p2_b", "p2_c"}},
		fail:    map[string]bool{"/s/page_1.png": true, "synthesis": true, "markdown": true},
	}
	set, err := New(gen, g, Config{}, nil).Suggest(context.Background(), pages())
	require.NoError(t, err)
	assert.Equal(t, []string{"p2_a", "p2_b", "p2_c"}, set.All())
}

func TestMultiAllFail(t *testing.T) {
	g := grammar()
	gen := &scripted{g: g, fail: map[string]bool{
		"/s/page_1.png": true, "/s/page_2.png": true, "synthesis": true, "markdown": true,
	}}
	_, err := New(gen, g, Config{}, nil).Suggest(context.Background(), pages())
	assert.ErrorIs(t, err, common.ErrGenerator)
}

func TestGeneratorAnswerRevalidated(t *testing.T) {
	loose := naming.GrammarFor(constants.SnakeCase, 1, 10)
	strict := naming.GrammarFor(constants.SnakeCase, 1, 2)
	gen := &scripted{g: loose, answers: map[string][]string{"markdown": {"a_b_c", "d", "e"}}}
	_, err := New(gen, strict, Config{}, nil).Suggest(context.Background(), extract.TextOnly{Content: "x"})
	assert.ErrorIs(t, err, common.ErrGenerator)
}

func TestCancelledBeforeSynthesis(t *testing.T) {
	g := grammar()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gen := &scripted{g: g, answers: map[string][]string{}}
	_, err := New(gen, g, Config{}, nil).Suggest(ctx, pages())
	assert.ErrorIs(t, err, context.Canceled)
}
