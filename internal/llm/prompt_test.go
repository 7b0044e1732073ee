package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/onoma/constants"
	"github.com/joseph-ayodele/onoma/internal/naming"
)

func TestTextRequestRendersPlaceholders(t *testing.T) {
	g := naming.GrammarFor(constants.KebabCase, 2, 6)
	req := Prompts{}.TextRequest(g, "body with {min_words} braces")

	assert.Equal(t, DefaultSystemPrompt, req.System)
	assert.Contains(t, req.User, "kebab-case naming convention")
	assert.Contains(t, req.User, "between 2 and 6 words")
	assert.True(t, strings.HasSuffix(req.User, "body with {min_words} braces"))
	assert.Empty(t, req.ImagePath)
	assert.Same(t, g, req.Grammar)
}

func TestCustomTemplates(t *testing.T) {
	g := naming.GrammarFor(constants.SnakeCase, 1, 3)
	p := Prompts{System: "sys", User: "like {example}: {content}", Image: "look ({naming_convention})"}

	req := p.TextRequest(g, "x")
	assert.Equal(t, "sys", req.System)
	assert.Equal(t, "like quarterly_sales_report: x", req.User)

	img := p.ImageRequest(g, "/tmp/a.png")
	assert.Equal(t, "look (snake_case)", img.User)
	assert.Equal(t, "/tmp/a.png", img.ImagePath)
}

func TestSynthesisContent(t *testing.T) {
	out := SynthesisContent([]string{"intro_slide", "budget_table"}, "# Deck")
	assert.Contains(t, out, "- intro_slide\n- budget_table")
	assert.True(t, strings.HasSuffix(out, "# Deck"))
}

func TestTruncateRunes(t *testing.T) {
	s, cut := TruncateRunes("héllo", 3)
	assert.True(t, cut)
	assert.Equal(t, "hél", s)

	s, cut = TruncateRunes("abc", 3)
	assert.False(t, cut)
	assert.Equal(t, "abc", s)

	s, cut = TruncateRunes("abc", 0)
	assert.False(t, cut)
	assert.Equal(t, "abc", s)
}
