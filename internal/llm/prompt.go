package llm

import (
	"strconv"
	"strings"

	"github.com/joseph-ayodele/onoma/internal/naming"
)

const DefaultSystemPrompt = "You suggest concise, descriptive file names. Reply only with JSON that matches the supplied schema."

const DefaultUserPrompt = `Suggest 3 file names for the content below.

Rules:
- Follow the {naming_convention} naming convention exactly.
- Use between {min_words} and {max_words} words.
- Describe what the file is: its subject, purpose, source, and any date or version that is clearly stated.
- Prefer specific identifiers (project, product, organisation, place) over generic words.
- Do not include a file extension.
- Several files concatenated inside code fences or XML tags are usually a codebase bundle; name the project if you can.

Return only the JSON described by the schema.

CONTENT:
{content}`

const DefaultImagePrompt = `Suggest 3 file names for the attached image.

Rules:
- Follow the {naming_convention} naming convention exactly.
- Use between {min_words} and {max_words} words.
- Look at the subject, setting, visible text, logos and the kind of image (photo, screenshot, diagram, chart, scanned document, slide).
- Prefer specific identifiers that are clearly visible over generic words.
- Do not include a file extension.

Return only the JSON described by the schema.`

const synthesisTemplate = `Earlier, each page, slide or image of this file was named separately:
{guidance}

Using those names and the full document text below, suggest 3 names for the file as a whole.

DOCUMENT:
{markdown}`

// Prompts holds the templates used to build requests. Empty fields fall
// back to the defaults.
type Prompts struct {
	System string
	User   string
	Image  string
}

func (p Prompts) system() string {
	if strings.TrimSpace(p.System) != "" {
		return p.System
	}
	return DefaultSystemPrompt
}

// TextRequest builds a query over textual content.
func (p Prompts) TextRequest(g *naming.Grammar, content string) Request {
	tpl := p.User
	if strings.TrimSpace(tpl) == "" {
		tpl = DefaultUserPrompt
	}
	return Request{
		System:  p.system(),
		User:    render(tpl, g, content),
		Grammar: g,
	}
}

// ImageRequest builds a query over a single image.
func (p Prompts) ImageRequest(g *naming.Grammar, imagePath string) Request {
	tpl := p.Image
	if strings.TrimSpace(tpl) == "" {
		tpl = DefaultImagePrompt
	}
	return Request{
		System:    p.system(),
		User:      render(tpl, g, ""),
		ImagePath: imagePath,
		Grammar:   g,
	}
}

// SynthesisContent joins per-artifact names and the document text into the
// content of the final query.
func SynthesisContent(guidance []string, markdown string) string {
	lines := make([]string, len(guidance))
	for i, g := range guidance {
		lines[i] = "- " + g
	}
	return strings.NewReplacer(
		"{guidance}", strings.Join(lines, "\n"),
		"{markdown}", markdown,
	).Replace(synthesisTemplate)
}

// render substitutes placeholders. {content} is replaced last so braces in
// the content are never interpreted.
func render(tpl string, g *naming.Grammar, content string) string {
	out := strings.NewReplacer(
		"{naming_convention}", string(g.Convention),
		"{min_words}", strconv.Itoa(g.MinWords),
		"{max_words}", strconv.Itoa(g.MaxWords),
		"{example}", g.Example(),
	).Replace(tpl)
	return strings.Replace(out, "{content}", content, 1)
}

// TruncateRunes cuts s to at most max characters and reports whether it did.
func TruncateRunes(s string, max int) (string, bool) {
	if max <= 0 {
		return s, false
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i], true
		}
		n++
	}
	return s, false
}
