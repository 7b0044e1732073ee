package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/onoma/internal/common"
	"github.com/joseph-ayodele/onoma/internal/naming"
)

// StripCodeFence removes a surrounding ```json ... ``` block some models add
// despite response_format.
func StripCodeFence(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```")
	if nl := strings.IndexByte(t, '\n'); nl >= 0 {
		t = t[nl+1:]
	}
	t = strings.TrimSuffix(strings.TrimSpace(t), "```")
	return strings.TrimSpace(t)
}

// SanitizeSuggestions is the lenient pass run when strict validation fails.
// It only drops keys other than "suggestions" and trims whitespace around
// each name. Anything that would change the answer (a wrong count, a
// non-string item, a name that still fails the grammar) is an ErrGenerator.
func SanitizeSuggestions(raw []byte, g *naming.Grammar, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("%w: sanitize: decode: %w", common.ErrGenerator, err)
	}

	dropped := make([]string, 0, 4)
	for k := range m {
		if k != "suggestions" {
			dropped = append(dropped, k+"(unknown)")
		}
	}

	items, ok := m["suggestions"].([]any)
	if !ok {
		return nil, dropped, fmt.Errorf("%w: sanitize: missing suggestions array", common.ErrGenerator)
	}
	if len(items) != naming.SuggestionCount {
		return nil, dropped, fmt.Errorf("%w: sanitize: want %d suggestions, got %d",
			common.ErrGenerator, naming.SuggestionCount, len(items))
	}
	names := make([]string, 0, naming.SuggestionCount)
	for i, it := range items {
		s, ok := it.(string)
		if !ok {
			return nil, dropped, fmt.Errorf("%w: sanitize: suggestion %d is not a string", common.ErrGenerator, i)
		}
		trimmed := strings.TrimSpace(s)
		if !g.Match(trimmed) {
			return nil, dropped, fmt.Errorf("%w: sanitize: suggestion %q does not match %s",
				common.ErrGenerator, trimmed, g.Convention)
		}
		if trimmed != s {
			dropped = append(dropped, "whitespace("+trimmed+")")
		}
		names = append(names, trimmed)
	}

	out, err := json.Marshal(map[string]any{"suggestions": names})
	if err != nil {
		return nil, dropped, fmt.Errorf("%w: sanitize: encode: %w", common.ErrGenerator, err)
	}
	if len(dropped) > 0 {
		logger.Warn("llm.suggest.sanitize", "dropped", dropped)
	}
	return out, dropped, nil
}
