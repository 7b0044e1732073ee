package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/onoma/internal/common"
	"github.com/joseph-ayodele/onoma/internal/llm"
	"github.com/joseph-ayodele/onoma/internal/naming"
)

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Suggest implements llm.Generator using chat/completions with a strict
// json_schema response format, then validates the answer locally.
func (c *Client) Suggest(ctx context.Context, req llm.Request) (naming.SuggestionSet, error) {
	if req.Grammar == nil {
		return naming.SuggestionSet{}, fmt.Errorf("%w: request has no grammar", common.ErrInvalidInput)
	}
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("llm.suggest.start",
		"req_id", rid,
		"provider", c.Name(),
		"temp", c.cfg.Temperature,
		"text_len", len(req.User),
		"has_image", req.ImagePath != "",
		"convention", string(req.Grammar.Convention),
	)

	userContent, err := c.userContent(req)
	if err != nil {
		c.logger.Error("llm.suggest.image_error", "req_id", rid, "image", req.ImagePath, "error", err)
		return naming.SuggestionSet{}, fmt.Errorf("%w: attach image: %v", common.ErrGenerator, err)
	}

	body := map[string]any{
		"model":           c.cfg.Model,
		"response_format": req.Grammar.ResponseFormat(),
		"messages": []map[string]any{
			{"role": "system", "content": req.System},
			{"role": "user", "content": userContent},
		},
	}
	if c.cfg.Temperature > 0 {
		body["temperature"] = c.cfg.Temperature
	}

	raw, status, err := llm.SendJSON(ctx, c.http, c.endpoint(), body, c.headers(), c.logger)
	if err != nil {
		c.logger.Error("llm.suggest.http_error",
			"req_id", rid, "status", status, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return naming.SuggestionSet{}, fmt.Errorf("%w: %s: %w", common.ErrGenerator, c.Name(), err)
	}

	var cc chatResponse
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.logger.Error("llm.suggest.decode_error", "req_id", rid, "error", err, "raw_bytes", len(raw))
		return naming.SuggestionSet{}, fmt.Errorf("%w: decode response: %v", common.ErrGenerator, err)
	}
	if len(cc.Choices) == 0 {
		c.logger.Error("llm.suggest.no_choices", "req_id", rid, "raw", string(raw))
		return naming.SuggestionSet{}, fmt.Errorf("%w: no choices in response", common.ErrGenerator)
	}
	msg := cc.Choices[0].Message
	if msg.Refusal != "" {
		c.logger.Warn("llm.suggest.refusal", "req_id", rid, "refusal", msg.Refusal)
		return naming.SuggestionSet{}, fmt.Errorf("%w: model refused: %s", common.ErrGenerator, msg.Refusal)
	}

	content := []byte(llm.StripCodeFence(msg.Content))
	set, err := c.validate(rid, req.Grammar, content)
	if err != nil {
		return naming.SuggestionSet{}, fmt.Errorf("%w: %v", common.ErrGenerator, err)
	}

	c.logger.Info("llm.suggest.ok",
		"req_id", rid,
		"best", set.Best(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return set, nil
}

// validate checks strictly first, then optionally after a lenient sanitize.
func (c *Client) validate(rid string, g *naming.Grammar, content []byte) (naming.SuggestionSet, error) {
	set, err := naming.ParseSuggestions(g, content)
	if err == nil {
		return set, nil
	}
	if !c.cfg.Lenient {
		c.logger.Error("llm.suggest.schema_validation_failed", "req_id", rid, "error", err, "content", string(content))
		return naming.SuggestionSet{}, fmt.Errorf("schema validation failed: %w", err)
	}

	cleaned, dropped, sErr := llm.SanitizeSuggestions(content, g, c.logger)
	if sErr != nil {
		c.logger.Error("llm.suggest.sanitize_failed", "req_id", rid, "error", sErr)
		return naming.SuggestionSet{}, errors.Join(err, sErr)
	}
	set, vErr := naming.ParseSuggestions(g, cleaned)
	if vErr != nil {
		c.logger.Error("llm.suggest.schema_validation_failed",
			"req_id", rid, "error", vErr, "content", string(content), "dropped", dropped)
		return naming.SuggestionSet{}, fmt.Errorf("schema validation failed: %w", vErr)
	}
	c.logger.Warn("llm.suggest.lenient_sanitize_applied", "req_id", rid, "dropped", dropped)
	return set, nil
}

func (c *Client) userContent(req llm.Request) (any, error) {
	if req.ImagePath == "" {
		return req.User, nil
	}
	url, err := llm.ImageDataURL(req.ImagePath, c.cfg.MaxImageMB)
	if err != nil {
		return nil, err
	}
	return []map[string]any{
		{"type": "text", "text": req.User},
		{"type": "image_url", "image_url": map[string]any{"url": url}},
	}, nil
}
