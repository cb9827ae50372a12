package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/joseph-ayodele/avs-dob-pipeline/internal/common"
	"github.com/joseph-ayodele/avs-dob-pipeline/internal/llm"
)

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []llm.Message `json:"messages"`
	Temperature *float32      `json:"temperature,omitempty"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// Complete implements llm.ChatCompleter against /chat/completions.
func (c *Client) Complete(ctx context.Context, messages []llm.Message) (llm.Completion, error) {
	start := time.Now()
	body := chatRequest{Model: c.cfg.Model, Messages: messages}
	if c.cfg.Temperature > 0 {
		t := c.cfg.Temperature
		body.Temperature = &t
	}

	endpoint := c.endpoint()
	headers := http.Header{"Authorization": {"Bearer " + c.cfg.APIKey}}

	resp, err := llm.PostJSON(ctx, c.httpc, endpoint, body, headers, c.logger)
	raw, status := resp.Body, resp.Status
	if err != nil {
		msg := fmt.Sprintf("openai status %d", status)
		var apiErr errorResponse
		if len(raw) > 0 && json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
			msg += ": " + apiErr.Error.Message
		}
		if status == 0 {
			msg = "openai unreachable"
		}
		c.logger.Error("llm.complete.http_error",
			"status", status, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.Completion{}, common.KindError(common.ErrLLM, msg, err)
	}

	if err := llm.ValidateJSON(c.envelope, raw); err != nil {
		c.logger.Error("llm.complete.envelope_invalid", "error", err, "raw_bytes", len(raw))
		return llm.Completion{}, common.KindError(common.ErrLLM, "unexpected response shape", err)
	}

	var cc chatResponse
	if err := json.Unmarshal(raw, &cc); err != nil {
		return llm.Completion{}, common.KindError(common.ErrLLM, "decode openai response", err)
	}

	out := llm.Completion{
		Model:            cc.Model,
		RequestID:        firstNonEmpty(cc.ID, resp.RequestID),
		PromptTokens:     cc.Usage.PromptTokens,
		CompletionTokens: cc.Usage.CompletionTokens,
	}
	if content := cc.Choices[0].Message.Content; content != nil {
		out.Content = strings.TrimSpace(*content)
	}

	c.logger.Info("llm.complete.ok",
		"model", out.Model,
		"request_id", out.RequestID,
		"prompt_tokens", out.PromptTokens,
		"completion_tokens", out.CompletionTokens,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
