// Package provider defines the reasoning-provider boundary: the external
// model that turns stage prompts into structured decisions.
package provider

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/jllopis/praxis/pkg/errors"
)

// Request encapsulates the input for one reasoning call.
type Request struct {
	Stage       string   `json:"stage"`
	System      string   `json:"system"`
	User        string   `json:"user"`
	Images      [][]byte `json:"-"`
	Temperature float64  `json:"temperature,omitempty"`
}

// Usage tracks token consumption.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response encapsulates the output from the reasoning provider.
type Response struct {
	Content string `json:"content"`
	Usage   Usage  `json:"usage"`
}

// Provider defines the interface for interacting with reasoning backends.
type Provider interface {
	// Complete sends a reasoning request and returns the response.
	Complete(ctx context.Context, req Request) (*Response, error)
}

// DecodeJSON parses the response content into out, tolerating fenced code
// blocks around the JSON body. Malformed or empty content is signaled as a
// PROVIDER_ERROR rather than crashing the orchestrator.
func DecodeJSON(resp *Response, out any) error {
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return errors.New(errors.CodeProvider, "empty provider response", nil).
			WithRecoverable(true)
	}
	body := stripFences(resp.Content)
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return errors.New(errors.CodeProvider, "malformed provider response", err).
			WithContext("content", truncate(resp.Content, 256)).
			WithRecoverable(true)
	}
	return nil
}

func stripFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
