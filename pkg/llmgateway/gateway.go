// Package llmgateway is the LLM gateway (C10): a plain HTTP JSON client
// talking an OpenAI-compatible chat-completions wire format, grounded on
// original_source's direct openai.AzureOpenAI usage (app/clients.py,
// app/coding.py) rather than the teacher's gRPC LLM sidecar — see
// DESIGN.md "Dropped teacher dependencies".
package llmgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/qualcode/nucleus/pkg/config"
	"github.com/qualcode/nucleus/pkg/domain"
)

const (
	maxResponseBytes = 32 * 1024
	maxAttempts      = 3
)

// Gateway is the chat-completions client.
type Gateway struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	aliases    map[string]string
	log        *slog.Logger
}

// New builds a Gateway from the LLM providers configuration.
func New(cfg config.LLMProvidersConfig, log *slog.Logger) *Gateway {
	if log == nil {
		log = slog.Default()
	}
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Gateway{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		aliases:    cfg.Aliases,
		log:        log,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model               string        `json:"model"`
	Messages            []chatMessage `json:"messages"`
	MaxCompletionTokens int           `json:"max_completion_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// ChatJSON sends a two-message conversation and parses the outermost
// JSON object in the reply, retrying on parse/schema failure up to
// maxAttempts times by echoing the bad reply back with a corrective
// instruction. requiredKeys, if non-empty, are checked against the
// top-level parsed object.
func (g *Gateway) ChatJSON(ctx context.Context, system, user, modelAlias string, maxCompletionTokens int, requiredKeys []string) (map[string]any, error) {
	model := g.resolveModel(modelAlias)
	messages := []chatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		content, err := g.complete(ctx, model, messages, maxCompletionTokens)
		if err != nil {
			return nil, err
		}

		parsed, err := extractAndValidate(content, requiredKeys)
		if err == nil {
			return parsed, nil
		}
		lastErr = err
		g.log.Warn("llmgateway: parse/schema failure, retrying", "attempt", attempt, "error", err)

		messages = append(messages,
			chatMessage{Role: "assistant", Content: content},
			chatMessage{Role: "user", Content: fmt.Sprintf("That response was not valid JSON with keys %v. Reply with ONLY a JSON object.", requiredKeys)},
		)
	}
	return nil, domain.NewValidationError(fmt.Sprintf("llm response never satisfied schema after %d attempts: %v", maxAttempts, lastErr))
}

// resolveModel resolves {chat, mini} aliases or passes through an
// explicit deployment name.
func (g *Gateway) resolveModel(alias string) string {
	if resolved, ok := g.aliases[alias]; ok {
		return resolved
	}
	return alias
}

func (g *Gateway) complete(ctx context.Context, model string, messages []chatMessage, maxCompletionTokens int) (string, error) {
	reqBody := chatRequest{Model: model, Messages: messages, MaxCompletionTokens: maxCompletionTokens}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", domain.WrapUpstream(err, "llm chat completion request")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 300 {
		return "", domain.WrapUpstream(fmt.Errorf("status %d: %s", resp.StatusCode, string(raw)), "llm chat completion")
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode chat completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", domain.NewValidationError("llm response carried no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

// extractAndValidate finds the outermost {...} block in content, parses
// it as JSON, and checks requiredKeys are present at the top level.
func extractAndValidate(content string, requiredKeys []string) (map[string]any, error) {
	block, err := outermostJSONObject(content)
	if err != nil {
		return nil, err
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(block), &parsed); err != nil {
		return nil, fmt.Errorf("parse json block: %w", err)
	}

	for _, key := range requiredKeys {
		if _, ok := parsed[key]; !ok {
			return nil, fmt.Errorf("missing required key %q", key)
		}
	}
	return parsed, nil
}

// outermostJSONObject extracts the substring spanning the first '{' and
// its matching closing '}', tolerant of preamble/trailing prose the
// model sometimes adds around the JSON block.
func outermostJSONObject(content string) (string, error) {
	start := strings.IndexByte(content, '{')
	if start < 0 {
		return "", fmt.Errorf("no JSON object found in response")
	}
	depth := 0
	for i := start; i < len(content); i++ {
		switch content[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return content[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unterminated JSON object in response")
}
