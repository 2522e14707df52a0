package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/isdmx/graphbox/config"
)

// ErrNotConfigured is returned by generators that have no model behind them
var ErrNotConfigured = errors.New("AI service not configured")

const systemPrompt = "You write small, self-contained Python programs that build graphs. Reply with code only."

// Generator turns a prompt into Python source
type Generator interface {
	GenerateCode(ctx context.Context, prompt string) (string, error)
}

// Disabled is the Generator used when no provider is configured
type Disabled struct{}

func (Disabled) GenerateCode(context.Context, string) (string, error) {
	return "", ErrNotConfigured
}

// OpenAIGenerator calls an OpenAI-compatible chat completion endpoint
type OpenAIGenerator struct {
	logger *zap.Logger
	client *openai.Client
	model  string
}

// NewOpenAIGenerator creates a generator for model. An empty baseURL uses the public API.
func NewOpenAIGenerator(logger *zap.Logger, apiKey, model, baseURL string) *OpenAIGenerator {
	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(baseURL, "/")
	}
	logger.Info("initializing OpenAI client", zap.String("model", model))
	return &OpenAIGenerator{
		logger: logger,
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
	}
}

// GenerateCode sends prompt as a single user message and returns the reply with code fences removed
func (g *OpenAIGenerator) GenerateCode(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		g.logger.Error("OpenAI API call failed", zap.Error(err))
		return "", fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("OpenAI returned no choices")
	}

	g.logger.Debug("received completion", zap.String("finish_reason", string(resp.Choices[0].FinishReason)))

	code := StripCodeFences(resp.Choices[0].Message.Content)
	if code == "" {
		return "", fmt.Errorf("OpenAI returned empty content")
	}
	return code, nil
}

// NewFromConfig returns an OpenAIGenerator when cfg.AI is complete, else Disabled
func NewFromConfig(logger *zap.Logger, cfg *config.Config) Generator {
	if !cfg.AIEnabled() {
		logger.Info("AI generation disabled; prompts will be returned for manual use")
		return Disabled{}
	}
	return NewOpenAIGenerator(logger.Named("ai"), cfg.AI.APIKey, cfg.AI.Model, cfg.AI.BaseURL)
}

// StripCodeFences returns the body of the first fenced block in reply, or
// the reply itself when it has no fences. Leading blank lines and trailing
// whitespace are dropped; indentation is kept.
func StripCodeFences(reply string) string {
	text := reply

	if start := strings.Index(text, "```"); start >= 0 {
		body := text[start+3:]
		firstLine := body
		if nl := strings.IndexByte(body, '\n'); nl >= 0 {
			firstLine = body[:nl]
		}

		switch {
		case strings.Contains(firstLine, "```"):
			// single line fence: ```code```
			body = firstLine
		case len(firstLine) < len(body):
			// drop the info string ("python", "py", ...)
			body = body[len(firstLine)+1:]
		default:
			body = ""
		}

		if end := strings.Index(body, "```"); end >= 0 {
			body = body[:end]
		}
		text = body
	}

	return trimBlankLines(text)
}

func trimBlankLines(text string) string {
	text = strings.TrimRightFunc(text, unicode.IsSpace)
	for {
		nl := strings.IndexByte(text, '\n')
		if nl < 0 || strings.TrimSpace(text[:nl]) != "" {
			return text
		}
		text = text[nl+1:]
	}
}
