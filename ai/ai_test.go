package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/isdmx/graphbox/config"
)

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{"Plain", "\n\nresult = {}\n", "result = {}"},
		{"Fenced", "```python\nresult = {}\n```", "result = {}"},
		{"FencedNoLanguage", "```\nx = 1\ny = 2\n```\n", "x = 1\ny = 2"},
		{"SurroundingProse", "Here you go:\n```py\nx = 1\n```\nEnjoy!", "x = 1"},
		{"Unterminated", "```python\nx = 1\n", "x = 1"},
		{"OnlyFence", "```", ""},
		{"SingleLineFence", "```print(1)```", "print(1)"},
		{"SingleLineFenceInProse", "Run ```result = {}``` now", "result = {}"},
		{"KeepsIndentation", "```python\n\n    x = 1\n    y = 2\n```", "    x = 1\n    y = 2"},
		{"PlainKeepsIndentation", "  if x:\n      y()\n\n", "  if x:\n      y()"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFences(tt.reply))
		})
	}
}

func TestDisabled(t *testing.T) {
	_, err := Disabled{}.GenerateCode(context.Background(), "anything")
	assert.True(t, errors.Is(err, ErrNotConfigured))
}

func TestNewFromConfig(t *testing.T) {
	logger := zaptest.NewLogger(t)

	gen := NewFromConfig(logger, &config.Config{})
	assert.IsType(t, Disabled{}, gen)

	gen = NewFromConfig(logger, &config.Config{AI: config.AIConfig{Provider: "openai"}})
	assert.IsType(t, Disabled{}, gen, "provider without key stays disabled")

	gen = NewFromConfig(logger, &config.Config{AI: config.AIConfig{Provider: "openai", APIKey: "k", Model: "m"}})
	openaiGen, ok := gen.(*OpenAIGenerator)
	require.True(t, ok)
	assert.Equal(t, "m", openaiGen.model)
}

func newCompletionServer(t *testing.T, status int, content string, seen *map[string]any) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if seen != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error": {"message": "rate limited", "type": "requests"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "cmpl-1",
			"object":  "chat.completion",
			"model":   "gpt-4o-mini",
			"choices": []any{map[string]any{"index": 0, "finish_reason": "stop", "message": map[string]any{"role": "assistant", "content": content}}},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestOpenAIGeneratorGenerateCode(t *testing.T) {
	var seen map[string]any
	server := newCompletionServer(t, http.StatusOK, "```python\nresult = {'nodes': [], 'edges': []}\n```", &seen)

	gen := NewOpenAIGenerator(zaptest.NewLogger(t), "test-key", "gpt-4o-mini", server.URL+"/v1/")
	code, err := gen.GenerateCode(context.Background(), "make a ring")
	require.NoError(t, err)
	assert.Equal(t, "result = {'nodes': [], 'edges': []}", code)

	assert.Equal(t, "gpt-4o-mini", seen["model"])
	messages, ok := seen["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, "make a ring", messages[1].(map[string]any)["content"])
}

func TestOpenAIGeneratorErrors(t *testing.T) {
	t.Run("HTTPError", func(t *testing.T) {
		server := newCompletionServer(t, http.StatusTooManyRequests, "", nil)
		gen := NewOpenAIGenerator(zaptest.NewLogger(t), "test-key", "m", server.URL+"/v1")

		_, err := gen.GenerateCode(context.Background(), "p")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "OpenAI API call failed")
	})

	t.Run("EmptyContent", func(t *testing.T) {
		server := newCompletionServer(t, http.StatusOK, "```\n```", nil)
		gen := NewOpenAIGenerator(zaptest.NewLogger(t), "test-key", "m", server.URL+"/v1")

		_, err := gen.GenerateCode(context.Background(), "p")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty content")
	})
}
