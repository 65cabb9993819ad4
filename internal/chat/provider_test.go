package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnthropicComplete(t *testing.T) {
	var gotReq anthropicRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"content": []map[string]interface{}{
				{"type": "text", "text": "hello from claude"},
			},
			"usage": map[string]int{"input_tokens": 12, "output_tokens": 5},
		})
	}))
	defer server.Close()

	p := NewAnthropic("test-key")
	p.baseURL = server.URL

	got, err := p.Complete(context.Background(), "claude-3-5-sonnet-20241022", "You are Ada.", "hi")
	require.NoError(t, err)
	assert.Equal(t, "hello from claude", got.Text)
	assert.Equal(t, 12, got.InputTokens)
	assert.Equal(t, 5, got.OutputTokens)

	assert.Equal(t, "claude-3-5-sonnet-20241022", gotReq.Model)
	assert.Equal(t, 4096, gotReq.MaxTokens)
	assert.Equal(t, "You are Ada.", gotReq.System)
	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "user", gotReq.Messages[0].Role)
}

func TestAnthropicCompleteAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"type":"rate_limit_error","message":"slow down"}}`))
	}))
	defer server.Close()

	p := NewAnthropic("test-key")
	p.baseURL = server.URL

	_, err := p.Complete(context.Background(), "claude-3-5-sonnet-20241022", "", "hi")
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "anthropic", perr.Provider)
	assert.Equal(t, http.StatusTooManyRequests, perr.StatusCode)
	assert.Equal(t, "slow down", perr.Message)
}

func TestOpenAIComplete(t *testing.T) {
	var gotReq openaiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "hello from gpt"}},
			},
			"usage": map[string]int{"prompt_tokens": 20, "completion_tokens": 7},
		})
	}))
	defer server.Close()

	p := NewOpenAI("test-key")
	p.baseURL = server.URL

	got, err := p.Complete(context.Background(), "gpt-4", "You are Ada.", "hi")
	require.NoError(t, err)
	assert.Equal(t, "hello from gpt", got.Text)
	assert.Equal(t, 20, got.InputTokens)
	assert.Equal(t, 7, got.OutputTokens)

	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Equal(t, "user", gotReq.Messages[1].Role)
}

func TestGeminiComplete(t *testing.T) {
	reply := "hello from gemini"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-pro:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"candidates": []map[string]interface{}{
				{"content": map[string]interface{}{
					"parts": []map[string]string{{"text": reply}},
				}},
			},
		})
	}))
	defer server.Close()

	p := NewGemini("test-key")
	p.baseURL = server.URL

	system := "You are Ada."
	prompt := "tell me about turbines"
	got, err := p.Complete(context.Background(), "gemini-pro", system, prompt)
	require.NoError(t, err)
	assert.Equal(t, reply, got.Text)

	// No usage on the wire: tokens are estimated at 4 chars each from
	// the combined prompt and the reply.
	fullPrompt := system + "\n\n" + prompt
	assert.Equal(t, len(fullPrompt)/4, got.InputTokens)
	assert.Equal(t, len(reply)/4, got.OutputTokens)
}

func TestProviderErrorUnparseableBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	}))
	defer server.Close()

	p := NewOpenAI("test-key")
	p.baseURL = server.URL

	_, err := p.Complete(context.Background(), "gpt-4", "", "hi")
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, http.StatusBadGateway, perr.StatusCode)
	assert.True(t, strings.Contains(perr.Message, "upstream exploded"))
}
