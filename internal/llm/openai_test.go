package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOpenAIServer(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewOpenAIClient("test-key", WithBaseURL(srv.URL+"/v1"), WithModel("llama-3.3-70b-versatile"))
	require.NoError(t, err)
	return c
}

func TestOpenAIComplete(t *testing.T) {
	var got map[string]any
	c := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "cmpl-1",
			"object": "chat.completion",
			"model": "llama-3.3-70b-versatile",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Hi there"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 3, "total_tokens": 15}
		}`))
	})

	resp, err := c.Complete(context.Background(), &CompletionRequest{
		System:   "be brief",
		Messages: []ChatMessage{{Role: "user", Content: "hello?"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hi there", resp.Content)
	assert.Equal(t, "stop", resp.StopReason)
	assert.Equal(t, 12, resp.TokensIn)
	assert.Equal(t, 3, resp.TokensOut)

	assert.Equal(t, "llama-3.3-70b-versatile", got["model"])
	messages := got["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "hello?", messages[1].(map[string]any)["content"])
}

func TestOpenAIGenerateImages(t *testing.T) {
	c := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/images/generations", r.URL.Path)

		var req map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "a cat", req["prompt"])
		assert.Equal(t, "512x512", req["size"])
		assert.Equal(t, "b64_json", req["response_format"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"created": 1, "data": [{"b64_json": "iVBORw0K"}, {"url": "https://img.example/2.png"}]}`))
	})

	images, err := c.GenerateImages(context.Background(), "a cat", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"data:image/png;base64,iVBORw0K", "https://img.example/2.png"}, images)
}

func TestOpenAIErrorStatus(t *testing.T) {
	c := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"message": "slow down", "type": "rate_limit"}}`))
	})

	_, err := c.Complete(context.Background(), &CompletionRequest{Messages: []ChatMessage{{Role: "user", Content: "x"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slow down")
}

func TestNewClient(t *testing.T) {
	_, err := NewClient(Config{Provider: ProviderOpenAI})
	assert.Error(t, err)

	c, err := NewClient(Config{OpenAIAPIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "openai", c.Name())

	c, err = NewClient(Config{OpenAIAPIKey: "k", AnthropicAPIKey: "a"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", c.Name())

	_, err = NewClient(Config{Provider: "mistral", OpenAIAPIKey: "k"})
	assert.Error(t, err)
}
