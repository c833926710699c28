package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/chatdesk/pkg/logger"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{Endpoint: srv.URL + "/chat"}, logger.NewNop()), srv
}

func TestChatText(t *testing.T) {
	var got Request
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("X-Correlation-ID"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"type":"text","content":"hello there"}`))
	})

	reply, err := client.Chat(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, TextReply{Content: "hello there"}, reply)
	assert.Equal(t, Request{Message: "hi"}, got)
}

func TestRegenerateSendsPrompt(t *testing.T) {
	var got Request
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"type":"multimodal","content":{"images":["x.png"]}}`))
	})

	reply, err := client.Regenerate(context.Background(), "a cat")
	require.NoError(t, err)
	assert.Equal(t, Request{Message: RegenerateInstruction, Prompt: "a cat"}, got)

	mm, ok := reply.(MultimodalReply)
	require.True(t, ok)
	assert.Equal(t, []string{"x.png"}, mm.Images)
	assert.Empty(t, mm.Text)
}

func TestChatStatusError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.Chat(context.Background(), "hi")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.Code)
}

func TestChatNetworkError(t *testing.T) {
	client, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	_, err := client.Chat(context.Background(), "hi")
	require.Error(t, err)
	var statusErr *StatusError
	assert.False(t, errors.As(err, &statusErr))
}

func TestDecodeReply(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Reply
		wantErr bool
	}{
		{"text", `{"type":"text","content":"x"}`, TextReply{Content: "x"}, false},
		{"text without content", `{"type":"text"}`, TextReply{}, false},
		{"multimodal", `{"type":"multimodal","content":{"text":"t","images":["a","b"],"prompt":"p"}}`,
			MultimodalReply{Text: "t", Images: []string{"a", "b"}, Prompt: "p"}, false},
		{"unknown type", `{"type":"audio","content":"x"}`, nil, true},
		{"not json", `<html>`, nil, true},
		{"wrong shape", `{"type":"text","content":{"a":1}}`, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeReply([]byte(tt.raw))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedReply)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeReply(t *testing.T) {
	data, err := EncodeReply(MultimodalReply{Text: "t", Images: []string{"a"}, Prompt: "p"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"multimodal","content":{"text":"t","images":["a"],"prompt":"p"}}`, string(data))

	data, err = EncodeReply(TextReply{Content: "hi"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"text","content":"hi"}`, string(data))
}
