package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"
)

func newResponder(t *testing.T, handler http.HandlerFunc) *Responder {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	r, err := NewResponder(openai.NewClientWithConfig(cfg), "", 0)
	require.NoError(t, err)
	return r
}

func writeChat(w http.ResponseWriter, content ...string) {
	choices := make([]map[string]any, 0, len(content))
	for i, c := range content {
		choices = append(choices, map[string]any{
			"index":   i,
			"message": map[string]string{"role": "assistant", "content": c},
		})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"id": "chatcmpl-1", "choices": choices})
}

func TestRespondSendsPersonaAndUtterance(t *testing.T) {
	var got openai.ChatCompletionRequest
	r := newResponder(t, func(w http.ResponseWriter, req *http.Request) {
		require.Equal(t, "/v1/chat/completions", req.URL.Path)
		require.NoError(t, json.NewDecoder(req.Body).Decode(&got))
		writeChat(w, "  Preem, choom.  ")
	})

	reply, err := r.Respond(context.Background(), "be a fixer", "any gigs?")
	require.NoError(t, err)
	require.Equal(t, "Preem, choom.", reply)

	require.Equal(t, DefaultModel, got.Model)
	require.Equal(t, DefaultMaxTokens, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	require.Equal(t, openai.ChatMessageRoleSystem, got.Messages[0].Role)
	require.Equal(t, "be a fixer", got.Messages[0].Content)
	require.Equal(t, openai.ChatMessageRoleUser, got.Messages[1].Role)
	require.Equal(t, "any gigs?", got.Messages[1].Content)
}

func TestRespondOmitsEmptySystemPrompt(t *testing.T) {
	var got openai.ChatCompletionRequest
	r := newResponder(t, func(w http.ResponseWriter, req *http.Request) {
		require.NoError(t, json.NewDecoder(req.Body).Decode(&got))
		writeChat(w, "ok")
	})

	_, err := r.Respond(context.Background(), "  ", "hi")
	require.NoError(t, err)
	require.Len(t, got.Messages, 1)
}

func TestRespondNoChoicesIsEmptyReply(t *testing.T) {
	r := newResponder(t, func(w http.ResponseWriter, _ *http.Request) {
		writeChat(w)
	})

	reply, err := r.Respond(context.Background(), "", "hi")
	require.NoError(t, err)
	require.Empty(t, reply)
}

func TestRespondWrapsAPIError(t *testing.T) {
	r := newResponder(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
	})

	_, err := r.Respond(context.Background(), "", "hi")
	require.Error(t, err)
	require.Contains(t, err.Error(), "chat completion")
}

func TestNewResponderRequiresClient(t *testing.T) {
	_, err := NewResponder(nil, "", 0)
	require.Error(t, err)
}

func TestEntityPrompt(t *testing.T) {
	require.Equal(t, DefaultPersona, EntityPrompt("", ""))
	require.Equal(t, "Be terse. You are speaking as Jackie.", EntityPrompt("Be terse.", " Jackie "))
}
