package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"edu-insight-go/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bufferWriter struct {
	chunks []string
}

func (b *bufferWriter) WriteMessage(_ int, data []byte) error {
	b.chunks = append(b.chunks, string(data))
	return nil
}

func sseServer(t *testing.T, lines ...string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "text/event-stream")
		for _, l := range lines {
			fmt.Fprintf(w, "data: %s\n\n", l)
		}
	}))
}

func TestStreamChatMessagesWritesDeltas(t *testing.T) {
	srv := sseServer(t,
		`{"choices":[{"delta":{"role":"assistant"}}]}`,
		`{"choices":[{"delta":{"content":"Hello"}}]}`,
		`{"choices":[{"delta":{"content":" there"}}]}`,
		`[DONE]`,
	)
	defer srv.Close()

	c := NewClient(config.LLMConfig{BaseURL: srv.URL, APIKey: "key", Model: "m"})
	w := &bufferWriter{}
	err := c.StreamChatMessages(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil, w)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello", " there"}, w.chunks)
}

func TestStreamChatMessagesErrorPayload(t *testing.T) {
	srv := sseServer(t,
		`{"choices":[{"delta":{"content":"partial"}}]}`,
		`{"error":{"message":"quota exceeded","code":429}}`,
	)
	defer srv.Close()

	c := NewClient(config.LLMConfig{BaseURL: srv.URL, APIKey: "key"})
	w := &bufferWriter{}
	err := c.StreamChatMessages(context.Background(), nil, nil, w)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Equal(t, []string{"partial"}, w.chunks)
}

func TestStreamChatMessagesNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(config.LLMConfig{BaseURL: srv.URL, APIKey: "key"})
	err := c.StreamChatMessages(context.Background(), nil, nil, &bufferWriter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestBuildRequestUsesConfiguredGeneration(t *testing.T) {
	c := &openAICompatibleClient{cfg: config.LLMConfig{
		Model:      "gemini",
		Generation: config.LLMGenerationConfig{Temperature: 0.3, MaxTokens: 256},
	}}
	req := c.buildRequest([]Message{{Role: "system", Content: "s"}}, nil)
	raw, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"model":"gemini","messages":[{"role":"system","content":"s"}],"stream":true,"temperature":0.3,"max_tokens":256}`, string(raw))
}
