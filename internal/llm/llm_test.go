// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarceTxt/gwen-ai-chat/internal/config"
)

// =============================================================================
// OPENAI CLIENT TESTS
// =============================================================================

func TestOpenAI_Complete(t *testing.T) {
	var gotPrompt, gotModel, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		gotAuth = r.Header.Get("Authorization")

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotModel = req.Model
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)
		gotPrompt = req.Messages[0].Content

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "cmpl-1",
			"object": "chat.completion",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "  Hi there!  "}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 5, "completion_tokens": 3, "total_tokens": 8}
		}`))
	}))
	defer srv.Close()

	c := NewOpenAI("sk-test", "gpt-test", srv.URL+"/v1", 5*time.Second)
	text, err := c.Complete(context.Background(), "Say hi")
	require.NoError(t, err)

	assert.Equal(t, "Hi there!", text)
	assert.Equal(t, "Say hi", gotPrompt)
	assert.Equal(t, "gpt-test", gotModel)
	assert.Equal(t, "Bearer sk-test", gotAuth)
}

func TestOpenAI_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"error": {"message": "boom", "type": "server_error"}}`},
		{"no choices", http.StatusOK, `{"id": "x", "choices": []}`},
		{"blank text", http.StatusOK, `{"id": "x", "choices": [{"message": {"role": "assistant", "content": "   "}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewOpenAI("sk-test", "gpt-test", srv.URL+"/v1", 5*time.Second)
			_, err := c.Complete(context.Background(), "prompt")
			assert.Error(t, err)
		})
	}
}

func TestOpenAI_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewOpenAI("sk-test", "gpt-test", srv.URL+"/v1", 50*time.Millisecond)
	start := time.Now()
	_, err := c.Complete(context.Background(), "prompt")
	assert.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

// =============================================================================
// GEMINI CLIENT TESTS
// =============================================================================

func TestGemini_Complete(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, ":generateContent") {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates": [{"content": {"role": "model", "parts": [{"text": "Hello from Gemini"}]}, "finishReason": "STOP"}]}`))
	}))
	defer srv.Close()

	g, err := NewGemini(context.Background(), "key", "gemini-test", srv.URL+"/", 5*time.Second)
	require.NoError(t, err)

	text, err := g.Complete(context.Background(), "Who are you?")
	require.NoError(t, err)
	assert.Equal(t, "Hello from Gemini", text)
	assert.Contains(t, gotBody, "Who are you?")
}

// =============================================================================
// FACTORY AND LIMITER TESTS
// =============================================================================

func TestNew(t *testing.T) {
	ctx := context.Background()

	_, err := New(ctx, config.CompletionConfig{Provider: config.ProviderOpenAI})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = New(ctx, config.CompletionConfig{Provider: "ollama", APIKey: "k"})
	assert.Error(t, err)

	c, err := New(ctx, config.CompletionConfig{Provider: config.ProviderOpenAI, APIKey: "k", Model: "m"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAI{}, c)

	c, err = New(ctx, config.CompletionConfig{Provider: config.ProviderOpenAI, APIKey: "k", Model: "m", RequestsPerMinute: 10})
	require.NoError(t, err)
	assert.IsType(t, &Limited{}, c)
}

type countingCompleter struct {
	calls atomic.Int32
}

func (c *countingCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	c.calls.Add(1)
	return "ok:" + prompt, nil
}

func TestLimited_Throttles(t *testing.T) {
	inner := &countingCompleter{}
	l := NewLimited(inner, 600) // one token per 100ms

	start := time.Now()
	for i := 0; i < 3; i++ {
		text, err := l.Complete(context.Background(), "p")
		require.NoError(t, err)
		assert.Equal(t, "ok:p", text)
	}
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
	assert.Equal(t, int32(3), inner.calls.Load())
}

func TestLimited_CancelledWait(t *testing.T) {
	inner := &countingCompleter{}
	l := NewLimited(inner, 1)

	_, err := l.Complete(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Complete(ctx, "second")
	assert.Error(t, err)
	assert.Equal(t, int32(1), inner.calls.Load())
}
