package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/zenwatch-io/zenwatch/pkg/protocol"
)

func TestAnthropicChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			t.Error("missing api key header")
		}
		if r.Header.Get("anthropic-version") != anthropicAPIVersion {
			t.Error("missing version header")
		}

		var req anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		// System message travels as a top-level field, not in messages.
		if req.System != "You are an analyst." {
			t.Errorf("system = %q", req.System)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("messages = %+v", req.Messages)
		}
		if req.MaxTokens != 20000 {
			t.Errorf("max_tokens = %d", req.MaxTokens)
		}

		json.NewEncoder(w).Encode(anthropicResponse{
			Content: []anthropicContent{
				{Type: "text", Text: `{"response_type":`},
				{Type: "text", Text: `"clustering"}`},
			},
			Usage: anthropicUsage{InputTokens: 8, OutputTokens: 4},
		})
	}))
	defer srv.Close()

	p := NewAnthropic("test-key", WithAnthropicBaseURL(srv.URL))

	got, err := p.Chat(context.Background(), protocol.ChatRequest{
		Messages: []protocol.ChatMessage{
			{Role: "system", Content: "You are an analyst."},
			{Role: "user", Content: "Analyze these tickets."},
		},
		MaxTokens: 20000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Text blocks concatenate in order
	if got.Content != `{"response_type":"clustering"}` {
		t.Errorf("content = %q", got.Content)
	}
	if got.Usage.TotalTokens() != 12 {
		t.Errorf("total tokens = %d", got.Usage.TotalTokens())
	}
}

func TestAnthropicChat_DefaultMaxTokens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req anthropicRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.MaxTokens != 4096 {
			t.Errorf("max_tokens = %d, want required default", req.MaxTokens)
		}
		json.NewEncoder(w).Encode(anthropicResponse{
			Content: []anthropicContent{{Type: "text", Text: "ok"}},
		})
	}))
	defer srv.Close()

	p := NewAnthropic("k", WithAnthropicBaseURL(srv.URL))
	if _, err := p.Chat(context.Background(), protocol.ChatRequest{
		Messages: []protocol.ChatMessage{{Role: "user", Content: "hi"}},
	}); err != nil {
		t.Fatalf("Chat: %v", err)
	}
}

func TestAnthropicChat_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"type":"error"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	p := NewAnthropic("k", WithAnthropicBaseURL(srv.URL))
	_, err := p.Chat(context.Background(), protocol.ChatRequest{
		Messages: []protocol.ChatMessage{{Role: "user", Content: "hi"}},
	})
	if err == nil {
		t.Fatal("expected error for 400")
	}
}

func TestToAnthropicMessages(t *testing.T) {
	system, msgs := toAnthropicMessages([]protocol.ChatMessage{
		{Role: "system", Content: "first"},
		{Role: "user", Content: "question"},
		{Role: "system", Content: "second"},
	})
	if system != "first\n\nsecond" {
		t.Errorf("system = %q", system)
	}
	if len(msgs) != 1 || msgs[0].Content != "question" {
		t.Errorf("messages = %+v", msgs)
	}
}
