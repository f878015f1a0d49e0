package analyzer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/zenwatch-io/zenwatch/internal/config"
	"github.com/zenwatch-io/zenwatch/pkg/protocol"
)

// stubProvider returns a canned completion.
type stubProvider struct {
	content  string
	err      error
	requests []protocol.ChatRequest
}

func (s *stubProvider) Chat(_ context.Context, req protocol.ChatRequest) (*protocol.ChatResponse, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	return &protocol.ChatResponse{Content: s.content}, nil
}

func (s *stubProvider) Name() string { return "stub" }

func ticketsFixture(n int) []protocol.Ticket {
	out := make([]protocol.Ticket, n)
	for i := range out {
		out[i] = protocol.Ticket{ID: "100", Subject: "Something broke"}
	}
	return out
}

func TestClusterParsesFencedResponse(t *testing.T) {
	prov := &stubProvider{content: "```json\n" + `{
		"response_type": "clustering",
		"summary": "one cluster",
		"data": {"groups": [{"issue_type": "Crashes", "ticket_ids": ["1","2","3","4","5"], "count": 5}]}
	}` + "\n```"}
	an := New(prov, 5, nil)

	resp, err := an.Cluster(context.Background(), ticketsFixture(5))
	if err != nil {
		t.Fatalf("Cluster: %v", err)
	}
	if resp.Shape != protocol.ShapeGroups || len(resp.Data.Groups) != 1 {
		t.Errorf("resp = %+v", resp)
	}

	if len(prov.requests) != 1 {
		t.Fatalf("requests = %d", len(prov.requests))
	}
	req := prov.requests[0]
	if req.Messages[0].Role != "system" {
		t.Errorf("first message role = %q", req.Messages[0].Role)
	}
	if req.MaxTokens != config.DefaultMaxTokens || req.Temperature != config.DefaultTemperature {
		t.Errorf("request params = %d/%v", req.MaxTokens, req.Temperature)
	}
	// The minimum group size is part of the prompt contract.
	if !strings.Contains(req.Messages[1].Content, "5") {
		t.Error("prompt missing group size floor")
	}
}

func TestClusterProseIsUnparseable(t *testing.T) {
	prov := &stubProvider{content: "I found no meaningful groups in these tickets."}
	an := New(prov, 5, nil)

	_, err := an.Cluster(context.Background(), ticketsFixture(3))
	if !errors.Is(err, ErrUnparseable) {
		t.Errorf("err = %v, want ErrUnparseable", err)
	}
}

func TestClusterNoTickets(t *testing.T) {
	prov := &stubProvider{}
	an := New(prov, 5, nil)

	_, err := an.Cluster(context.Background(), nil)
	if !errors.Is(err, ErrUnparseable) {
		t.Errorf("err = %v, want ErrUnparseable", err)
	}
	if len(prov.requests) != 0 {
		t.Error("expected no provider call for empty input")
	}
}

func TestClusterProviderErrorIsDistinct(t *testing.T) {
	prov := &stubProvider{err: errors.New("rate limited")}
	an := New(prov, 5, nil)

	_, err := an.Cluster(context.Background(), ticketsFixture(3))
	if err == nil || errors.Is(err, ErrUnparseable) {
		t.Errorf("err = %v, want provider error distinct from ErrUnparseable", err)
	}
}

func TestQueryPromptCarriesWindow(t *testing.T) {
	prov := &stubProvider{content: `{"response_type":"query","data":{"answer":"none","ticket_ids":[]}}`}
	an := New(prov, 5, nil)

	window := protocol.TimeWindow{HasTimeReference: true, Hours: 168, Description: "last week"}
	if _, err := an.Query(context.Background(), ticketsFixture(2), "refund issues", window); err != nil {
		t.Fatalf("Query: %v", err)
	}
	prompt := prov.requests[0].Messages[1].Content
	if !strings.Contains(prompt, "refund issues") || !strings.Contains(prompt, "last week") {
		t.Errorf("prompt missing query or window: %q", excerpt(prompt, 200))
	}
}

func TestExtractTimeWindow(t *testing.T) {
	prov := &stubProvider{content: `{
		"response_type": "time_window",
		"has_time_reference": true,
		"time_window": {"hours": 72, "description": "last 3 days"},
		"cleaned_query": "payment failures",
		"reasoning": "query mentions the last 3 days"
	}`}
	an := New(prov, 5, nil)

	w, err := an.ExtractTimeWindow(context.Background(), "payment failures in the last 3 days")
	if err != nil {
		t.Fatalf("ExtractTimeWindow: %v", err)
	}
	if w.Hours != 72 || w.CleanedQuery != "payment failures" {
		t.Errorf("window = %+v", w)
	}
}

func TestExtractTimeWindowCapped(t *testing.T) {
	prov := &stubProvider{content: `{
		"has_time_reference": true,
		"time_window": {"hours": 9000, "description": "last year"},
		"cleaned_query": "outages"
	}`}
	an := New(prov, 5, nil)

	w, err := an.ExtractTimeWindow(context.Background(), "outages last year")
	if err != nil {
		t.Fatalf("ExtractTimeWindow: %v", err)
	}
	if w.Hours != config.MaxLookbackHours {
		t.Errorf("hours = %d, want cap", w.Hours)
	}
	if !strings.Contains(w.Reasoning, "9000") {
		t.Errorf("reasoning = %q, want cap note", w.Reasoning)
	}
}

func TestExtractTimeWindowUnparseableFallsBack(t *testing.T) {
	prov := &stubProvider{content: "the window is probably a week or so"}
	an := New(prov, 5, nil)

	w, err := an.ExtractTimeWindow(context.Background(), "slow dashboards")
	if err != nil {
		t.Fatalf("fallback should not error: %v", err)
	}
	if w.Hours != config.DefaultQueryHours || w.CleanedQuery != "slow dashboards" {
		t.Errorf("window = %+v, want default", w)
	}
}

func TestExtractTimeWindowProviderError(t *testing.T) {
	prov := &stubProvider{err: errors.New("boom")}
	an := New(prov, 5, nil)

	w, err := an.ExtractTimeWindow(context.Background(), "anything")
	if err == nil {
		t.Fatal("expected error")
	}
	// Even the error path hands back a usable default window.
	if w.Hours != config.DefaultQueryHours {
		t.Errorf("window = %+v, want default", w)
	}
}
