package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/zenwatch-io/zenwatch/internal/config"
	"github.com/zenwatch-io/zenwatch/internal/provider"
	"github.com/zenwatch-io/zenwatch/pkg/protocol"
)

// ErrUnparseable marks a completion that produced no usable JSON after both
// parser passes. Callers treat it like "zero groups returned", distinct from
// a provider invocation failure.
var ErrUnparseable = errors.New("analyzer: response is not parseable JSON")

// Analyzer drives the LLM analysis calls and normalizes their output.
type Analyzer struct {
	provider     provider.Provider
	logger       *slog.Logger
	minGroupSize int
	maxTokens    int
	temperature  float64
}

// New creates an analyzer bound to an LLM provider.
func New(prov provider.Provider, minGroupSize int, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		provider:     prov,
		logger:       logger,
		minGroupSize: minGroupSize,
		maxTokens:    config.DefaultMaxTokens,
		temperature:  config.DefaultTemperature,
	}
}

// Cluster asks the model to group tickets by shared underlying issue.
func (a *Analyzer) Cluster(ctx context.Context, tickets []protocol.Ticket) (*protocol.AnalysisResponse, error) {
	if len(tickets) == 0 {
		a.logger.Info("no tickets provided for clustering")
		return nil, ErrUnparseable
	}
	a.logger.Info("clustering tickets", "count", len(tickets))
	return a.analyze(ctx, clusteringPrompt(tickets, a.minGroupSize))
}

// Query asks the model a free-form question about the tickets, in the
// context of an already-extracted time window.
func (a *Analyzer) Query(ctx context.Context, tickets []protocol.Ticket, query string, window protocol.TimeWindow) (*protocol.AnalysisResponse, error) {
	if len(tickets) == 0 {
		a.logger.Info("no tickets provided for query analysis")
		return nil, ErrUnparseable
	}
	a.logger.Info("analyzing tickets with query", "count", len(tickets), "query", query)
	return a.analyze(ctx, queryPrompt(tickets, query, window))
}

func (a *Analyzer) analyze(ctx context.Context, prompt string) (*protocol.AnalysisResponse, error) {
	resp, err := a.provider.Chat(ctx, protocol.ChatRequest{
		Messages: []protocol.ChatMessage{
			{Role: "system", Content: systemMessage},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   a.maxTokens,
		Temperature: a.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("analyzer: chat: %w", err)
	}

	parsed, ok := Parse(resp.Content)
	if !ok {
		a.logger.Error("failed to parse analysis response", "raw", excerpt(resp.Content, 200))
		return nil, ErrUnparseable
	}
	a.logger.Info("parsed analysis response",
		"type", parsed.ResponseType,
		"tokens", resp.Usage.TotalTokens(),
	)
	return parsed, nil
}

// ExtractTimeWindow asks the model for the time window referenced by a query.
// The returned window is always usable: extraction or parse failure falls
// back to the default lookback, and hours are capped to the maximum with the
// cap noted in the reasoning text.
func (a *Analyzer) ExtractTimeWindow(ctx context.Context, query string) (protocol.TimeWindow, error) {
	resp, err := a.provider.Chat(ctx, protocol.ChatRequest{
		Messages: []protocol.ChatMessage{
			{Role: "system", Content: systemMessage},
			{Role: "user", Content: timeWindowPrompt(query)},
		},
		MaxTokens:   a.maxTokens,
		Temperature: a.temperature,
	})
	if err != nil {
		return DefaultWindow(query), fmt.Errorf("analyzer: time window chat: %w", err)
	}

	var wire timeWindowWire
	if !decodeLenient(resp.Content, &wire) {
		a.logger.Warn("failed to parse time window response, using default",
			"raw", excerpt(resp.Content, 200))
		return DefaultWindow(query), nil
	}

	window := protocol.TimeWindow{
		HasTimeReference: wire.HasTimeReference,
		Hours:            wire.TimeWindow.Hours,
		Description:      wire.TimeWindow.Description,
		CleanedQuery:     wire.CleanedQuery,
		Reasoning:        wire.Reasoning,
	}
	normalizeWindow(&window, query)

	a.logger.Info("extracted time window",
		"hours", window.Hours,
		"description", window.Description,
		"has_time_reference", window.HasTimeReference,
	)
	return window, nil
}

type timeWindowWire struct {
	ResponseType     string `json:"response_type"`
	HasTimeReference bool   `json:"has_time_reference"`
	TimeWindow       struct {
		Hours       int    `json:"hours"`
		Description string `json:"description"`
	} `json:"time_window"`
	CleanedQuery string `json:"cleaned_query"`
	Reasoning    string `json:"reasoning"`
}
