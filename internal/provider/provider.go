package provider

import (
	"context"

	"github.com/zenwatch-io/zenwatch/pkg/protocol"
)

// Provider is the abstraction over LLM completion APIs.
type Provider interface {
	Chat(ctx context.Context, req protocol.ChatRequest) (*protocol.ChatResponse, error)
	Name() string
}
