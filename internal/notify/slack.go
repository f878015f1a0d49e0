package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/slack-go/slack"
)

// SlackSink posts messages to a Slack incoming webhook as Block Kit blocks.
type SlackSink struct {
	webhookURL string
	client     *http.Client
	logger     *slog.Logger
}

// SlackOption configures a SlackSink.
type SlackOption func(*SlackSink)

// WithSlackHTTPClient sets a custom HTTP client.
func WithSlackHTTPClient(c *http.Client) SlackOption {
	return func(s *SlackSink) { s.client = c }
}

// NewSlack creates a Slack webhook sink.
func NewSlack(webhookURL string, logger *slog.Logger, opts ...SlackOption) (*SlackSink, error) {
	if webhookURL == "" {
		return nil, fmt.Errorf("slack: webhook url is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &SlackSink{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *SlackSink) Name() string { return "slack" }

// Send posts the message blocks to the webhook. The message is assumed to be
// within block budgets already; the renderer owns truncation.
func (s *SlackSink) Send(ctx context.Context, msg Message) error {
	payload := &slack.WebhookMessage{
		Blocks: &slack.Blocks{BlockSet: toBlocks(msg)},
	}

	if err := slack.PostWebhookCustomHTTPContext(ctx, s.webhookURL, s.client, payload); err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	s.logger.Info("slack notification sent", "title", msg.Title)
	return nil
}

// toBlocks assembles the ordered block sequence: header, body, listing,
// footer context. Empty blocks are omitted.
func toBlocks(msg Message) []slack.Block {
	blocks := make([]slack.Block, 0, 4)

	blocks = append(blocks, slack.NewHeaderBlock(
		slack.NewTextBlockObject(slack.PlainTextType, msg.Title, true, false),
	))
	if msg.Body != "" {
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, msg.Body, false, false), nil, nil,
		))
	}
	if msg.Listing != "" {
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, msg.Listing, false, false), nil, nil,
		))
	}
	if msg.Footer != "" {
		blocks = append(blocks, slack.NewContextBlock("",
			slack.NewTextBlockObject(slack.MarkdownType, msg.Footer, false, false),
		))
	}
	return blocks
}
