package notify

import "context"

// Text budgets of the chat sink, applied by the renderer; headers are
// stricter than body blocks. MaxBlocks is Slack's block-count ceiling,
// recorded for reference: the fixed title/body/listing/footer layout
// stays far under it.
const (
	MaxTextLength   = 3000
	MaxBlocks       = 50
	MaxHeaderLength = 150
)

// Message is an ordered sequence of display blocks, each already within its
// own character budget. Built once per notification and discarded.
type Message struct {
	Title   string // header block
	Body    string // section block (mrkdwn)
	Listing string // section block (mrkdwn), empty when there is nothing to list
	Footer  string // context block
}

// Sink delivers a rendered message to a chat channel. A non-success outcome
// is a soft failure: logged by the caller, never escalated to a crash.
type Sink interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}
