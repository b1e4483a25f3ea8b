// Package transport bridges the bot to a messaging gateway over HTTP.
// Outbound texts go through the Gateway client; inbound messages
// arrive on the webhook handler and are dispatched to a Handler.
package transport

import (
	"context"
	"errors"
	"time"
)

// ErrSendFailed wraps outbound delivery failures. Callers log and move on;
// there is no in-pass retry.
var ErrSendFailed = errors.New("send failed")

// Message is one inbound chat message from the gateway.
type Message struct {
	ID       string    `json:"id"`
	From     string    `json:"from"`
	Body     string    `json:"body"`
	Group    bool      `json:"group"`
	FromSelf bool      `json:"from_self"`
	At       time.Time `json:"at"`
}

// Sender delivers outbound text messages.
type Sender interface {
	SendText(ctx context.Context, userID, text string) error
}

// Handler consumes inbound messages that pass the webhook filters.
type Handler interface {
	Handle(ctx context.Context, userID, text string)
}
