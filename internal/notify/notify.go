// Package notify defines the boundary to the external push-notification
// delivery service.
//
// Delivery itself is an external collaborator: this layer only hands over
// a list of opaque device tokens and a message. Every call is best-effort
// — callers swallow and log failures, they never let a push problem fail
// a write that already committed.
package notify

import (
	"context"
	"log/slog"
)

// Pusher delivers a notification to a set of opaque device tokens.
type Pusher interface {
	Push(ctx context.Context, tokens []string, title, body string) error
}

// LogPusher is the default Pusher: it logs instead of delivering. Wire a
// real provider-backed implementation in its place in production.
type LogPusher struct {
	Logger *slog.Logger
}

func (p *LogPusher) Push(_ context.Context, tokens []string, title, body string) error {
	p.Logger.Info("push notification (log only)",
		slog.Int("tokens", len(tokens)),
		slog.String("title", title),
		slog.String("body", body),
	)
	return nil
}
