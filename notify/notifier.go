package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// Notifier sends a short text message to the operator.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Nop discards every message. It is used when no channel is configured.
type Nop struct{}

var _ Notifier = Nop{}

func (Nop) Notify(context.Context, string) error {
	return nil
}

// Send delivers text on a best effort basis: failures are logged and dropped.
func Send(ctx context.Context, n Notifier, logger zerolog.Logger, text string) {
	if n == nil {
		return
	}
	if err := n.Notify(ctx, text); err != nil {
		logger.Warn().Err(err).Str("message", text).Msg("Notification not delivered")
	}
}
