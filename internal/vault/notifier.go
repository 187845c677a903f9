package vault

import (
	"context"

	"github.com/kimhsiao/tgvault/internal/logging"
)

// LogNotifier reports status through the structured log. It stands in where
// no chat-facing notifier is wired up.
type LogNotifier struct{}

// Notify implements Notifier.
func (LogNotifier) Notify(ctx context.Context, text string) error {
	logging.Info(text, nil)
	return nil
}
