// Package notify delivers run notifications to operators.
package notify

import "context"

// Notifier pushes one human-readable message. Delivery is best effort;
// callers log failures and move on.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// Noop discards every notification. It stands in when no channel is
// configured.
type Noop struct{}

func (Noop) Notify(context.Context, string) error {
	return nil
}
