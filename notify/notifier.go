package notify

import "context"

// Notifier delivers formatted alert messages to the configured channel.
type Notifier interface {
	SendMessage(ctx context.Context, text string) error
}
