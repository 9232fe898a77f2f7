package adapter

import "context"

// Notifier delivers operation summaries to operators (e.g. a Telegram chat).
type Notifier interface {
	Notify(ctx context.Context, text string) error
}
