// Package telegram is the boundary to the messaging platform. The forwarder
// depends only on the Client interface; the tgbotapi-backed implementation
// lives in this package alongside the persisted session credential.
package telegram

import "context"

// Event is one inbound message observed in the source chat.
type Event struct {
	MessageID int
	ChatID    int64
	Text      string
	HasMedia  bool
	MediaType string // "photo", "video", ... empty when HasMedia is false
}

// Client exposes the three platform operations the forwarder needs.
type Client interface {
	// ResolveChat resolves a chat reference (numeric ID or @username) to its
	// platform chat ID.
	ResolveChat(ctx context.Context, ref string) (int64, error)

	// Subscribe returns an unbounded stream of new messages in the given
	// chat. The channel is closed when the client is closed.
	Subscribe(chatID int64) <-chan Event

	// Forward re-sends an existing message to the destination chat,
	// preserving its content unmodified.
	Forward(ctx context.Context, destChatID, srcChatID int64, messageID int) error

	// Close tears down the subscription and the underlying connection.
	// Safe to call more than once.
	Close()
}
