// Package history stores chat turns per conversation session.
package history

import (
	"context"
	"time"
)

// DefaultSession is used by requests that do not name a session.
const DefaultSession = "general"

// Turn is one message of a conversation.
type Turn struct {
	Role      string // "user" or "assistant"
	Content   string
	CreatedAt time.Time
}

// Store persists conversation turns keyed by session ID.
type Store interface {
	// Load returns the turns of session in order.
	Load(ctx context.Context, session string) ([]Turn, error)
	// Append adds turns to the end of session atomically.
	Append(ctx context.Context, session string, turns ...Turn) error
	// Reset deletes every turn of session.
	Reset(ctx context.Context, session string) error
	// Sessions lists the sessions that have at least one turn.
	Sessions(ctx context.Context) ([]string, error)
	Close() error
}
