package port

import (
	"context"

	"qabot/internal/domain"
)

// SessionStore keeps the append-only transcript of each session.
type SessionStore interface {
	Append(ctx context.Context, sessionID string, turn domain.ConversationTurn) error

	History(ctx context.Context, sessionID string) ([]domain.ConversationTurn, error)

	Delete(ctx context.Context, sessionID string) error

	Close() error
}
