// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"
	"time"

	"autoforward_bot/internal/model"
)

// Storage is the interface for all persistence operations. Each write is
// atomic: a record is either fully persisted or not observable at all.
type Storage interface {
	CreateMessage(ctx context.Context, m *model.ForwardedMessage) error
	ListMessages(ctx context.Context, limit int) ([]model.ForwardedMessage, error)

	CreateSession(ctx context.Context, s *model.Session) error
	GetSession(ctx context.Context, sessionID string) (*model.Session, error)
	RecordReceived(ctx context.Context, sessionID string, at time.Time) error
	RecordForward(ctx context.Context, sessionID string, at time.Time) error
	CloseSession(ctx context.Context, sessionID string, stoppedAt time.Time) error
	ListSessions(ctx context.Context, limit int) ([]model.Session, error)

	CreateError(ctx context.Context, e *model.ErrorLog) error
	ListErrors(ctx context.Context, limit int) ([]model.ErrorLog, error)
	ResolveError(ctx context.Context, id int64) error

	Stats(ctx context.Context) (*model.Stats, error)

	Close() error
}
