package session

import (
	"context"
)

// Repository долговременное хранилище сессий (PostgreSQL)
type Repository interface {
	GetSession(ctx context.Context, sessionID string) (*Session, error)
	ListSessions(ctx context.Context, limit, offset int) ([]*Session, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Сохранение полных данных сессии
	SaveSessionData(ctx context.Context, data *SessionData) error
	GetSessionData(ctx context.Context, sessionID string) (*SessionData, error)
}

// CacheStore кэш только что сгенерированных сессий (Redis, с TTL)
type CacheStore interface {
	SetSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, sessionID string) (*Session, error)
	DeleteSession(ctx context.Context, sessionID string) error

	SetSessionData(ctx context.Context, data *SessionData) error
	GetSessionData(ctx context.Context, sessionID string) (*SessionData, error)

	SessionExists(ctx context.Context, sessionID string) (bool, error)
}
