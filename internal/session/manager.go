package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Krimson/posture-emulator/internal/emulator"
	"github.com/Krimson/posture-emulator/internal/models"
)

// Типы уведомлений о сессиях
const (
	NotificationGenerated = "session_generated"
	NotificationSaved     = "session_saved"
	NotificationDeleted   = "session_deleted"
)

// Publisher принимает сетку сессии для публикации (batch.Batcher)
type Publisher interface {
	AddAll(sessionID string, samples []models.GridSample) error
}

// Notifier получает уведомления об изменении сессий (websocket.Hub)
type Notifier interface {
	NotifySession(kind string, session *Session)
}

// Manager управляет сгенерированными сессиями (Application Layer)
type Manager struct {
	cache      CacheStore
	repository Repository
	publisher  Publisher
	notifier   Notifier
	logger     *zap.Logger
	now        func() time.Time
}

type ManagerOption func(*Manager)

func WithPublisher(p Publisher) ManagerOption {
	return func(m *Manager) { m.publisher = p }
}

func WithNotifier(n Notifier) ManagerOption {
	return func(m *Manager) { m.notifier = n }
}

// WithClock подменяет часы; используется для начала сессии по умолчанию
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// NewManager создает новый менеджер сессий
func NewManager(cache CacheStore, repository Repository, logger *zap.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		cache:      cache,
		repository: repository,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GenerateSession генерирует сессию и кладёт её в кэш
func (m *Manager) GenerateSession(ctx context.Context, req *GenerateSessionRequest) (*SessionData, error) {
	opts, err := req.Options(m.now)
	if err != nil {
		return nil, err
	}
	opts.Logger = m.logger

	result, err := emulator.GenerateSession(opts, true)
	if err != nil {
		return nil, err
	}

	session := newSession(uuid.New().String(), opts, result, m.now())
	data := &SessionData{
		Session: session,
		Events:  result.Events,
		Grid:    result.Grid,
	}

	if err := m.cache.SetSessionData(ctx, data); err != nil {
		return nil, fmt.Errorf("failed to save session to cache: %w", err)
	}

	if req != nil && req.Publish && m.publisher != nil {
		if err := m.publisher.AddAll(session.ID, data.Grid); err != nil {
			m.logger.Warn("failed to publish grid",
				zap.String("session_id", session.ID),
				zap.Error(err))
		}
	}

	m.notify(NotificationGenerated, session)
	m.logger.Info("session generated",
		zap.String("session_id", session.ID),
		zap.Int64("seed", session.Seed),
		zap.Int("events", session.EventCount),
		zap.Int("samples", session.SampleCount))
	return data, nil
}

// GetSession ищет сессию в кэше, затем в PostgreSQL
func (m *Manager) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	session, err := m.cache.GetSession(ctx, sessionID)
	if err == nil {
		return session, nil
	}
	m.logCacheMiss(sessionID, err)

	return m.repository.GetSession(ctx, sessionID)
}

// GetSessionData все данные сессии: из кэша, затем из PostgreSQL
func (m *Manager) GetSessionData(ctx context.Context, sessionID string) (*SessionData, error) {
	data, err := m.cache.GetSessionData(ctx, sessionID)
	if err == nil {
		return data, nil
	}
	m.logCacheMiss(sessionID, err)

	return m.repository.GetSessionData(ctx, sessionID)
}

// SaveSession сохраняет сессию из кэша в PostgreSQL
func (m *Manager) SaveSession(ctx context.Context, sessionID string) (*Session, error) {
	data, err := m.cache.GetSessionData(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session data from cache: %w", err)
	}

	now := m.now()
	data.Session.Status = SessionStatusSaved
	data.Session.SavedAt = &now

	if err := m.repository.SaveSessionData(ctx, data); err != nil {
		return nil, fmt.Errorf("failed to save session to database: %w", err)
	}

	// Обновляем статус в Redis
	if err := m.cache.SetSession(ctx, data.Session); err != nil {
		m.logger.Warn("failed to update session status in cache",
			zap.String("session_id", sessionID),
			zap.Error(err))
	}

	m.notify(NotificationSaved, data.Session)
	m.logger.Info("session saved", zap.String("session_id", sessionID))
	return data.Session, nil
}

// ListSessions возвращает список сохранённых сессий
func (m *Manager) ListSessions(ctx context.Context, limit, offset int) ([]*Session, error) {
	return m.repository.ListSessions(ctx, limit, offset)
}

// DeleteSession удаляет сессию из кэша и PostgreSQL
func (m *Manager) DeleteSession(ctx context.Context, sessionID string) error {
	cached, err := m.cache.SessionExists(ctx, sessionID)
	if err != nil {
		m.logger.Warn("failed to check session in cache", zap.String("session_id", sessionID), zap.Error(err))
	}

	if err := m.cache.DeleteSession(ctx, sessionID); err != nil {
		m.logger.Warn("failed to delete session from cache", zap.String("session_id", sessionID), zap.Error(err))
	}

	// Несохранённая сессия есть только в кэше
	err = m.repository.DeleteSession(ctx, sessionID)
	if err != nil && !(cached && errors.Is(err, ErrSessionNotFound)) {
		return fmt.Errorf("failed to delete session from database: %w", err)
	}

	m.notify(NotificationDeleted, &Session{ID: sessionID})
	m.logger.Info("session deleted", zap.String("session_id", sessionID))
	return nil
}

func (m *Manager) notify(kind string, session *Session) {
	if m.notifier != nil {
		m.notifier.NotifySession(kind, session)
	}
}

func (m *Manager) logCacheMiss(sessionID string, err error) {
	if !errors.Is(err, ErrSessionNotFound) {
		m.logger.Warn("cache lookup failed", zap.String("session_id", sessionID), zap.Error(err))
	}
}
