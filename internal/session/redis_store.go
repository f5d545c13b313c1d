package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Krimson/posture-emulator/internal/models"
)

// RedisStore реализует CacheStore для Redis (Infrastructure Layer)
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore ttl 0 - ключи без срока жизни
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,
	}
}

// ===== Ключи Redis =====

func sessionKey(sessionID string) string {
	return fmt.Sprintf("posture:session:%s:meta", sessionID)
}

func eventsKey(sessionID string) string {
	return fmt.Sprintf("posture:session:%s:events", sessionID)
}

func gridKey(sessionID string) string {
	return fmt.Sprintf("posture:session:%s:grid", sessionID)
}

// ===== Управление сессиями =====

func (r *RedisStore) SetSession(ctx context.Context, session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	return r.client.Set(ctx, sessionKey(session.ID), data, r.ttl).Err()
}

func (r *RedisStore) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	data, err := r.client.Get(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%s: %w", sessionID, ErrSessionNotFound)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &session, nil
}

func (r *RedisStore) DeleteSession(ctx context.Context, sessionID string) error {
	// Удаляем все ключи, связанные с сессией
	pattern := fmt.Sprintf("posture:session:%s:*", sessionID)

	var keys []string
	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}

	return r.client.Del(ctx, keys...).Err()
}

func (r *RedisStore) SessionExists(ctx context.Context, sessionID string) (bool, error) {
	count, err := r.client.Exists(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ===== Данные сессии =====

// SetSessionData перезаписывает метаданные, события и сетку одним пайплайном
func (r *RedisStore) SetSessionData(ctx context.Context, data *SessionData) error {
	id := data.Session.ID

	meta, err := json.Marshal(data.Session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	events, err := marshalAll(data.Events)
	if err != nil {
		return fmt.Errorf("failed to marshal events: %w", err)
	}
	grid, err := marshalAll(data.Grid)
	if err != nil {
		return fmt.Errorf("failed to marshal grid: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, sessionKey(id), meta, r.ttl)
	for key, values := range map[string][]interface{}{
		eventsKey(id): events,
		gridKey(id):   grid,
	} {
		pipe.Del(ctx, key)
		if len(values) == 0 {
			continue
		}
		pipe.RPush(ctx, key, values...)
		if r.ttl > 0 {
			pipe.Expire(ctx, key, r.ttl)
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store session data: %w", err)
	}
	return nil
}

func (r *RedisStore) GetSessionData(ctx context.Context, sessionID string) (*SessionData, error) {
	session, err := r.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	eventsRaw, err := r.client.LRange(ctx, eventsKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	events := make([]models.Event, 0, len(eventsRaw))
	for _, raw := range eventsRaw {
		var ev models.Event
		if err := json.Unmarshal([]byte(raw), &ev); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event: %w", err)
		}
		events = append(events, ev)
	}

	gridRaw, err := r.client.LRange(ctx, gridKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get grid: %w", err)
	}
	grid := make([]models.GridSample, 0, len(gridRaw))
	for _, raw := range gridRaw {
		var s models.GridSample
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			return nil, fmt.Errorf("failed to unmarshal grid sample: %w", err)
		}
		grid = append(grid, s)
	}

	return &SessionData{
		Session: session,
		Events:  events,
		Grid:    grid,
	}, nil
}

func marshalAll[T any](items []T) ([]interface{}, error) {
	values := make([]interface{}, 0, len(items))
	for _, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			return nil, err
		}
		values = append(values, string(data))
	}
	return values, nil
}
