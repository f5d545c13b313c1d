package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/Krimson/posture-emulator/internal/models"
)

// schema таблицы сессий; события и сетка удаляются каскадно
const schema = `
CREATE TABLE IF NOT EXISTS posture_sessions (
	id             TEXT PRIMARY KEY,
	status         TEXT NOT NULL,
	patient_name   TEXT NOT NULL,
	seed           BIGINT NOT NULL,
	duration_hours DOUBLE PRECISION NOT NULL,
	step_minutes   INTEGER NOT NULL,
	start_at       TIMESTAMPTZ NOT NULL,
	end_at         TIMESTAMPTZ NOT NULL,
	event_count    INTEGER NOT NULL,
	sample_count   INTEGER NOT NULL,
	profile        JSONB NOT NULL,
	stats          JSONB NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL,
	saved_at       TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS posture_events (
	session_id  TEXT NOT NULL REFERENCES posture_sessions(id) ON DELETE CASCADE,
	seq         INTEGER NOT NULL,
	start_at    TIMESTAMPTZ NOT NULL,
	end_at      TIMESTAMPTZ NOT NULL,
	postura     TEXT NOT NULL,
	duracao_min DOUBLE PRECISION NOT NULL,
	origem      TEXT NOT NULL,
	falha       BOOLEAN NOT NULL,
	PRIMARY KEY (session_id, seq)
);

CREATE TABLE IF NOT EXISTS posture_grid_samples (
	session_id TEXT NOT NULL REFERENCES posture_sessions(id) ON DELETE CASCADE,
	seq        INTEGER NOT NULL,
	ts         TIMESTAMPTZ NOT NULL,
	postura    TEXT NOT NULL,
	PRIMARY KEY (session_id, seq)
);
`

const sessionColumns = `id, status, patient_name, seed, duration_hours, step_minutes, start_at, end_at,
	event_count, sample_count, profile, stats, created_at, saved_at`

// PostgresRepository реализует Repository для PostgreSQL (Infrastructure Layer)
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository создает новый экземпляр PostgresRepository
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db: db,
	}
}

// NewPostgresRepositoryFromDSN создает репозиторий из строки подключения
func NewPostgresRepositoryFromDSN(ctx context.Context, dsn string) (*PostgresRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Настройки пула соединений
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PostgresRepository{db: db}, nil
}

// EnsureSchema создаёт таблицы, если их нет
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Ping проверка соединения для health
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close закрывает соединение с БД
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

// ===== Управление сессиями =====

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var session Session
	var profileJSON, statsJSON []byte

	err := row.Scan(
		&session.ID,
		&session.Status,
		&session.PatientName,
		&session.Seed,
		&session.DurationHours,
		&session.StepMinutes,
		&session.Start,
		&session.End,
		&session.EventCount,
		&session.SampleCount,
		&profileJSON,
		&statsJSON,
		&session.CreatedAt,
		&session.SavedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(profileJSON, &session.Profile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}
	if err := json.Unmarshal(statsJSON, &session.Stats); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stats: %w", err)
	}
	return &session, nil
}

func (r *PostgresRepository) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM posture_sessions WHERE id = $1`

	session, err := scanSession(r.db.QueryRowContext(ctx, query, sessionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", sessionID, ErrSessionNotFound)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

func (r *PostgresRepository) ListSessions(ctx context.Context, limit, offset int) ([]*Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM posture_sessions
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]*Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}

	return sessions, rows.Err()
}

func (r *PostgresRepository) DeleteSession(ctx context.Context, sessionID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Каскад через FK, но удаляем явно, чтобы не зависеть от схемы
	for _, query := range []string{
		"DELETE FROM posture_grid_samples WHERE session_id = $1",
		"DELETE FROM posture_events WHERE session_id = $1",
	} {
		if _, err := tx.ExecContext(ctx, query, sessionID); err != nil {
			return fmt.Errorf("failed to delete session data: %w", err)
		}
	}

	result, err := tx.ExecContext(ctx, "DELETE FROM posture_sessions WHERE id = $1", sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", sessionID, ErrSessionNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ===== Полные данные сессии =====

// SaveSessionData сохраняет сессию, события и сетку в одной транзакции.
// Повторное сохранение перезаписывает события и сетку.
func (r *PostgresRepository) SaveSessionData(ctx context.Context, data *SessionData) error {
	s := data.Session

	profileJSON, err := json.Marshal(s.Profile)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	statsJSON, err := json.Marshal(s.Stats)
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	upsert := `
		INSERT INTO posture_sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, saved_at = EXCLUDED.saved_at
	`
	_, err = tx.ExecContext(ctx, upsert,
		s.ID,
		s.Status,
		s.PatientName,
		s.Seed,
		s.DurationHours,
		s.StepMinutes,
		s.Start,
		s.End,
		s.EventCount,
		s.SampleCount,
		profileJSON,
		statsJSON,
		s.CreatedAt,
		s.SavedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	for _, query := range []string{
		"DELETE FROM posture_events WHERE session_id = $1",
		"DELETE FROM posture_grid_samples WHERE session_id = $1",
	} {
		if _, err := tx.ExecContext(ctx, query, s.ID); err != nil {
			return fmt.Errorf("failed to clear session data: %w", err)
		}
	}

	if err := saveEvents(ctx, tx, s.ID, data.Events); err != nil {
		return err
	}
	if err := saveGrid(ctx, tx, s.ID, data.Grid); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func saveEvents(ctx context.Context, tx *sql.Tx, sessionID string, events []models.Event) error {
	if len(events) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO posture_events (session_id, seq, start_at, end_at, postura, duracao_min, origem, falha)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare events statement: %w", err)
	}
	defer stmt.Close()

	for i, ev := range events {
		_, err := stmt.ExecContext(ctx,
			sessionID,
			i,
			ev.Start,
			ev.End,
			string(ev.Posture),
			ev.DurationMinutes,
			string(ev.Origin),
			ev.Failed,
		)
		if err != nil {
			return fmt.Errorf("failed to insert event %d: %w", i, err)
		}
	}
	return nil
}

func saveGrid(ctx context.Context, tx *sql.Tx, sessionID string, grid []models.GridSample) error {
	if len(grid) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO posture_grid_samples (session_id, seq, ts, postura)
		VALUES ($1, $2, $3, $4)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare grid statement: %w", err)
	}
	defer stmt.Close()

	for i, s := range grid {
		if _, err := stmt.ExecContext(ctx, sessionID, i, s.Timestamp, string(s.Posture)); err != nil {
			return fmt.Errorf("failed to insert grid sample %d: %w", i, err)
		}
	}
	return nil
}

func (r *PostgresRepository) GetSessionData(ctx context.Context, sessionID string) (*SessionData, error) {
	session, err := r.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	events, err := r.getEvents(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	grid, err := r.getGrid(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return &SessionData{
		Session: session,
		Events:  events,
		Grid:    grid,
	}, nil
}

func (r *PostgresRepository) getEvents(ctx context.Context, sessionID string) ([]models.Event, error) {
	query := `
		SELECT start_at, end_at, postura, duracao_min, origem, falha
		FROM posture_events
		WHERE session_id = $1
		ORDER BY seq
	`

	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer rows.Close()

	events := make([]models.Event, 0)
	for rows.Next() {
		var ev models.Event
		var posture, origin string
		if err := rows.Scan(&ev.Start, &ev.End, &posture, &ev.DurationMinutes, &origin, &ev.Failed); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		ev.Posture = models.Posture(posture)
		ev.Origin = models.Origin(origin)
		events = append(events, ev)
	}

	return events, rows.Err()
}

func (r *PostgresRepository) getGrid(ctx context.Context, sessionID string) ([]models.GridSample, error) {
	query := `
		SELECT ts, postura
		FROM posture_grid_samples
		WHERE session_id = $1
		ORDER BY seq
	`

	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get grid: %w", err)
	}
	defer rows.Close()

	grid := make([]models.GridSample, 0)
	for rows.Next() {
		var s models.GridSample
		var posture string
		if err := rows.Scan(&s.Timestamp, &posture); err != nil {
			return nil, fmt.Errorf("failed to scan grid sample: %w", err)
		}
		s.Posture = models.Posture(posture)
		grid = append(grid, s)
	}

	return grid, rows.Err()
}
