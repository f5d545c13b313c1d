package session

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Krimson/posture-emulator/internal/models"
)

var sessionRowColumns = []string{
	"id", "status", "patient_name", "seed", "duration_hours", "step_minutes", "start_at", "end_at",
	"event_count", "sample_count", "profile", "stats", "created_at", "saved_at",
}

func newMockRepository(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepository(db), mock
}

func sessionRow(t *testing.T, s *Session) *sqlmock.Rows {
	t.Helper()
	profileJSON, err := json.Marshal(s.Profile)
	require.NoError(t, err)
	statsJSON, err := json.Marshal(s.Stats)
	require.NoError(t, err)

	return sqlmock.NewRows(sessionRowColumns).AddRow(
		s.ID, string(s.Status), s.PatientName, s.Seed, s.DurationHours, int64(s.StepMinutes),
		s.Start, s.End, int64(s.EventCount), int64(s.SampleCount),
		profileJSON, statsJSON, s.CreatedAt, nil,
	)
}

func TestPostgresRepository_SaveSessionData(t *testing.T) {
	repo, mock := newMockRepository(t)
	data := generatedData(t, "s1")

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO posture_sessions").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM posture_events WHERE session_id").
		WithArgs("s1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM posture_grid_samples WHERE session_id").
		WithArgs("s1").WillReturnResult(sqlmock.NewResult(0, 0))

	events := mock.ExpectPrepare("INSERT INTO posture_events")
	for i, ev := range data.Events {
		events.ExpectExec().
			WithArgs("s1", int64(i), sqlmock.AnyArg(), sqlmock.AnyArg(),
				string(ev.Posture), ev.DurationMinutes, string(ev.Origin), ev.Failed).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	grid := mock.ExpectPrepare("INSERT INTO posture_grid_samples")
	for i, s := range data.Grid {
		grid.ExpectExec().
			WithArgs("s1", int64(i), sqlmock.AnyArg(), string(s.Posture)).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	require.NoError(t, repo.SaveSessionData(context.Background(), data))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_SaveSessionDataRollsBack(t *testing.T) {
	repo, mock := newMockRepository(t)
	data := generatedData(t, "s1")

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO posture_sessions").WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := repo.SaveSessionData(context.Background(), data)
	assert.ErrorContains(t, err, "failed to save session")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetSession(t *testing.T) {
	repo, mock := newMockRepository(t)
	data := generatedData(t, "s1")

	mock.ExpectQuery("FROM posture_sessions WHERE id").
		WithArgs("s1").
		WillReturnRows(sessionRow(t, data.Session))

	got, err := repo.GetSession(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.ID)
	assert.Equal(t, SessionStatusGenerated, got.Status)
	assert.Equal(t, 10, got.StepMinutes)
	assert.Equal(t, data.Session.Profile.PostureTimeLimit, got.Profile.PostureTimeLimit)
	assert.Equal(t, data.Session.Stats.EventsGenerated, got.Stats.EventsGenerated)
	assert.Nil(t, got.SavedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetSessionNotFound(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery("FROM posture_sessions WHERE id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(sessionRowColumns))

	_, err := repo.GetSession(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrSessionNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetSessionData(t *testing.T) {
	repo, mock := newMockRepository(t)
	data := generatedData(t, "s1")
	t0 := data.Session.Start

	mock.ExpectQuery("FROM posture_sessions WHERE id").
		WithArgs("s1").
		WillReturnRows(sessionRow(t, data.Session))
	mock.ExpectQuery("FROM posture_events").
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"start_at", "end_at", "postura", "duracao_min", "origem", "falha"}).
			AddRow(t0, t0.Add(90*time.Minute), "supino", 90.0, "normal", false).
			AddRow(t0.Add(90*time.Minute), t0.Add(2*time.Hour), "lateral_direito", 30.0, "normal", false))
	mock.ExpectQuery("FROM posture_grid_samples").
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"ts", "postura"}).
			AddRow(t0, "supino").
			AddRow(t0.Add(10*time.Minute), "supino"))

	got, err := repo.GetSessionData(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, got.Events, 2)
	assert.Equal(t, models.PostureRightLateral, got.Events[1].Posture)
	assert.Equal(t, models.OriginNormal, got.Events[1].Origin)
	require.Len(t, got.Grid, 2)
	assert.Equal(t, models.PostureSupine, got.Grid[1].Posture)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_ListSessions(t *testing.T) {
	repo, mock := newMockRepository(t)
	first := generatedData(t, "s1").Session
	second := generatedData(t, "s2").Session

	rows := sessionRow(t, first)
	profileJSON, _ := json.Marshal(second.Profile)
	statsJSON, _ := json.Marshal(second.Stats)
	rows.AddRow(second.ID, string(SessionStatusSaved), second.PatientName, second.Seed, second.DurationHours,
		int64(second.StepMinutes), second.Start, second.End, int64(second.EventCount), int64(second.SampleCount),
		profileJSON, statsJSON, second.CreatedAt, second.CreatedAt)

	mock.ExpectQuery("FROM posture_sessions ORDER BY created_at DESC LIMIT").
		WithArgs(10, 0).
		WillReturnRows(rows)

	sessions, err := repo.ListSessions(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "s1", sessions[0].ID)
	assert.Equal(t, SessionStatusSaved, sessions[1].Status)
	require.NotNil(t, sessions[1].SavedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_DeleteSession(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM posture_grid_samples").WithArgs("s1").WillReturnResult(sqlmock.NewResult(0, 13))
	mock.ExpectExec("DELETE FROM posture_events").WithArgs("s1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM posture_sessions").WithArgs("s1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.DeleteSession(context.Background(), "s1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_DeleteSessionNotFound(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM posture_grid_samples").WithArgs("x").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM posture_events").WithArgs("x").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM posture_sessions").WithArgs("x").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.DeleteSession(context.Background(), "x")
	assert.True(t, errors.Is(err, ErrSessionNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_EnsureSchema(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS posture_sessions").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
