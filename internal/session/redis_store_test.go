package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Krimson/posture-emulator/internal/emulator"
	"github.com/Krimson/posture-emulator/internal/models"
	"github.com/Krimson/posture-emulator/internal/profile"
)

var sessionStart = time.Date(2024, 5, 1, 6, 0, 0, 0, time.Local)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

// generatedData сессия 2 часа, шаг 10 минут
func generatedData(t *testing.T, id string) *SessionData {
	t.Helper()
	opts := emulator.DefaultSessionOptions()
	opts.DurationHours = 2
	opts.StepMinutes = 10
	opts.Seed = 111
	opts.Start = sessionStart
	p := profile.DefaultProfile()
	opts.Profile = &p

	result, err := emulator.GenerateSession(opts, true)
	require.NoError(t, err)

	return &SessionData{
		Session: newSession(id, opts, result, sessionStart.Add(2*time.Hour)),
		Events:  result.Events,
		Grid:    result.Grid,
	}
}

func TestRedisStore_SessionDataRoundTrip(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisStore(client, time.Hour)
	ctx := context.Background()

	data := generatedData(t, "s1")
	require.NoError(t, store.SetSessionData(ctx, data))

	assert.True(t, mr.Exists("posture:session:s1:meta"))
	assert.Equal(t, time.Hour, mr.TTL("posture:session:s1:meta"))
	assert.Equal(t, time.Hour, mr.TTL("posture:session:s1:grid"))

	got, err := store.GetSessionData(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, SessionStatusGenerated, got.Session.Status)
	assert.Equal(t, int64(111), got.Session.Seed)
	assert.Equal(t, 13, got.Session.SampleCount)
	require.Len(t, got.Grid, 13)
	require.Len(t, got.Events, len(data.Events))

	for i := range data.Grid {
		assert.True(t, data.Grid[i].Timestamp.Equal(got.Grid[i].Timestamp))
		assert.Equal(t, data.Grid[i].Posture, got.Grid[i].Posture)
	}
	for i := range data.Events {
		assert.True(t, data.Events[i].Start.Equal(got.Events[i].Start))
		assert.Equal(t, data.Events[i].Posture, got.Events[i].Posture)
		assert.Equal(t, data.Events[i].DurationMinutes, got.Events[i].DurationMinutes)
	}
}

func TestRedisStore_OverwriteReplacesLists(t *testing.T) {
	_, client := newTestRedis(t)
	store := NewRedisStore(client, 0)
	ctx := context.Background()

	data := generatedData(t, "s1")
	require.NoError(t, store.SetSessionData(ctx, data))
	require.NoError(t, store.SetSessionData(ctx, data))

	got, err := store.GetSessionData(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, got.Grid, len(data.Grid))
	assert.Len(t, got.Events, len(data.Events))
}

func TestRedisStore_NotFoundAndDelete(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisStore(client, 0)
	ctx := context.Background()

	_, err := store.GetSession(ctx, "missing")
	assert.True(t, errors.Is(err, ErrSessionNotFound))
	_, err = store.GetSessionData(ctx, "missing")
	assert.True(t, errors.Is(err, ErrSessionNotFound))
	assert.NoError(t, store.DeleteSession(ctx, "missing"))

	require.NoError(t, store.SetSessionData(ctx, generatedData(t, "s1")))
	require.NoError(t, store.SetSessionData(ctx, generatedData(t, "s2")))

	exists, err := store.SessionExists(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, store.DeleteSession(ctx, "s1"))
	assert.False(t, mr.Exists("posture:session:s1:meta"))
	assert.False(t, mr.Exists("posture:session:s1:events"))
	assert.False(t, mr.Exists("posture:session:s1:grid"))
	assert.True(t, mr.Exists("posture:session:s2:meta"))
}

func TestRedisStore_SetSessionUpdatesStatus(t *testing.T) {
	_, client := newTestRedis(t)
	store := NewRedisStore(client, 0)
	ctx := context.Background()

	data := generatedData(t, "s1")
	require.NoError(t, store.SetSessionData(ctx, data))

	saved := *data.Session
	saved.Status = SessionStatusSaved
	require.NoError(t, store.SetSession(ctx, &saved))

	got, err := store.GetSessionData(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, SessionStatusSaved, got.Session.Status)
	assert.Len(t, got.Grid, 13)
	assert.Equal(t, models.PostureSupine, got.Events[0].Posture)
}
