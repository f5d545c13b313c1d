package grpcclient

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/Krimson/posture-emulator/internal/models"
	"github.com/Krimson/posture-emulator/internal/server"
	"github.com/Krimson/posture-emulator/internal/session"
)

type noRepository struct{}

func (noRepository) GetSession(ctx context.Context, id string) (*session.Session, error) {
	return nil, fmt.Errorf("%s: %w", id, session.ErrSessionNotFound)
}

func (noRepository) ListSessions(ctx context.Context, limit, offset int) ([]*session.Session, error) {
	return nil, nil
}

func (noRepository) DeleteSession(ctx context.Context, id string) error {
	return fmt.Errorf("%s: %w", id, session.ErrSessionNotFound)
}

func (noRepository) SaveSessionData(ctx context.Context, data *session.SessionData) error {
	return nil
}

func (noRepository) GetSessionData(ctx context.Context, id string) (*session.SessionData, error) {
	return nil, fmt.Errorf("%s: %w", id, session.ErrSessionNotFound)
}

func newTestClient(t *testing.T) (*GRPCClient, *session.Manager) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	manager := session.NewManager(session.NewRedisStore(rdb, time.Hour), noRepository{}, nil)

	listener := bufconn.Listen(1 << 20)
	grpcServer := grpc.NewServer()
	server.RegisterPostureServiceServer(grpcServer, server.NewPostureServer(manager, nil))
	go grpcServer.Serve(listener)
	t.Cleanup(grpcServer.Stop)

	client, err := NewGRPCClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client, manager
}

func TestGRPCClient_StreamGridGenerates(t *testing.T) {
	client, manager := newTestClient(t)
	ctx := context.Background()

	seed := int64(123)
	var samples []models.GridSample
	sessionID, err := client.StreamGrid(ctx, StreamRequest{
		DurationHours: 1,
		Seed:          &seed,
		StepMinutes:   10,
		Start:         "2024-05-01T08:00",
	}, func(s models.GridSample) error {
		samples = append(samples, s)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, samples, 7)

	start := time.Date(2024, 5, 1, 8, 0, 0, 0, time.Local)
	for i, s := range samples {
		assert.True(t, start.Add(time.Duration(i)*10*time.Minute).Equal(s.Timestamp))
		assert.True(t, s.Posture.IsValid())
	}

	data, err := manager.GetSessionData(ctx, sessionID)
	require.NoError(t, err)
	assertSameGrid(t, data.Grid, samples)
}

func assertSameGrid(t *testing.T, expected, actual []models.GridSample) {
	t.Helper()
	require.Len(t, actual, len(expected))
	for i := range expected {
		assert.True(t, expected[i].Timestamp.Equal(actual[i].Timestamp), "sample %d", i)
		assert.Equal(t, expected[i].Posture, actual[i].Posture, "sample %d", i)
	}
}

func TestGRPCClient_StreamGridExistingSession(t *testing.T) {
	client, manager := newTestClient(t)
	ctx := context.Background()

	hours, step := 2.0, 10
	data, err := manager.GenerateSession(ctx, &session.GenerateSessionRequest{
		DurationHours: &hours,
		StepMinutes:   &step,
		Start:         "2024-05-01T06:00",
	})
	require.NoError(t, err)

	var samples []models.GridSample
	sessionID, err := client.StreamGrid(ctx, StreamRequest{SessionID: data.Session.ID, DurationHours: 99},
		func(s models.GridSample) error {
			samples = append(samples, s)
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, data.Session.ID, sessionID)
	assertSameGrid(t, data.Grid, samples)
}

func TestGRPCClient_StreamGridErrors(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()
	noop := func(models.GridSample) error { return nil }

	_, err := client.StreamGrid(ctx, StreamRequest{SessionID: "missing"}, noop)
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = client.StreamGrid(ctx, StreamRequest{Start: "yesterday"}, noop)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	stop := fmt.Errorf("stop")
	count := 0
	_, err = client.StreamGrid(ctx, StreamRequest{DurationHours: 1, StepMinutes: 5}, func(models.GridSample) error {
		count++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, count)
}
