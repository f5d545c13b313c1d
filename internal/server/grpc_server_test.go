package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Krimson/posture-emulator/internal/session"
)

// emptyRepository PostgreSQL без сохранённых сессий
type emptyRepository struct{}

func (emptyRepository) GetSession(ctx context.Context, id string) (*session.Session, error) {
	return nil, fmt.Errorf("%s: %w", id, session.ErrSessionNotFound)
}

func (emptyRepository) ListSessions(ctx context.Context, limit, offset int) ([]*session.Session, error) {
	return nil, nil
}

func (emptyRepository) DeleteSession(ctx context.Context, id string) error {
	return fmt.Errorf("%s: %w", id, session.ErrSessionNotFound)
}

func (emptyRepository) SaveSessionData(ctx context.Context, data *session.SessionData) error {
	return nil
}

func (emptyRepository) GetSessionData(ctx context.Context, id string) (*session.SessionData, error) {
	return nil, fmt.Errorf("%s: %w", id, session.ErrSessionNotFound)
}

func newTestClient(t *testing.T) (PostureServiceClient, *session.Manager) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	manager := session.NewManager(session.NewRedisStore(rdb, time.Hour), emptyRepository{}, nil)

	listener := bufconn.Listen(1 << 20)
	grpcServer := grpc.NewServer()
	RegisterPostureServiceServer(grpcServer, NewPostureServer(manager, nil))
	go grpcServer.Serve(listener)
	t.Cleanup(grpcServer.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return NewPostureServiceClient(conn), manager
}

func mustStruct(t *testing.T, m map[string]interface{}) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func TestPostureServer_GenerateSession(t *testing.T) {
	client, manager := newTestClient(t)
	ctx := context.Background()

	resp, err := client.GenerateSession(ctx, mustStruct(t, map[string]interface{}{
		"duration_hours": 3,
		"seed":           1,
		"step_minutes":   15,
		"start":          "2024-05-01T06:00",
	}))
	require.NoError(t, err)

	sess := resp.GetFields()["session"].GetStructValue()
	require.NotNil(t, sess)
	assert.Equal(t, 13.0, sess.GetFields()["sample_count"].GetNumberValue())
	assert.Equal(t, "GENERATED", sess.GetFields()["status"].GetStringValue())

	id := sess.GetFields()["id"].GetStringValue()
	data, err := manager.GetSessionData(ctx, id)
	require.NoError(t, err)
	assert.Len(t, data.Grid, 13)
}

func TestPostureServer_GenerateSessionInvalid(t *testing.T) {
	client, _ := newTestClient(t)

	_, err := client.GenerateSession(context.Background(), mustStruct(t, map[string]interface{}{
		"duration_hours": -2,
	}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.GenerateSession(context.Background(), mustStruct(t, map[string]interface{}{
		"seed": "not a number",
	}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestPostureServer_StreamGridGenerates(t *testing.T) {
	client, _ := newTestClient(t)

	stream, err := client.StreamGrid(context.Background(), mustStruct(t, map[string]interface{}{
		"duration_hours": 1,
		"seed":           123,
		"step_minutes":   10,
		"start":          "2024-05-01T08:00",
	}))
	require.NoError(t, err)

	var timestamps []string
	for {
		msg, err := stream.Recv()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		timestamps = append(timestamps, msg.GetFields()["timestamp"].GetStringValue())
		assert.NotEmpty(t, msg.GetFields()["postura"].GetStringValue())
		assert.Equal(t, 7.0, msg.GetFields()["total"].GetNumberValue())
	}

	require.Len(t, timestamps, 7)
	assert.Equal(t, "2024-05-01T08:00:00", timestamps[0])
	assert.Equal(t, "2024-05-01T09:00:00", timestamps[6])
}

func TestPostureServer_StreamGridExistingSession(t *testing.T) {
	client, manager := newTestClient(t)
	ctx := context.Background()

	hours, step := 2.0, 10
	data, err := manager.GenerateSession(ctx, &session.GenerateSessionRequest{
		DurationHours: &hours,
		StepMinutes:   &step,
		Start:         "2024-05-01T06:00",
	})
	require.NoError(t, err)

	stream, err := client.StreamGrid(ctx, mustStruct(t, map[string]interface{}{"session_id": data.Session.ID}))
	require.NoError(t, err)

	count := 0
	for {
		msg, err := stream.Recv()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		assert.Equal(t, data.Session.ID, msg.GetFields()["session_id"].GetStringValue())
		assert.Equal(t, string(data.Grid[count].Posture), msg.GetFields()["postura"].GetStringValue())
		count++
	}
	assert.Equal(t, 13, count)

	stream, err = client.StreamGrid(ctx, mustStruct(t, map[string]interface{}{"session_id": "missing"}))
	require.NoError(t, err)
	_, err = stream.Recv()
	assert.Equal(t, codes.NotFound, status.Code(err))
}
