package websocket

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Krimson/posture-emulator/internal/batch"
	"github.com/Krimson/posture-emulator/internal/models"
	"github.com/Krimson/posture-emulator/internal/session"
)

var t0 = time.Date(2024, 5, 1, 8, 0, 0, 0, time.Local)

func grid(n int) []models.GridSample {
	samples := make([]models.GridSample, n)
	for i := range samples {
		samples[i] = models.GridSample{
			Timestamp: t0.Add(time.Duration(i) * 5 * time.Minute),
			Posture:   models.AllPostures[i%len(models.AllPostures)],
		}
	}
	return samples
}

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return hub, server
}

func wsURL(server *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + path
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn, v interface{}) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(v))
}

func TestHub_NotifySession(t *testing.T) {
	hub, server := startHub(t)
	conn := dial(t, wsURL(server, "/ws"))
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	hub.NotifySession(session.NotificationGenerated, &session.Session{ID: "s1", Seed: 42})

	var msg Notification
	readJSON(t, conn, &msg)
	assert.Equal(t, session.NotificationGenerated, msg.Type)
	assert.Equal(t, "s1", msg.SessionID)
	require.NotNil(t, msg.Session)
	assert.Equal(t, int64(42), msg.Session.Seed)
}

func TestHub_SessionFilter(t *testing.T) {
	hub, server := startHub(t)
	conn := dial(t, wsURL(server, "/ws?session_id=s2"))
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	hub.NotifySession(session.NotificationGenerated, &session.Session{ID: "s1"})
	hub.NotifySession(session.NotificationSaved, &session.Session{ID: "s2"})

	var msg Notification
	readJSON(t, conn, &msg)
	assert.Equal(t, "s2", msg.SessionID)
	assert.Equal(t, session.NotificationSaved, msg.Type)
}

func TestHub_ConsumeBatch(t *testing.T) {
	hub, server := startHub(t)
	conn := dial(t, wsURL(server, "/ws"))
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	var sink batch.Sink = hub
	points := grid(3)
	require.NoError(t, sink.Consume(context.Background(), batch.Batch{
		Key:    batch.BatchKey{SessionID: "s1"},
		T0:     points[0].Timestamp,
		T1:     points[2].Timestamp,
		Points: points,
	}))

	var msg GridBatchMessage
	readJSON(t, conn, &msg)
	assert.Equal(t, MessageGridBatch, msg.Type)
	assert.Equal(t, "2024-05-01T08:00:00", msg.T0)
	assert.Equal(t, "2024-05-01T08:10:00", msg.T1)
	require.Len(t, msg.Points, 3)
	assert.Equal(t, models.PostureRightLateral, msg.Points[1].Posture)
}

func TestHub_UnregisterOnClose(t *testing.T) {
	hub, server := startHub(t)
	conn := dial(t, wsURL(server, "/ws"))
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}

type fakeSource map[string]*session.SessionData

func (f fakeSource) GetSessionData(ctx context.Context, id string) (*session.SessionData, error) {
	data, ok := f[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, session.ErrSessionNotFound)
	}
	return data, nil
}

func startReplay(t *testing.T) *httptest.Server {
	t.Helper()
	source := fakeSource{
		"s1": {Session: &session.Session{ID: "s1"}, Grid: grid(5)},
	}
	router := mux.NewRouter()
	router.Handle("/ws/sessions/{id}/replay", NewReplayHandler(source, time.Second, nil))
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func TestReplayHandler_StreamsGrid(t *testing.T) {
	server := startReplay(t)
	conn := dial(t, wsURL(server, "/ws/sessions/s1/replay?interval_ms=1"))

	for i := 0; i < 5; i++ {
		var msg SampleMessage
		readJSON(t, conn, &msg)
		assert.Equal(t, MessageSample, msg.Type)
		assert.Equal(t, i, msg.Index)
		assert.Equal(t, 5, msg.Total)
		assert.Equal(t, grid(5)[i].ISOTimestamp(), msg.Sample.ISOTimestamp())
	}

	var done Notification
	readJSON(t, conn, &done)
	assert.Equal(t, MessageReplayDone, done.Type)
	assert.Equal(t, "s1", done.SessionID)
}

func TestReplayHandler_Errors(t *testing.T) {
	server := startReplay(t)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(server, "/ws/sessions/missing/replay"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(wsURL(server, "/ws/sessions/s1/replay?interval_ms=-5"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
