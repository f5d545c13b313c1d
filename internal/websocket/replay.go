package websocket

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Krimson/posture-emulator/internal/emulator"
	"github.com/Krimson/posture-emulator/internal/models"
	"github.com/Krimson/posture-emulator/internal/session"
)

// SessionSource источник данных сессии (session.Manager)
type SessionSource interface {
	GetSessionData(ctx context.Context, sessionID string) (*session.SessionData, error)
}

// ReplayHandler проигрывает сетку сессии по одной точке на тик
type ReplayHandler struct {
	source   SessionSource
	interval time.Duration
	logger   *zap.Logger
}

func NewReplayHandler(source SessionSource, interval time.Duration, logger *zap.Logger) *ReplayHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReplayHandler{
		source:   source,
		interval: interval,
		logger:   logger,
	}
}

// ServeHTTP GET /ws/sessions/{id}/replay?interval_ms=
func (rh *ReplayHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	interval := rh.interval
	if v := r.URL.Query().Get("interval_ms"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			http.Error(w, "invalid interval_ms", http.StatusBadRequest)
			return
		}
		interval = time.Duration(ms) * time.Millisecond
	}

	data, err := rh.source.GetSessionData(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		rh.logger.Error("failed to load session for replay", zap.String("session_id", sessionID), zap.Error(err))
		http.Error(w, "failed to load session", http.StatusInternalServerError)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		rh.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Клиент закрыл соединение - останавливаем воспроизведение
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	total := len(data.Grid)
	index := 0
	ticker := emulator.NewTicker(interval, 0)
	err = ticker.Replay(ctx, data.Grid, func(s models.GridSample) error {
		msg := SampleMessage{
			Type:      MessageSample,
			SessionID: sessionID,
			Index:     index,
			Total:     total,
			Sample:    s,
		}
		index++
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		return conn.WriteJSON(msg)
	})
	if err != nil {
		rh.logger.Debug("replay stopped", zap.String("session_id", sessionID), zap.Int("sent", index), zap.Error(err))
		return
	}

	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := conn.WriteJSON(Notification{Type: MessageReplayDone, SessionID: sessionID}); err != nil {
		return
	}
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "replay finished"))
	rh.logger.Info("replay finished", zap.String("session_id", sessionID), zap.Int("samples", total))
}
