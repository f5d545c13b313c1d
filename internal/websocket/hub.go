package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Krimson/posture-emulator/internal/batch"
	"github.com/Krimson/posture-emulator/internal/models"
	"github.com/Krimson/posture-emulator/internal/session"
	"github.com/Krimson/posture-emulator/pkg/utils"
)

// Типы сообщений
const (
	MessageGridBatch  = "grid_batch"
	MessageSample     = "sample"
	MessageReplayDone = "replay_done"
)

// Hub управляет WebSocket соединениями
type Hub struct {
	// Зарегистрированные клиенты
	clients map[*Client]bool

	// Канал для регистрации клиентов
	register chan *Client

	// Канал для отмены регистрации клиентов
	unregister chan *Client

	// Канал исходящих сообщений для всех клиентов
	broadcast chan outgoing

	// Закрывается при остановке Run
	done chan struct{}

	mu     sync.RWMutex
	logger *zap.Logger
}

// Client представляет WebSocket клиента
type Client struct {
	hub *Hub

	// WebSocket соединение
	conn *websocket.Conn

	// Буферизованный канал исходящих сообщений
	send chan []byte

	// ID сессии для фильтрации; пустой - все сессии
	sessionID string
}

type outgoing struct {
	sessionID string
	payload   []byte
}

// Notification уведомление об изменении сессии
type Notification struct {
	Type      string           `json:"type"`
	SessionID string           `json:"session_id"`
	Session   *session.Session `json:"session,omitempty"`
}

// GridBatchMessage батч сетки, опубликованный батчером
type GridBatchMessage struct {
	Type      string              `json:"type"`
	SessionID string              `json:"session_id"`
	T0        string              `json:"t0"`
	T1        string              `json:"t1"`
	Points    []models.GridSample `json:"points"`
}

// SampleMessage одна точка сетки при воспроизведении
type SampleMessage struct {
	Type      string            `json:"type"`
	SessionID string            `json:"session_id"`
	Index     int               `json:"index"`
	Total     int               `json:"total"`
	Sample    models.GridSample `json:"sample"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// В продакшене следует проверять домен
		return true
	},
}

// NewHub создает новый Hub
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan outgoing, 256),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run запускает Hub до отмены ctx
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Debug("client registered", zap.String("session_id", client.sessionID))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Debug("client unregistered", zap.String("session_id", client.sessionID))

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if client.sessionID != "" && client.sessionID != message.sessionID {
					continue
				}
				select {
				case client.send <- message.payload:
				default:
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
	}
}

// ClientCount число подключённых клиентов
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// NotifySession рассылает уведомление о сессии (session.Notifier)
func (h *Hub) NotifySession(kind string, s *session.Session) {
	h.publish(s.ID, Notification{
		Type:      kind,
		SessionID: s.ID,
		Session:   s,
	})
}

// Consume рассылает батч сетки клиентам (batch.Sink)
func (h *Hub) Consume(ctx context.Context, b batch.Batch) error {
	h.publish(b.Key.SessionID, GridBatchMessage{
		Type:      MessageGridBatch,
		SessionID: b.Key.SessionID,
		T0:        utils.FormatISO(b.T0),
		T1:        utils.FormatISO(b.T1),
		Points:    b.Points,
	})
	return nil
}

func (h *Hub) publish(sessionID string, v interface{}) {
	message, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("failed to marshal message", zap.Error(err))
		return
	}

	select {
	case h.broadcast <- outgoing{sessionID: sessionID, payload: message}:
	default:
		h.logger.Warn("broadcast channel full, dropping message", zap.String("session_id", sessionID))
	}
}

// HandleWebSocket обрабатывает WebSocket соединения.
// ?session_id= ограничивает поток одной сессией.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}

	client := &Client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, 256),
		sessionID: r.URL.Query().Get("session_id"),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	// Запускаем горутины для клиента
	go client.writePump()
	go client.readPump()
}

// readPump читает до закрытия соединения клиентом
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}
	}
}

// writePump отправляет сообщения клиенту
func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			c.hub.logger.Warn("failed to write message", zap.Error(err))
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
