package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/shaiso/beadprep/internal/domain"
)

// ErrHubClosed — hub остановлен, события больше не принимаются.
var ErrHubClosed = errors.New("event hub closed")

// Параметры websocket-соединения.
const (
	clientBuffer = 64
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = 30 * time.Second
	maxReadSize  = 4 * 1024
)

// Hub транслирует события run подключённым websocket-клиентам.
//
// Медленный клиент не задерживает остальных: при переполнении его
// буфера событие для него отбрасывается.
type Hub struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
	closed  bool
}

// NewHub создаёт Hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			// Клиенты — CLI и панель в локальной сети
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*wsClient]struct{}),
	}
}

// HandleEvent принимает событие из шины. Подходит для mq.EventHandler.
func (h *Hub) HandleEvent(_ context.Context, event domain.Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return ErrHubClosed
	}
	for c := range h.clients {
		c.send(event, h.logger)
	}
	return nil
}

// Clients возвращает число подключённых клиентов.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close отключает всех клиентов.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := h.clients
	h.clients = make(map[*wsClient]struct{})
	h.mu.Unlock()

	for c := range clients {
		c.close()
	}
}

// ServeWS подключает websocket-клиента.
// GET /api/v1/events?run_id=... (run_id необязателен)
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	var runID uuid.UUID
	if s := r.URL.Query().Get("run_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			BadRequest(w, "invalid run_id")
			return
		}
		runID = id
	}

	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		Unavailable(w, "event stream is shutting down")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже ответил клиенту
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &wsClient{
		conn:  conn,
		runID: runID,
		out:   make(chan domain.Event, clientBuffer),
		done:  make(chan struct{}),
	}

	// Close мог пройти, пока шёл handshake
	if !h.add(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		c.close()
		return
	}
	h.logger.Info("websocket client connected", "remote_addr", r.RemoteAddr, "run_id", runLabel(runID))

	go c.writePump(h.logger)
	go func() {
		c.readPump()
		h.remove(c)
	}()
}

// add регистрирует клиента. Возвращает false, если хаб уже закрыт.
func (h *Hub) add(c *wsClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
	h.logger.Info("websocket client disconnected")
}

// wsClient — одно websocket-соединение.
type wsClient struct {
	conn  *websocket.Conn
	runID uuid.UUID
	out   chan domain.Event

	once sync.Once
	done chan struct{}
}

func (c *wsClient) wants(event domain.Event) bool {
	return c.runID == uuid.Nil || c.runID == event.RunID
}

// send ставит событие в очередь клиента без блокировки.
func (c *wsClient) send(event domain.Event, logger *slog.Logger) {
	if !c.wants(event) {
		return
	}
	select {
	case c.out <- event:
	case <-c.done:
	default:
		logger.Warn("dropping event for slow websocket client", "type", event.Type, "run_id", event.RunID)
	}
}

func (c *wsClient) close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// readPump читает control-фреймы до разрыва. Входящие сообщения игнорируются.
func (c *wsClient) readPump() {
	c.conn.SetReadLimit(maxReadSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump отправляет события и ping.
func (c *wsClient) writePump(logger *slog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case event := <-c.out:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(event); err != nil {
				logger.Debug("websocket write failed", "error", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

// runLabel форматирует необязательный run_id для лога.
func runLabel(id uuid.UUID) string {
	if id == uuid.Nil {
		return "*"
	}
	return id.String()
}
