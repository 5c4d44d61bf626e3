package handlers

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/rjdeboer/captare/internal/common"
	"github.com/rjdeboer/captare/internal/models"
	"github.com/rjdeboer/captare/internal/services/events"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // local tooling connects from file:// and other origins
	},
}

// WebSocketHandler pushes job events to connected clients. High-volume
// update/progress events are throttled; lifecycle events always pass.
type WebSocketHandler struct {
	logger           arbor.ILogger
	clients          map[*websocket.Conn]bool
	clientMutex      map[*websocket.Conn]*sync.Mutex
	mu               sync.RWMutex
	updateThrottler  *rate.Limiter
	serverInstanceID string // clients use this to detect a server restart
}

// NewWebSocketHandler creates the handler and subscribes it to the
// event bus.
func NewWebSocketHandler(eventService *events.Service, cfg *common.WebSocketConfig, logger arbor.ILogger) *WebSocketHandler {
	h := &WebSocketHandler{
		logger:           logger,
		clients:          make(map[*websocket.Conn]bool),
		clientMutex:      make(map[*websocket.Conn]*sync.Mutex),
		serverInstanceID: uuid.New().String(),
	}

	if cfg != nil && cfg.ProgressThrottle > 0 {
		h.updateThrottler = rate.NewLimiter(rate.Every(cfg.ProgressThrottle), 1)
		logger.Debug().
			Dur("interval", cfg.ProgressThrottle).
			Msg("Throttler initialized for update/progress events")
	}

	if eventService != nil {
		eventService.SubscribeAll(h.handleEvent)
	}

	return h
}

// handleEvent forwards one bus event to every client. update and
// progress events beyond the throttle rate are dropped; the next
// allowed one carries the fresher snapshot anyway.
func (h *WebSocketHandler) handleEvent(event models.Event) {
	if h.updateThrottler != nil &&
		(event.Type == models.EventUpdate || event.Type == models.EventProgress) {
		if !h.updateThrottler.Allow() {
			return
		}
	}

	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Str("event_type", string(event.Type)).Msg("Failed to marshal event")
		return
	}
	h.broadcastRaw(data)
}

func (h *WebSocketHandler) broadcastRaw(data []byte) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	mutexes := make([]*sync.Mutex, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
		mutexes = append(mutexes, h.clientMutex[conn])
	}
	h.mu.RUnlock()

	for i, conn := range conns {
		mutexes[i].Lock()
		err := conn.WriteMessage(websocket.TextMessage, data)
		mutexes[i].Unlock()

		if err != nil {
			h.logger.Debug().Err(err).Msg("Dropping unreachable WebSocket client")
			h.removeClient(conn)
		}
	}
}

// HandleWebSocket upgrades the connection and registers the client.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.clientMutex[conn] = &sync.Mutex{}
	clientCount := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().Int("clients", clientCount).Msg("WebSocket client connected")

	// Hello frame so clients can detect server restarts.
	hello, _ := json.Marshal(map[string]string{
		"type":               "hello",
		"server_instance_id": h.serverInstanceID,
	})
	h.clientMutex[conn].Lock()
	conn.WriteMessage(websocket.TextMessage, hello)
	h.clientMutex[conn].Unlock()

	// Reader loop exists only to observe the close.
	go func() {
		defer h.removeClient(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *WebSocketHandler) removeClient(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		delete(h.clientMutex, conn)
	}
	h.mu.Unlock()
	conn.Close()
}

// ClientCount returns the number of connected clients.
func (h *WebSocketHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
