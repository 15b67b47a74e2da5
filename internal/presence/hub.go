package presence

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/HammerMeetNail/widgetshare/internal/backend"
	"github.com/HammerMeetNail/widgetshare/internal/logging"
	"github.com/HammerMeetNail/widgetshare/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
)

// Recorder persists presence transitions.
type Recorder interface {
	MarkOnline(ctx context.Context, uid string) error
	MarkOffline(ctx context.Context, uid string) error
}

type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type clientMessage struct {
	Action string `json:"action"`
}

// Hub owns every presence socket. A user is online while at least one of
// their sockets is registered; the Redis key is refreshed on a ticker.
type Hub struct {
	recorder Recorder
	docs     backend.Documents
	logger   *logging.Logger
	upgrader websocket.Upgrader
	refresh  time.Duration

	register   chan *client
	unregister chan *client
	done       chan struct{}

	mu        sync.RWMutex
	userConns map[string]map[*client]bool
}

// NewHub builds a hub. docs may be nil; when set, users/{uid}.isOnline is
// kept in step with the first connect and the last disconnect.
func NewHub(recorder Recorder, docs backend.Documents, logger *logging.Logger, allowedOrigins []string) *Hub {
	if logger == nil {
		logger = logging.Default
	}
	return &Hub{
		recorder: recorder,
		docs:     docs,
		logger:   logger,
		refresh:  RefreshInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		userConns:  make(map[string]map[*client]bool),
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(r *http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

// Run processes registrations until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case c := <-h.register:
			h.mu.Lock()
			first := len(h.userConns[c.uid]) == 0
			if h.userConns[c.uid] == nil {
				h.userConns[c.uid] = make(map[*client]bool)
			}
			h.userConns[c.uid][c] = true
			h.mu.Unlock()
			if first {
				h.transition(ctx, c.uid, true)
			}

		case c := <-h.unregister:
			h.mu.Lock()
			last := false
			if conns, ok := h.userConns[c.uid]; ok && conns[c] {
				delete(conns, c)
				close(c.send)
				if len(conns) == 0 {
					delete(h.userConns, c.uid)
					last = true
				}
			}
			h.mu.Unlock()
			if last {
				h.transition(ctx, c.uid, false)
			}

		case <-ticker.C:
			for _, uid := range h.onlineUsers() {
				if err := h.recorder.MarkOnline(ctx, uid); err != nil {
					h.logger.Warn("Presence refresh failed", map[string]interface{}{"uid": uid, "error": err.Error()})
				}
			}
		}
	}
}

// Connected reports whether uid holds a socket on this hub.
func (h *Hub) Connected(uid string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userConns[uid]) > 0
}

// Serve upgrades the request and attaches the socket to uid.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, uid string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Presence upgrade failed", map[string]interface{}{"uid": uid, "error": err.Error()})
		return
	}

	c := &client{
		id:   uuid.NewString(),
		uid:  uid,
		hub:  h,
		conn: conn,
		send: make(chan []byte, 16),
	}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	case <-r.Context().Done():
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func (h *Hub) onlineUsers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.userConns))
	for uid := range h.userConns {
		out = append(out, uid)
	}
	return out
}

func (h *Hub) transition(ctx context.Context, uid string, online bool) {
	var err error
	if online {
		err = h.recorder.MarkOnline(ctx, uid)
	} else {
		err = h.recorder.MarkOffline(ctx, uid)
	}
	if err != nil {
		h.logger.Error("Presence update failed", map[string]interface{}{"uid": uid, "online": online, "error": err.Error()})
	}

	if h.docs == nil {
		return
	}
	err = h.docs.Update(ctx, models.DocPath(models.CollectionUsers, uid), []backend.Field{
		{Path: "isOnline", Value: online},
		{Path: "updatedAt", Value: time.Now().UTC()},
	})
	if err != nil {
		h.logger.Warn("Profile presence update failed", map[string]interface{}{"uid": uid, "error": err.Error()})
	}
}

func (h *Hub) shutdown() {
	close(h.done)

	h.mu.Lock()
	users := make([]string, 0, len(h.userConns))
	for uid, conns := range h.userConns {
		for c := range conns {
			_ = c.conn.Close()
		}
		users = append(users, uid)
	}
	h.userConns = make(map[string]map[*client]bool)
	h.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, uid := range users {
		h.transition(ctx, uid, false)
	}
}

type client struct {
	id   string
	uid  string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("Presence socket closed", map[string]interface{}{"uid": c.uid, "error": err.Error()})
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		if msg.Action == "ping" {
			c.reply(Message{Event: "pong"})
		}
	}
}

func (c *client) reply(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.hub.done:
			return
		}
	}
}
