package websocket

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"storyfeed-api/pkg/logging"
)

// Client represents a websocket connection bound to an author.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	authorID int
	closed   bool
}

// Hub tracks connected clients per author.
type Hub struct {
	mu              sync.Mutex
	clientsByAuthor map[int]map[*Client]struct{}
	logger          logging.Logger
}

func NewHub(logger logging.Logger) *Hub {
	return &Hub{
		clientsByAuthor: make(map[int]map[*Client]struct{}),
		logger:          logger,
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clientsByAuthor[c.authorID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clientsByAuthor[c.authorID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(c)
}

// dropLocked removes c and closes its send channel once. Caller holds h.mu.
func (h *Hub) dropLocked(c *Client) {
	if set, ok := h.clientsByAuthor[c.authorID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clientsByAuthor, c.authorID)
		}
	}
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// NotifyAuthor sends payload to every connection of authorID. Slow clients
// whose buffer is full are disconnected.
func (h *Hub) NotifyAuthor(authorID int, payload []byte) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clientsByAuthor[authorID] {
		select {
		case c.send <- payload:
		default:
			h.logger.WithField("author_id", authorID).Warn("dropping slow websocket client")
			h.dropLocked(c)
		}
	}
}

// NotifyAll sends payload to every open connection.
func (h *Hub) NotifyAll(payload []byte) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for authorID, set := range h.clientsByAuthor {
		for c := range set {
			select {
			case c.send <- payload:
			default:
				h.logger.WithField("author_id", authorID).Warn("dropping slow websocket client")
				h.dropLocked(c)
			}
		}
	}
}

// Connections returns how many sockets authorID has open.
func (h *Hub) Connections(authorID int) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clientsByAuthor[authorID])
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Total returns the number of open sockets across all authors.
func (h *Hub) Total() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, set := range h.clientsByAuthor {
		n += len(set)
	}
	return n
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWS upgrades the request and streams events to the authenticated
// author. The auth middleware must have set authorId in the context.
func ServeWS(h *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		authorID := c.GetInt("authorId")
		if authorID == 0 {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.logger.WithError(err).Error("websocket upgrade failed")
			return
		}
		client := &Client{hub: h, conn: conn, send: make(chan []byte, 256), authorID: authorID}
		h.register(client)

		go func() {
			defer func() {
				h.unregister(client)
				_ = conn.Close()
			}()
			conn.SetReadLimit(1024)
			_ = conn.SetReadDeadline(time.Now().Add(pongWait))
			conn.SetPongHandler(func(string) error {
				return conn.SetReadDeadline(time.Now().Add(pongWait))
			})
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					break
				}
			}
		}()

		ping := time.NewTicker(pingPeriod)
		defer ping.Stop()
		for {
			select {
			case msg, ok := <-client.send:
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if !ok {
					_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
					_ = conn.Close()
					return
				}
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					_ = conn.Close()
					return
				}
			case <-ping.C:
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					_ = conn.Close()
					return
				}
			}
		}
	}
}
