package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// sendQueueSize bounds the per-connection outbound queue; overflow is
	// treated as connection failure, never backpressure on the dispatcher.
	sendQueueSize  = 64
	writeWait      = 10 * time.Second
	maxMessageSize = 65536
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // allow all origins in dev; restrict in production
	},
}

// Identity is the routing metadata bound to a connection on authentication.
type Identity struct {
	UserID       int64
	DepartmentID *int64
	Subjects     []string
}

// TokenValidator resolves an opaque token (e.g. a JWT from the query string)
// into an identity. Used to pre-authenticate connections at upgrade time.
type TokenValidator func(token string) (*Identity, error)

// authMessage is the client's in-band authentication message.
type authMessage struct {
	Type         string   `json:"type"`
	UserID       int64    `json:"userId"`
	DepartmentID *int64   `json:"departmentId"`
	Subjects     []string `json:"subjects"`
}

// Client is one WebSocket connection. A dedicated writer goroutine drains
// the bounded send queue so the dispatcher never blocks on a slow peer.
type Client struct {
	id        string
	registry  *Registry
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closed    atomic.Bool
	closeOnce sync.Once
	logger    *zap.Logger
}

// TrySend enqueues a message without blocking. False means the queue is
// full or the connection is closed.
func (c *Client) TrySend(msg []byte) bool {
	if c.closed.Load() {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// Ping writes a ping control frame. Safe concurrently with the writer
// goroutine (gorilla allows concurrent WriteControl).
func (c *Client) Ping() error {
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// Close tears the connection down. Idempotent.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.done)
		_ = c.conn.Close()
	})
	return nil
}

// Open reports whether the connection is still usable.
func (c *Client) Open() bool {
	return !c.closed.Load()
}

// ServeWS handles the /ws upgrade and runs the client loops. A valid
// ?token= query pre-authenticates the connection from its claims; clients
// may also (re)authenticate with an in-band {"type":"auth",...} message.
func ServeWS(registry *Registry, logger *zap.Logger, validate TokenValidator) gin.HandlerFunc {
	return func(gc *gin.Context) {
		conn, err := upgrader.Upgrade(gc.Writer, gc.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			registry: registry,
			conn:     conn,
			send:     make(chan []byte, sendQueueSize),
			done:     make(chan struct{}),
			logger:   logger,
		}
		client.id = registry.Register(client)

		if token := gc.Query("token"); token != "" && validate != nil {
			if ident, err := validate(token); err == nil {
				registry.Authenticate(client.id, ident.UserID, ident.DepartmentID, ident.Subjects)
			} else {
				logger.Debug("websocket token rejected", zap.String("conn_id", client.id), zap.Error(err))
			}
		}

		go client.writePump()
		client.readPump()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.registry.Unregister(c.id)
		_ = c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.registry.MarkAlive(c.id)
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg authMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type == "auth" {
			c.registry.Authenticate(c.id, msg.UserID, msg.DepartmentID, msg.Subjects)
			c.logger.Debug("connection authenticated",
				zap.String("conn_id", c.id), zap.Int64("user_id", msg.UserID))
		}
		// any other inbound message type is ignored; clients only talk
		// to the server through the REST API
	}
}

func (c *Client) writePump() {
	defer func() {
		_ = c.Close()
	}()
	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(writeWait))
			return
		}
	}
}
