package report

import (
	"errors"
	"sync"

	"github.com/gofiber/contrib/websocket"
)

// errConnectionClosed is returned when a push is attempted on a connection
// already marked closed.
var errConnectionClosed = errors.New("push connection already closed")

// Connection is one accepted push-channel client. The channel is one-way:
// the server pushes chart-data updates, clients send nothing.
type Connection struct {
	ID   string
	Conn *websocket.Conn

	mu   sync.Mutex
	open bool
}

// NewConnection wraps an upgraded websocket connection.
func NewConnection(id string, conn *websocket.Conn) *Connection {
	return &Connection{
		ID:   id,
		Conn: conn,
		open: true,
	}
}

// IsOpen reports whether the connection can still receive pushes.
func (c *Connection) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// SendJSON writes msg as a single text frame. A write failure marks the
// connection closed so later broadcasts skip it.
func (c *Connection) SendJSON(msg interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return errConnectionClosed
	}
	if err := c.Conn.WriteJSON(msg); err != nil {
		c.open = false
		return err
	}
	return nil
}

// Close marks the connection closed and closes the underlying socket.
func (c *Connection) Close() error {
	c.mu.Lock()
	c.open = false
	c.mu.Unlock()
	return c.Conn.Close()
}
