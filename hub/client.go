package hub

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/local-talent/utils"
)

const writeWait = 10 * time.Second

// Conn is the part of *websocket.Conn the hub writes through.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Client is one observer connection. All writes go through its writer
// goroutine; Close is safe to call any number of times.
type Client struct {
	hub    *Hub
	conn   Conn
	remote string
	send   chan []byte
	done   chan struct{}
	once   sync.Once

	// bookings is guarded by hub.mu.
	bookings map[uint]struct{}
}

func (c *Client) Remote() string { return c.remote }

// Done is closed once the client has been closed.
func (c *Client) Done() <-chan struct{} { return c.done }

// Close stops the writer, detaches the client from every booking and closes
// the connection. Only the first call has any effect.
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
		c.hub.Detach(c)
		_ = c.conn.Close()
	})
}

func (c *Client) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// enqueue hands data to the writer without blocking.
func (c *Client) enqueue(data []byte) bool {
	if c.closed() {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.pingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.logWriteError(err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logWriteError(err)
				return
			}
		}
	}
}

func (c *Client) logWriteError(err error) {
	if c.closed() {
		return
	}
	utils.ErrorLogger.WithFields(logrus.Fields{
		"remote": c.remote,
	}).WithError(err).Warn("observer write failed, closing")
}
