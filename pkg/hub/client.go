package hub

import (
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/atomic"
)

// Clients only send pongs and close frames.
const maxReadSize = 4 * 1024

// Client is one websocket subscriber.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan Message
	skipped atomic.Uint64
}

// NewClient queues initial ahead of any broadcast and registers the client.
// It returns nil once the hub has stopped.
func NewClient(h *Hub, conn *websocket.Conn, initial ...Message) *Client {
	c := &Client{
		hub:  h,
		conn: conn,
		send: make(chan Message, h.config.ClientBuf+len(initial)),
	}
	for _, m := range initial {
		c.send <- m
	}
	select {
	case h.register <- c:
		return c
	case <-h.done:
		return nil
	}
}

// Skipped returns how many stale frames this client missed.
func (c *Client) Skipped() uint64 {
	return c.skipped.Load()
}

// Run pumps frames to the connection and blocks until it closes.
func (c *Client) Run() {
	go c.write()
	c.read()
}

// read drains the connection so pongs and disconnects are noticed.
func (c *Client) read() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	wait := c.hub.config.PongWait
	c.conn.SetReadLimit(maxReadSize)
	c.conn.SetReadDeadline(time.Now().Add(wait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// write is the connection's only writer.
func (c *Client) write() {
	cfg := c.hub.config
	ping := time.NewTicker(cfg.PingPeriod)
	defer func() {
		ping.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ping.C:
			c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
