package ws

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message
	writeWait = 10 * time.Second

	// Time allowed to read next pong message
	pongWait = 60 * time.Second

	// Send pings with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Max inbound message size; client frames are small control messages
	maxMessageSize = 8 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: Validate origin in production
		return true
	},
}

var (
	errBufferFull = errors.New("ws: client send buffer full")
	errClosed     = errors.New("ws: client closed")
)

// Client owns one WebSocket connection and its pumps. Its buffered send
// channel is the hub-facing sink; the channel is never closed, the pumps
// exit through done instead so a late broadcast cannot panic.
type Client struct {
	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{}
	session *Session
	logger  *slog.Logger
}

// Send implements realtime.Sink. It never blocks; when the client is gone
// or its buffer is full the payload is dropped and an error returned.
func (c *Client) Send(payload []byte) error {
	select {
	case <-c.done:
		return errClosed
	default:
	}
	select {
	case c.send <- payload:
		return nil
	default:
		return errBufferFull
	}
}

// ReadPump pumps messages from the WebSocket to the session dispatcher.
func (c *Client) ReadPump() {
	defer func() {
		c.session.close()
		close(c.done)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("unexpected close", slog.Any("error", err))
			}
			break
		}

		if terminal := c.session.handleMessage(message); terminal {
			break
		}
	}
}

// WritePump pumps broadcast payloads from the send channel to the
// WebSocket and keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				c.logger.Debug("failed to get writer", slog.Any("error", err))
				return
			}
			w.Write(message)
			if err := w.Close(); err != nil {
				c.logger.Debug("failed to close writer", slog.Any("error", err))
				return
			}

		case <-c.done:
			// Flush anything still queued (the auth_error frame on a
			// terminal failure) before closing.
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			for {
				select {
				case message := <-c.send:
					c.conn.WriteMessage(websocket.TextMessage, message)
				default:
					c.conn.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("failed to send ping", slog.Any("error", err))
				return
			}
		}
	}
}
