package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"wayfarer/pkg/logger"
)

// Conn is the slice of *websocket.Conn the realtime core uses, so tests can
// feed commands without a network transport.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	Close() error
}

// Client is one live session: a connected socket owned by a single user.
// Created on connect, destroyed on disconnect, never persisted.
type Client struct {
	SessionID string
	UserID    string
	UserName  string

	conn Conn
	Send chan []byte

	// mu guards stopped and sendClosed. Send is closed exactly once, by
	// Close, and only after stopped blocks every further enqueue; senders
	// can therefore never hit a closed channel.
	mu         sync.Mutex
	stopped    bool
	sendClosed bool
}

func NewClient(sessionID, userID, userName string, conn Conn) *Client {
	return &Client{
		SessionID: sessionID,
		UserID:    userID,
		UserName:  userName,
		conn:      conn,
		Send:      make(chan []byte, 256),
	}
}

// SendEvent queues an outbound event. Delivery is best-effort: a session
// whose buffer is full is dropped rather than blocking the sender.
func (c *Client) SendEvent(event string, data interface{}) {
	payload, err := json.Marshal(ServerEvent{Event: event, Data: data})
	if err != nil {
		logger.Error("Failed to marshal %s event for session %s: %v", event, c.SessionID, err)
		return
	}
	c.enqueue(payload)
}

func (c *Client) enqueue(payload []byte) bool {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return false
	}

	select {
	case c.Send <- payload:
		c.mu.Unlock()
		return true
	default:
		// Slow consumer: stop accepting frames and kick the socket so the
		// read pump runs the manager's disconnect path. The channel itself
		// stays open; closing it here would panic concurrent broadcasters.
		c.stopped = true
		c.mu.Unlock()
		logger.Warn("Send buffer full for session %s (user %s), dropping connection", c.SessionID, c.UserID)
		if c.conn != nil {
			c.conn.Close()
		}
		return false
	}
}

// Close ends the session's outbound side. Safe to call more than once, and
// only ever called after the session has been pruned from the registry.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	if !c.sendClosed {
		c.sendClosed = true
		close(c.Send)
	}
}

// ReadPump reads inbound frames and hands them to the manager's dispatcher.
// A session silent past the idle window is treated as disconnected.
func (c *Client) ReadPump(m *Manager) {
	defer m.Disconnect(c)

	for {
		if m.idleTimeout > 0 {
			c.conn.SetReadDeadline(time.Now().Add(m.idleTimeout))
		}

		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Debug("Read error for session %s: %v", c.SessionID, err)
			}
			break
		}

		m.HandleEvent(c, message)
	}
}

// WritePump drains the send buffer onto the socket.
func (c *Client) WritePump() {
	defer c.conn.Close()

	for {
		message, ok := <-c.Send
		if !ok {
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}

		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			logger.Debug("Write error for session %s: %v", c.SessionID, err)
			return
		}
	}
}
