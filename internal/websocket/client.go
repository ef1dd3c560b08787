package websocket

import (
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"matri-go/internal/config"
	"matri-go/internal/events"
)

// clientFrame is the JSON shape of frames sent by the client.
type clientFrame struct {
	Type           string `json:"type"`
	UserID         string `json:"userId,omitempty"`
	ConversationID string `json:"conversationId,omitempty"`
}

// Client is one websocket session: the middleman between a connection and
// the hub. UserID is empty until the session authenticates (JWT on the
// upgrade request or an auth frame).
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	// Buffered channel of outbound frames. Closed by the hub on removal.
	send chan []byte

	SessionID string
	UserID    string

	// Conversation rooms this session has joined. Owned by the hub's Run
	// goroutine.
	rooms map[string]struct{}

	registered bool
}

// NewClient creates a Client for an upgraded connection. userID may be
// empty when the transport-level auth did not identify the user; the
// session then authenticates with an auth frame.
func NewClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	return &Client{
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, 64),
		SessionID: uuid.NewString(),
		UserID:    userID,
		rooms:     make(map[string]struct{}),
	}
}

// Receive exposes the session's outbound frame stream. The write pump
// drains it in production; consumers outside this package read it to
// observe what the hub delivered.
func (c *Client) Receive() <-chan []byte {
	return c.send
}

// Start registers the session (when already authenticated) and runs the
// read and write pumps.
func (c *Client) Start(wsCfg config.WebSocketConfig) {
	if c.UserID != "" {
		c.registered = true
		c.hub.Register(c)
	}
	go c.writePump(wsCfg)
	go c.readPump(wsCfg)
}

// readPump reads client frames and routes them to the hub.
func (c *Client) readPump(wsCfg config.WebSocketConfig) {
	defer func() {
		if c.registered {
			c.hub.Unregister(c)
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(int64(wsCfg.MaxMessageSizeBytes))
	c.conn.SetReadDeadline(time.Now().Add(time.Duration(wsCfg.PongWaitSeconds) * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(time.Duration(wsCfg.PongWaitSeconds) * time.Second))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error (user %s): %v", c.UserID, err)
			}
			break
		}

		var frame clientFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			log.Printf("Error decoding frame from user %s: %v", c.UserID, err)
			continue
		}

		switch frame.Type {
		case "auth":
			if c.registered || frame.UserID == "" {
				continue
			}
			c.UserID = frame.UserID
			c.registered = true
			c.hub.Register(c)

		case "join_conversation":
			if c.registered && frame.ConversationID != "" {
				c.hub.JoinConversation(c, frame.ConversationID)
			}

		case "leave_conversation":
			if c.registered && frame.ConversationID != "" {
				c.hub.LeaveConversation(c, frame.ConversationID)
			}

		case "typing", "typing_stop":
			if !c.registered || frame.ConversationID == "" {
				continue
			}
			c.hub.NotifyTyping(c, events.TypingPayload{
				ConversationID: frame.ConversationID,
				UserID:         c.UserID,
				IsTyping:       frame.Type == "typing",
			})

		default:
			log.Printf("Unknown frame type %q from user %s", frame.Type, c.UserID)
		}
	}
}

// writePump pumps frames from the hub to the websocket connection.
func (c *Client) writePump(wsCfg config.WebSocketConfig) {
	ticker := time.NewTicker(time.Duration(wsCfg.PingPeriodSeconds) * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(time.Duration(wsCfg.WriteWaitSeconds) * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(time.Duration(wsCfg.WriteWaitSeconds) * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
