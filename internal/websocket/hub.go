package websocket

import (
	"context"
	"encoding/json"
	"log"

	"matri-go/internal/events"
	"matri-go/internal/realtime"
)

// Hub maintains the set of active client sessions and fans events out to
// them. A user may hold multiple concurrent sessions (multi-device); all of
// them receive new-message events. Conversation rooms carry typing
// indicators. Delivery is best-effort: if a user has no session the event
// is dropped, and the message ledger stays the source of truth.
type Hub struct {
	// sessions per user id. Owned by the Run goroutine.
	byUser map[string]map[*Client]struct{}

	// conversation rooms for typing broadcasts. Owned by the Run goroutine.
	rooms map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	deliver    chan *events.MessagePayload
	typing     chan typingRequest
	joins      chan roomRequest
	leaves     chan roomRequest

	presence realtime.PresenceDirectory
}

type typingRequest struct {
	payload events.TypingPayload
	sender  *Client
}

type roomRequest struct {
	conversationID string
	client         *Client
}

// NewHub creates a new Hub. The presence directory is updated as sessions
// come and go so that other instances (and the offline-notification path)
// can see who is connected.
func NewHub(presence realtime.PresenceDirectory) *Hub {
	return &Hub{
		byUser:     make(map[string]map[*Client]struct{}),
		rooms:      make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliver:    make(chan *events.MessagePayload, 256),
		typing:     make(chan typingRequest, 256),
		joins:      make(chan roomRequest),
		leaves:     make(chan roomRequest),
		presence:   presence,
	}
}

// Register associates an authenticated client session with its user.
func (h *Hub) Register(c *Client) {
	h.register <- c
}

// Unregister removes a client session on disconnect.
func (h *Hub) Unregister(c *Client) {
	h.unregister <- c
}

// NotifyNewMessage queues a new-message event for delivery to every live
// session of the receiver. Non-blocking: if the hub is saturated the event
// is dropped and the client recovers the message on its next fetch.
func (h *Hub) NotifyNewMessage(payload *events.MessagePayload) {
	select {
	case h.deliver <- payload:
	default:
		log.Printf("Warning: hub deliver channel full, dropping new-message event for user %s", payload.ReceiverID)
	}
}

// NotifyTyping queues a typing event for broadcast to the conversation
// room, excluding the sender's own session.
func (h *Hub) NotifyTyping(sender *Client, payload events.TypingPayload) {
	select {
	case h.typing <- typingRequest{payload: payload, sender: sender}:
	default:
		log.Printf("Warning: hub typing channel full, dropping typing event for conversation %s", payload.ConversationID)
	}
}

// JoinConversation adds the client's session to a conversation room.
func (h *Hub) JoinConversation(c *Client, conversationID string) {
	h.joins <- roomRequest{conversationID: conversationID, client: c}
}

// LeaveConversation removes the client's session from a conversation room.
func (h *Hub) LeaveConversation(c *Client, conversationID string) {
	h.leaves <- roomRequest{conversationID: conversationID, client: c}
}

// Run drives the hub. All session and room maps are owned by this
// goroutine; external callers communicate through channels only.
func (h *Hub) Run() {
	log.Println("WebSocket hub run loop started.")
	for {
		select {
		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case payload := <-h.deliver:
			h.deliverToUser(payload)

		case req := <-h.typing:
			h.broadcastTyping(req)

		case req := <-h.joins:
			if h.rooms[req.conversationID] == nil {
				h.rooms[req.conversationID] = make(map[*Client]struct{})
			}
			h.rooms[req.conversationID][req.client] = struct{}{}
			req.client.rooms[req.conversationID] = struct{}{}

		case req := <-h.leaves:
			h.dropFromRoom(req.client, req.conversationID)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	if h.byUser[client.UserID] == nil {
		h.byUser[client.UserID] = make(map[*Client]struct{})
	}
	h.byUser[client.UserID][client] = struct{}{}
	if err := h.presence.RegisterSession(context.Background(), client.UserID, client.SessionID); err != nil {
		log.Printf("Error registering presence for session %s: %v", client.SessionID, err)
	}
	log.Printf("Client session registered: user %s session %s", client.UserID, client.SessionID)
}

func (h *Hub) removeClient(client *Client) {
	sessions, ok := h.byUser[client.UserID]
	if !ok {
		return
	}
	if _, ok := sessions[client]; !ok {
		return
	}
	delete(sessions, client)
	if len(sessions) == 0 {
		delete(h.byUser, client.UserID)
	}
	for conversationID := range client.rooms {
		h.dropFromRoom(client, conversationID)
	}
	close(client.send)
	if err := h.presence.UnregisterSession(context.Background(), client.SessionID); err != nil {
		log.Printf("Error unregistering presence for session %s: %v", client.SessionID, err)
	}
	log.Printf("Client session unregistered: user %s session %s", client.UserID, client.SessionID)
}

func (h *Hub) dropFromRoom(client *Client, conversationID string) {
	delete(client.rooms, conversationID)
	room, ok := h.rooms[conversationID]
	if !ok {
		return
	}
	delete(room, client)
	if len(room) == 0 {
		delete(h.rooms, conversationID)
	}
}

func (h *Hub) deliverToUser(payload *events.MessagePayload) {
	sessions, ok := h.byUser[payload.ReceiverID]
	if !ok {
		return // receiver offline; dropped by design of this layer
	}
	frame, err := json.Marshal(events.Envelope{Type: events.NewMessageEvent, Message: payload})
	if err != nil {
		log.Printf("Error marshalling new-message frame for user %s: %v", payload.ReceiverID, err)
		return
	}
	for client := range sessions {
		h.sendOrDrop(client, frame)
	}
}

func (h *Hub) broadcastTyping(req typingRequest) {
	room, ok := h.rooms[req.payload.ConversationID]
	if !ok {
		return
	}
	frame, err := json.Marshal(events.Envelope{Type: events.TypingEvent, Typing: &req.payload})
	if err != nil {
		log.Printf("Error marshalling typing frame for conversation %s: %v", req.payload.ConversationID, err)
		return
	}
	for client := range room {
		if client == req.sender {
			continue
		}
		h.sendOrDrop(client, frame)
	}
}

// sendOrDrop writes to the client's buffered send channel. A full buffer
// means the client is slow or gone; it is removed rather than blocking the
// hub loop.
func (h *Hub) sendOrDrop(client *Client, frame []byte) {
	select {
	case client.send <- frame:
	default:
		log.Printf("Warning: send buffer full for user %s session %s, dropping session", client.UserID, client.SessionID)
		h.removeClient(client)
	}
}
