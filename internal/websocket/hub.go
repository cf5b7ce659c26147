// Package websocket implements the WebSocket Hub for broadcasting live
// competition updates. WebSockets are persistent two-way connections, so the
// server can push leaderboard changes and popup events to every viewer the
// moment a score lands, without the clients polling the API.
//
// Channel membership is per competition: a client joins the channel for the
// competition it is watching and receives only that competition's messages.
package websocket

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
)

// Client represents a single connected WebSocket viewer.
// Each viewer watching a live competition has one Client instance on the server.
type Client struct {
	CompetitionID uuid.UUID   // Which competition this client joined
	Send          chan []byte // Buffered channel of outgoing messages; the connection's write pump drains it
}

// Envelope is the wire format for every outbound message: a type tag the client
// switches on ("scores-updated", "popup-event", ...), the competition it belongs
// to, and the minimal payload a viewer needs to patch local state without a full
// refetch.
type Envelope struct {
	Type          string    `json:"type"`
	CompetitionID uuid.UUID `json:"competitionId"`
	Payload       any       `json:"payload,omitempty"`
}

// message pairs pre-encoded bytes with the competition channel they target.
type message struct {
	competitionID uuid.UUID
	data          []byte
}

// Hub manages all active WebSocket connections, grouped by competition.
// It runs in its own goroutine and processes join, leave, and broadcast events
// through channels, so all map mutation happens on a single goroutine.
type Hub struct {
	// clients is a nested map: competitionID -> set of Client pointers.
	// A map[*Client]bool as a "set" is the usual Go idiom.
	clients map[uuid.UUID]map[*Client]bool

	broadcast  chan *message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	// mu lets Publish read the client list under RLock while the run loop holds
	// the write lock for membership changes.
	mu sync.RWMutex
}

// NewHub creates an initialized Hub. The broadcast channel is buffered so score
// writes don't block on a briefly busy hub goroutine; join/leave are synchronous.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]bool),
		broadcast:  make(chan *message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run is the Hub's main event loop; call it in a goroutine ("go hub.Run()").
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.CompetitionID] == nil {
				h.clients[client.CompetitionID] = make(map[*Client]bool)
			}
			h.clients[client.CompetitionID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.CompetitionID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.Send) // signals the write pump to stop
					if len(clients) == 0 {
						delete(h.clients, client.CompetitionID)
					}
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			clients := h.clients[msg.competitionID]
			h.mu.RUnlock()

			var slow []*Client
			for client := range clients {
				select {
				case client.Send <- msg.data:
				// A full Send buffer means the client is too slow; drop it
				// rather than stalling every other viewer of the competition.
				default:
					slow = append(slow, client)
				}
			}
			// Evict inline: sending to h.unregister from the run loop itself
			// would block forever, since this loop is its only receiver.
			for _, client := range slow {
				h.mu.Lock()
				if set, ok := h.clients[client.CompetitionID]; ok && set[client] {
					delete(set, client)
					close(client.Send)
					if len(set) == 0 {
						delete(h.clients, client.CompetitionID)
					}
				}
				h.mu.Unlock()
			}
		}
	}
}

// Publish encodes an Envelope and broadcasts it to every member of the
// competition's channel. This is the method score and group handlers (and the
// notifier) call after a write commits.
func (h *Hub) Publish(competitionID uuid.UUID, messageType string, payload any) error {
	data, err := json.Marshal(Envelope{
		Type:          messageType,
		CompetitionID: competitionID,
		Payload:       payload,
	})
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- &message{competitionID: competitionID, data: data}:
		return nil
	case <-h.done:
		return nil
	}
}

// Join adds a client to its competition's channel. Called when a WebSocket
// connection is opened (or an explicit join message arrives). After Close it
// returns without registering; the run loop is gone.
func (h *Hub) Join(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// Leave removes a client from its competition's channel when the connection
// closes or the client explicitly leaves. Safe after Close.
func (h *Hub) Leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Close stops the run loop. Used by tests and graceful shutdown.
func (h *Hub) Close() {
	close(h.done)
}
