package notify

import (
	"encoding/json"
	"sync"
)

// Channel names clients may subscribe to. Staff terminals and the kitchen
// display get every event; guest terminals only see their own order updates
// and menu changes.
const (
	ChannelStaff   = "staff"
	ChannelKitchen = "kitchen"
	ChannelGuest   = "guest"
)

func validChannel(name string) bool {
	switch name {
	case ChannelStaff, ChannelKitchen, ChannelGuest:
		return true
	}
	return false
}

// Event is one broadcast message.
type Event struct {
	Type    string `json:"type"`
	Version uint64 `json:"version"`
	Payload any    `json:"payload,omitempty"`
}

type roomEvent struct {
	rooms []string
	event Event
}

// Hub maintains the active websocket clients grouped by channel and fans
// events out to them.
type Hub struct {
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan roomEvent

	mu sync.RWMutex
}

// NewHub creates a hub. Run must be started as a goroutine before clients
// connect.
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan roomEvent, 256),
	}
}

// Run is the hub's main loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.channel] == nil {
				h.rooms[client.channel] = make(map[*Client]bool)
			}
			h.rooms[client.channel][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.drop(client)
			h.mu.Unlock()

		case ev := <-h.broadcast:
			message, err := json.Marshal(ev.event)
			if err != nil {
				continue
			}
			h.mu.Lock()
			for _, room := range ev.rooms {
				for client := range h.rooms[room] {
					select {
					case client.send <- message:
					default:
						// Slow consumer, disconnect it.
						h.drop(client)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// drop must be called with h.mu held.
func (h *Hub) drop(client *Client) {
	clients, ok := h.rooms[client.channel]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.rooms, client.channel)
	}
}

// Broadcast sends an event to every client in the given channels.
func (h *Hub) Broadcast(event Event, channels ...string) {
	if len(channels) == 0 {
		channels = []string{ChannelStaff, ChannelKitchen, ChannelGuest}
	}
	h.broadcast <- roomEvent{rooms: channels, event: event}
}
