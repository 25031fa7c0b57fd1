package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Room key conventions: "user:<id>" for an individual party,
// "role:<role>" or "role:driver:<category>" for broadcast groups.
func UserRoom(userID primitive.ObjectID) string {
	return "user:" + userID.Hex()
}

func RoleRoom(role string) string {
	return "role:" + role
}

func DriverCategoryRoom(category string) string {
	return fmt.Sprintf("role:driver:%s", category)
}

type Event struct {
	Room      string                 `json:"room,omitempty"`
	Event     string                 `json:"event"`
	Data      map[string]interface{} `json:"data"`
	Timestamp int64                  `json:"timestamp"`
}

type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	rooms      map[string]map[*Client]bool
	mutex      sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		rooms:      make(map[string]map[*Client]bool),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.clients[client] = true
	for room := range client.rooms {
		h.joinRoom(client, room)
	}

	h.sendToClient(client, Event{
		Event:     "connected",
		Timestamp: time.Now().Unix(),
		Data:      map[string]interface{}{"user_id": client.UserID.Hex()},
	})
}

func (h *Hub) unregisterClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)

		for roomID, room := range h.rooms {
			if _, exists := room[client]; exists {
				delete(room, client)
				if len(room) == 0 {
					delete(h.rooms, roomID)
				}
			}
		}
	}
}

// Emit delivers an event to every local client in the room. Cross-instance
// delivery goes through the redis bridge, which calls Emit on each instance.
func (h *Hub) Emit(room, event string, data map[string]interface{}) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	clients, exists := h.rooms[room]
	if !exists {
		return
	}

	payload, _ := json.Marshal(Event{
		Room:      room,
		Event:     event,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})

	for client := range clients {
		select {
		case client.send <- payload:
		default:
			close(client.send)
			delete(h.clients, client)
			delete(clients, client)
		}
	}
}

// Publish makes the hub satisfy Publisher for single-instance deployments
// without redis.
func (h *Hub) Publish(_ context.Context, room, event string, data map[string]interface{}) error {
	h.Emit(room, event, data)
	return nil
}

func (h *Hub) sendToClient(client *Client, event Event) {
	data, _ := json.Marshal(event)
	select {
	case client.send <- data:
	default:
		close(client.send)
		delete(h.clients, client)
	}
}

func (h *Hub) joinRoom(client *Client, roomID string) {
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Client]bool)
	}
	h.rooms[roomID][client] = true
}
