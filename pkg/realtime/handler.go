package realtime

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Configure properly in production
	},
}

// RoomResolver returns the broadcast rooms a connecting client should join,
// beyond their personal room (e.g. the driver-category rooms their vehicle is
// eligible for).
type RoomResolver func(ctx context.Context, userID primitive.ObjectID, role string) []string

type Handler struct {
	hub   *Hub
	rooms RoomResolver
}

func NewHandler(hub *Hub, rooms RoomResolver) *Handler {
	return &Handler{
		hub:   hub,
		rooms: rooms,
	}
}

// HandleWebSocket upgrades an authenticated request; auth middleware must have
// set user_id and role on the context.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	role, exists := c.Get("role")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Role not found"})
		return
	}

	userObjectID, ok := userID.(primitive.ObjectID)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	roleStr, ok := role.(string)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	rooms := []string{UserRoom(userObjectID), RoleRoom(roleStr)}
	if h.rooms != nil {
		rooms = append(rooms, h.rooms(c.Request.Context(), userObjectID, roleStr)...)
	}

	client := NewClient(h.hub, conn, userObjectID, roleStr, rooms)
	h.hub.register <- client

	go client.writePump()
	go client.readPump()
}
