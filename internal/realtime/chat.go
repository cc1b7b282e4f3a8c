package realtime

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"revivatech-realtime/internal/models"
)

// Chat relays a message to a single booking's room. The sender must be
// authenticated and already subscribed to that booking. The message id
// and timestamp are server-assigned; nothing is persisted here.
func (h *Hub) Chat(connID, bookingID, text string) (models.ChatMessage, error) {
	conn, ok := h.registry.Get(connID)
	if !ok {
		return models.ChatMessage{}, ErrUnknownConnection
	}
	if conn.Identity == nil {
		return models.ChatMessage{}, ErrNotAuthenticated
	}

	room := BookingRoom(bookingID)
	if !h.rooms.Contains(room, connID) {
		return models.ChatMessage{}, ErrNotSubscribed
	}

	msg := models.ChatMessage{
		ID:        uuid.NewString(),
		BookingID: bookingID,
		UserID:    conn.Identity.UserID,
		UserEmail: conn.Identity.Email,
		UserRole:  string(conn.Identity.Role),
		Message:   text,
		Timestamp: time.Now().Unix(),
	}
	env := models.Envelope{
		Type:      models.EventChatMessage,
		Timestamp: msg.Timestamp,
		Data:      msg,
	}
	h.broadcast(env, models.RoomsTarget(room))

	h.logger.Debug("chat message relayed",
		slog.String("bookingID", bookingID),
		slog.String("userID", conn.Identity.UserID),
	)
	return msg, nil
}
