package models

// Event types pushed to clients.
const (
	EventBookingUpdate = "booking_status_update"
	EventNotification  = "notification"
	EventAdminAlert    = "admin_alert"
	EventChatMessage   = "chat_message"
)

// Acknowledgment and error events emitted in response to client messages.
const (
	EventAuthenticated       = "authenticated"
	EventAuthError           = "auth_error"
	EventBookingSubscribed   = "booking_subscribed"
	EventBookingUnsubscribed = "booking_unsubscribed"
	EventError               = "error"
)

// Envelope is the frame written to every client connection.
type Envelope struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data"`
}

type TargetKind string

const (
	TargetRooms TargetKind = "rooms"
	TargetUser  TargetKind = "user"
	TargetAll   TargetKind = "all"
)

// Target names the delivery rule for a broadcast. The kind is always
// explicit; routing is never inferred from which payload fields happen
// to be set.
type Target struct {
	Kind   TargetKind `json:"kind"`
	UserID string     `json:"userId,omitempty"`
	Rooms  []string   `json:"rooms,omitempty"`
}

func RoomsTarget(rooms ...string) Target {
	return Target{Kind: TargetRooms, Rooms: rooms}
}

func UserTarget(userID string) Target {
	return Target{Kind: TargetUser, UserID: userID}
}

func AllTarget() Target {
	return Target{Kind: TargetAll}
}

// Specific event payloads. Each is immutable once constructed and never
// persisted by this service.

type BookingUpdate struct {
	BookingID           string `json:"bookingId"`
	Status              string `json:"status"`
	Message             string `json:"message"`
	Timestamp           int64  `json:"timestamp"`
	EstimatedCompletion string `json:"estimatedCompletion,omitempty"`
}

type Notification struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	UserID    string `json:"userId,omitempty"`
	Priority  string `json:"priority"`
	Timestamp int64  `json:"timestamp"`
}

type ChatMessage struct {
	ID        string `json:"id"`
	BookingID string `json:"bookingId"`
	UserID    string `json:"userId"`
	UserEmail string `json:"userEmail"`
	UserRole  string `json:"userRole"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

type AdminAlert struct {
	Message   string `json:"message"`
	Severity  string `json:"severity"`
	Timestamp int64  `json:"timestamp"`
}

// WireEvent is the frame the Redis bridge publishes to sibling instances.
// Origin carries the sending instance id so a bridge can drop its own
// messages instead of delivering them twice.
type WireEvent struct {
	Origin   string   `json:"origin"`
	Target   Target   `json:"target"`
	Envelope Envelope `json:"event"`
}

// Stats aggregates live connection counts for the stats endpoint.
type Stats struct {
	Connections       int            `json:"connections"`
	ConnectionsByRole map[string]int `json:"connectionsByRole"`
	Users             int            `json:"users"`
	Rooms             int            `json:"rooms"`
}
