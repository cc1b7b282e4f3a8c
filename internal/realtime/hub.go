package realtime

import (
	"errors"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"revivatech-realtime/internal/auth"
	"revivatech-realtime/internal/models"
)

var (
	// ErrNotAuthenticated signals a room or chat operation attempted
	// before an identity was established.
	ErrNotAuthenticated = errors.New("realtime: connection not authenticated")
	// ErrAlreadyAuthenticated signals a second authenticate attempt on a
	// connection whose identity is already bound.
	ErrAlreadyAuthenticated = errors.New("realtime: connection already authenticated")
	// ErrUnknownConnection signals an operation on a connection id that is
	// not registered.
	ErrUnknownConnection = errors.New("realtime: unknown connection")
	// ErrNotSubscribed signals a chat send to a booking room the sender
	// never joined.
	ErrNotSubscribed = errors.New("realtime: not subscribed to booking")
)

// Publisher forwards locally-originated events to sibling instances.
type Publisher interface {
	Publish(ev models.WireEvent) error
}

// Hub ties the authentication gate, connection registry and room index
// together and routes typed events to the right connections. All state is
// injected; there is no ambient singleton.
type Hub struct {
	gate      *auth.Gate
	registry  *Registry
	rooms     *Rooms
	publisher Publisher
	origin    string
	logger    *slog.Logger
}

func NewHub(gate *auth.Gate, logger *slog.Logger) *Hub {
	return &Hub{
		gate:     gate,
		registry: NewRegistry(),
		rooms:    NewRooms(),
		origin:   uuid.NewString(),
		logger:   logger.With(slog.String("component", "hub")),
	}
}

// SetPublisher attaches an optional cross-instance publisher. Call before
// serving traffic.
func (h *Hub) SetPublisher(p Publisher) { h.publisher = p }

// Origin is this instance's id, stamped on every published wire event.
func (h *Hub) Origin() string { return h.origin }

// Connect registers a freshly accepted transport session.
func (h *Hub) Connect(sink Sink) *Connection {
	conn := h.registry.Register(sink)
	h.logger.Debug("connection registered", slog.String("connID", conn.ID))
	return conn
}

// Disconnect purges a connection from every room and drops it from the
// registry. Safe to call for unknown ids. A broadcast that resolved
// membership before the purge may still attempt delivery; that write
// fails silently on the dead sink.
func (h *Hub) Disconnect(connID string) {
	h.rooms.Purge(connID)
	h.registry.Unregister(connID)
	h.logger.Debug("connection unregistered", slog.String("connID", connID))
}

// Authenticate verifies a bearer credential, binds the resulting identity
// to the connection (exactly once), and enrolls it into its user and role
// rooms. The two joins are independent atomic steps, not one transaction.
func (h *Hub) Authenticate(connID, token string) (auth.Identity, error) {
	ident, err := h.gate.Verify(token)
	if err != nil {
		return auth.Identity{}, err
	}

	if _, err := h.registry.Bind(connID, ident); err != nil {
		return auth.Identity{}, err
	}

	h.rooms.Join(connID, UserRoom(ident.UserID))
	h.rooms.Join(connID, RoleRoom(ident.Role))

	h.logger.Info("connection authenticated",
		slog.String("connID", connID),
		slog.String("userID", ident.UserID),
		slog.String("role", string(ident.Role)),
	)
	return ident, nil
}

// SubscribeBooking opts an authenticated connection into a booking's
// room. Idempotent.
func (h *Hub) SubscribeBooking(connID, bookingID string) error {
	conn, ok := h.registry.Get(connID)
	if !ok {
		return ErrUnknownConnection
	}
	if conn.Identity == nil {
		return ErrNotAuthenticated
	}

	h.rooms.Join(connID, BookingRoom(bookingID))
	h.logger.Debug("booking subscribed", slog.String("connID", connID), slog.String("bookingID", bookingID))
	return nil
}

// UnsubscribeBooking revokes a booking subscription. Leaving a room never
// joined is a no-op.
func (h *Hub) UnsubscribeBooking(connID, bookingID string) error {
	conn, ok := h.registry.Get(connID)
	if !ok {
		return ErrUnknownConnection
	}
	if conn.Identity == nil {
		return ErrNotAuthenticated
	}

	h.rooms.Leave(connID, BookingRoom(bookingID))
	return nil
}

// SendBookingUpdate fans a status change out to the booking's subscribers
// and to staff.
func (h *Hub) SendBookingUpdate(update models.BookingUpdate) {
	if update.Timestamp == 0 {
		update.Timestamp = time.Now().Unix()
	}
	env := models.Envelope{
		Type:      models.EventBookingUpdate,
		Timestamp: update.Timestamp,
		Data:      update,
	}
	h.broadcast(env, models.RoomsTarget(
		BookingRoom(update.BookingID),
		RoleRoom(auth.RoleAdmin),
		RoleRoom(auth.RoleTechnician),
	))
}

// SendNotification delivers a notification to the given target: one
// user's connections, or every connection.
func (h *Hub) SendNotification(n models.Notification, target models.Target) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Timestamp == 0 {
		n.Timestamp = time.Now().Unix()
	}
	if target.Kind == models.TargetUser {
		n.UserID = target.UserID
	}
	env := models.Envelope{
		Type:      models.EventNotification,
		Timestamp: n.Timestamp,
		Data:      n,
	}
	h.broadcast(env, target)
}

// SendAdminAlert pushes an operational alert to admin connections only.
func (h *Hub) SendAdminAlert(message, severity string) {
	alert := models.AdminAlert{
		Message:   message,
		Severity:  severity,
		Timestamp: time.Now().Unix(),
	}
	env := models.Envelope{
		Type:      models.EventAdminAlert,
		Timestamp: alert.Timestamp,
		Data:      alert,
	}
	h.broadcast(env, models.RoomsTarget(RoleRoom(auth.RoleAdmin)))
}

// HandleRemote delivers an event received from a sibling instance to
// local connections only; it is never republished.
func (h *Hub) HandleRemote(ev models.WireEvent) {
	if ev.Origin == h.origin {
		return
	}
	h.deliver(ev.Envelope, ev.Target)
}

// Stats returns aggregate connection counts for the stats endpoint.
func (h *Hub) Stats() models.Stats {
	total, byRole, users := h.registry.Counts()
	return models.Stats{
		Connections:       total,
		ConnectionsByRole: byRole,
		Users:             users,
		Rooms:             h.rooms.Count(),
	}
}

// broadcast delivers locally and, when a publisher is attached, forwards
// the event to sibling instances.
func (h *Hub) broadcast(env models.Envelope, target models.Target) {
	h.deliver(env, target)

	if h.publisher == nil {
		return
	}
	ev := models.WireEvent{Origin: h.origin, Target: target, Envelope: env}
	if err := h.publisher.Publish(ev); err != nil {
		h.logger.Warn("failed to publish event", slog.String("type", env.Type), slog.Any("error", err))
	}
}

// deliver resolves the target to connections and writes the payload once
// to each, deduplicated across overlapping rooms. Delivery is
// fire-and-forget: send failures are dropped, an empty target set is a
// silent no-op.
func (h *Hub) deliver(env models.Envelope, target models.Target) {
	payload, err := json.Marshal(env)
	if err != nil {
		h.logger.Error("failed to marshal event", slog.String("type", env.Type), slog.Any("error", err))
		return
	}

	for _, conn := range h.resolve(target) {
		if err := conn.sink.Send(payload); err != nil {
			h.logger.Debug("dropped delivery",
				slog.String("connID", conn.ID),
				slog.String("type", env.Type),
				slog.Any("error", err),
			)
		}
	}
}

func (h *Hub) resolve(target models.Target) []*Connection {
	switch target.Kind {
	case models.TargetAll:
		return h.registry.All()
	case models.TargetUser:
		return h.registry.ConnectionsForUser(target.UserID)
	default:
		seen := make(map[string]*Connection)
		for _, room := range target.Rooms {
			for _, id := range h.rooms.Members(room) {
				if _, dup := seen[id]; dup {
					continue
				}
				if conn, ok := h.registry.Get(id); ok {
					seen[id] = conn
				}
			}
		}
		conns := make([]*Connection, 0, len(seen))
		for _, c := range seen {
			conns = append(conns, c)
		}
		return conns
	}
}
