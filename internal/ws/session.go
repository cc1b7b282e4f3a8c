package ws

import (
	"errors"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"

	"revivatech-realtime/internal/auth"
	"revivatech-realtime/internal/models"
	"revivatech-realtime/internal/realtime"
)

// Session drives the in-band protocol for one connection: a finite set of
// named inbound messages, each handled synchronously. Authentication
// happens here, not at upgrade time, so every room operation before a
// successful authenticate is rejected.
type Session struct {
	hub      *realtime.Hub
	limiter  *auth.Limiter
	conn     *realtime.Connection
	sink     realtime.Sink
	remoteIP string
	logger   *slog.Logger
}

// NewSession registers a new connection with the hub and returns the
// dispatcher bound to it.
func NewSession(hub *realtime.Hub, limiter *auth.Limiter, sink realtime.Sink, remoteIP string, logger *slog.Logger) *Session {
	conn := hub.Connect(sink)
	return &Session{
		hub:      hub,
		limiter:  limiter,
		conn:     conn,
		sink:     sink,
		remoteIP: remoteIP,
		logger:   logger.With(slog.String("connID", conn.ID)),
	}
}

// close purges the session's connection from the hub. Called exactly once
// when the transport goes away.
func (s *Session) close() {
	s.hub.Disconnect(s.conn.ID)
}

// handleMessage dispatches one inbound frame. A true return tells the
// read pump to drop the connection (terminal authentication failure).
func (s *Session) handleMessage(raw []byte) (terminal bool) {
	msgType := gjson.GetBytes(raw, "type").String()

	switch msgType {
	case "authenticate":
		return s.authenticate(raw)
	case "subscribe_booking":
		s.subscribeBooking(raw)
	case "unsubscribe_booking":
		s.unsubscribeBooking(raw)
	case "chat_message":
		s.chatMessage(raw)
	default:
		s.logger.Warn("unknown message type", slog.String("type", msgType))
	}
	return false
}

func (s *Session) authenticate(raw []byte) (terminal bool) {
	var msg struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(raw, &msg); err != nil {
		s.emitAuthError("INVALID_CREDENTIAL", "malformed authenticate message")
		return true
	}

	if !s.limiter.Allow(s.remoteIP) {
		s.logger.Warn("authentication rate limit hit", slog.String("ip", s.remoteIP))
		s.emitAuthError("RATE_LIMITED", "too many authentication attempts")
		return true
	}

	ident, err := s.hub.Authenticate(s.conn.ID, msg.Token)
	if err != nil {
		s.logger.Warn("authentication failed", slog.String("ip", s.remoteIP), slog.Any("error", err))
		s.emitAuthError(errCode(err), err.Error())
		return true
	}

	s.emit(models.EventAuthenticated, map[string]any{
		"user": map[string]string{
			"id":    ident.UserID,
			"email": ident.Email,
			"role":  string(ident.Role),
		},
	})
	return false
}

func (s *Session) subscribeBooking(raw []byte) {
	var msg struct {
		BookingID string `json:"bookingId"`
	}
	if err := json.Unmarshal(raw, &msg); err != nil || msg.BookingID == "" {
		s.emitError("INVALID_MESSAGE", "bookingId required")
		return
	}

	if err := s.hub.SubscribeBooking(s.conn.ID, msg.BookingID); err != nil {
		s.emitError(errCode(err), err.Error())
		return
	}
	s.emit(models.EventBookingSubscribed, map[string]string{"bookingId": msg.BookingID})
}

func (s *Session) unsubscribeBooking(raw []byte) {
	var msg struct {
		BookingID string `json:"bookingId"`
	}
	if err := json.Unmarshal(raw, &msg); err != nil || msg.BookingID == "" {
		s.emitError("INVALID_MESSAGE", "bookingId required")
		return
	}

	if err := s.hub.UnsubscribeBooking(s.conn.ID, msg.BookingID); err != nil {
		s.emitError(errCode(err), err.Error())
		return
	}
	s.emit(models.EventBookingUnsubscribed, map[string]string{"bookingId": msg.BookingID})
}

func (s *Session) chatMessage(raw []byte) {
	var msg struct {
		BookingID string `json:"bookingId"`
		Message   string `json:"message"`
	}
	if err := json.Unmarshal(raw, &msg); err != nil || msg.BookingID == "" || msg.Message == "" {
		s.emitError("INVALID_MESSAGE", "bookingId and message required")
		return
	}

	// The sender is a member of the booking room, so the broadcast echoes
	// the stamped message back to them as well; no separate ack.
	if _, err := s.hub.Chat(s.conn.ID, msg.BookingID, msg.Message); err != nil {
		s.emitError(errCode(err), err.Error())
	}
}

// emit writes a server event to this session's own connection only.
// Failures are dropped like any other delivery.
func (s *Session) emit(eventType string, data any) {
	env := models.Envelope{
		Type:      eventType,
		Timestamp: time.Now().Unix(),
		Data:      data,
	}
	payload, err := json.Marshal(env)
	if err != nil {
		s.logger.Error("failed to marshal event", slog.String("type", eventType), slog.Any("error", err))
		return
	}
	if err := s.sink.Send(payload); err != nil {
		s.logger.Debug("dropped ack", slog.String("type", eventType), slog.Any("error", err))
	}
}

func (s *Session) emitError(code, message string) {
	s.emit(models.EventError, map[string]string{"code": code, "message": message})
}

func (s *Session) emitAuthError(code, message string) {
	s.emit(models.EventAuthError, map[string]string{"code": code, "message": message})
}

// errCode maps component errors onto the named codes clients see. Every
// failure mode is enumerable; there is no generic internal error.
func errCode(err error) string {
	switch {
	case errors.Is(err, realtime.ErrNotAuthenticated):
		return "NOT_AUTHENTICATED"
	case errors.Is(err, realtime.ErrAlreadyAuthenticated):
		return "ALREADY_AUTHENTICATED"
	case errors.Is(err, realtime.ErrNotSubscribed):
		return "NOT_SUBSCRIBED"
	case errors.Is(err, realtime.ErrUnknownConnection):
		return "UNKNOWN_CONNECTION"
	case errors.Is(err, auth.ErrExpiredCredential):
		return "EXPIRED_CREDENTIAL"
	case errors.Is(err, auth.ErrInvalidCredential):
		return "INVALID_CREDENTIAL"
	}
	return "ERROR"
}
