package ws

import (
	"log/slog"
	"net"
	"net/http"

	"revivatech-realtime/internal/auth"
	"revivatech-realtime/internal/realtime"
)

// ServeWS upgrades an HTTP request to a WebSocket and wires the client
// into the hub. The connection starts unauthenticated; the client must
// send an authenticate message before any room operation.
func ServeWS(hub *realtime.Hub, limiter *auth.Limiter, logger *slog.Logger, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("failed to upgrade connection", slog.String("from", r.RemoteAddr), slog.Any("error", err))
		return
	}

	client := &Client{
		conn:   conn,
		send:   make(chan []byte, 256),
		done:   make(chan struct{}),
		logger: logger.With(slog.String("from", r.RemoteAddr)),
	}
	client.session = NewSession(hub, limiter, client, remoteIP(r), logger)

	logger.Debug("connection upgraded", slog.String("from", r.RemoteAddr))

	go client.WritePump()
	go client.ReadPump()
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
