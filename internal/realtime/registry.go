package realtime

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"revivatech-realtime/internal/auth"
)

// Sink is the write side of a live transport connection. Send must not
// block; a sink that cannot accept the payload returns an error, which
// the broadcaster swallows per the fire-and-forget contract.
type Sink interface {
	Send(payload []byte) error
}

// Connection is one live transport session. Identity stays nil until the
// gate accepts a credential, and is set exactly once.
type Connection struct {
	ID          string
	Identity    *auth.Identity
	ConnectedAt time.Time
	sink        Sink
}

// Registry indexes live connections by id, with a reverse index by
// authenticated user for the multi-device case. All mutations are atomic
// relative to concurrent reads.
type Registry struct {
	mu     sync.RWMutex
	conns  map[string]*Connection
	byUser map[string]map[string]*Connection
}

func NewRegistry() *Registry {
	return &Registry{
		conns:  make(map[string]*Connection),
		byUser: make(map[string]map[string]*Connection),
	}
}

// Register creates a connection record for a freshly accepted transport
// session and assigns its id.
func (r *Registry) Register(sink Sink) *Connection {
	conn := &Connection{
		ID:          uuid.NewString(),
		ConnectedAt: time.Now(),
		sink:        sink,
	}

	r.mu.Lock()
	r.conns[conn.ID] = conn
	r.mu.Unlock()

	return conn
}

// Unregister removes a connection from both indexes. Unknown ids are a
// no-op.
func (r *Registry) Unregister(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[connID]
	if !ok {
		return
	}
	delete(r.conns, connID)

	if conn.Identity != nil {
		set := r.byUser[conn.Identity.UserID]
		delete(set, connID)
		if len(set) == 0 {
			delete(r.byUser, conn.Identity.UserID)
		}
	}
}

func (r *Registry) Get(connID string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[connID]
	return conn, ok
}

// Bind attaches a verified identity to a connection. A connection can be
// bound exactly once; later attempts fail without mutating anything.
func (r *Registry) Bind(connID string, ident auth.Identity) (*Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[connID]
	if !ok {
		return nil, ErrUnknownConnection
	}
	if conn.Identity != nil {
		return nil, ErrAlreadyAuthenticated
	}

	conn.Identity = &ident
	set := r.byUser[ident.UserID]
	if set == nil {
		set = make(map[string]*Connection)
		r.byUser[ident.UserID] = set
	}
	set[connID] = conn

	return conn, nil
}

// ConnectionsForUser returns every live connection authenticated as the
// given user. Insertion order is irrelevant.
func (r *Registry) ConnectionsForUser(userID string) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.byUser[userID]
	conns := make([]*Connection, 0, len(set))
	for _, c := range set {
		conns = append(conns, c)
	}
	return conns
}

// All returns a snapshot of every live connection.
func (r *Registry) All() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*Connection, 0, len(r.conns))
	for _, c := range r.conns {
		conns = append(conns, c)
	}
	return conns
}

// Counts reports the total connection count, counts per role, and the
// number of distinct authenticated users.
func (r *Registry) Counts() (total int, byRole map[string]int, users int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byRole = make(map[string]int)
	for _, c := range r.conns {
		if c.Identity != nil {
			byRole[string(c.Identity.Role)]++
		}
	}
	return len(r.conns), byRole, len(r.byUser)
}
