package realtime

import "sync"

// Conn is the outbound half of a live authenticated connection. The
// websocket Client implements it; tests substitute fakes.
type Conn interface {
	// UserID returns the authenticated user the connection belongs to.
	UserID() uint

	// Identity returns the identity resolved at connect time.
	Identity() Identity

	// Send queues an event for delivery. It returns ErrClientDisconnected
	// when the connection is retired or its buffer is full.
	Send(event *Event) error

	// Retire stops the connection from accepting further sends and closes
	// the underlying transport. Safe to call more than once.
	Retire()
}

// SessionRegistry is the authoritative map of connected user -> live
// connection. A user has at most one session; registering a new connection
// for a user returns the one it replaced so the caller can retire it.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[uint]Conn
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[uint]Conn),
	}
}

// Register stores c as the session for its user and returns the prior
// session if one existed.
func (r *SessionRegistry) Register(c Conn) (prior Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prior = r.sessions[c.UserID()]
	r.sessions[c.UserID()] = c
	return prior
}

// Lookup returns the live connection for a user, if any.
func (r *SessionRegistry) Lookup(userID uint) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.sessions[userID]
	return c, ok
}

// Remove deletes the session only if it is still c. A stale remove (the
// user already reconnected, or was already removed) is a no-op and returns
// false.
func (r *SessionRegistry) Remove(c Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.sessions[c.UserID()]
	if !ok || current != c {
		return false
	}
	delete(r.sessions, c.UserID())
	return true
}

// Count returns the number of users currently online.
func (r *SessionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.sessions)
}

// OnlineUserIDs snapshots the set of connected users.
func (r *SessionRegistry) OnlineUserIDs() []uint {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]uint, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids
}
