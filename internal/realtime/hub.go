package realtime

import (
	"context"
	"log/slog"
	"time"
)

const lifecycleTimeout = 5 * time.Second

// Hub orchestrates connection lifecycle. Register and unregister requests
// flow through a single run goroutine, so a reconnect is always sequenced
// strictly after the cleanup of the session it replaces. Event handling does
// not pass through this loop; it runs on each connection's read goroutine.
type Hub struct {
	sessions    *SessionRegistry
	rooms       *RoomIndex
	broadcaster *Broadcaster
	router      *Router

	store    Store
	presence PresenceMirror // optional

	register   chan Conn
	unregister chan Conn

	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(store Store, presence PresenceMirror, publisher EventPublisher) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	sessions := NewSessionRegistry()
	rooms := NewRoomIndex()
	broadcaster := NewBroadcaster(sessions, rooms)

	return &Hub{
		sessions:    sessions,
		rooms:       rooms,
		broadcaster: broadcaster,
		router:      NewRouter(store, rooms, broadcaster, publisher),
		store:       store,
		presence:    presence,
		register:    make(chan Conn),
		unregister:  make(chan Conn),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Run processes lifecycle requests until Stop is called. It should be
// started in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.registerConn(conn)

		case conn := <-h.unregister:
			h.unregisterConn(conn)

		case <-h.ctx.Done():
			slog.Info("Realtime hub shutting down")
			for _, userID := range h.sessions.OnlineUserIDs() {
				if conn, ok := h.sessions.Lookup(userID); ok {
					h.sessions.Remove(conn)
					h.rooms.LeaveAll(userID)
					conn.Retire()
				}
			}
			return
		}
	}
}

// Stop shuts the hub down and retires every connection.
func (h *Hub) Stop() {
	h.cancel()
}

// Connect submits a verified connection for registration.
func (h *Hub) Connect(conn Conn) {
	select {
	case h.register <- conn:
	case <-time.After(lifecycleTimeout):
		slog.Error("Timeout registering connection", "userID", conn.UserID())
		conn.Retire()
	case <-h.ctx.Done():
		conn.Retire()
	}
}

// Disconnect submits a connection for teardown. Redundant disconnects for a
// connection that was already replaced or removed are no-ops.
func (h *Hub) Disconnect(conn Conn) {
	select {
	case h.unregister <- conn:
	case <-time.After(lifecycleTimeout):
		slog.Warn("Timeout unregistering connection", "userID", conn.UserID())
	case <-h.ctx.Done():
	}
}

// HandleInbound routes one inbound message on the caller's goroutine.
func (h *Hub) HandleInbound(ctx context.Context, conn Conn, msg *InboundMessage) {
	h.router.Dispatch(ctx, conn, msg)
}

// OnlineCount returns the number of riders currently connected.
func (h *Hub) OnlineCount() int {
	return h.sessions.Count()
}

// RoomCount returns the number of live rooms, for health reporting.
func (h *Hub) RoomCount() int {
	return h.rooms.RoomCount()
}

// registerConn registers the session, joins the private room, hydrates pack
// rooms from the store and acknowledges the connection. Pack hydration
// failure is logged and does not refuse the connection; the rider keeps
// their private room and goes without pack broadcast until reconnect.
func (h *Hub) registerConn(conn Conn) {
	ident := conn.Identity()

	if prior := h.sessions.Register(conn); prior != nil {
		slog.Info("Replacing existing session", "userID", ident.UserID)
		prior.Retire()
	}

	h.rooms.Join(ident.UserID, UserRoom(ident.UserID))

	packIDs, err := h.store.ActivePackIDs(h.ctx, ident.UserID)
	if err != nil {
		slog.Error("Pack hydration failed, connected without pack rooms",
			"userID", ident.UserID, "error", err)
	} else {
		for _, packID := range packIDs {
			h.rooms.Join(ident.UserID, PackRoom(packID))
		}
	}

	if h.presence != nil {
		if err := h.presence.SetOnline(h.ctx, ident.UserID); err != nil {
			slog.Error("Failed to mirror online presence", "userID", ident.UserID, "error", err)
		}
	}

	slog.Info("Rider connected",
		"userID", ident.UserID, "username", ident.Username, "packRooms", len(packIDs))

	ack := NewEvent(EventConnected, ConnectedData{
		Message:   "Connected to MotoRev realtime service",
		UserID:    ident.UserID,
		Username:  ident.Username,
		Timestamp: time.Now().Unix(),
	})
	if err := conn.Send(ack); err != nil {
		slog.Debug("Failed to deliver connected ack", "userID", ident.UserID, "error", err)
	}
}

// unregisterConn tears down a session. Disconnect is silent to other
// members: presence of others is derived on demand, never pushed.
func (h *Hub) unregisterConn(conn Conn) {
	userID := conn.UserID()

	if !h.sessions.Remove(conn) {
		// Already replaced by a newer session or already removed; the room
		// index belongs to the current session, leave it alone.
		conn.Retire()
		return
	}

	left := h.rooms.LeaveAll(userID)

	if h.presence != nil {
		if err := h.presence.SetOffline(h.ctx, userID); err != nil {
			slog.Error("Failed to mirror offline presence", "userID", userID, "error", err)
		}
	}

	conn.Retire()
	slog.Info("Rider disconnected", "userID", userID, "packRoomsLeft", len(left))
}
