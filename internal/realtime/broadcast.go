package realtime

import "log/slog"

// Broadcaster fans events out to the connected members of a room. It is a
// best-effort live delivery layer: members without an active session are
// skipped silently and there is no replay.
type Broadcaster struct {
	sessions *SessionRegistry
	rooms    *RoomIndex
}

func NewBroadcaster(sessions *SessionRegistry, rooms *RoomIndex) *Broadcaster {
	return &Broadcaster{
		sessions: sessions,
		rooms:    rooms,
	}
}

// Broadcast delivers the event to every connected member of the room except
// excludeUserID (pass 0 to exclude nobody) and returns how many members it
// reached. A failed send retires only that member's connection.
func (b *Broadcaster) Broadcast(roomKey string, event *Event, excludeUserID uint) int {
	delivered := 0
	for _, userID := range b.rooms.MembersOf(roomKey) {
		if userID == excludeUserID {
			continue
		}
		conn, ok := b.sessions.Lookup(userID)
		if !ok {
			continue
		}
		if err := conn.Send(event); err != nil {
			slog.Debug("Broadcast send failed", "roomKey", roomKey, "userID", userID, "error", err)
			continue
		}
		delivered++
	}
	return delivered
}

// Unicast delivers the event to a single user and reports whether the user
// was online. Callers use the result to decide whether an offline fallback
// (persisted notification, push pipeline) is the only delivery.
func (b *Broadcaster) Unicast(userID uint, event *Event) bool {
	conn, ok := b.sessions.Lookup(userID)
	if !ok {
		return false
	}
	if err := conn.Send(event); err != nil {
		slog.Debug("Unicast send failed", "userID", userID, "error", err)
		return false
	}
	return true
}
