package realtime

import "sync"

// RoomIndex is the bidirectional user<->room membership index. Both sides of
// every update happen under one critical section, so a user is in a room's
// member set exactly when the room is in the user's room set. A pack room
// whose last member leaves is deleted from the index immediately.
type RoomIndex struct {
	mu      sync.RWMutex
	members map[string]map[uint]struct{} // roomKey -> member user IDs
	rooms   map[uint]map[string]struct{} // userID -> room keys
}

func NewRoomIndex() *RoomIndex {
	return &RoomIndex{
		members: make(map[string]map[uint]struct{}),
		rooms:   make(map[uint]map[string]struct{}),
	}
}

// Join adds the user to the room, creating the room on first join.
// Joining a room the user is already in is a no-op.
func (x *RoomIndex) Join(userID uint, roomKey string) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.members[roomKey] == nil {
		x.members[roomKey] = make(map[uint]struct{})
	}
	x.members[roomKey][userID] = struct{}{}

	if x.rooms[userID] == nil {
		x.rooms[userID] = make(map[string]struct{})
	}
	x.rooms[userID][roomKey] = struct{}{}
}

// Leave removes the user from the room on both sides and garbage-collects
// the room if it became empty. Unknown user/room pairs are no-ops.
func (x *RoomIndex) Leave(userID uint, roomKey string) {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.leaveLocked(userID, roomKey)
}

// LeaveAll removes the user from every room it belongs to and returns the
// keys of the pack rooms it left, for caller-side bookkeeping.
func (x *RoomIndex) LeaveAll(userID uint) []string {
	x.mu.Lock()
	defer x.mu.Unlock()

	var left []string
	for roomKey := range x.rooms[userID] {
		if IsPackRoom(roomKey) {
			left = append(left, roomKey)
		}
		x.leaveLocked(userID, roomKey)
	}
	return left
}

func (x *RoomIndex) leaveLocked(userID uint, roomKey string) {
	if set, ok := x.members[roomKey]; ok {
		delete(set, userID)
		if len(set) == 0 {
			delete(x.members, roomKey)
		}
	}
	if set, ok := x.rooms[userID]; ok {
		delete(set, roomKey)
		if len(set) == 0 {
			delete(x.rooms, userID)
		}
	}
}

// MembersOf returns the user IDs currently in the room.
func (x *RoomIndex) MembersOf(roomKey string) []uint {
	x.mu.RLock()
	defer x.mu.RUnlock()

	set := x.members[roomKey]
	out := make([]uint, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// RoomsOf returns the room keys the user is currently in.
func (x *RoomIndex) RoomsOf(userID uint) []string {
	x.mu.RLock()
	defer x.mu.RUnlock()

	set := x.rooms[userID]
	out := make([]string, 0, len(set))
	for key := range set {
		out = append(out, key)
	}
	return out
}

// PackRoomsOf returns only the pack rooms the user is in, the broadcast
// targets for rider telemetry.
func (x *RoomIndex) PackRoomsOf(userID uint) []string {
	x.mu.RLock()
	defer x.mu.RUnlock()

	var out []string
	for key := range x.rooms[userID] {
		if IsPackRoom(key) {
			out = append(out, key)
		}
	}
	return out
}

// RoomCount returns the number of live rooms.
func (x *RoomIndex) RoomCount() int {
	x.mu.RLock()
	defer x.mu.RUnlock()

	return len(x.members)
}
