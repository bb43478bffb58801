package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/kylerivers/motorev-sub004/internal/models"
)

const (
	testTimeout = 2 * time.Second
	testTick    = 5 * time.Millisecond
)

// fakeConn is an in-memory Conn for exercising the registry, broadcaster,
// router and hub without websockets.
type fakeConn struct {
	mu      sync.Mutex
	ident   Identity
	events  []*Event
	retired bool
	failAll bool
	onSend  func(event *Event)
}

func newFakeConn(userID uint, username string) *fakeConn {
	return &fakeConn{
		ident: Identity{UserID: userID, Username: username},
	}
}

func (c *fakeConn) UserID() uint {
	return c.ident.UserID
}

func (c *fakeConn) Identity() Identity {
	return c.ident
}

func (c *fakeConn) Send(event *Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.retired || c.failAll {
		return ErrClientDisconnected
	}
	if c.onSend != nil {
		c.onSend(event)
	}
	c.events = append(c.events, event)
	return nil
}

func (c *fakeConn) Retire() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.retired = true
}

func (c *fakeConn) isRetired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.retired
}

func (c *fakeConn) eventsOfType(t EventType) []*Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []*Event
	for _, ev := range c.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func (c *fakeConn) allEvents() []*Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*Event, len(c.events))
	copy(out, c.events)
	return out
}

type memberKey struct {
	packID uint
	userID uint
}

// fakeStore is an in-memory Store.
type fakeStore struct {
	mu sync.Mutex

	packs   map[uint]*models.Pack
	members map[memberKey]*models.PackMember
	rides   map[uint]*models.Ride

	locations     []*models.LocationSample
	emergencies   []*models.EmergencyEvent
	notifications []*models.Notification

	nextID uint

	packIDsErr   error // forces ActivePackIDs to fail
	emergencyErr error // forces SaveEmergencyEvent to fail
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		packs:   make(map[uint]*models.Pack),
		members: make(map[memberKey]*models.PackMember),
		rides:   make(map[uint]*models.Ride),
	}
}

func (s *fakeStore) addPack(packID uint, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pack := &models.Pack{Name: name}
	pack.ID = packID
	s.packs[packID] = pack
}

func (s *fakeStore) addMember(packID, userID uint, role, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[memberKey{packID, userID}] = &models.PackMember{
		PackID: packID, UserID: userID, Role: role, Status: status,
	}
}

func (s *fakeStore) addRide(rideID, ownerID uint, title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ride := &models.Ride{UserID: ownerID, Title: title}
	ride.ID = rideID
	s.rides[rideID] = ride
}

func (s *fakeStore) ActivePackIDs(ctx context.Context, userID uint) ([]uint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.packIDsErr != nil {
		return nil, s.packIDsErr
	}
	var ids []uint
	for key, member := range s.members {
		if key.userID == userID && member.Status == models.StatusActive {
			ids = append(ids, key.packID)
		}
	}
	return ids, nil
}

func (s *fakeStore) PackByID(ctx context.Context, packID uint) (*models.Pack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pack, ok := s.packs[packID]
	if !ok {
		return nil, ErrNotFound
	}
	return pack, nil
}

func (s *fakeStore) PackRole(ctx context.Context, packID, userID uint) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	member, ok := s.members[memberKey{packID, userID}]
	if !ok || member.Status != models.StatusActive {
		return "", ErrNotFound
	}
	return member.Role, nil
}

func (s *fakeStore) RideByID(ctx context.Context, rideID uint) (*models.Ride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ride, ok := s.rides[rideID]
	if !ok {
		return nil, ErrNotFound
	}
	return ride, nil
}

func (s *fakeStore) SaveLocationSample(ctx context.Context, sample *models.LocationSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locations = append(s.locations, sample)
	return nil
}

func (s *fakeStore) SaveEmergencyEvent(ctx context.Context, event *models.EmergencyEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.emergencyErr != nil {
		return s.emergencyErr
	}
	s.nextID++
	event.ID = s.nextID
	s.emergencies = append(s.emergencies, event)
	return nil
}

func (s *fakeStore) SaveNotification(ctx context.Context, notification *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, notification)
	return nil
}

func (s *fakeStore) UpsertInvitation(ctx context.Context, packID, userID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memberKey{packID, userID}
	if member, ok := s.members[key]; ok {
		member.Status = models.StatusInvited
		return nil
	}
	s.members[key] = &models.PackMember{
		PackID: packID, UserID: userID,
		Role: models.RoleMember, Status: models.StatusInvited,
	}
	return nil
}

func (s *fakeStore) emergencyCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.emergencies)
}

func (s *fakeStore) locationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.locations)
}

func (s *fakeStore) notificationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notifications)
}

func (s *fakeStore) invitation(packID, userID uint) (*models.PackMember, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	member, ok := s.members[memberKey{packID, userID}]
	return member, ok
}

// fakePresence records online/offline transitions.
type fakePresence struct {
	mu      sync.Mutex
	online  []uint
	offline []uint
}

func (p *fakePresence) SetOnline(ctx context.Context, userID uint) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online = append(p.online, userID)
	return nil
}

func (p *fakePresence) SetOffline(ctx context.Context, userID uint) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.offline = append(p.offline, userID)
	return nil
}

// fakePublisher records published records.
type fakePublisher struct {
	mu            sync.Mutex
	emergencies   []*models.EmergencyEvent
	notifications []*models.Notification
}

func (p *fakePublisher) PublishEmergency(ctx context.Context, event *models.EmergencyEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.emergencies = append(p.emergencies, event)
	return nil
}

func (p *fakePublisher) PublishNotification(ctx context.Context, notification *models.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notifications = append(p.notifications, notification)
	return nil
}
