package realtime

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kylerivers/motorev-sub004/internal/models"
)

type routerRig struct {
	sessions  *SessionRegistry
	rooms     *RoomIndex
	router    *Router
	store     *fakeStore
	publisher *fakePublisher
}

func newRouterRig() *routerRig {
	sessions := NewSessionRegistry()
	rooms := NewRoomIndex()
	broadcaster := NewBroadcaster(sessions, rooms)
	store := newFakeStore()
	publisher := &fakePublisher{}
	return &routerRig{
		sessions:  sessions,
		rooms:     rooms,
		router:    NewRouter(store, rooms, broadcaster, publisher),
		store:     store,
		publisher: publisher,
	}
}

// connect registers a fake connection and joins its private room plus the
// given pack rooms, mirroring what the hub does on connect.
func (r *routerRig) connect(userID uint, username string, packIDs ...uint) *fakeConn {
	conn := newFakeConn(userID, username)
	r.sessions.Register(conn)
	r.rooms.Join(userID, UserRoom(userID))
	for _, packID := range packIDs {
		r.rooms.Join(userID, PackRoom(packID))
	}
	return conn
}

func (r *routerRig) dispatch(conn *fakeConn, kind EventType, payload string) {
	r.router.Dispatch(context.Background(), conn, &InboundMessage{
		Type: kind,
		Data: json.RawMessage(payload),
	})
}

func requireErrorEvent(t *testing.T, conn *fakeConn, code string) {
	t.Helper()
	errs := conn.eventsOfType(EventError)
	require.Len(t, errs, 1)
	data, ok := errs[0].Data.(ErrorData)
	require.True(t, ok)
	assert.Equal(t, code, data.Code)
}

func TestLocationUpdateWithoutPacksReachesNobody(t *testing.T) {
	rig := newRouterRig()
	alice := rig.connect(1, "alice")
	bob := rig.connect(2, "bob", 10)

	rig.dispatch(alice, EventLocationUpdate, `{"lat":40.0,"lon":-74.0}`)

	assert.Empty(t, alice.allEvents(), "no echo and no error for the sender")
	assert.Empty(t, bob.allEvents(), "no delivery outside the sender's pack rooms")
	assert.Equal(t, 0, rig.store.locationCount(), "no rideId means no persistence")
}

func TestLocationUpdateFansOutToPackRooms(t *testing.T) {
	rig := newRouterRig()
	alice := rig.connect(1, "alice", 10, 20)
	bob := rig.connect(2, "bob", 10)
	carol := rig.connect(3, "carol", 20)
	dave := rig.connect(4, "dave", 30)

	speed := 88.5
	payload, _ := json.Marshal(map[string]any{"lat": 40.7, "lon": -74.0, "speed": speed})
	rig.dispatch(alice, EventLocationUpdate, string(payload))

	assert.Empty(t, alice.eventsOfType(EventMemberLocation), "no echo")
	require.Len(t, bob.eventsOfType(EventMemberLocation), 1)
	require.Len(t, carol.eventsOfType(EventMemberLocation), 1)
	assert.Empty(t, dave.allEvents())

	data, ok := bob.eventsOfType(EventMemberLocation)[0].Data.(MemberLocationData)
	require.True(t, ok)
	assert.Equal(t, uint(1), data.UserID)
	assert.Equal(t, "alice", data.Username)
	assert.Equal(t, 40.7, data.Location.Latitude)
	assert.Equal(t, -74.0, data.Location.Longitude)
	require.NotNil(t, data.Location.Speed)
	assert.Equal(t, speed, *data.Location.Speed)
}

func TestLocationUpdatePersistsWhenOnRide(t *testing.T) {
	rig := newRouterRig()
	alice := rig.connect(1, "alice", 10)

	rig.dispatch(alice, EventLocationUpdate, `{"lat":40.0,"lon":-74.0,"rideId":7}`)

	require.Equal(t, 1, rig.store.locationCount())
	sample := rig.store.locations[0]
	assert.Equal(t, uint(1), sample.UserID)
	require.NotNil(t, sample.RideID)
	assert.Equal(t, uint(7), *sample.RideID)
}

func TestLocationUpdateMissingCoordinates(t *testing.T) {
	rig := newRouterRig()
	alice := rig.connect(1, "alice", 10)
	bob := rig.connect(2, "bob", 10)

	rig.dispatch(alice, EventLocationUpdate, `{"lat":40.0}`)

	requireErrorEvent(t, alice, CodeValidation)
	assert.Empty(t, bob.allEvents(), "validation failure must not broadcast")
}

func TestEmergencyAlertPersistsThenBroadcasts(t *testing.T) {
	rig := newRouterRig()
	alice := rig.connect(1, "alice", 10)
	bob := rig.connect(2, "bob", 10)

	// Every delivered member_emergency must observe the persisted record.
	bob.onSend = func(event *Event) {
		if event.Type != EventMemberEmergency {
			return
		}
		require.Equal(t, 1, rig.store.emergencyCount(), "broadcast before persistence")
		data, ok := event.Data.(MemberEmergencyData)
		require.True(t, ok)
		assert.Equal(t, rig.store.emergencies[0].ID, data.EventID)
	}

	rig.dispatch(alice, EventEmergencyAlert,
		`{"eventType":"crash","severity":"high","location":{"lat":1,"lon":2}}`)

	require.Equal(t, 1, rig.store.emergencyCount())
	record := rig.store.emergencies[0]
	assert.Equal(t, "crash", record.EventType)
	assert.Equal(t, "high", record.Severity)
	assert.Equal(t, 1.0, record.Latitude)
	assert.Equal(t, 2.0, record.Longitude)

	require.Len(t, bob.eventsOfType(EventMemberEmergency), 1)

	acks := alice.eventsOfType(EventEmergencyAlertSent)
	require.Len(t, acks, 1)
	ack, ok := acks[0].Data.(EmergencyAckData)
	require.True(t, ok)
	assert.Equal(t, record.ID, ack.EventID)
	assert.Equal(t, 1, ack.ContactsNotified)

	// The persisted record is also handed to the stream publisher.
	require.Len(t, rig.publisher.emergencies, 1)
	assert.Equal(t, record.ID, rig.publisher.emergencies[0].ID)
}

func TestEmergencyAlertDefaultSeverity(t *testing.T) {
	rig := newRouterRig()
	alice := rig.connect(1, "alice", 10)

	rig.dispatch(alice, EventEmergencyAlert, `{"eventType":"sos","location":{"lat":1,"lon":2}}`)

	require.Equal(t, 1, rig.store.emergencyCount())
	assert.Equal(t, "high", rig.store.emergencies[0].Severity)
}

func TestEmergencyAlertPersistenceFailureBlocksBroadcast(t *testing.T) {
	rig := newRouterRig()
	rig.store.emergencyErr = assert.AnError
	alice := rig.connect(1, "alice", 10)
	bob := rig.connect(2, "bob", 10)

	rig.dispatch(alice, EventEmergencyAlert,
		`{"eventType":"crash","location":{"lat":1,"lon":2}}`)

	requireErrorEvent(t, alice, CodePersistence)
	assert.Empty(t, bob.allEvents(), "failed persistence must block the broadcast")
	assert.Empty(t, alice.eventsOfType(EventEmergencyAlertSent))
	assert.Empty(t, rig.publisher.emergencies)
}

func TestEmergencyAlertMissingFields(t *testing.T) {
	rig := newRouterRig()
	alice := rig.connect(1, "alice", 10)

	rig.dispatch(alice, EventEmergencyAlert, `{"location":{"lat":1,"lon":2}}`)

	requireErrorEvent(t, alice, CodeValidation)
	assert.Equal(t, 0, rig.store.emergencyCount())
}

func TestRideUpdateByOwnerBroadcasts(t *testing.T) {
	rig := newRouterRig()
	rig.store.addRide(5, 1, "Sunday Canyon Run")
	alice := rig.connect(1, "alice", 10)
	bob := rig.connect(2, "bob", 10)

	rig.dispatch(alice, EventRideUpdate, `{"rideId":5,"status":"active"}`)

	events := bob.eventsOfType(EventMemberRideUpdate)
	require.Len(t, events, 1)
	data, ok := events[0].Data.(MemberRideUpdateData)
	require.True(t, ok)
	assert.Equal(t, uint(5), data.RideID)
	assert.Equal(t, "Sunday Canyon Run", data.RideTitle)
	assert.Equal(t, "active", data.Status)
}

func TestRideUpdateRejectedForNonOwner(t *testing.T) {
	rig := newRouterRig()
	rig.store.addRide(5, 2, "Bob's ride")
	alice := rig.connect(1, "alice", 10)
	bob := rig.connect(2, "bob", 10)

	rig.dispatch(alice, EventRideUpdate, `{"rideId":5,"status":"active"}`)

	requireErrorEvent(t, alice, CodeAuthorization)
	assert.Empty(t, bob.allEvents(), "failed ownership check must not broadcast")
}

func TestRideUpdateUnknownRide(t *testing.T) {
	rig := newRouterRig()
	alice := rig.connect(1, "alice", 10)

	rig.dispatch(alice, EventRideUpdate, `{"rideId":99,"status":"active"}`)

	requireErrorEvent(t, alice, CodeNotFound)
}

func TestSocialNotificationDeliveredWhenOnline(t *testing.T) {
	rig := newRouterRig()
	alice := rig.connect(1, "alice")
	bob := rig.connect(2, "bob")

	rig.dispatch(bob, EventSocialNotification,
		`{"targetUserId":1,"type":"like","message":"bob liked your post","postId":42}`)

	events := alice.eventsOfType(EventNotification)
	require.Len(t, events, 1)
	data, ok := events[0].Data.(NotificationData)
	require.True(t, ok)
	assert.Equal(t, "like", data.Type)
	assert.Equal(t, uint(2), data.SourceUser.ID)
	assert.Equal(t, "bob", data.SourceUser.Username)

	require.Equal(t, 1, rig.store.notificationCount())
	record := rig.store.notifications[0]
	assert.Equal(t, uint(1), record.UserID)
	assert.Equal(t, uint(2), record.SenderID)
	require.Len(t, rig.publisher.notifications, 1)
}

func TestSocialNotificationOfflineTargetStillPersisted(t *testing.T) {
	rig := newRouterRig()
	bob := rig.connect(2, "bob")

	// Target user 1 has no session: the unicast is a silent no-op but the
	// notification is stored for the offline pipeline.
	rig.dispatch(bob, EventSocialNotification,
		`{"targetUserId":1,"type":"follow","message":"bob followed you"}`)

	assert.Empty(t, bob.eventsOfType(EventError))
	require.Equal(t, 1, rig.store.notificationCount())
	assert.Equal(t, uint(1), rig.store.notifications[0].UserID)
}

func TestSocialNotificationNotDeliveredToOthers(t *testing.T) {
	rig := newRouterRig()
	alice := rig.connect(1, "alice", 10)
	bob := rig.connect(2, "bob", 10)
	carol := rig.connect(3, "carol", 10)

	rig.dispatch(bob, EventSocialNotification,
		`{"targetUserId":1,"type":"like","message":"hi"}`)

	assert.Len(t, alice.eventsOfType(EventNotification), 1)
	assert.Empty(t, carol.allEvents(), "notifications are unicast, not pack broadcast")
}

func TestPackInviteByOwner(t *testing.T) {
	rig := newRouterRig()
	rig.store.addPack(10, "Canyon Carvers")
	rig.store.addMember(10, 1, models.RoleOwner, models.StatusActive)
	alice := rig.connect(1, "alice", 10)
	carol := rig.connect(3, "carol")

	rig.dispatch(alice, EventPackInvite, `{"packId":10,"targetUserId":3}`)

	invites := carol.eventsOfType(EventPackInvitation)
	require.Len(t, invites, 1)
	data, ok := invites[0].Data.(PackInvitationData)
	require.True(t, ok)
	assert.Equal(t, uint(10), data.PackID)
	assert.Equal(t, "Canyon Carvers", data.PackName)
	assert.Equal(t, uint(1), data.InvitedBy.ID)

	member, ok := rig.store.invitation(10, 3)
	require.True(t, ok)
	assert.Equal(t, models.StatusInvited, member.Status)
	assert.Empty(t, alice.eventsOfType(EventError))
}

func TestPackInviteIsIdempotent(t *testing.T) {
	rig := newRouterRig()
	rig.store.addPack(10, "Canyon Carvers")
	rig.store.addMember(10, 1, models.RoleAdmin, models.StatusActive)
	alice := rig.connect(1, "alice", 10)

	rig.dispatch(alice, EventPackInvite, `{"packId":10,"targetUserId":3}`)
	rig.dispatch(alice, EventPackInvite, `{"packId":10,"targetUserId":3}`)

	member, ok := rig.store.invitation(10, 3)
	require.True(t, ok)
	assert.Equal(t, models.StatusInvited, member.Status)
	assert.Empty(t, alice.eventsOfType(EventError))
}

func TestPackInviteRejectedForPlainMember(t *testing.T) {
	rig := newRouterRig()
	rig.store.addPack(10, "Canyon Carvers")
	rig.store.addMember(10, 1, models.RoleMember, models.StatusActive)
	alice := rig.connect(1, "alice", 10)

	rig.dispatch(alice, EventPackInvite, `{"packId":10,"targetUserId":3}`)

	requireErrorEvent(t, alice, CodeAuthorization)
	_, ok := rig.store.invitation(10, 3)
	assert.False(t, ok, "denied invite must not create an invitation")
}

func TestPackInviteUnknownPack(t *testing.T) {
	rig := newRouterRig()
	alice := rig.connect(1, "alice")

	rig.dispatch(alice, EventPackInvite, `{"packId":99,"targetUserId":3}`)

	requireErrorEvent(t, alice, CodeNotFound)
}

func TestDispatchUnknownEventType(t *testing.T) {
	rig := newRouterRig()
	alice := rig.connect(1, "alice")

	rig.dispatch(alice, EventType("teleport"), `{}`)

	requireErrorEvent(t, alice, CodeValidation)
}

func TestDispatchMalformedPayload(t *testing.T) {
	rig := newRouterRig()
	alice := rig.connect(1, "alice", 10)

	rig.dispatch(alice, EventLocationUpdate, `"not an object"`)

	requireErrorEvent(t, alice, CodeValidation)
}
