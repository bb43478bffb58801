package realtime

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/kylerivers/motorev-sub004/internal/models"
)

// EventType identifies a realtime event on the wire.
type EventType string

// Inbound event types (client -> server).
const (
	EventLocationUpdate     EventType = "location_update"
	EventEmergencyAlert     EventType = "emergency_alert"
	EventRideUpdate         EventType = "ride_update"
	EventSocialNotification EventType = "social_notification"
	EventPackInvite         EventType = "pack_invite"
)

// Outbound event types (server -> client).
const (
	EventConnected          EventType = "connected"
	EventMemberLocation     EventType = "member_location_update"
	EventMemberEmergency    EventType = "member_emergency"
	EventMemberRideUpdate   EventType = "member_ride_update"
	EventNotification       EventType = "notification"
	EventPackInvitation     EventType = "pack_invitation"
	EventError              EventType = "error"
	EventEmergencyAlertSent EventType = "emergency_alert_sent"
)

func (t EventType) String() string {
	return string(t)
}

// IsInbound reports whether the type is one a client may emit.
func (t EventType) IsInbound() bool {
	switch t {
	case EventLocationUpdate, EventEmergencyAlert, EventRideUpdate,
		EventSocialNotification, EventPackInvite:
		return true
	default:
		return false
	}
}

// InboundMessage is the envelope clients send. Data is decoded per type by
// the router.
type InboundMessage struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Event is the envelope delivered to clients.
type Event struct {
	Type      EventType `json:"type"`
	Data      any       `json:"data"`
	Timestamp int64     `json:"timestamp"`
}

func NewEvent(t EventType, data any) *Event {
	return &Event{
		Type:      t,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
}

// Identity is the verified identity bound to a connection. It is resolved
// once at connect time and never re-derived from connection state.
type Identity struct {
	UserID    uint
	Username  string
	FirstName string
	LastName  string
}

func (id Identity) Ref() models.UserRef {
	return models.UserRef{
		ID:        id.UserID,
		Username:  id.Username,
		FirstName: id.FirstName,
		LastName:  id.LastName,
	}
}

// Room keys. A room is either a rider's private room or a pack room; the
// prefix is the only thing that distinguishes them.
const (
	userRoomPrefix = "user:"
	packRoomPrefix = "pack:"
)

func UserRoom(userID uint) string {
	return userRoomPrefix + strconv.FormatUint(uint64(userID), 10)
}

func PackRoom(packID uint) string {
	return packRoomPrefix + strconv.FormatUint(uint64(packID), 10)
}

func IsPackRoom(roomKey string) bool {
	return strings.HasPrefix(roomKey, packRoomPrefix)
}

/** -------------------- Inbound payloads -------------------- */

// GeoPoint carries a required coordinate pair. Pointers distinguish a
// missing field from a legitimate zero coordinate.
type GeoPoint struct {
	Latitude  *float64 `json:"lat"`
	Longitude *float64 `json:"lon"`
}

type LocationUpdateData struct {
	Latitude  *float64 `json:"lat"`
	Longitude *float64 `json:"lon"`
	Speed     *float64 `json:"speed,omitempty"`
	Heading   *float64 `json:"heading,omitempty"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
	RideID    *uint    `json:"rideId,omitempty"`
}

type EmergencyAlertData struct {
	EventType    string          `json:"eventType"`
	Severity     string          `json:"severity,omitempty"`
	Location     *GeoPoint       `json:"location"`
	RideID       *uint           `json:"rideId,omitempty"`
	SensorData   json.RawMessage `json:"sensorData,omitempty"`
	AutoDetected bool            `json:"autoDetected,omitempty"`
}

type RideUpdateData struct {
	RideID   *uint           `json:"rideId"`
	Status   string          `json:"status"`
	Location json.RawMessage `json:"location,omitempty"`
	Stats    json.RawMessage `json:"stats,omitempty"`
}

type SocialNotificationData struct {
	TargetUserID *uint  `json:"targetUserId"`
	Type         string `json:"type"`
	Message      string `json:"message"`
	PostID       *uint  `json:"postId,omitempty"`
	StoryID      *uint  `json:"storyId,omitempty"`
}

type PackInviteData struct {
	PackID       *uint `json:"packId"`
	TargetUserID *uint `json:"targetUserId"`
}

/** -------------------- Outbound payloads -------------------- */

type ConnectedData struct {
	Message   string `json:"message"`
	UserID    uint   `json:"userId"`
	Username  string `json:"username"`
	Timestamp int64  `json:"timestamp"`
}

type LocationPoint struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Speed     *float64 `json:"speed,omitempty"`
	Heading   *float64 `json:"heading,omitempty"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
	Timestamp int64    `json:"timestamp"`
}

type MemberLocationData struct {
	UserID   uint          `json:"userId"`
	Username string        `json:"username"`
	Location LocationPoint `json:"location"`
	RideID   *uint         `json:"rideId,omitempty"`
}

type MemberEmergencyData struct {
	EventID   uint      `json:"eventId"`
	UserID    uint      `json:"userId"`
	Username  string    `json:"username"`
	EventType string    `json:"eventType"`
	Severity  string    `json:"severity"`
	Location  LatLng    `json:"location"`
	Timestamp int64     `json:"timestamp"`
	RideID    *uint     `json:"rideId,omitempty"`
}

// LatLng is the resolved coordinate pair echoed in broadcasts.
type LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type MemberRideUpdateData struct {
	RideID    uint            `json:"rideId"`
	UserID    uint            `json:"userId"`
	Username  string          `json:"username"`
	RideTitle string          `json:"rideTitle,omitempty"`
	Status    string          `json:"status"`
	Location  json.RawMessage `json:"location,omitempty"`
	Stats     json.RawMessage `json:"stats,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

type NotificationData struct {
	Type       string          `json:"type"`
	Message    string          `json:"message"`
	SourceUser models.UserRef  `json:"sourceUser"`
	Data       json.RawMessage `json:"data,omitempty"`
	Timestamp  int64           `json:"timestamp"`
}

type PackInvitationData struct {
	PackID          uint           `json:"packId"`
	PackName        string         `json:"packName"`
	PackDescription string         `json:"packDescription,omitempty"`
	InvitedBy       models.UserRef `json:"invitedBy"`
	Timestamp       int64          `json:"timestamp"`
}

type ErrorData struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

type EmergencyAckData struct {
	Message          string `json:"message"`
	EventID          uint   `json:"eventId"`
	ContactsNotified int    `json:"contactsNotified"`
}
