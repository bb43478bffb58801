package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/kylerivers/motorev-sub004/internal/models"
)

// Router validates and dispatches inbound events. Each handler enforces its
// own shape and authorization checks before any side effect; failures are
// reported to the sender only and never partially apply.
//
// Dispatch runs on the calling connection's read goroutine, so one sender's
// events stay ordered while a slow persistence call never blocks unrelated
// connections.
type Router struct {
	store     Store
	rooms     *RoomIndex
	broadcast *Broadcaster
	publisher EventPublisher // optional
}

func NewRouter(store Store, rooms *RoomIndex, broadcast *Broadcaster, publisher EventPublisher) *Router {
	return &Router{
		store:     store,
		rooms:     rooms,
		broadcast: broadcast,
		publisher: publisher,
	}
}

// Dispatch routes one inbound message from sender. Validation and
// authorization failures come back to the sender as an error event.
func (r *Router) Dispatch(ctx context.Context, sender Conn, msg *InboundMessage) {
	var evErr *eventError

	switch msg.Type {
	case EventLocationUpdate:
		evErr = r.handleLocationUpdate(ctx, sender, msg.Data)
	case EventEmergencyAlert:
		evErr = r.handleEmergencyAlert(ctx, sender, msg.Data)
	case EventRideUpdate:
		evErr = r.handleRideUpdate(ctx, sender, msg.Data)
	case EventSocialNotification:
		evErr = r.handleSocialNotification(ctx, sender, msg.Data)
	case EventPackInvite:
		evErr = r.handlePackInvite(ctx, sender, msg.Data)
	default:
		evErr = newValidationError("unknown event type: %s", msg.Type)
	}

	if evErr != nil {
		slog.Debug("Event rejected",
			"userID", sender.UserID(), "type", msg.Type, "code", evErr.Code, "reason", evErr.Message)
		r.sendError(sender, evErr)
	}
}

func (r *Router) sendError(sender Conn, evErr *eventError) {
	event := NewEvent(EventError, ErrorData{Code: evErr.Code, Message: evErr.Message})
	if err := sender.Send(event); err != nil {
		slog.Debug("Failed to deliver error event", "userID", sender.UserID(), "error", err)
	}
}

// broadcastToPacks fans an event out to every pack room the sender belongs
// to, excluding the sender, and returns the number of riders reached.
func (r *Router) broadcastToPacks(sender Conn, event *Event) int {
	reached := 0
	for _, roomKey := range r.rooms.PackRoomsOf(sender.UserID()) {
		reached += r.broadcast.Broadcast(roomKey, event, sender.UserID())
	}
	return reached
}

// handleLocationUpdate broadcasts a rider's position to their pack rooms.
// The sample is persisted only when tied to a ride, and persistence is
// best-effort: a failed write is logged and the broadcast still goes out.
func (r *Router) handleLocationUpdate(ctx context.Context, sender Conn, raw json.RawMessage) *eventError {
	var data LocationUpdateData
	if err := json.Unmarshal(raw, &data); err != nil {
		return newValidationError("malformed location_update payload")
	}
	if data.Latitude == nil || data.Longitude == nil {
		return newValidationError("location_update requires lat and lon")
	}

	now := time.Now()
	if data.RideID != nil {
		sample := &models.LocationSample{
			UserID:     sender.UserID(),
			RideID:     data.RideID,
			Latitude:   *data.Latitude,
			Longitude:  *data.Longitude,
			Speed:      data.Speed,
			Heading:    data.Heading,
			Accuracy:   data.Accuracy,
			RecordedAt: now,
		}
		if err := r.store.SaveLocationSample(ctx, sample); err != nil {
			slog.Error("Failed to persist location sample",
				"userID", sender.UserID(), "rideID", *data.RideID, "error", err)
		}
	}

	ident := sender.Identity()
	event := NewEvent(EventMemberLocation, MemberLocationData{
		UserID:   ident.UserID,
		Username: ident.Username,
		Location: LocationPoint{
			Latitude:  *data.Latitude,
			Longitude: *data.Longitude,
			Speed:     data.Speed,
			Heading:   data.Heading,
			Accuracy:  data.Accuracy,
			Timestamp: now.Unix(),
		},
		RideID: data.RideID,
	})
	r.broadcastToPacks(sender, event)
	return nil
}

// handleEmergencyAlert persists the emergency before any broadcast: the
// durable record must exist before anyone is told about it. A failed write
// blocks the broadcast and is reported to the sender.
func (r *Router) handleEmergencyAlert(ctx context.Context, sender Conn, raw json.RawMessage) *eventError {
	var data EmergencyAlertData
	if err := json.Unmarshal(raw, &data); err != nil {
		return newValidationError("malformed emergency_alert payload")
	}
	if data.EventType == "" {
		return newValidationError("emergency_alert requires eventType")
	}
	if data.Location == nil || data.Location.Latitude == nil || data.Location.Longitude == nil {
		return newValidationError("emergency_alert requires location with lat and lon")
	}

	severity := data.Severity
	if severity == "" {
		severity = "high"
	}

	record := &models.EmergencyEvent{
		UserID:       sender.UserID(),
		RideID:       data.RideID,
		EventType:    data.EventType,
		Severity:     severity,
		Latitude:     *data.Location.Latitude,
		Longitude:    *data.Location.Longitude,
		SensorData:   data.SensorData,
		AutoDetected: data.AutoDetected,
	}
	if err := r.store.SaveEmergencyEvent(ctx, record); err != nil {
		slog.Error("Failed to persist emergency event",
			"userID", sender.UserID(), "eventType", data.EventType, "error", err)
		return newPersistenceError("failed to record emergency, alert not sent")
	}

	if r.publisher != nil {
		if err := r.publisher.PublishEmergency(ctx, record); err != nil {
			slog.Error("Failed to publish emergency event",
				"eventID", record.ID, "error", err)
		}
	}

	ident := sender.Identity()
	event := NewEvent(EventMemberEmergency, MemberEmergencyData{
		EventID:   record.ID,
		UserID:    ident.UserID,
		Username:  ident.Username,
		EventType: record.EventType,
		Severity:  record.Severity,
		Location:  LatLng{Latitude: record.Latitude, Longitude: record.Longitude},
		Timestamp: time.Now().Unix(),
		RideID:    record.RideID,
	})
	reached := r.broadcastToPacks(sender, event)

	ack := NewEvent(EventEmergencyAlertSent, EmergencyAckData{
		Message:          "Emergency alert sent to your packs",
		EventID:          record.ID,
		ContactsNotified: reached,
	})
	if err := sender.Send(ack); err != nil {
		slog.Debug("Failed to deliver emergency ack", "userID", sender.UserID(), "error", err)
	}
	return nil
}

// handleRideUpdate is ephemeral: nothing is persisted, but only the ride's
// owner may broadcast its status.
func (r *Router) handleRideUpdate(ctx context.Context, sender Conn, raw json.RawMessage) *eventError {
	var data RideUpdateData
	if err := json.Unmarshal(raw, &data); err != nil {
		return newValidationError("malformed ride_update payload")
	}
	if data.RideID == nil {
		return newValidationError("ride_update requires rideId")
	}
	if data.Status == "" {
		return newValidationError("ride_update requires status")
	}

	ride, err := r.store.RideByID(ctx, *data.RideID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return newNotFoundError("ride %d not found", *data.RideID)
		}
		slog.Error("Ride lookup failed", "rideID", *data.RideID, "error", err)
		return newPersistenceError("failed to verify ride ownership")
	}
	if ride.UserID != sender.UserID() {
		return newAuthorizationError("only the ride owner can send ride updates")
	}

	ident := sender.Identity()
	event := NewEvent(EventMemberRideUpdate, MemberRideUpdateData{
		RideID:    ride.ID,
		UserID:    ident.UserID,
		Username:  ident.Username,
		RideTitle: ride.Title,
		Status:    data.Status,
		Location:  data.Location,
		Stats:     data.Stats,
		Timestamp: time.Now().Unix(),
	})
	r.broadcastToPacks(sender, event)
	return nil
}

// handleSocialNotification persists the notification for offline delivery
// and unicasts it when the target is online. A failed write is logged but
// does not block live delivery.
func (r *Router) handleSocialNotification(ctx context.Context, sender Conn, raw json.RawMessage) *eventError {
	var data SocialNotificationData
	if err := json.Unmarshal(raw, &data); err != nil {
		return newValidationError("malformed social_notification payload")
	}
	if data.TargetUserID == nil {
		return newValidationError("social_notification requires targetUserId")
	}
	if data.Type == "" || data.Message == "" {
		return newValidationError("social_notification requires type and message")
	}

	extra := map[string]any{}
	if data.PostID != nil {
		extra["postId"] = *data.PostID
	}
	if data.StoryID != nil {
		extra["storyId"] = *data.StoryID
	}
	payload, _ := json.Marshal(extra)

	record := &models.Notification{
		UserID:   *data.TargetUserID,
		SenderID: sender.UserID(),
		Type:     data.Type,
		Message:  data.Message,
		Data:     payload,
	}
	if err := r.store.SaveNotification(ctx, record); err != nil {
		slog.Error("Failed to persist notification",
			"targetUserID", *data.TargetUserID, "type", data.Type, "error", err)
	} else if r.publisher != nil {
		if err := r.publisher.PublishNotification(ctx, record); err != nil {
			slog.Error("Failed to publish notification", "notificationID", record.ID, "error", err)
		}
	}

	event := NewEvent(EventNotification, NotificationData{
		Type:       data.Type,
		Message:    data.Message,
		SourceUser: sender.Identity().Ref(),
		Data:       payload,
		Timestamp:  time.Now().Unix(),
	})
	delivered := r.broadcast.Unicast(*data.TargetUserID, event)
	if !delivered {
		slog.Debug("Notification target offline, stored only",
			"targetUserID", *data.TargetUserID, "type", data.Type)
	}
	return nil
}

// handlePackInvite upserts an invited membership and notifies the invitee
// if online. Only a pack owner or admin may invite.
func (r *Router) handlePackInvite(ctx context.Context, sender Conn, raw json.RawMessage) *eventError {
	var data PackInviteData
	if err := json.Unmarshal(raw, &data); err != nil {
		return newValidationError("malformed pack_invite payload")
	}
	if data.PackID == nil || data.TargetUserID == nil {
		return newValidationError("pack_invite requires packId and targetUserId")
	}

	pack, err := r.store.PackByID(ctx, *data.PackID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return newNotFoundError("pack %d not found", *data.PackID)
		}
		slog.Error("Pack lookup failed", "packID", *data.PackID, "error", err)
		return newPersistenceError("failed to verify pack")
	}

	role, err := r.store.PackRole(ctx, *data.PackID, sender.UserID())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return newAuthorizationError("only pack owners and admins can invite riders")
		}
		slog.Error("Pack role lookup failed",
			"packID", *data.PackID, "userID", sender.UserID(), "error", err)
		return newPersistenceError("failed to verify pack role")
	}
	if role != models.RoleOwner && role != models.RoleAdmin {
		return newAuthorizationError("only pack owners and admins can invite riders")
	}

	if err := r.store.UpsertInvitation(ctx, *data.PackID, *data.TargetUserID); err != nil {
		slog.Error("Failed to upsert pack invitation",
			"packID", *data.PackID, "targetUserID", *data.TargetUserID, "error", err)
		return newPersistenceError("failed to record invitation")
	}

	event := NewEvent(EventPackInvitation, PackInvitationData{
		PackID:          pack.ID,
		PackName:        pack.Name,
		PackDescription: pack.Description,
		InvitedBy:       sender.Identity().Ref(),
		Timestamp:       time.Now().Unix(),
	})
	if !r.broadcast.Unicast(*data.TargetUserID, event) {
		slog.Debug("Invitee offline, invitation stored only",
			"packID", *data.PackID, "targetUserID", *data.TargetUserID)
	}
	return nil
}
