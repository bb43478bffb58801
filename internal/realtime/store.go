package realtime

import (
	"context"

	"github.com/kylerivers/motorev-sub004/internal/models"
)

// Store is the persistence gateway the realtime engine talks to. The engine
// reads pack membership and ride ownership through it and writes location
// samples, emergency events, notifications and invitations. Implementations
// return ErrNotFound when a referenced record does not exist.
type Store interface {
	// ActivePackIDs returns the packs the user is an active member of.
	ActivePackIDs(ctx context.Context, userID uint) ([]uint, error)

	// PackByID loads a pack without its member list.
	PackByID(ctx context.Context, packID uint) (*models.Pack, error)

	// PackRole returns the role of an active member, or ErrNotFound when
	// the user is not an active member of the pack.
	PackRole(ctx context.Context, packID, userID uint) (string, error)

	// RideByID loads a ride, primarily for ownership checks.
	RideByID(ctx context.Context, rideID uint) (*models.Ride, error)

	SaveLocationSample(ctx context.Context, sample *models.LocationSample) error

	// SaveEmergencyEvent persists the event and fills in its ID.
	SaveEmergencyEvent(ctx context.Context, event *models.EmergencyEvent) error

	SaveNotification(ctx context.Context, notification *models.Notification) error

	// UpsertInvitation records an invited membership for (packID, userID).
	// Re-inviting resets the status to invited; it never duplicates the row.
	UpsertInvitation(ctx context.Context, packID, userID uint) error
}

// PresenceMirror mirrors online/offline transitions to a shared cache so
// collaborators outside this process can read presence. Mirror failures are
// logged and never affect a connection.
type PresenceMirror interface {
	SetOnline(ctx context.Context, userID uint) error
	SetOffline(ctx context.Context, userID uint) error
}

// EventPublisher feeds persisted records to the offline delivery pipeline.
// Publishing is best-effort; the realtime path never waits on it beyond the
// call itself and never fails because of it.
type EventPublisher interface {
	PublishEmergency(ctx context.Context, event *models.EmergencyEvent) error
	PublishNotification(ctx context.Context, notification *models.Notification) error
}
