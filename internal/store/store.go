// Package store implements the realtime engine's persistence gateway on
// PostgreSQL via GORM.
package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kylerivers/motorev-sub004/internal/models"
	"github.com/kylerivers/motorev-sub004/internal/realtime"
)

// Gateway satisfies realtime.Store. All lookups map gorm.ErrRecordNotFound
// to realtime.ErrNotFound so callers never see the driver error.
type Gateway struct {
	db *gorm.DB
}

func NewGateway(db *gorm.DB) *Gateway {
	return &Gateway{db: db}
}

func (g *Gateway) ActivePackIDs(ctx context.Context, userID uint) ([]uint, error) {
	var packIDs []uint
	err := g.db.WithContext(ctx).
		Model(&models.PackMember{}).
		Where("user_id = ? AND status = ?", userID, models.StatusActive).
		Pluck("pack_id", &packIDs).Error
	if err != nil {
		return nil, fmt.Errorf("load pack memberships: %w", err)
	}
	return packIDs, nil
}

func (g *Gateway) PackByID(ctx context.Context, packID uint) (*models.Pack, error) {
	var pack models.Pack
	err := g.db.WithContext(ctx).First(&pack, packID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, realtime.ErrNotFound
		}
		return nil, fmt.Errorf("load pack %d: %w", packID, err)
	}
	return &pack, nil
}

func (g *Gateway) PackRole(ctx context.Context, packID, userID uint) (string, error) {
	var member models.PackMember
	err := g.db.WithContext(ctx).
		Where("pack_id = ? AND user_id = ? AND status = ?", packID, userID, models.StatusActive).
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", realtime.ErrNotFound
		}
		return "", fmt.Errorf("load pack role: %w", err)
	}
	return member.Role, nil
}

func (g *Gateway) RideByID(ctx context.Context, rideID uint) (*models.Ride, error) {
	var ride models.Ride
	err := g.db.WithContext(ctx).First(&ride, rideID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, realtime.ErrNotFound
		}
		return nil, fmt.Errorf("load ride %d: %w", rideID, err)
	}
	return &ride, nil
}

func (g *Gateway) SaveLocationSample(ctx context.Context, sample *models.LocationSample) error {
	return g.db.WithContext(ctx).Create(sample).Error
}

func (g *Gateway) SaveEmergencyEvent(ctx context.Context, event *models.EmergencyEvent) error {
	return g.db.WithContext(ctx).Create(event).Error
}

func (g *Gateway) SaveNotification(ctx context.Context, notification *models.Notification) error {
	return g.db.WithContext(ctx).Create(notification).Error
}

// UpsertInvitation inserts an invited membership or resets an existing
// membership's status to invited. Keyed on the (pack_id, user_id) unique
// index so a re-invite never duplicates the row.
func (g *Gateway) UpsertInvitation(ctx context.Context, packID, userID uint) error {
	member := models.PackMember{
		PackID: packID,
		UserID: userID,
		Role:   models.RoleMember,
		Status: models.StatusInvited,
	}
	return g.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "pack_id"}, {Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]any{"status": models.StatusInvited}),
		}).
		Create(&member).Error
}

// UserByID resolves a user row, used by the token verifier.
func (g *Gateway) UserByID(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	err := g.db.WithContext(ctx).First(&user, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, realtime.ErrNotFound
		}
		return nil, fmt.Errorf("load user %d: %w", userID, err)
	}
	return &user, nil
}
