package models

import (
	"time"

	"gorm.io/gorm"
)

/** --------------------ENTITIES-------------------- */
// Ride represents a planned or active ride owned by a single rider.
// Ride lifecycle is managed by the REST API service; the realtime engine
// reads rides to check ownership before fanning out ride updates.
type Ride struct {
	gorm.Model
	UserID    uint       `gorm:"index;not null" json:"userId"` // owner
	Title     string     `json:"title,omitempty"`
	Status    string     `gorm:"default:planned" json:"status"` // planned || active || paused || completed
	StartedAt *time.Time `json:"startedAt,omitempty"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`
}

// LocationSample is a single GPS fix reported by a rider mid-ride.
// Samples are only persisted when tied to a ride; pure presence pings are
// broadcast and dropped.
type LocationSample struct {
	gorm.Model
	UserID     uint     `gorm:"index;not null" json:"userId"`
	RideID     *uint    `gorm:"index" json:"rideId,omitempty"`
	Latitude   float64  `gorm:"not null" json:"latitude"`
	Longitude  float64  `gorm:"not null" json:"longitude"`
	Speed      *float64 `json:"speed,omitempty"`
	Heading    *float64 `json:"heading,omitempty"`
	Accuracy   *float64 `json:"accuracy,omitempty"`
	RecordedAt time.Time `gorm:"not null" json:"recordedAt"`
}
