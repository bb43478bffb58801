package models

import (
	"encoding/json"

	"gorm.io/gorm"
)

/** --------------------ENTITIES-------------------- */
// EmergencyEvent is a crash or SOS report. It is written to the database
// before any broadcast so the record outlives the connections that saw it.
type EmergencyEvent struct {
	gorm.Model
	UserID       uint            `gorm:"index;not null" json:"userId"`
	RideID       *uint           `gorm:"index" json:"rideId,omitempty"`
	EventType    string          `gorm:"not null" json:"eventType"` // crash || sos || breakdown
	Severity     string          `gorm:"not null" json:"severity"`  // low || medium || high || critical
	Latitude     float64         `gorm:"not null" json:"latitude"`
	Longitude    float64         `gorm:"not null" json:"longitude"`
	SensorData   json.RawMessage `gorm:"type:jsonb" json:"sensorData,omitempty"`
	AutoDetected bool            `json:"autoDetected"`
}

// Notification is a stored social notification, kept for offline delivery by
// the push pipeline and emitted live when the target is connected.
type Notification struct {
	gorm.Model
	UserID   uint            `gorm:"index;not null" json:"userId"` // target
	SenderID uint            `gorm:"index" json:"senderId"`
	Type     string          `gorm:"not null" json:"type"`
	Message  string          `gorm:"not null" json:"message"`
	Data     json.RawMessage `gorm:"type:jsonb" json:"data,omitempty"`
	Read     bool            `gorm:"default:false" json:"read"`
}
