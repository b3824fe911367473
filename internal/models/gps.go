package models

import (
	"fmt"
	"time"
)

// GPSPoint is a single location sample reported by the client.
type GPSPoint struct {
	Latitude  float64   `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64   `json:"longitude" validate:"min=-180,max=180"`
	Accuracy  *float64  `json:"accuracy,omitempty" validate:"omitempty,min=0"`
	Altitude  *float64  `json:"altitude,omitempty"`
	Speed     *float64  `json:"speed,omitempty"`
	Heading   *float64  `json:"heading,omitempty"`
	Timestamp time.Time `json:"timestamp" validate:"required"`
}

// TrackingSummary is written when a tracking session is torn down.
type TrackingSummary struct {
	UserID        string        `json:"user_id"`
	TotalPoints   int           `json:"total_points"`
	TotalDistance float64       `json:"total_distance"`
	Duration      time.Duration `json:"duration"`
	Locations     []GPSPoint    `json:"locations"`
}

// DurationText renders the duration as whole minutes and seconds, e.g. "12m 5s".
func (s TrackingSummary) DurationText() string {
	total := int64(s.Duration / time.Second)
	return fmt.Sprintf("%dm %ds", total/60, total%60)
}
