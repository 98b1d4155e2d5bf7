// Package activities defines the activity domain records, the upstream
// source contract, and the cache-backed fetcher the analytics tools
// resolve their data through.
package activities

import "time"

// Activity is one tracked workout as returned by the upstream source.
// Immutable once fetched; downstream layers reference, never mutate.
type Activity struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	StartDateLocal     time.Time `json:"start_date_local"`
	Distance           float64   `json:"distance"`    // meters
	MovingTime         int       `json:"moving_time"` // seconds
	ElapsedTime        int       `json:"elapsed_time"`
	TotalElevationGain float64   `json:"total_elevation_gain"` // meters
	AverageSpeed       float64   `json:"average_speed"`        // m/s
	MaxSpeed           float64   `json:"max_speed"`            // m/s
	AverageHeartrate   float64   `json:"average_heartrate,omitempty"`
	HasHeartrate       bool      `json:"has_heartrate"`
	Type               string    `json:"type"`
	Private            bool      `json:"private"`
	Manual             bool      `json:"manual"`
}

// Lap is one lap split within an activity.
type Lap struct {
	ID               int64   `json:"id"`
	ActivityID       int64   `json:"activity_id"`
	LapIndex         int     `json:"lap_index"`
	Name             string  `json:"name"`
	Distance         float64 `json:"distance"`    // meters
	MovingTime       int     `json:"moving_time"` // seconds
	ElapsedTime      int     `json:"elapsed_time"`
	AverageSpeed     float64 `json:"average_speed"`
	AverageHeartrate float64 `json:"average_heartrate,omitempty"`
}
