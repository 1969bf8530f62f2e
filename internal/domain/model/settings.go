package model

import "time"

// EventSettings is the global singleton that times every team.
type EventSettings struct {
	RotationIntervalSeconds int       `json:"rotation_interval_seconds"`
	EventDurationSeconds    int       `json:"event_duration_seconds"`
	UpdatedAt               time.Time `json:"updated_at"`
}

func (s EventSettings) RotationInterval() time.Duration {
	return time.Duration(s.RotationIntervalSeconds) * time.Second
}

func (s EventSettings) EventDuration() time.Duration {
	return time.Duration(s.EventDurationSeconds) * time.Second
}
