package model

import "time"

type StandingEntry struct {
	Rank             int        `json:"rank"`
	TeamID           string     `json:"team_id"`
	TeamName         string     `json:"team_name"`
	MembersCompleted int        `json:"members_completed"`
	CurrentRound     int        `json:"current_round"`
	Active           bool       `json:"active"`
	EventExpired     bool       `json:"event_expired"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}
