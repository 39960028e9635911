package models

import (
	"time"

	"gorm.io/datatypes"
)

// Bounds on the free-text message attached to a match request, in characters.
const (
	MinMatchMessageLength = 10
	MaxMatchMessageLength = 500
)

// MatchStatus is the lifecycle state of a match.
type MatchStatus string

const (
	MatchStatusPending  MatchStatus = "pending"
	MatchStatusAccepted MatchStatus = "accepted"
	MatchStatusRejected MatchStatus = "rejected"
	MatchStatusBlocked  MatchStatus = "blocked"
)

// MatchStatuses lists every status in display order.
var MatchStatuses = []MatchStatus{MatchStatusPending, MatchStatusAccepted, MatchStatusRejected, MatchStatusBlocked}

// Valid reports whether s is a known status.
func (s MatchStatus) Valid() bool {
	switch s {
	case MatchStatusPending, MatchStatusAccepted, MatchStatusRejected, MatchStatusBlocked:
		return true
	}
	return false
}

// Terminal reports whether no further transition is defined from s.
func (s MatchStatus) Terminal() bool {
	return s == MatchStatusAccepted || s == MatchStatusRejected || s == MatchStatusBlocked
}

// Match is a request from a user to join a project.
// A user holds at most one match per project.
type Match struct {
	ID        uint        `json:"id" gorm:"primaryKey"`
	ProjectID uint        `json:"project_id" gorm:"not null;index;uniqueIndex:idx_matches_user_project,priority:2"`
	UserID    uint        `json:"user_id" gorm:"not null;uniqueIndex:idx_matches_user_project,priority:1"`
	Status    MatchStatus `json:"status" gorm:"type:varchar(20);not null;index"`
	Message   string      `json:"message" gorm:"type:text;not null"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// AcceptedProject is a project the user joined through an accepted match,
// reduced to the fields the recommendation engine reads.
type AcceptedProject struct {
	ProjectID    uint
	Technologies datatypes.JSON
	Category     string
}

// StatusCounts tallies matches per status.
type StatusCounts struct {
	Total    int64 `json:"total"`
	Pending  int64 `json:"pending"`
	Accepted int64 `json:"accepted"`
	Rejected int64 `json:"rejected"`
	Blocked  int64 `json:"blocked"`
}

// Add counts n matches in status s.
func (c *StatusCounts) Add(s MatchStatus, n int64) {
	switch s {
	case MatchStatusPending:
		c.Pending += n
	case MatchStatusAccepted:
		c.Accepted += n
	case MatchStatusRejected:
		c.Rejected += n
	case MatchStatusBlocked:
		c.Blocked += n
	default:
		return
	}
	c.Total += n
}
