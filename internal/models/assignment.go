package models

import "time"

// Assignment statuses.
const (
	AssignmentStatusActive = "active"
	AssignmentStatusEnded  = "ended"
)

// Assignment pairs an advisor with a founder for ongoing mentorship.
type Assignment struct {
	ID        string     `json:"id" db:"id"`
	AdvisorID string     `json:"advisorId" db:"advisor_id"`
	FounderID string     `json:"founderId" db:"founder_id"`
	Status    string     `json:"status" db:"status"`
	StartedAt time.Time  `json:"startedAt" db:"started_at"`
	EndedAt   *time.Time `json:"endedAt,omitempty" db:"ended_at"`
	EndReason string     `json:"endReason,omitempty" db:"end_reason"`
	CreatedAt time.Time  `json:"createdAt" db:"created_at"`
}

// IsActive reports whether sessions may still be recorded against the assignment.
func (a *Assignment) IsActive() bool {
	return a.Status == AssignmentStatusActive
}
