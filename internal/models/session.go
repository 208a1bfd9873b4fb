package models

import "time"

// Session lifecycle states. Sessions are created scheduled; a completed
// session that carries a rating is a closed scoring input and no longer
// accepts outcome updates.
const (
	SessionStatusScheduled   = "scheduled"
	SessionStatusCompleted   = "completed"
	SessionStatusCancelled   = "cancelled"
	SessionStatusRescheduled = "rescheduled"
)

// ValidSessionStatus reports whether s is one of the lifecycle states.
func ValidSessionStatus(s string) bool {
	switch s {
	case SessionStatusScheduled, SessionStatusCompleted, SessionStatusCancelled, SessionStatusRescheduled:
		return true
	}
	return false
}

// MentorshipSession is a session scheduled under an assignment. The rating
// fields are nullable until the founder submits feedback: Rating and
// AdvisorRating are on a 1-5 scale, LikelihoodToRecommend on 1-10.
type MentorshipSession struct {
	ID                    string    `json:"id" db:"id"`
	AssignmentID          string    `json:"assignmentId" db:"assignment_id"`
	AdvisorID             string    `json:"advisorId" db:"advisor_id"`
	FounderID             string    `json:"founderId" db:"founder_id"`
	Status                string    `json:"status" db:"status"`
	SessionDate           time.Time `json:"sessionDate" db:"session_date"`
	DurationMinutes       int       `json:"durationMinutes" db:"duration_minutes"`
	Rating                *int      `json:"rating,omitempty" db:"rating"`
	AdvisorRating         *int      `json:"advisorRating,omitempty" db:"advisor_rating"`
	LikelihoodToRecommend *int      `json:"likelihoodToRecommend,omitempty" db:"likelihood_to_recommend"`
	Notes                 string    `json:"notes,omitempty" db:"notes"`
	CreatedAt             time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt             time.Time `json:"updatedAt" db:"updated_at"`
}
