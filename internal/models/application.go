package models

import "time"

// Application review statuses.
const (
	ApplicationStatusPending  = "pending"
	ApplicationStatusApproved = "approved"
	ApplicationStatusRejected = "rejected"
)

// Applicant roles.
const (
	ApplicantRoleFounder = "founder"
	ApplicantRoleAdvisor = "advisor"
)

// Application represents a program application awaiting review.
type Application struct {
	ID              string                 `json:"id" db:"id"`
	Email           string                 `json:"email" db:"email"`
	FullName        string                 `json:"fullName" db:"full_name"`
	Role            string                 `json:"role" db:"role"`
	FormData        map[string]interface{} `json:"formData" db:"form_data"`
	Status          string                 `json:"status" db:"status"`
	ReviewedBy      string                 `json:"reviewedBy,omitempty" db:"reviewed_by"`
	ReviewedAt      *time.Time             `json:"reviewedAt,omitempty" db:"reviewed_at"`
	RejectionReason string                 `json:"rejectionReason,omitempty" db:"rejection_reason"`
	CreatedAt       time.Time              `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time              `json:"updatedAt" db:"updated_at"`
}

// IsPending reports whether the application can still be approved or rejected.
func (a *Application) IsPending() bool {
	return a.Status == ApplicationStatusPending
}
