package models

import "time"

// FounderProfile is a provisioned founder participant. ApplicationID links
// the profile back to the application it was approved from.
type FounderProfile struct {
	ID            string    `json:"id" db:"id"`
	UserID        string    `json:"userId" db:"user_id"`
	ApplicationID string    `json:"applicationId" db:"application_id"`
	Email         string    `json:"email" db:"email"`
	FullName      string    `json:"fullName" db:"full_name"`
	CompanyName   string    `json:"companyName,omitempty" db:"company_name"`
	Industry      string    `json:"industry,omitempty" db:"industry"`
	Stage         string    `json:"stage,omitempty" db:"stage"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
}

// AdvisorProfile is a provisioned advisor participant together with
// the aggregates maintained by score recomputation.
type AdvisorProfile struct {
	ID                           string    `json:"id" db:"id"`
	UserID                       string    `json:"userId" db:"user_id"`
	ApplicationID                string    `json:"applicationId" db:"application_id"`
	Email                        string    `json:"email" db:"email"`
	FullName                     string    `json:"fullName" db:"full_name"`
	Expertise                    string    `json:"expertise,omitempty" db:"expertise"`
	YearsOfExperience            int       `json:"yearsOfExperience,omitempty" db:"years_of_experience"`
	SessionsCompleted            int       `json:"sessionsCompleted" db:"sessions_completed"`
	AverageSessionRating         float64   `json:"averageSessionRating" db:"average_session_rating"`
	AverageLikelihoodToRecommend float64   `json:"averageLikelihoodToRecommend" db:"average_likelihood_to_recommend"`
	OverallScore                 int       `json:"overallScore" db:"overall_score"`
	SatisfactionScore            int       `json:"satisfactionScore" db:"satisfaction_score"`
	BadgeLevel                   string    `json:"badgeLevel" db:"badge_level"`
	CreatedAt                    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt                    time.Time `json:"updatedAt" db:"updated_at"`
}
