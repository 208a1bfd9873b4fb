package approveapplication

type Input struct {
	ApplicationID string `json:"applicationId"`
	ReviewerID    string `json:"reviewerId"`
}

type Output struct {
	ApplicationID string `json:"applicationId"`
	Status        string `json:"status"`
	UserID        string `json:"userId"`
	ProfileID     string `json:"profileId"`
	Role          string `json:"role"`
	ReviewedAt    string `json:"reviewedAt"` // ISO 8601
}
