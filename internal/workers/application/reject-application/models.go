package rejectapplication

type Input struct {
	ApplicationID string `json:"applicationId"`
	ReviewerID    string `json:"reviewerId"`
	Reason        string `json:"reason"`
}

type Output struct {
	ApplicationID string `json:"applicationId"`
	Status        string `json:"status"`
	ReviewedAt    string `json:"reviewedAt"` // ISO 8601
}
