package createassignment

type Input struct {
	AdvisorID string `json:"advisorId"`
	FounderID string `json:"founderId"`
}

type Output struct {
	AssignmentID string `json:"assignmentId"`
	Status       string `json:"status"`
	StartedAt    string `json:"startedAt"` // ISO 8601
}
