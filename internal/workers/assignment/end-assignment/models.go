package endassignment

type Input struct {
	AssignmentID string `json:"assignmentId"`
	Reason       string `json:"reason,omitempty"`
}

type Output struct {
	AssignmentID string `json:"assignmentId"`
	Status       string `json:"status"`
	EndedAt      string `json:"endedAt"` // ISO 8601
}
