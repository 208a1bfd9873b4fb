package recordsessionoutcome

// Input updates the outcome of an existing session. The pointer fields are
// optional; absent values leave the stored column untouched.
type Input struct {
	SessionID             string  `json:"sessionId"`
	Status                string  `json:"status"`
	Rating                *int    `json:"rating,omitempty"`
	AdvisorRating         *int    `json:"advisorRating,omitempty"`
	LikelihoodToRecommend *int    `json:"likelihoodToRecommend,omitempty"`
	DurationMinutes       *int    `json:"durationMinutes,omitempty"`
	Notes                 *string `json:"notes,omitempty"`
}

type Output struct {
	SessionID    string `json:"sessionId"`
	AdvisorID    string `json:"advisorId"`
	Status       string `json:"status"`
	RecordedAt   string `json:"recordedAt"` // ISO 8601
	ScoreUpdated bool   `json:"scoreUpdated"`
}
