package submitreport

import "time"

type Input struct {
	AdvisorID string                 `json:"advisorId"`
	Month     int                    `json:"month"`
	Year      int                    `json:"year"`
	Content   map[string]interface{} `json:"content"`
}

type Output struct {
	ReportID             string                 `json:"reportId"`
	Status               string                 `json:"status"`
	CompletionPercentage int                    `json:"completionPercentage"`
	CalculatedMetrics    map[string]interface{} `json:"calculatedMetrics"`
	SubmittedAt          time.Time              `json:"submittedAt"`
}
