package reviewreport

import "time"

type Input struct {
	ReportID   string `json:"reportId"`
	ReviewerID string `json:"reviewerId"`
	Status     string `json:"status"`
	Feedback   string `json:"feedback,omitempty"`
}

type Output struct {
	ReportID   string    `json:"reportId"`
	Status     string    `json:"status"`
	ReviewedBy string    `json:"reviewedBy"`
	ReviewedAt time.Time `json:"reviewedAt"`
}
