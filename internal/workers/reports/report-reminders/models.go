package reportreminders

import "time"

type Input struct {
	AdvisorID string `json:"advisorId"`
}

type PendingReport struct {
	Month     int       `json:"month"`
	Year      int       `json:"year"`
	MonthName string    `json:"monthName"`
	Status    string    `json:"status"`
	DueDate   time.Time `json:"dueDate"`
	Overdue   bool      `json:"overdue"`
}

type Output struct {
	AdvisorID      string          `json:"advisorId"`
	PendingReports []PendingReport `json:"pendingReports"`
	OverdueCount   int             `json:"overdueCount"`
}
