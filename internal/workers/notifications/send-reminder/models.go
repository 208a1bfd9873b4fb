package sendreminder

type Input struct {
	AdvisorID string `json:"advisorId"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Month     int    `json:"month"`
	Year      int    `json:"year"`
	Overdue   bool   `json:"overdue"`
}

type Output struct {
	ReminderID string   `json:"reminderId"`
	Status     string   `json:"status"`
	Channels   []string `json:"channels"`
	SentAt     string   `json:"sentAt"`
}

const (
	StatusSent     = "sent"
	StatusDisabled = "disabled"
)
