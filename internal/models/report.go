package models

import "time"

// Monthly report statuses, in workflow order.
const (
	ReportStatusDraft     = "draft"
	ReportStatusSubmitted = "submitted"
	ReportStatusReviewed  = "reviewed"
	ReportStatusApproved  = "approved"
)

// MonthlyReport is an advisor's report for one calendar month.
type MonthlyReport struct {
	ID                   string                 `json:"id" db:"id"`
	AdvisorID            string                 `json:"advisorId" db:"advisor_id"`
	TemplateID           string                 `json:"templateId" db:"template_id"`
	Month                int                    `json:"month" db:"month"`
	Year                 int                    `json:"year" db:"year"`
	Status               string                 `json:"status" db:"status"`
	Content              map[string]interface{} `json:"content" db:"content"`
	CompletionPercentage int                    `json:"completionPercentage" db:"completion_percentage"`
	CalculatedMetrics    map[string]interface{} `json:"calculatedMetrics,omitempty" db:"calculated_metrics"`
	SubmittedAt          *time.Time             `json:"submittedAt,omitempty" db:"submitted_at"`
	ReviewedBy           string                 `json:"reviewedBy,omitempty" db:"reviewed_by"`
	ReviewedAt           *time.Time             `json:"reviewedAt,omitempty" db:"reviewed_at"`
	AdminFeedback        string                 `json:"adminFeedback,omitempty" db:"admin_feedback"`
	ApprovedAt           *time.Time             `json:"approvedAt,omitempty" db:"approved_at"`
	CreatedAt            time.Time              `json:"createdAt" db:"created_at"`
	UpdatedAt            time.Time              `json:"updatedAt" db:"updated_at"`
}

// IsEditable reports whether the advisor may still change the content.
func (r *MonthlyReport) IsEditable() bool {
	return r.Status == ReportStatusDraft
}

// ReportTemplate describes the fields an advisor must fill for a period.
type ReportTemplate struct {
	ID        string            `json:"id" db:"id"`
	Name      string            `json:"name" db:"name"`
	Month     int               `json:"month" db:"month"`
	Year      int               `json:"year" db:"year"`
	Version   int               `json:"version" db:"version"`
	IsActive  bool              `json:"isActive" db:"is_active"`
	Sections  []TemplateSection `json:"sections" db:"sections"`
	CreatedAt time.Time         `json:"createdAt" db:"created_at"`
}

// TemplateSection groups related template fields.
type TemplateSection struct {
	ID     string          `json:"id"`
	Title  string          `json:"title"`
	Fields []TemplateField `json:"fields"`
}

// TemplateField is a single form field within a section.
type TemplateField struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

// FieldCount returns the total number of fields across all sections.
func (t *ReportTemplate) FieldCount() int {
	count := 0
	for _, section := range t.Sections {
		count += len(section.Fields)
	}
	return count
}
