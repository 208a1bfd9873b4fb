package resolvereporttemplate

import (
	"time"

	"mentorship-workers/internal/models"
)

type Input struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

type Output struct {
	TemplateID string                   `json:"templateId"`
	Name       string                   `json:"name"`
	Month      int                      `json:"month"`
	Year       int                      `json:"year"`
	Version    int                      `json:"version"`
	Sections   []models.TemplateSection `json:"sections"`
	FieldCount int                      `json:"fieldCount"`
	DueDate    time.Time                `json:"dueDate"`
}
