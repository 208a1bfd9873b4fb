// Package reports implements the monthly report lifecycle rules:
// template-driven validation, completion tracking and period arithmetic.
package reports

import (
	"fmt"
	"math"
	"strings"
	"time"

	"mentorship-workers/internal/models"
)

// ValidateContent checks the report content against every required field of
// the template. It returns one message per violation so the caller can
// surface all of them at once.
func ValidateContent(template *models.ReportTemplate, content map[string]interface{}) []string {
	var violations []string

	for _, section := range template.Sections {
		for _, field := range section.Fields {
			if !field.Required {
				continue
			}
			if isEmptyValue(content[field.ID]) {
				violations = append(violations, fmt.Sprintf("%s is required", field.Label))
			}
		}
	}

	return violations
}

// CompletionPercentage returns the share of template fields that have a
// value, rounded to the nearest whole percent. A template with no fields
// yields 0.
func CompletionPercentage(template *models.ReportTemplate, content map[string]interface{}) int {
	total := template.FieldCount()
	if total == 0 {
		return 0
	}

	completed := 0
	for _, section := range template.Sections {
		for _, field := range section.Fields {
			if !isEmptyValue(content[field.ID]) {
				completed++
			}
		}
	}

	return int(math.Round(float64(completed) / float64(total) * 100))
}

func isEmptyValue(v interface{}) bool {
	if v == nil {
		return true
	}
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val) == ""
	case []interface{}:
		return len(val) == 0
	default:
		return false
	}
}

// PreviousPeriod returns the calendar month immediately before now.
// Reports are always filed for the month that just ended.
func PreviousPeriod(now time.Time) (month, year int) {
	prev := now.AddDate(0, 0, -now.Day())
	return int(prev.Month()), prev.Year()
}

// DueDate returns the day the report for the given period must be
// submitted by: graceDay of the following month.
func DueDate(month, year, graceDay int) time.Time {
	next := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return time.Date(next.Year(), next.Month(), graceDay, 23, 59, 59, 0, time.UTC)
}

// IsOverdue reports whether a report for the given period is past its due date.
func IsOverdue(month, year, graceDay int, now time.Time) bool {
	return now.After(DueDate(month, year, graceDay))
}

// MonthName returns the English month name for a 1-12 month number.
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return time.Month(month).String()
}
