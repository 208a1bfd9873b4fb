package reports

import (
	"context"
	"database/sql"
	"encoding/json"

	"mentorship-workers/internal/common/errors"
	"mentorship-workers/internal/models"
)

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// LoadActiveTemplate fetches the single active template for a period and
// decodes its sections document.
func LoadActiveTemplate(ctx context.Context, q rowQuerier, month, year int) (*models.ReportTemplate, error) {
	var (
		template    models.ReportTemplate
		rawSections []byte
	)

	err := q.QueryRowContext(ctx, `
		SELECT id, name, month, year, version, sections
		FROM report_templates
		WHERE month = $1 AND year = $2 AND is_active = TRUE`, month, year).Scan(
		&template.ID,
		&template.Name,
		&template.Month,
		&template.Year,
		&template.Version,
		&rawSections,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NewTemplateNotFoundError(month, year)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("load report template", err)
	}

	if err := json.Unmarshal(rawSections, &template.Sections); err != nil {
		return nil, errors.NewInvalidStateError("Report template is malformed", err.Error())
	}

	return &template, nil
}
