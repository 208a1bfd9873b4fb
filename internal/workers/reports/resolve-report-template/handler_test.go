package resolvereporttemplate

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mentorship-workers/internal/common/errors"
	"mentorship-workers/internal/common/logger"
)

const validSections = `[
	{
		"id": "impact",
		"title": "Impact",
		"fields": [
			{"id": "sessions_conducted", "label": "Sessions conducted", "type": "number", "required": true},
			{"id": "notes", "label": "Notes", "type": "textarea", "required": false}
		]
	}
]`

func TestHandler_Execute_ResolvesActiveTemplate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT id, name, month, year, version, sections`).
		WithArgs(3, 2024).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "month", "year", "version", "sections"}).
			AddRow("tpl-1", "March report", 3, 2024, 2, []byte(validSections)))

	handler := NewHandler(LoadConfig(), db, logger.NewTestLogger(t))

	output, err := handler.Execute(context.Background(), &Input{Month: 3, Year: 2024})
	require.NoError(t, err)

	assert.Equal(t, "tpl-1", output.TemplateID)
	assert.Equal(t, 2, output.FieldCount)
	require.Len(t, output.Sections, 1)
	assert.Equal(t, "Impact", output.Sections[0].Title)
	assert.Equal(t, time.Date(2024, time.April, 5, 23, 59, 59, 0, time.UTC), output.DueDate)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_NoActiveTemplate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT id, name, month, year, version, sections`).
		WithArgs(1, 2024).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "month", "year", "version", "sections"}))

	handler := NewHandler(LoadConfig(), db, logger.NewTestLogger(t))

	_, err = handler.Execute(context.Background(), &Input{Month: 1, Year: 2024})

	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeTemplateNotFound, stdErr.Code)
}

func TestHandler_Execute_MalformedSections(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT id, name, month, year, version, sections`).
		WithArgs(3, 2024).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "month", "year", "version", "sections"}).
			AddRow("tpl-1", "March report", 3, 2024, 1, []byte(`[{"title": "Impact"}]`)))

	handler := NewHandler(LoadConfig(), db, logger.NewTestLogger(t))

	_, err = handler.Execute(context.Background(), &Input{Month: 3, Year: 2024})

	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeInvalidState, stdErr.Code)
}

func TestHandler_Execute_InvalidPeriod(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	handler := NewHandler(LoadConfig(), db, logger.NewTestLogger(t))

	_, err = handler.Execute(context.Background(), &Input{Month: 13, Year: 2024})

	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeValidationFailed, stdErr.Code)
}
