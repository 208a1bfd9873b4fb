package reviewreport

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mentorship-workers/internal/common/errors"
	"mentorship-workers/internal/common/logger"
	"mentorship-workers/internal/models"
)

func expectAdminResolve(mock sqlmock.Sqlmock, reviewerID string) {
	mock.ExpectQuery(`SELECT id, email, COALESCE`).
		WithArgs(reviewerID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "full_name", "role"}).
			AddRow(reviewerID, "admin@program.io", "Program Admin", "admin"))
}

func TestHandler_Execute_ApprovesSubmittedReport(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectAdminResolve(mock, "admin-1")
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status`).
		WithArgs("rep-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).
			AddRow(models.ReportStatusSubmitted))
	mock.ExpectExec(`UPDATE monthly_reports`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	handler := NewHandler(LoadConfig(), db, logger.NewTestLogger(t))

	output, err := handler.Execute(context.Background(), &Input{
		ReportID:   "rep-1",
		ReviewerID: "admin-1",
		Status:     models.ReportStatusApproved,
		Feedback:   "solid month",
	})
	require.NoError(t, err)

	assert.Equal(t, models.ReportStatusApproved, output.Status)
	assert.Equal(t, "admin-1", output.ReviewedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_ReviewsWithFeedback(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectAdminResolve(mock, "admin-1")
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status`).
		WithArgs("rep-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).
			AddRow(models.ReportStatusSubmitted))
	mock.ExpectExec(`UPDATE monthly_reports`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	handler := NewHandler(LoadConfig(), db, logger.NewTestLogger(t))

	output, err := handler.Execute(context.Background(), &Input{
		ReportID:   "rep-1",
		ReviewerID: "admin-1",
		Status:     models.ReportStatusReviewed,
		Feedback:   "add founder outcomes next time",
	})
	require.NoError(t, err)

	assert.Equal(t, models.ReportStatusReviewed, output.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_AlreadyApproved(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectAdminResolve(mock, "admin-1")
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status`).
		WithArgs("rep-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).
			AddRow(models.ReportStatusApproved))
	mock.ExpectRollback()

	handler := NewHandler(LoadConfig(), db, logger.NewTestLogger(t))

	_, err = handler.Execute(context.Background(), &Input{
		ReportID:   "rep-1",
		ReviewerID: "admin-1",
		Status:     models.ReportStatusApproved,
	})

	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeAlreadyApproved, stdErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_ReportNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectAdminResolve(mock, "admin-1")
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"status"}))
	mock.ExpectRollback()

	handler := NewHandler(LoadConfig(), db, logger.NewTestLogger(t))

	_, err = handler.Execute(context.Background(), &Input{
		ReportID:   "missing",
		ReviewerID: "admin-1",
		Status:     models.ReportStatusReviewed,
	})

	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeReportNotFound, stdErr.Code)
}

func TestHandler_Execute_NonAdminReviewer(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT id, email, COALESCE`).
		WithArgs("adv-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "full_name", "role"}).
			AddRow("adv-1", "advisor@program.io", "An Advisor", "advisor"))

	handler := NewHandler(LoadConfig(), db, logger.NewTestLogger(t))

	_, err = handler.Execute(context.Background(), &Input{
		ReportID:   "rep-1",
		ReviewerID: "adv-1",
		Status:     models.ReportStatusApproved,
	})

	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeUnauthorized, stdErr.Code)
}

func TestHandler_Execute_InvalidStatus(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	handler := NewHandler(LoadConfig(), db, logger.NewTestLogger(t))

	_, err = handler.Execute(context.Background(), &Input{
		ReportID:   "rep-1",
		ReviewerID: "admin-1",
		Status:     "rejected",
	})

	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeValidationFailed, stdErr.Code)
}
