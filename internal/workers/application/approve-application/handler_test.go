package approveapplication

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mentorship-workers/internal/common/errors"
	"mentorship-workers/internal/common/logger"
	"mentorship-workers/internal/provisioning"
)

func TestHandler_Execute_ApprovesAndProvisionsFounder(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectAdminResolve(mock, "admin-1")

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, email, full_name, role, form_data, status`).
		WithArgs("app-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "full_name", "role", "form_data", "status"}).
			AddRow("app-1", "jane@startup.io", "Jane Doe", "founder", []byte(`{"companyName":"Acme"}`), "pending"))
	mock.ExpectExec(`UPDATE applications`).
		WithArgs("app-1", "approved", "admin-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO users`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO founders`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	log := logger.NewTestLogger(t)
	handler := NewHandler(LoadConfig(), db, provisioning.NewIndexer(nil, log), log)

	output, err := handler.Execute(context.Background(), &Input{
		ApplicationID: "app-1",
		ReviewerID:    "admin-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "app-1", output.ApplicationID)
	assert.Equal(t, "approved", output.Status)
	assert.Equal(t, "founder", output.Role)
	assert.NotEmpty(t, output.UserID)
	assert.NotEmpty(t, output.ProfileID)

	_, err = time.Parse(time.RFC3339, output.ReviewedAt)
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_ApprovesAdvisor(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectAdminResolve(mock, "admin-1")

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, email, full_name, role, form_data, status`).
		WithArgs("app-2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "full_name", "role", "form_data", "status"}).
			AddRow("app-2", "sam@example.com", "Sam Lee", "advisor", []byte(`{"expertise":"sales"}`), "pending"))
	mock.ExpectExec(`UPDATE applications`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO users`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO advisors`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	log := logger.NewTestLogger(t)
	handler := NewHandler(LoadConfig(), db, provisioning.NewIndexer(nil, log), log)

	output, err := handler.Execute(context.Background(), &Input{
		ApplicationID: "app-2",
		ReviewerID:    "admin-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "advisor", output.Role)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_AlreadyReviewed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectAdminResolve(mock, "admin-1")

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, email, full_name, role, form_data, status`).
		WithArgs("app-3").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "full_name", "role", "form_data", "status"}).
			AddRow("app-3", "x@y.z", "X", "founder", []byte(`{}`), "approved"))
	mock.ExpectRollback()

	log := logger.NewTestLogger(t)
	handler := NewHandler(LoadConfig(), db, provisioning.NewIndexer(nil, log), log)

	_, err = handler.Execute(context.Background(), &Input{
		ApplicationID: "app-3",
		ReviewerID:    "admin-1",
	})

	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeAlreadyReviewed, stdErr.Code)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// Two reviewers approving the same application serialize on the row lock:
// the first commits the approval and provisions the profile, the second
// acquires the lock afterwards, sees the updated status and is rejected
// without touching the application again.
func TestHandler_Execute_SecondApproveAfterCommitSeesReviewed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectAdminResolve(mock, "admin-1")
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, email, full_name, role, form_data, status`).
		WithArgs("app-9").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "full_name", "role", "form_data", "status"}).
			AddRow("app-9", "jane@startup.io", "Jane Doe", "founder", []byte(`{"companyName":"Acme"}`), "pending"))
	mock.ExpectExec(`UPDATE applications`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO users`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO founders`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	expectAdminResolve(mock, "admin-2")
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, email, full_name, role, form_data, status`).
		WithArgs("app-9").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "full_name", "role", "form_data", "status"}).
			AddRow("app-9", "jane@startup.io", "Jane Doe", "founder", []byte(`{"companyName":"Acme"}`), "approved"))
	mock.ExpectRollback()

	log := logger.NewTestLogger(t)
	handler := NewHandler(LoadConfig(), db, provisioning.NewIndexer(nil, log), log)

	output, err := handler.Execute(context.Background(), &Input{
		ApplicationID: "app-9",
		ReviewerID:    "admin-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "approved", output.Status)

	_, err = handler.Execute(context.Background(), &Input{
		ApplicationID: "app-9",
		ReviewerID:    "admin-2",
	})

	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeAlreadyReviewed, stdErr.Code)
	assert.False(t, stdErr.Retryable)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_ApplicationNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectAdminResolve(mock, "admin-1")

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, email, full_name, role, form_data, status`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "full_name", "role", "form_data", "status"}))
	mock.ExpectRollback()

	log := logger.NewTestLogger(t)
	handler := NewHandler(LoadConfig(), db, provisioning.NewIndexer(nil, log), log)

	_, err = handler.Execute(context.Background(), &Input{
		ApplicationID: "missing",
		ReviewerID:    "admin-1",
	})

	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeApplicationNotFound, stdErr.Code)
}

func TestHandler_Execute_NonAdminReviewer(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT id, email, COALESCE`).
		WithArgs("advisor-9").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "full_name", "role"}).
			AddRow("advisor-9", "a@b.c", "A B", "advisor"))

	log := logger.NewTestLogger(t)
	handler := NewHandler(LoadConfig(), db, provisioning.NewIndexer(nil, log), log)

	_, err = handler.Execute(context.Background(), &Input{
		ApplicationID: "app-1",
		ReviewerID:    "advisor-9",
	})

	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeUnauthorized, stdErr.Code)
}

func TestHandler_Execute_ProvisioningFailureRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectAdminResolve(mock, "admin-1")

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, email, full_name, role, form_data, status`).
		WithArgs("app-4").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "full_name", "role", "form_data", "status"}).
			AddRow("app-4", "x@y.z", "X", "founder", []byte(`{}`), "pending"))
	mock.ExpectExec(`UPDATE applications`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	log := logger.NewTestLogger(t)
	handler := NewHandler(LoadConfig(), db, provisioning.NewIndexer(nil, log), log)

	_, err = handler.Execute(context.Background(), &Input{
		ApplicationID: "app-4",
		ReviewerID:    "admin-1",
	})

	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeProvisioningFailed, stdErr.Code)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func expectAdminResolve(mock sqlmock.Sqlmock, reviewerID string) {
	mock.ExpectQuery(`SELECT id, email, COALESCE`).
		WithArgs(reviewerID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "full_name", "role"}).
			AddRow(reviewerID, "admin@program.io", "Program Admin", "admin"))
}
