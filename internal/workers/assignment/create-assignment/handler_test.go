package createassignment

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

func TestHandler_Execute_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM advisors WHERE id = \$1 FOR UPDATE`).
		WithArgs("adv-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("adv-1"))
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM founders`).
		WithArgs("fnd-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`SELECT EXISTS\(\s*SELECT 1 FROM assignments`).
		WithArgs("adv-1", "fnd-1", "active").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`INSERT INTO assignments`).
		WithArgs(sqlmock.AnyArg(), "adv-1", "fnd-1", "active", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	handler := NewHandler(LoadConfig(), db, logger.NewTestLogger(t))

	output, err := handler.Execute(context.Background(), &Input{
		AdvisorID: "adv-1",
		FounderID: "fnd-1",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, output.AssignmentID)
	assert.Equal(t, "active", output.Status)

	_, err = time.Parse(time.RFC3339, output.StartedAt)
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_AdvisorNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM advisors WHERE id = \$1 FOR UPDATE`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	handler := NewHandler(LoadConfig(), db, logger.NewTestLogger(t))

	_, err = handler.Execute(context.Background(), &Input{
		AdvisorID: "missing",
		FounderID: "fnd-1",
	})

	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeProfileNotFound, stdErr.Code)
	assert.Contains(t, stdErr.Message, "Advisor")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_FounderNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM advisors WHERE id = \$1 FOR UPDATE`).
		WithArgs("adv-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("adv-1"))
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM founders`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	handler := NewHandler(LoadConfig(), db, logger.NewTestLogger(t))

	_, err = handler.Execute(context.Background(), &Input{
		AdvisorID: "adv-1",
		FounderID: "missing",
	})

	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeProfileNotFound, stdErr.Code)
	assert.Contains(t, stdErr.Message, "Founder")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_DuplicateActiveAssignment(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM advisors WHERE id = \$1 FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("adv-1"))
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM founders`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`SELECT EXISTS\(\s*SELECT 1 FROM assignments`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	handler := NewHandler(LoadConfig(), db, logger.NewTestLogger(t))

	_, err = handler.Execute(context.Background(), &Input{
		AdvisorID: "adv-1",
		FounderID: "fnd-1",
	})

	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeDuplicateAssignment, stdErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A second request for the same pair that was queued behind the advisor row
// lock observes the committed assignment and is rejected instead of writing a
// second active row.
func TestHandler_Execute_SecondRequestAfterCommitSeesDuplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// Winner: lock, checks, insert, commit.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM advisors WHERE id = \$1 FOR UPDATE`).
		WithArgs("adv-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("adv-1"))
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM founders`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`SELECT EXISTS\(\s*SELECT 1 FROM assignments`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`INSERT INTO assignments`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// Loser: acquires the lock after the winner commits and finds the pair
	// already active.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM advisors WHERE id = \$1 FOR UPDATE`).
		WithArgs("adv-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("adv-1"))
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM founders`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`SELECT EXISTS\(\s*SELECT 1 FROM assignments`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	handler := NewHandler(LoadConfig(), db, logger.NewTestLogger(t))
	input := &Input{AdvisorID: "adv-1", FounderID: "fnd-1"}

	output, err := handler.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.NotEmpty(t, output.AssignmentID)

	_, err = handler.Execute(context.Background(), input)
	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeDuplicateAssignment, stdErr.Code)
	assert.False(t, stdErr.Retryable)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_InsertFailureIsRetryable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM advisors WHERE id = \$1 FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("adv-1"))
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM founders`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`SELECT EXISTS\(\s*SELECT 1 FROM assignments`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`INSERT INTO assignments`).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	handler := NewHandler(LoadConfig(), db, logger.NewTestLogger(t))

	_, err = handler.Execute(context.Background(), &Input{
		AdvisorID: "adv-1",
		FounderID: "fnd-1",
	})

	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.True(t, stdErr.Retryable)
}
