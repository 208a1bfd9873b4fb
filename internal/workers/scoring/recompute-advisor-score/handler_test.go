package recomputeadvisorscore

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mentorship-workers/internal/common/database"
	"mentorship-workers/internal/common/errors"
	"mentorship-workers/internal/common/logger"
	"mentorship-workers/internal/scoring"
)

func newTestRedis(t *testing.T) (*database.RedisClient, *miniredis.Miniredis) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	return &database.RedisClient{Client: client}, srv
}

func TestHandler_Execute_RecomputesAndCaches(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\)`).
		WithArgs("adv-1").
		WillReturnRows(sqlmock.NewRows([]string{"count", "avg_rating", "avg_likelihood"}).
			AddRow(8, 4.5, 9.0))
	mock.ExpectExec(`UPDATE advisors`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rdb, srv := newTestRedis(t)
	handler := NewHandler(LoadConfig(), db, rdb, logger.NewTestLogger(t))

	output, err := handler.Execute(context.Background(), &Input{AdvisorID: "adv-1"})
	require.NoError(t, err)

	assert.Equal(t, 8, output.SessionsCompleted)
	assert.Equal(t, 90, output.OverallScore)
	assert.Equal(t, scoring.BadgePlatinum, output.BadgeLevel)

	// Fresh result must be cached for get-advisor-score.
	cached, err := srv.Get(scoring.CacheKey("adv-1"))
	require.NoError(t, err)

	var result scoring.Result
	require.NoError(t, json.Unmarshal([]byte(cached), &result))
	assert.Equal(t, 90, result.OverallScore)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_MissingAdvisorID(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rdb, _ := newTestRedis(t)
	handler := NewHandler(LoadConfig(), db, rdb, logger.NewTestLogger(t))

	_, err = handler.Execute(context.Background(), &Input{})

	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeValidationFailed, stdErr.Code)
}

func TestHandler_Execute_UnknownAdvisor(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\)`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"count", "avg_rating", "avg_likelihood"}).
			AddRow(0, 0.0, 0.0))
	mock.ExpectExec(`UPDATE advisors`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	rdb, _ := newTestRedis(t)
	handler := NewHandler(LoadConfig(), db, rdb, logger.NewTestLogger(t))

	_, err = handler.Execute(context.Background(), &Input{AdvisorID: "missing"})

	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeProfileNotFound, stdErr.Code)
}
