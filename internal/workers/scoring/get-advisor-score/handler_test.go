package getadvisorscore

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

func TestHandler_Execute_CacheHit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rdb, srv := newTestRedis(t)

	cached := scoring.Result{
		AdvisorID:                    "adv-1",
		SessionsCompleted:            12,
		AverageSessionRating:         4.2,
		AverageLikelihoodToRecommend: 8.5,
		OverallScore:                 85,
		SatisfactionScore:            84,
		BadgeLevel:                   scoring.BadgeGold,
	}
	payload, err := json.Marshal(&cached)
	require.NoError(t, err)
	require.NoError(t, srv.Set(scoring.CacheKey("adv-1"), string(payload)))

	handler := NewHandler(LoadConfig(), db, rdb, logger.NewTestLogger(t))

	output, err := handler.Execute(context.Background(), &Input{AdvisorID: "adv-1"})
	require.NoError(t, err)

	assert.True(t, output.CacheHit)
	assert.Equal(t, 12, output.SessionsCompleted)
	assert.Equal(t, 85, output.OverallScore)
	assert.Equal(t, scoring.BadgeGold, output.BadgeLevel)

	// No database round trip on a cache hit.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_CacheMissReadsDatabase(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT id, sessions_completed`).
		WithArgs("adv-2").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "sessions_completed", "average_session_rating",
			"average_likelihood_to_recommend", "overall_score", "satisfaction_score", "badge_level",
		}).AddRow("adv-2", 5, 3.8, 7.0, 73, 76, scoring.BadgeSilver))

	rdb, srv := newTestRedis(t)
	handler := NewHandler(LoadConfig(), db, rdb, logger.NewTestLogger(t))

	output, err := handler.Execute(context.Background(), &Input{AdvisorID: "adv-2"})
	require.NoError(t, err)

	assert.False(t, output.CacheHit)
	assert.Equal(t, 73, output.OverallScore)
	assert.Equal(t, scoring.BadgeSilver, output.BadgeLevel)

	cached, err := srv.Get(scoring.CacheKey("adv-2"))
	require.NoError(t, err)

	var result scoring.Result
	require.NoError(t, json.Unmarshal([]byte(cached), &result))
	assert.Equal(t, 73, result.OverallScore)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_StaleCachePayloadFallsThrough(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT id, sessions_completed`).
		WithArgs("adv-3").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "sessions_completed", "average_session_rating",
			"average_likelihood_to_recommend", "overall_score", "satisfaction_score", "badge_level",
		}).AddRow("adv-3", 2, 3.0, 5.0, 55, 60, scoring.BadgeBronze))

	rdb, srv := newTestRedis(t)
	require.NoError(t, srv.Set(scoring.CacheKey("adv-3"), "not-json"))

	handler := NewHandler(LoadConfig(), db, rdb, logger.NewTestLogger(t))

	output, err := handler.Execute(context.Background(), &Input{AdvisorID: "adv-3"})
	require.NoError(t, err)

	assert.False(t, output.CacheHit)
	assert.Equal(t, scoring.BadgeBronze, output.BadgeLevel)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_UnknownAdvisor(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT id, sessions_completed`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "sessions_completed", "average_session_rating",
			"average_likelihood_to_recommend", "overall_score", "satisfaction_score", "badge_level",
		}))

	rdb, _ := newTestRedis(t)
	handler := NewHandler(LoadConfig(), db, rdb, logger.NewTestLogger(t))

	_, err = handler.Execute(context.Background(), &Input{AdvisorID: "missing"})

	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeProfileNotFound, stdErr.Code)
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
