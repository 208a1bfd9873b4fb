package recordsessionoutcome

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"mentorship-workers/internal/common/database"
	"mentorship-workers/internal/common/errors"
	"mentorship-workers/internal/common/logger"
	"mentorship-workers/internal/common/metrics"
	"mentorship-workers/internal/models"
	"mentorship-workers/internal/scoring"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "record-session-outcome"
)

type Handler struct {
	config     *Config
	db         *sql.DB
	redis      *database.RedisClient
	logger     logger.Logger
	errHandler *errors.ErrorHandler
}

func NewHandler(config *Config, db *sql.DB, redis *database.RedisClient, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		db:         db,
		redis:      redis,
		logger:     l,
		errHandler: errors.NewErrorHandler(l),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	start := time.Now()
	defer func() {
		metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	}()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(ctx, client, job, errors.NewValidationFailedError(
			fmt.Sprintf("parse input: %v", err), nil))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if violations := validateInput(input); len(violations) > 0 {
		return nil, errors.NewValidationFailedError("Session outcome is invalid", violations)
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewDatabaseConnectionFailedError(err)
	}
	defer tx.Rollback()

	var advisorID, status string
	var rating sql.NullInt64
	err = tx.QueryRowContext(ctx, `
		SELECT advisor_id, status, rating
		FROM mentorship_sessions
		WHERE id = $1
		FOR UPDATE`, input.SessionID).Scan(&advisorID, &status, &rating)
	if err == sql.ErrNoRows {
		return nil, errors.NewSessionNotFoundError(input.SessionID)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("load session", err)
	}

	// A completed session that already carries a rating is a closed scoring
	// input and cannot be reopened or re-rated.
	if status == models.SessionStatusCompleted && rating.Valid {
		return nil, errors.NewInvalidStateError(
			"Session outcome is final once completed with a rating",
			fmt.Sprintf("sessionId: %s, status: %s", input.SessionID, status))
	}

	recordedAt := time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
		UPDATE mentorship_sessions
		SET status = $2,
		    rating = COALESCE($3, rating),
		    advisor_rating = COALESCE($4, advisor_rating),
		    likelihood_to_recommend = COALESCE($5, likelihood_to_recommend),
		    duration_minutes = COALESCE($6, duration_minutes),
		    notes = COALESCE($7, notes),
		    updated_at = $8
		WHERE id = $1`,
		input.SessionID, input.Status, input.Rating, input.AdvisorRating,
		input.LikelihoodToRecommend, input.DurationMinutes, input.Notes, recordedAt,
	)
	if err != nil {
		return nil, errors.NewDatabaseWriteFailedError(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewDatabaseWriteFailedError(err)
	}

	// Only completed sessions feed the aggregates. If the recompute fails
	// the periodic sweep repairs them, so the job still completes.
	scoreUpdated := false
	if input.Status == models.SessionStatusCompleted {
		weights := scoring.Weights{Rating: h.config.RatingWeight, Likelihood: h.config.LikelihoodWeight}
		if _, err := scoring.Recompute(ctx, h.db, advisorID, weights); err != nil {
			h.logger.Warn("score recompute failed after session update", map[string]interface{}{
				"advisorId": advisorID,
				"sessionId": input.SessionID,
				"error":     err.Error(),
			})
		} else {
			scoreUpdated = true
			metrics.AdvisorScoreRecomputes.WithLabelValues("session").Inc()
		}
		h.invalidateCache(ctx, advisorID)
	}

	h.logger.Info("session outcome recorded", map[string]interface{}{
		"sessionId":    input.SessionID,
		"advisorId":    advisorID,
		"status":       input.Status,
		"scoreUpdated": scoreUpdated,
	})

	return &Output{
		SessionID:    input.SessionID,
		AdvisorID:    advisorID,
		Status:       input.Status,
		RecordedAt:   recordedAt.Format(time.RFC3339),
		ScoreUpdated: scoreUpdated,
	}, nil
}

func validateInput(input *Input) []string {
	var violations []string
	if input.SessionID == "" {
		violations = append(violations, "sessionId is required")
	}
	if !models.ValidSessionStatus(input.Status) {
		violations = append(violations, "status must be one of scheduled, completed, cancelled, rescheduled")
	}
	if input.Rating != nil && (*input.Rating < 1 || *input.Rating > 5) {
		violations = append(violations, "rating must be between 1 and 5")
	}
	if input.AdvisorRating != nil && (*input.AdvisorRating < 1 || *input.AdvisorRating > 5) {
		violations = append(violations, "advisorRating must be between 1 and 5")
	}
	if input.LikelihoodToRecommend != nil && (*input.LikelihoodToRecommend < 1 || *input.LikelihoodToRecommend > 10) {
		violations = append(violations, "likelihoodToRecommend must be between 1 and 10")
	}
	if input.DurationMinutes != nil && *input.DurationMinutes <= 0 {
		violations = append(violations, "durationMinutes must be positive")
	}
	return violations
}

func (h *Handler) invalidateCache(ctx context.Context, advisorID string) {
	if h.redis == nil {
		return
	}
	if err := h.redis.Del(ctx, scoring.CacheKey(advisorID)); err != nil {
		h.logger.Warn("score cache invalidation failed", map[string]interface{}{
			"advisorId": advisorID,
			"error":     err.Error(),
		})
	}
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err = cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	code := "INTERNAL_ERROR"
	if stdErr, ok := err.(*errors.StandardError); ok {
		code = string(stdErr.Code)
	}
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, code).Inc()
	h.errHandler.HandleJobError(ctx, client, job, err)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
