package getadvisorscore

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
	"mentorship-workers/internal/scoring"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	goredis "github.com/redis/go-redis/v9"
)

const (
	TaskType = "get-advisor-score"
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
	if input.AdvisorID == "" {
		return nil, errors.NewValidationFailedError("Score lookup is invalid",
			[]string{"advisorId is required"})
	}

	if cached := h.fromCache(ctx, input.AdvisorID); cached != nil {
		cached.CacheHit = true
		return cached, nil
	}

	var output Output
	err := h.db.QueryRowContext(ctx, `
		SELECT id, sessions_completed, average_session_rating,
		       average_likelihood_to_recommend, overall_score, satisfaction_score, badge_level
		FROM advisors
		WHERE id = $1`, input.AdvisorID).Scan(
		&output.AdvisorID,
		&output.SessionsCompleted,
		&output.AverageSessionRating,
		&output.AverageLikelihoodToRecommend,
		&output.OverallScore,
		&output.SatisfactionScore,
		&output.BadgeLevel,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NewProfileNotFoundError("Advisor", input.AdvisorID)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("load advisor score", err)
	}

	h.toCache(ctx, &output)

	return &output, nil
}

func (h *Handler) fromCache(ctx context.Context, advisorID string) *Output {
	if h.redis == nil {
		return nil
	}

	raw, err := h.redis.Get(ctx, scoring.CacheKey(advisorID))
	if err == goredis.Nil {
		return nil
	}
	if err != nil {
		h.logger.Warn("score cache read failed", map[string]interface{}{
			"advisorId": advisorID,
			"error":     err.Error(),
		})
		return nil
	}

	var result scoring.Result
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil
	}

	return &Output{
		AdvisorID:                    result.AdvisorID,
		SessionsCompleted:            result.SessionsCompleted,
		AverageSessionRating:         result.AverageSessionRating,
		AverageLikelihoodToRecommend: result.AverageLikelihoodToRecommend,
		OverallScore:                 result.OverallScore,
		SatisfactionScore:            result.SatisfactionScore,
		BadgeLevel:                   result.BadgeLevel,
	}
}

func (h *Handler) toCache(ctx context.Context, output *Output) {
	if h.redis == nil {
		return
	}

	result := scoring.Result{
		AdvisorID:                    output.AdvisorID,
		SessionsCompleted:            output.SessionsCompleted,
		AverageSessionRating:         output.AverageSessionRating,
		AverageLikelihoodToRecommend: output.AverageLikelihoodToRecommend,
		OverallScore:                 output.OverallScore,
		SatisfactionScore:            output.SatisfactionScore,
		BadgeLevel:                   output.BadgeLevel,
	}

	payload, err := json.Marshal(&result)
	if err != nil {
		return
	}
	if err := h.redis.Set(ctx, scoring.CacheKey(output.AdvisorID), payload, h.config.CacheTTL); err != nil {
		h.logger.Warn("score cache write failed", map[string]interface{}{
			"advisorId": output.AdvisorID,
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
