package recomputeadvisorscore

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
)

const (
	TaskType = "recompute-advisor-score"
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
		return nil, errors.NewValidationFailedError("Score recompute is invalid",
			[]string{"advisorId is required"})
	}

	weights := scoring.Weights{Rating: h.config.RatingWeight, Likelihood: h.config.LikelihoodWeight}
	result, err := scoring.Recompute(ctx, h.db, input.AdvisorID, weights)
	if err != nil {
		return nil, err
	}
	metrics.AdvisorScoreRecomputes.WithLabelValues("job").Inc()

	output := &Output{
		AdvisorID:                    result.AdvisorID,
		SessionsCompleted:            result.SessionsCompleted,
		AverageSessionRating:         result.AverageSessionRating,
		AverageLikelihoodToRecommend: result.AverageLikelihoodToRecommend,
		OverallScore:                 result.OverallScore,
		SatisfactionScore:            result.SatisfactionScore,
		BadgeLevel:                   result.BadgeLevel,
		RecomputedAt:                 time.Now().UTC().Format(time.RFC3339),
	}

	h.cacheResult(ctx, result)

	h.logger.Info("advisor score recomputed", map[string]interface{}{
		"advisorId":    result.AdvisorID,
		"sessions":     result.SessionsCompleted,
		"overallScore": result.OverallScore,
		"badgeLevel":   result.BadgeLevel,
	})

	return output, nil
}

func (h *Handler) cacheResult(ctx context.Context, result *scoring.Result) {
	if h.redis == nil {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := h.redis.Set(ctx, scoring.CacheKey(result.AdvisorID), payload, h.config.CacheTTL); err != nil {
		h.logger.Warn("score cache write failed", map[string]interface{}{
			"advisorId": result.AdvisorID,
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
