package endassignment

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"mentorship-workers/internal/common/errors"
	"mentorship-workers/internal/common/logger"
	"mentorship-workers/internal/common/metrics"
	"mentorship-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "end-assignment"
)

type Handler struct {
	config     *Config
	db         *sql.DB
	logger     logger.Logger
	errHandler *errors.ErrorHandler
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		db:         db,
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
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewDatabaseConnectionFailedError(err)
	}
	defer tx.Rollback()

	var id, status string
	err = tx.QueryRowContext(ctx, `
		SELECT id, status
		FROM assignments
		WHERE id = $1
		FOR UPDATE`, input.AssignmentID).Scan(&id, &status)
	if err == sql.ErrNoRows {
		return nil, errors.NewAssignmentNotFoundError(input.AssignmentID)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("lock assignment", err)
	}

	if status != models.AssignmentStatusActive {
		return nil, errors.NewInvalidStateError(
			"Assignment is not active",
			fmt.Sprintf("assignmentId: %s, status: %s", id, status))
	}

	endedAt := time.Now().UTC()

	_, err = tx.ExecContext(ctx, `
		UPDATE assignments
		SET status = $2, ended_at = $3, end_reason = $4
		WHERE id = $1`,
		id, models.AssignmentStatusEnded, endedAt, input.Reason,
	)
	if err != nil {
		return nil, errors.NewDatabaseWriteFailedError(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewDatabaseWriteFailedError(err)
	}

	h.logger.Info("assignment ended", map[string]interface{}{
		"assignmentId": id,
		"reason":       input.Reason,
	})

	return &Output{
		AssignmentID: id,
		Status:       models.AssignmentStatusEnded,
		EndedAt:      endedAt.Format(time.RFC3339),
	}, nil
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
