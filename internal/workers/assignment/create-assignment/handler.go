package createassignment

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
	"github.com/google/uuid"
)

const (
	TaskType = "create-assignment"
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

	// Lock the advisor row so concurrent assignment requests for the same
	// advisor serialize; the loser re-runs the pair check after the winner
	// commits and gets DUPLICATE_ASSIGNMENT.
	var advisorID string
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM advisors WHERE id = $1 FOR UPDATE`, input.AdvisorID).Scan(&advisorID)
	if err == sql.ErrNoRows {
		return nil, errors.NewProfileNotFoundError("Advisor", input.AdvisorID)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("lock advisor", err)
	}

	var founderExists bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM founders WHERE id = $1)`, input.FounderID).Scan(&founderExists)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("verify founders", err)
	}
	if !founderExists {
		return nil, errors.NewProfileNotFoundError("Founder", input.FounderID)
	}

	var exists bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM assignments
			WHERE advisor_id = $1 AND founder_id = $2 AND status = $3
		)`, input.AdvisorID, input.FounderID, models.AssignmentStatusActive).Scan(&exists)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("duplicate check", err)
	}
	if exists {
		return nil, errors.NewDuplicateAssignmentError(input.AdvisorID, input.FounderID)
	}

	assignmentID := uuid.New().String()
	startedAt := time.Now().UTC()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO assignments (id, advisor_id, founder_id, status, started_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $5)`,
		assignmentID, input.AdvisorID, input.FounderID, models.AssignmentStatusActive, startedAt,
	)
	if err != nil {
		return nil, errors.NewDatabaseWriteFailedError(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewDatabaseWriteFailedError(err)
	}

	h.logger.Info("assignment created", map[string]interface{}{
		"assignmentId": assignmentID,
		"advisorId":    input.AdvisorID,
		"founderId":    input.FounderID,
	})

	return &Output{
		AssignmentID: assignmentID,
		Status:       models.AssignmentStatusActive,
		StartedAt:    startedAt.Format(time.RFC3339),
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
