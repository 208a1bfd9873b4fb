package reviewreport

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"mentorship-workers/internal/common/auth"
	"mentorship-workers/internal/common/errors"
	"mentorship-workers/internal/common/logger"
	"mentorship-workers/internal/common/metrics"
	"mentorship-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "review-report"
)

type Handler struct {
	config     *Config
	db         *sql.DB
	resolver   *auth.Resolver
	logger     logger.Logger
	errHandler *errors.ErrorHandler
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		db:         db,
		resolver:   auth.NewResolver(db),
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
	if err := validateInput(input); err != nil {
		return nil, err
	}

	if _, err := h.resolver.RequireAdmin(ctx, input.ReviewerID); err != nil {
		return nil, err
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewDatabaseConnectionFailedError(err)
	}
	defer tx.Rollback()

	// Lock the report row so concurrent reviews serialize; the loser sees
	// the final status and gets ALREADY_APPROVED.
	var status string
	err = tx.QueryRowContext(ctx, `
		SELECT status
		FROM monthly_reports
		WHERE id = $1
		FOR UPDATE`, input.ReportID).
		Scan(&status)
	if err == sql.ErrNoRows {
		return nil, errors.NewReportNotFoundError(input.ReportID)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("lock monthly report", err)
	}

	if status == models.ReportStatusApproved {
		return nil, errors.NewAlreadyApprovedError(input.ReportID)
	}
	if status == models.ReportStatusDraft {
		return nil, errors.NewInvalidStateError("Report has not been submitted",
			fmt.Sprintf("report %s is %s", input.ReportID, status))
	}

	reviewedAt := time.Now().UTC()

	if input.Status == models.ReportStatusApproved {
		_, err = tx.ExecContext(ctx, `
			UPDATE monthly_reports
			SET status = $2, reviewed_by = $3, reviewed_at = $4,
			    admin_feedback = $5, approved_at = $4, updated_at = $4
			WHERE id = $1`,
			input.ReportID, models.ReportStatusApproved, input.ReviewerID,
			reviewedAt, input.Feedback,
		)
	} else {
		_, err = tx.ExecContext(ctx, `
			UPDATE monthly_reports
			SET status = $2, reviewed_by = $3, reviewed_at = $4,
			    admin_feedback = $5, updated_at = $4
			WHERE id = $1`,
			input.ReportID, models.ReportStatusReviewed, input.ReviewerID,
			reviewedAt, input.Feedback,
		)
	}
	if err != nil {
		return nil, errors.NewDatabaseWriteFailedError(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewDatabaseWriteFailedError(err)
	}

	h.logger.Info("report reviewed", map[string]interface{}{
		"reportId":   input.ReportID,
		"reviewerId": input.ReviewerID,
		"status":     input.Status,
	})

	return &Output{
		ReportID:   input.ReportID,
		Status:     input.Status,
		ReviewedBy: input.ReviewerID,
		ReviewedAt: reviewedAt,
	}, nil
}

func validateInput(input *Input) error {
	var violations []string
	if input.ReportID == "" {
		violations = append(violations, "reportId is required")
	}
	if input.ReviewerID == "" {
		violations = append(violations, "reviewerId is required")
	}
	if input.Status != models.ReportStatusReviewed && input.Status != models.ReportStatusApproved {
		violations = append(violations, "status must be reviewed or approved")
	}
	if len(violations) > 0 {
		return errors.NewValidationFailedError("Review request is invalid", violations)
	}
	return nil
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
