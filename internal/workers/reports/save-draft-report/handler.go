package savedraftreport

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
	"mentorship-workers/internal/reports"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "save-draft-report"
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
	if err := validateInput(input); err != nil {
		return nil, err
	}

	template, err := reports.LoadActiveTemplate(ctx, h.db, input.Month, input.Year)
	if err != nil {
		return nil, err
	}

	// Drafts carry partial content, so completion is tracked but nothing
	// is validated until submission.
	completion := reports.CompletionPercentage(template, input.Content)

	content, err := json.Marshal(input.Content)
	if err != nil {
		return nil, errors.NewValidationFailedError(
			fmt.Sprintf("encode content: %v", err), nil)
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewDatabaseConnectionFailedError(err)
	}
	defer tx.Rollback()

	var (
		reportID string
		status   string
	)
	err = tx.QueryRowContext(ctx, `
		SELECT id, status
		FROM monthly_reports
		WHERE advisor_id = $1 AND month = $2 AND year = $3
		FOR UPDATE`, input.AdvisorID, input.Month, input.Year).
		Scan(&reportID, &status)
	if err != nil && err != sql.ErrNoRows {
		return nil, errors.NewQueryExecutionFailedError("lock monthly report", err)
	}

	savedAt := time.Now().UTC()

	if err == sql.ErrNoRows {
		reportID = uuid.New().String()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO monthly_reports
				(id, advisor_id, template_id, month, year, status, content,
				 completion_percentage, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`,
			reportID, input.AdvisorID, template.ID, input.Month, input.Year,
			models.ReportStatusDraft, content, completion, savedAt,
		)
		if err != nil {
			return nil, errors.NewDatabaseWriteFailedError(err)
		}
	} else {
		if status != models.ReportStatusDraft {
			return nil, errors.NewInvalidStateError("Report can no longer be edited",
				fmt.Sprintf("report %s is %s", reportID, status))
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE monthly_reports
			SET content = $2, completion_percentage = $3, updated_at = $4
			WHERE id = $1`,
			reportID, content, completion, savedAt,
		)
		if err != nil {
			return nil, errors.NewDatabaseWriteFailedError(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewDatabaseWriteFailedError(err)
	}

	h.logger.Info("draft saved", map[string]interface{}{
		"reportId":   reportID,
		"advisorId":  input.AdvisorID,
		"month":      input.Month,
		"year":       input.Year,
		"completion": completion,
	})

	return &Output{
		ReportID:             reportID,
		Status:               models.ReportStatusDraft,
		CompletionPercentage: completion,
		SavedAt:              savedAt,
	}, nil
}

func validateInput(input *Input) error {
	var violations []string
	if input.AdvisorID == "" {
		violations = append(violations, "advisorId is required")
	}
	if input.Month < 1 || input.Month > 12 {
		violations = append(violations, "month must be between 1 and 12")
	}
	if input.Year < 2000 {
		violations = append(violations, "year must be a four digit year")
	}
	if len(violations) > 0 {
		return errors.NewValidationFailedError("Draft request is invalid", violations)
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
