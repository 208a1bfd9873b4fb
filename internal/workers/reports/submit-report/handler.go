package submitreport

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
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
	TaskType = "submit-report"
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

	// Validation happens before any write so a rejected submission leaves
	// the stored report untouched.
	if violations := reports.ValidateContent(template, input.Content); len(violations) > 0 {
		return nil, errors.NewValidationFailedError("Report is incomplete", violations)
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
	existing := err == nil

	if existing && (status == models.ReportStatusReviewed || status == models.ReportStatusApproved) {
		return nil, errors.NewInvalidStateError("Report has already been reviewed",
			fmt.Sprintf("report %s is %s", reportID, status))
	}

	calculated, err := h.calculateMetrics(ctx, tx, input.AdvisorID, input.Month, input.Year)
	if err != nil {
		return nil, err
	}

	content := make(map[string]interface{}, len(input.Content)+1)
	for k, v := range input.Content {
		content[k] = v
	}
	content["calculated_metrics"] = calculated

	completion := reports.CompletionPercentage(template, content)

	rawContent, err := json.Marshal(content)
	if err != nil {
		return nil, errors.NewValidationFailedError(
			fmt.Sprintf("encode content: %v", err), nil)
	}
	rawMetrics, err := json.Marshal(calculated)
	if err != nil {
		return nil, errors.NewValidationFailedError(
			fmt.Sprintf("encode calculated metrics: %v", err), nil)
	}

	submittedAt := time.Now().UTC()

	if existing {
		_, err = tx.ExecContext(ctx, `
			UPDATE monthly_reports
			SET status = $2, content = $3, calculated_metrics = $4,
			    completion_percentage = $5, submitted_at = $6, updated_at = $6
			WHERE id = $1`,
			reportID, models.ReportStatusSubmitted, rawContent, rawMetrics,
			completion, submittedAt,
		)
	} else {
		reportID = uuid.New().String()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO monthly_reports
				(id, advisor_id, template_id, month, year, status, content,
				 calculated_metrics, completion_percentage, submitted_at,
				 created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10, $10)`,
			reportID, input.AdvisorID, template.ID, input.Month, input.Year,
			models.ReportStatusSubmitted, rawContent, rawMetrics, completion,
			submittedAt,
		)
	}
	if err != nil {
		return nil, errors.NewDatabaseWriteFailedError(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewDatabaseWriteFailedError(err)
	}

	h.logger.Info("report submitted", map[string]interface{}{
		"reportId":  reportID,
		"advisorId": input.AdvisorID,
		"month":     input.Month,
		"year":      input.Year,
	})

	return &Output{
		ReportID:             reportID,
		Status:               models.ReportStatusSubmitted,
		CompletionPercentage: completion,
		CalculatedMetrics:    calculated,
		SubmittedAt:          submittedAt,
	}, nil
}

// calculateMetrics aggregates the advisor's sessions for the report period.
// The numbers are merged into the report content so reviewers see the actual
// activity next to the advisor's narrative.
func (h *Handler) calculateMetrics(ctx context.Context, tx *sql.Tx, advisorID string, month, year int) (map[string]interface{}, error) {
	var (
		sessions  int
		hours     float64
		founders  int
		avgRating float64
	)

	err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(duration_minutes), 0) / 60.0,
		       COUNT(DISTINCT founder_id),
		       COALESCE(AVG(rating), 0)
		FROM mentorship_sessions
		WHERE advisor_id = $1
		  AND status = 'completed'
		  AND EXTRACT(MONTH FROM session_date) = $2
		  AND EXTRACT(YEAR FROM session_date) = $3`,
		advisorID, month, year).
		Scan(&sessions, &hours, &founders, &avgRating)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("aggregate sessions", err)
	}

	return map[string]interface{}{
		"sessions_conducted":   sessions,
		"total_hours":          math.Round(hours*100) / 100,
		"founders_worked_with": founders,
		"average_rating":       math.Round(avgRating*100) / 100,
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
		return errors.NewValidationFailedError("Submission request is invalid", violations)
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
