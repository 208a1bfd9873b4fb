package reportreminders

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
)

const (
	TaskType = "report-reminders"
)

type Handler struct {
	config     *Config
	db         *sql.DB
	now        func() time.Time
	logger     logger.Logger
	errHandler *errors.ErrorHandler
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		db:         db,
		now:        func() time.Time { return time.Now().UTC() },
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
		return nil, errors.NewValidationFailedError("Reminder lookup is invalid",
			[]string{"advisorId is required"})
	}

	now := h.now()
	prevMonth, prevYear := reports.PreviousPeriod(now)

	// Every active template up to and including the last closed period is
	// a filing obligation. A period is pending until a report for it has
	// moved past draft.
	rows, err := h.db.QueryContext(ctx, `
		SELECT t.month, t.year, COALESCE(r.status, '')
		FROM report_templates t
		LEFT JOIN monthly_reports r
		  ON r.advisor_id = $1 AND r.month = t.month AND r.year = t.year
		WHERE t.is_active = TRUE
		  AND (t.year * 100 + t.month) <= $2
		  AND (r.id IS NULL OR r.status = $3)
		ORDER BY t.year, t.month`,
		input.AdvisorID, prevYear*100+prevMonth, models.ReportStatusDraft)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("list pending reports", err)
	}
	defer rows.Close()

	output := &Output{
		AdvisorID:      input.AdvisorID,
		PendingReports: []PendingReport{},
	}

	for rows.Next() {
		var (
			month, year int
			status      string
		)
		if err := rows.Scan(&month, &year, &status); err != nil {
			return nil, errors.NewQueryExecutionFailedError("scan pending report", err)
		}

		pending := PendingReport{
			Month:     month,
			Year:      year,
			MonthName: reports.MonthName(month),
			Status:    status,
			DueDate:   reports.DueDate(month, year, h.config.GraceDay),
			Overdue:   reports.IsOverdue(month, year, h.config.GraceDay, now),
		}
		if pending.Overdue {
			output.OverdueCount++
		}
		output.PendingReports = append(output.PendingReports, pending)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("list pending reports", err)
	}

	return output, nil
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
