package resolvereporttemplate

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
	TaskType = "resolve-report-template"
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
	month, year := input.Month, input.Year
	if month == 0 && year == 0 {
		// Workers run after the period has closed, so the previous
		// calendar month is the default.
		month, year = reports.PreviousPeriod(time.Now().UTC())
	}
	if month < 1 || month > 12 || year < 2000 {
		return nil, errors.NewValidationFailedError("Report period is invalid",
			[]string{fmt.Sprintf("month %d and year %d do not name a period", month, year)})
	}

	var (
		output      Output
		rawSections []byte
	)
	err := h.db.QueryRowContext(ctx, `
		SELECT id, name, month, year, version, sections
		FROM report_templates
		WHERE month = $1 AND year = $2 AND is_active = TRUE`, month, year).Scan(
		&output.TemplateID,
		&output.Name,
		&output.Month,
		&output.Year,
		&output.Version,
		&rawSections,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NewTemplateNotFoundError(month, year)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("load report template", err)
	}

	if err := reports.ValidateSectionsDocument(rawSections); err != nil {
		return nil, errors.NewInvalidStateError("Report template is malformed", err.Error())
	}

	var sections []models.TemplateSection
	if err := json.Unmarshal(rawSections, &sections); err != nil {
		return nil, errors.NewInvalidStateError("Report template is malformed", err.Error())
	}

	template := models.ReportTemplate{Sections: sections}
	output.Sections = sections
	output.FieldCount = template.FieldCount()
	output.DueDate = reports.DueDate(month, year, h.config.GraceDay)

	return &output, nil
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
