package approveapplication

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
	"mentorship-workers/internal/provisioning"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "approve-application"
)

type Handler struct {
	config     *Config
	db         *sql.DB
	resolver   *auth.Resolver
	indexer    *provisioning.Indexer
	logger     logger.Logger
	errHandler *errors.ErrorHandler
}

func NewHandler(config *Config, db *sql.DB, indexer *provisioning.Indexer, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		db:         db,
		resolver:   auth.NewResolver(db),
		indexer:    indexer,
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
	if _, err := h.resolver.RequireAdmin(ctx, input.ReviewerID); err != nil {
		return nil, err
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewDatabaseConnectionFailedError(err)
	}
	defer tx.Rollback()

	// Lock the application row so concurrent reviews serialize; the loser
	// sees the updated status and gets ALREADY_REVIEWED.
	app, err := h.lockApplication(ctx, tx, input.ApplicationID)
	if err != nil {
		return nil, err
	}
	if !app.IsPending() {
		return nil, errors.NewAlreadyReviewedError(app.ID, app.Status)
	}

	reviewedAt := time.Now().UTC()

	_, err = tx.ExecContext(ctx, `
		UPDATE applications
		SET status = $2, reviewed_by = $3, reviewed_at = $4, updated_at = $4
		WHERE id = $1`,
		app.ID, models.ApplicationStatusApproved, input.ReviewerID, reviewedAt,
	)
	if err != nil {
		return nil, errors.NewDatabaseWriteFailedError(err)
	}

	// Account and profile creation rides the same transaction: approval
	// without a provisioned participant is never visible.
	result, err := provisioning.Provision(ctx, tx, app)
	if err != nil {
		return nil, errors.NewProvisioningFailedError(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewDatabaseWriteFailedError(err)
	}

	h.indexer.IndexProfile(ctx, app, result)

	h.logger.Info("application approved", map[string]interface{}{
		"applicationId": app.ID,
		"role":          app.Role,
		"userId":        result.UserID,
		"profileId":     result.ProfileID,
	})

	return &Output{
		ApplicationID: app.ID,
		Status:        models.ApplicationStatusApproved,
		UserID:        result.UserID,
		ProfileID:     result.ProfileID,
		Role:          result.Role,
		ReviewedAt:    reviewedAt.Format(time.RFC3339),
	}, nil
}

func (h *Handler) lockApplication(ctx context.Context, tx *sql.Tx, applicationID string) (*models.Application, error) {
	var app models.Application
	var formData []byte

	err := tx.QueryRowContext(ctx, `
		SELECT id, email, full_name, role, form_data, status
		FROM applications
		WHERE id = $1
		FOR UPDATE`, applicationID).
		Scan(&app.ID, &app.Email, &app.FullName, &app.Role, &formData, &app.Status)
	if err == sql.ErrNoRows {
		return nil, errors.NewApplicationNotFoundError(applicationID)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("lock application", err)
	}

	if len(formData) > 0 {
		if err := json.Unmarshal(formData, &app.FormData); err != nil {
			return nil, errors.NewQueryExecutionFailedError("decode form data", err)
		}
	}

	return &app, nil
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
