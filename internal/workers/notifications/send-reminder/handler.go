package sendreminder

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"mentorship-workers/internal/common/errors"
	"mentorship-workers/internal/common/logger"
	"mentorship-workers/internal/common/metrics"
	"mentorship-workers/internal/reports"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "send-reminder"
)

type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type Handler struct {
	config     *Config
	db         *sql.DB
	sesClient  SESService
	snsClient  SNSService
	logger     logger.Logger
	errHandler *errors.ErrorHandler
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) (*Handler, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(config.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		db:         db,
		sesClient:  ses.NewFromConfig(awsCfg),
		snsClient:  sns.NewFromConfig(awsCfg),
		logger:     l,
		errHandler: errors.NewErrorHandler(l),
	}, nil
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

	email := input.Email
	if email == "" {
		err := h.db.QueryRowContext(ctx, `SELECT email FROM advisors WHERE id = $1`, input.AdvisorID).
			Scan(&email)
		if err == sql.ErrNoRows {
			return nil, errors.NewProfileNotFoundError("Advisor", input.AdvisorID)
		}
		if err != nil {
			return nil, errors.NewQueryExecutionFailedError("load advisor contact", err)
		}
	}

	subject, body := h.renderReminder(input)
	sentAt := time.Now().UTC().Format(time.RFC3339)
	reminderID := uuid.New().String()

	var channels []string

	if h.config.EmailEnabled && email != "" {
		if err := h.sendEmail(ctx, email, subject, body); err != nil {
			return nil, errors.NewNotificationSendFailedError("email", err)
		}
		channels = append(channels, "email")
	}

	// SMS is reserved for overdue reports, they are the only reminders
	// urgent enough to interrupt someone's day.
	if h.config.SMSEnabled && input.Phone != "" && input.Overdue {
		if err := h.sendSMS(ctx, input.Phone, body); err != nil {
			return nil, errors.NewNotificationSendFailedError("sms", err)
		}
		channels = append(channels, "sms")
	}

	status := StatusDisabled
	if len(channels) > 0 {
		status = StatusSent
		metrics.ReportRemindersSent.Inc()
	}

	h.logger.Info("reminder processed", map[string]interface{}{
		"advisorId": input.AdvisorID,
		"status":    status,
		"channels":  channels,
		"overdue":   input.Overdue,
	})

	return &Output{
		ReminderID: reminderID,
		Status:     status,
		Channels:   channels,
		SentAt:     sentAt,
	}, nil
}

func (h *Handler) renderReminder(input *Input) (subject, body string) {
	data := map[string]interface{}{
		"monthName": reports.MonthName(input.Month),
		"year":      input.Year,
	}

	if input.Overdue {
		subject = renderTemplate("Overdue: your {{monthName}} {{year}} mentorship report", data)
		body = renderTemplate(
			"Your monthly report for {{monthName}} {{year}} is past its due date. "+
				"Please submit it as soon as possible so the program team can review your sessions.", data)
		return subject, body
	}

	subject = renderTemplate("Reminder: your {{monthName}} {{year}} mentorship report", data)
	body = renderTemplate(
		"Your monthly report for {{monthName}} {{year}} has not been submitted yet. "+
			"You can keep saving drafts until you are ready to submit.", data)
	return subject, body
}

func (h *Handler) sendEmail(ctx context.Context, to, subject, body string) error {
	_, err := h.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
				Html: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(h.config.FromEmail),
	})
	return err
}

func (h *Handler) sendSMS(ctx context.Context, to, message string) error {
	_, err := h.snsClient.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(message),
	})
	return err
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
		return errors.NewValidationFailedError("Reminder request is invalid", violations)
	}
	return nil
}

// renderTemplate fills {{placeholder}} markers and strips any that have no
// value so a half-filled data map never leaks braces into a message.
func renderTemplate(tmpl string, data map[string]interface{}) string {
	result := tmpl

	for k, v := range data {
		placeholder := "{{" + k + "}}"
		value := ""
		if s, ok := v.(string); ok {
			value = s
		} else if i, ok := v.(int); ok {
			value = fmt.Sprintf("%d", i)
		} else if v != nil {
			value = fmt.Sprintf("%v", v)
		}
		result = strings.ReplaceAll(result, placeholder, value)
	}

	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		end += start + 2
		result = result[:start] + result[end:]
	}

	return result
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
