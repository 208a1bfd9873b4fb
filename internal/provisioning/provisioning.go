// Package provisioning creates platform accounts and participant profiles
// for approved applications.
package provisioning

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"mentorship-workers/internal/common/database"
	"mentorship-workers/internal/common/logger"
	"mentorship-workers/internal/models"
)

// Result identifies the records created for an approved applicant.
type Result struct {
	UserID    string `json:"userId"`
	ProfileID string `json:"profileId"`
	Role      string `json:"role"`
}

// Provision creates the user account and role-specific profile inside the
// caller's transaction, so approval and provisioning commit atomically.
func Provision(ctx context.Context, tx *sql.Tx, app *models.Application) (*Result, error) {
	userID := uuid.New().String()

	_, err := tx.ExecContext(ctx, `
		INSERT INTO users (id, email, full_name, role, created_at)
		VALUES ($1, $2, $3, $4, NOW())`,
		userID, app.Email, app.FullName, app.Role,
	)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	profileID := uuid.New().String()

	switch app.Role {
	case models.ApplicantRoleFounder:
		founder := FounderFromForm(app)
		_, err = tx.ExecContext(ctx, `
			INSERT INTO founders (id, user_id, application_id, email, full_name, company_name, industry, stage, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())`,
			profileID, userID, app.ID, app.Email, app.FullName,
			founder.CompanyName, founder.Industry, founder.Stage,
		)
	case models.ApplicantRoleAdvisor:
		advisor := AdvisorFromForm(app)
		_, err = tx.ExecContext(ctx, `
			INSERT INTO advisors (id, user_id, application_id, email, full_name, expertise, years_of_experience,
			                      sessions_completed, average_session_rating, average_likelihood_to_recommend,
			                      overall_score, satisfaction_score, badge_level, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, 0, 0, 0, 0, 0, $8, NOW(), NOW())`,
			profileID, userID, app.ID, app.Email, app.FullName,
			advisor.Expertise, advisor.YearsOfExperience, "White Ribbon",
		)
	default:
		return nil, fmt.Errorf("unknown applicant role: %s", app.Role)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s profile: %w", app.Role, err)
	}

	return &Result{UserID: userID, ProfileID: profileID, Role: app.Role}, nil
}

// FounderFromForm extracts founder profile fields from the application form.
func FounderFromForm(app *models.Application) *models.FounderProfile {
	return &models.FounderProfile{
		Email:       app.Email,
		FullName:    app.FullName,
		CompanyName: formString(app.FormData, "companyName"),
		Industry:    formString(app.FormData, "industry"),
		Stage:       formString(app.FormData, "stage"),
	}
}

// AdvisorFromForm extracts advisor profile fields from the application form.
func AdvisorFromForm(app *models.Application) *models.AdvisorProfile {
	return &models.AdvisorProfile{
		Email:             app.Email,
		FullName:          app.FullName,
		Expertise:         formString(app.FormData, "expertise"),
		YearsOfExperience: formInt(app.FormData, "yearsOfExperience"),
	}
}

func formString(form map[string]interface{}, key string) string {
	if form == nil {
		return ""
	}
	if s, ok := form[key].(string); ok {
		return s
	}
	return ""
}

func formInt(form map[string]interface{}, key string) int {
	if form == nil {
		return 0
	}
	switch v := form[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

// Indexer pushes provisioned profiles into the participant directory index.
// Indexing is best effort and must run after the provisioning transaction
// commits.
type Indexer struct {
	es     *database.ElasticsearchClient
	logger logger.Logger
}

func NewIndexer(es *database.ElasticsearchClient, log logger.Logger) *Indexer {
	return &Indexer{es: es, logger: log}
}

// IndexProfile indexes the new participant for directory search. Failures
// are logged, never returned: the directory catches up on the next sync.
func (i *Indexer) IndexProfile(ctx context.Context, app *models.Application, result *Result) {
	if i.es == nil {
		return
	}

	doc := map[string]interface{}{
		"profileId": result.ProfileID,
		"userId":    result.UserID,
		"email":     app.Email,
		"fullName":  app.FullName,
		"role":      app.Role,
		"formData":  app.FormData,
	}

	index := "founders"
	if app.Role == models.ApplicantRoleAdvisor {
		index = "advisors"
	}

	if err := i.es.IndexDocument(ctx, index, result.ProfileID, doc); err != nil {
		i.logger.Warn("directory indexing failed", map[string]interface{}{
			"profileId": result.ProfileID,
			"index":     index,
			"error":     err.Error(),
		})
	}
}
