// Package scoring maintains advisor performance aggregates derived from
// recorded mentorship sessions.
package scoring

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"mentorship-workers/internal/common/errors"
)

// Badge levels, lowest to highest.
const (
	BadgeWhite    = "White Ribbon"
	BadgeBlue     = "Blue Ribbon"
	BadgeBronze   = "Bronze Ribbon"
	BadgeSilver   = "Silver Ribbon"
	BadgeGold     = "Gold Ribbon"
	BadgePlatinum = "Platinum Ribbon"
)

// Weights blends the session rating and likelihood-to-recommend components
// of the overall score. The two weights should sum to 1.
type Weights struct {
	Rating     float64
	Likelihood float64
}

// DefaultWeights gives equal influence to both components.
var DefaultWeights = Weights{Rating: 0.5, Likelihood: 0.5}

// Result holds the aggregates written back to the advisor profile.
type Result struct {
	AdvisorID                    string  `json:"advisorId"`
	SessionsCompleted            int     `json:"sessionsCompleted"`
	AverageSessionRating         float64 `json:"averageSessionRating"`
	AverageLikelihoodToRecommend float64 `json:"averageLikelihoodToRecommend"`
	OverallScore                 int     `json:"overallScore"`
	SatisfactionScore            int     `json:"satisfactionScore"`
	BadgeLevel                   string  `json:"badgeLevel"`
}

// BadgeForScore maps an overall score (0-100) to a badge level.
func BadgeForScore(score int) string {
	switch {
	case score >= 90:
		return BadgePlatinum
	case score >= 80:
		return BadgeGold
	case score >= 70:
		return BadgeSilver
	case score >= 55:
		return BadgeBronze
	case score >= 40:
		return BadgeBlue
	default:
		return BadgeWhite
	}
}

// ComputeScores derives the blended overall score and satisfaction score
// from session averages. Rating is on a 1-5 scale, likelihood on 1-10,
// both normalized to 0-100 before blending.
func ComputeScores(avgRating, avgLikelihood float64, weights Weights) (overall, satisfaction int) {
	ratingPct := avgRating / 5.0 * 100
	likelihoodPct := avgLikelihood / 10.0 * 100

	overall = int(math.Round(weights.Rating*ratingPct + weights.Likelihood*likelihoodPct))
	satisfaction = int(math.Round(ratingPct))
	return overall, satisfaction
}

// Recompute rebuilds an advisor's aggregates from their completed sessions
// and persists them on the advisor profile. It returns the written result.
// Scheduled and cancelled sessions never count; AVG skips NULL ratings, so
// completed-but-unrated sessions add to the count without skewing the
// averages.
func Recompute(ctx context.Context, db *sql.DB, advisorID string, weights Weights) (*Result, error) {
	query := `
		SELECT COUNT(*),
		       COALESCE(AVG(rating), 0),
		       COALESCE(AVG(likelihood_to_recommend), 0)
		FROM mentorship_sessions
		WHERE advisor_id = $1 AND status = 'completed'`

	var count int
	var avgRating, avgLikelihood float64
	err := db.QueryRowContext(ctx, query, advisorID).Scan(&count, &avgRating, &avgLikelihood)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("aggregate sessions", err)
	}

	result := &Result{
		AdvisorID:                    advisorID,
		SessionsCompleted:            count,
		AverageSessionRating:         round2(avgRating),
		AverageLikelihoodToRecommend: round2(avgLikelihood),
	}

	// An advisor with no sessions stays at the baseline badge.
	if count > 0 {
		result.OverallScore, result.SatisfactionScore = ComputeScores(avgRating, avgLikelihood, weights)
	}
	result.BadgeLevel = BadgeForScore(result.OverallScore)

	update := `
		UPDATE advisors
		SET sessions_completed = $2,
		    average_session_rating = $3,
		    average_likelihood_to_recommend = $4,
		    overall_score = $5,
		    satisfaction_score = $6,
		    badge_level = $7,
		    updated_at = NOW()
		WHERE id = $1`

	res, err := db.ExecContext(ctx, update,
		advisorID,
		result.SessionsCompleted,
		result.AverageSessionRating,
		result.AverageLikelihoodToRecommend,
		result.OverallScore,
		result.SatisfactionScore,
		result.BadgeLevel,
	)
	if err != nil {
		return nil, errors.NewDatabaseWriteFailedError(err)
	}

	rows, err := res.RowsAffected()
	if err == nil && rows == 0 {
		return nil, errors.NewProfileNotFoundError("Advisor", advisorID)
	}

	return result, nil
}

// RecomputeAll rebuilds aggregates for every advisor. Individual failures
// are collected so one bad profile does not stop the sweep.
func RecomputeAll(ctx context.Context, db *sql.DB, weights Weights) (int, []error) {
	rows, err := db.QueryContext(ctx, `SELECT id FROM advisors`)
	if err != nil {
		return 0, []error{errors.NewQueryExecutionFailedError("list advisors", err)}
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return 0, []error{errors.NewQueryExecutionFailedError("scan advisor id", err)}
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return 0, []error{errors.NewQueryExecutionFailedError("iterate advisors", err)}
	}

	var errs []error
	updated := 0
	for _, id := range ids {
		if _, err := Recompute(ctx, db, id, weights); err != nil {
			errs = append(errs, fmt.Errorf("advisor %s: %w", id, err))
			continue
		}
		updated++
	}

	return updated, errs
}

// CacheKey is the Redis key holding an advisor's cached score result.
func CacheKey(advisorID string) string {
	return "advisor:score:" + advisorID
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
