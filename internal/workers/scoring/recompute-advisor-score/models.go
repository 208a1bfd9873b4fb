package recomputeadvisorscore

type Input struct {
	AdvisorID string `json:"advisorId"`
}

type Output struct {
	AdvisorID                    string  `json:"advisorId"`
	SessionsCompleted            int     `json:"sessionsCompleted"`
	AverageSessionRating         float64 `json:"averageSessionRating"`
	AverageLikelihoodToRecommend float64 `json:"averageLikelihoodToRecommend"`
	OverallScore                 int     `json:"overallScore"`
	SatisfactionScore            int     `json:"satisfactionScore"`
	BadgeLevel                   string  `json:"badgeLevel"`
	RecomputedAt                 string  `json:"recomputedAt"` // ISO 8601
}
