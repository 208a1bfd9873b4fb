package getadvisorscore

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
	CacheHit                     bool    `json:"cacheHit"`
}
