package recomputeadvisorscore

import "time"

type Config struct {
	Timeout          time.Duration
	RatingWeight     float64
	LikelihoodWeight float64
	CacheTTL         time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout:          30 * time.Second,
		RatingWeight:     0.5,
		LikelihoodWeight: 0.5,
		CacheTTL:         10 * time.Minute,
	}
}
