package reportreminders

import "time"

type Config struct {
	Timeout  time.Duration
	GraceDay int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:  15 * time.Second,
		GraceDay: 5,
	}
}
