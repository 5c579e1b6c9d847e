// internal/workers/lifecycle/schedule-meeting/config.go
package schedulemeeting

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}
