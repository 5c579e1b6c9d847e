// internal/workers/engagement/trigger-nudges/config.go
package triggernudges

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 5 * time.Minute,
	}
}
