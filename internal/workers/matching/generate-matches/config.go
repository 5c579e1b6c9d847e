// internal/workers/matching/generate-matches/config.go
package generatematches

import "time"

type Config struct {
	DefaultTopK int
	Timeout     time.Duration
}

func LoadConfig() *Config {
	return &Config{
		DefaultTopK: 10,
		Timeout:     5 * time.Minute,
	}
}
