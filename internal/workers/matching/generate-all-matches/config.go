// internal/workers/matching/generate-all-matches/config.go
package generateallmatches

import "time"

type Config struct {
	DefaultTopK int
	Timeout     time.Duration
}

func LoadConfig() *Config {
	return &Config{
		DefaultTopK: 10,
		Timeout:     60 * time.Minute,
	}
}
