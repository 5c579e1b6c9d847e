// internal/workers/matching/warm-candidates/config.go
package warmcandidates

import "time"

type Config struct {
	DefaultTopK int
	Timeout     time.Duration
}

func LoadConfig() *Config {
	return &Config{
		DefaultTopK: 10,
		Timeout:     10 * time.Minute,
	}
}
