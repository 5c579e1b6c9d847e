// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	APIs          APIsConfig              `mapstructure:"apis"`
	Matching      MatchingConfig          `mapstructure:"matching"`
	Engagement    EngagementConfig        `mapstructure:"engagement"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Server        ServerConfig            `mapstructure:"server"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses    []string `mapstructure:"addresses"`
	Username     string   `mapstructure:"username"`
	Password     string   `mapstructure:"password"`
	ProfileIndex string   `mapstructure:"profile_index"`
}

// GetURL returns the first configured address.
func (e ElasticsearchConfig) GetURL() string {
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// APIsConfig holds settings for the text generation and embedding provider.
type APIsConfig struct {
	GenAI GenAIConfig `mapstructure:"genai"`
}

type GenAIConfig struct {
	APIKey              string  `mapstructure:"api_key"`
	TextModel           string  `mapstructure:"text_model"`
	EmbeddingModel      string  `mapstructure:"embedding_model"`
	EmbeddingDimensions int     `mapstructure:"embedding_dimensions"`
	Temperature         float64 `mapstructure:"temperature"`
	Timeout             int     `mapstructure:"timeout"` // milliseconds
	MaxRetries          int     `mapstructure:"max_retries"`
}

// MatchingConfig drives retrieval, ranking and the persistence policy.
type MatchingConfig struct {
	TopK              int      `mapstructure:"top_k"`
	CandidateCacheTTL int      `mapstructure:"candidate_cache_ttl"` // seconds
	OverfetchFactor   int      `mapstructure:"overfetch_factor"`
	MaxOverfetch      int      `mapstructure:"max_overfetch"`
	MinOverallScore   float64  `mapstructure:"min_overall_score"`
	RerankEnabled     bool     `mapstructure:"rerank_enabled"`
	ConfidenceEnabled bool     `mapstructure:"confidence_enabled"`
	SimilarityBackend string   `mapstructure:"similarity_backend"` // pgvector | elasticsearch | memory
	CacheBackend      string   `mapstructure:"cache_backend"`      // memory | redis
	OrganizerEmails   []string `mapstructure:"organizer_emails"`
}

// EngagementConfig drives nudge scheduling and delivery.
type EngagementConfig struct {
	DeliveryBackend string `mapstructure:"delivery_backend"` // memory | redis
	DeliveredTTL    int    `mapstructure:"delivered_ttl"`    // seconds
	MaxListed       int    `mapstructure:"max_listed"`
	Channel         string `mapstructure:"channel"` // none | email | sns
}

// NotificationConfig holds AWS delivery settings for nudges.
type NotificationConfig struct {
	Email struct {
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"email"`
	SNS struct {
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"sns"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
