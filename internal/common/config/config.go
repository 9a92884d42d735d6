// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App         AppConfig               `mapstructure:"app"`
	Camunda     CamundaConfig           `mapstructure:"camunda"`
	Database    DatabaseConfig          `mapstructure:"database"`
	Catalog     CatalogConfig           `mapstructure:"catalog"`
	Analysis    AnalysisConfig          `mapstructure:"analysis"`
	Translation TranslationConfig       `mapstructure:"translation"`
	Persistence PersistenceConfig       `mapstructure:"persistence"`
	Delivery    DeliveryConfig          `mapstructure:"delivery"`
	HTTP        HTTPConfig              `mapstructure:"http"`
	Workers     map[string]WorkerConfig `mapstructure:"workers"`
	Logging     LoggingConfig           `mapstructure:"logging"`
	Tracing     TracingConfig           `mapstructure:"tracing"`
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
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"`
}

// GetURL returns the URL field or the first address.
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
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
	Timeout       int  `mapstructure:"timeout"` // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"`
}

// --- Pipeline Configuration Sections ---

// CatalogConfig locates the question, blueprint, template, output and
// research catalogs.
type CatalogConfig struct {
	Dir      string `mapstructure:"dir"`
	Watch    bool   `mapstructure:"watch"`
	CacheTTL int    `mapstructure:"cache_ttl"` // milliseconds, 0 keeps entries until invalidated
	// AllowEdits mounts the HTTP routes that override questions and
	// template bodies in memory.
	AllowEdits bool `mapstructure:"allow_edits"`
}

type BreakerConfig struct {
	MaxRequests      uint32  `mapstructure:"max_requests"`
	Interval         int     `mapstructure:"interval"` // milliseconds
	Timeout          int     `mapstructure:"timeout"`  // milliseconds
	FailureThreshold float64 `mapstructure:"failure_threshold"`
	MinRequests      uint32  `mapstructure:"min_requests"`
}

// AnalysisConfig configures the external viability analysis service.
type AnalysisConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    int           `mapstructure:"timeout"` // milliseconds
	MaxRetries int           `mapstructure:"max_retries"`
	Breaker    BreakerConfig `mapstructure:"breaker"`
}

type TranslationConfig struct {
	Provider string        `mapstructure:"provider"`  // stub | http
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  int           `mapstructure:"timeout"`   // milliseconds
	Cache    string        `mapstructure:"cache"`     // memory | redis
	CacheTTL int           `mapstructure:"cache_ttl"` // milliseconds, redis only
	Breaker  BreakerConfig `mapstructure:"breaker"`
}

// PersistenceConfig selects the session blob store.
type PersistenceConfig struct {
	Backend   string `mapstructure:"backend"` // memory | redis | postgres
	KeyPrefix string `mapstructure:"key_prefix"`
	TTL       int    `mapstructure:"ttl"` // milliseconds, redis only
}

type DeliveryConfig struct {
	Region       string `mapstructure:"region"`
	Index        string `mapstructure:"index"`
	IndexEnabled bool   `mapstructure:"index_enabled"`
	SNSEnabled   bool   `mapstructure:"sns_enabled"`
	SNSTopicARN  string `mapstructure:"sns_topic_arn"`
	SESEnabled   bool   `mapstructure:"ses_enabled"`
	FromEmail    string `mapstructure:"from_email"`
}

type HTTPConfig struct {
	Address        string   `mapstructure:"address"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	RequestTimeout int      `mapstructure:"request_timeout"` // milliseconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}
