// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Dataset, Ranking, Review, Redis, Kafka, Postgres, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Dataset   DatasetConfig   `yaml:"dataset"`
	Ranking   RankingConfig   `yaml:"ranking"`
	Review    ReviewConfig    `yaml:"review"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings. RateLimit is requests per minute
// per client IP; zero disables limiting. An empty CORSOrigins disables CORS.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	RateLimit       int           `yaml:"rateLimit"`
	CORSOrigins     []string      `yaml:"corsOrigins"`
}

// Dataset sources understood by DatasetConfig.Source.
const (
	SourceJSON     = "json"
	SourcePostgres = "postgres"
	SourceSQLite   = "sqlite"
)

// DatasetConfig selects where occupation records are loaded from. Path is a
// JSON file for the json source and a database file for sqlite.
type DatasetConfig struct {
	Source string `yaml:"source"`
	Path   string `yaml:"path"`
}

// Scoring modes understood by RankingConfig.ScoringMode.
const (
	ScoringRaw = "raw"
	ScoringIDF = "idf"
)

// Tokenizers understood by RankingConfig.Tokenizer.
const (
	TokenizerWords  = "words"
	TokenizerSkills = "skills"
)

// ResultCap bounds both ranking.maxResults and ranking.topItems.
const ResultCap = 10

// RankingConfig controls index construction and query ranking.
type RankingConfig struct {
	DefaultImportance float64 `yaml:"defaultImportance"`
	MinDF             int     `yaml:"minDF"`
	MaxDFRatio        float64 `yaml:"maxDFRatio"`
	ScoringMode       string  `yaml:"scoringMode"`
	Tokenizer         string  `yaml:"tokenizer"`
	MaxResults        int     `yaml:"maxResults"`
	TopItems          int     `yaml:"topItems"`
}

// Validate reports the first nonsensical ranking setting.
func (r RankingConfig) Validate() error {
	if r.DefaultImportance < 0 {
		return fmt.Errorf("ranking.defaultImportance must be >= 0, got %v", r.DefaultImportance)
	}
	if r.MinDF < 0 {
		return fmt.Errorf("ranking.minDF must be >= 0, got %d", r.MinDF)
	}
	if r.MaxDFRatio <= 0 || r.MaxDFRatio > 1 {
		return fmt.Errorf("ranking.maxDFRatio must be in (0, 1], got %v", r.MaxDFRatio)
	}
	switch r.ScoringMode {
	case ScoringRaw, ScoringIDF:
	default:
		return fmt.Errorf("ranking.scoringMode must be %q or %q, got %q", ScoringRaw, ScoringIDF, r.ScoringMode)
	}
	switch r.Tokenizer {
	case TokenizerWords, TokenizerSkills:
	default:
		return fmt.Errorf("ranking.tokenizer must be %q or %q, got %q", TokenizerWords, TokenizerSkills, r.Tokenizer)
	}
	if r.MaxResults < 1 || r.MaxResults > ResultCap {
		return fmt.Errorf("ranking.maxResults must be in [1, %d], got %d", ResultCap, r.MaxResults)
	}
	if r.TopItems < 1 || r.TopItems > ResultCap {
		return fmt.Errorf("ranking.topItems must be in [1, %d], got %d", ResultCap, r.TopItems)
	}
	return nil
}

// ReviewConfig controls the best-effort employer review lookup attached to
// search results. StaticPath, when set, takes precedence over BaseURL.
type ReviewConfig struct {
	Enabled     bool          `yaml:"enabled"`
	BaseURL     string        `yaml:"baseUrl"`
	StaticPath  string        `yaml:"staticPath"`
	Timeout     time.Duration `yaml:"timeout"`
	Concurrency int           `yaml:"concurrency"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings. An empty broker list
// disables analytics publishing.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	AnalyticsEvents string `yaml:"analyticsEvents"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// Snapshot stores understood by AnalyticsConfig.SnapshotStore.
const (
	SnapshotNone     = "none"
	SnapshotSQLite   = "sqlite"
	SnapshotPostgres = "postgres"
)

// AnalyticsConfig controls search event collection. Events go to Kafka when
// brokers are configured and straight to the in-process aggregator otherwise.
type AnalyticsConfig struct {
	Enabled          bool          `yaml:"enabled"`
	BufferSize       int           `yaml:"bufferSize"`
	BatchSize        int           `yaml:"batchSize"`
	FlushInterval    time.Duration `yaml:"flushInterval"`
	SnapshotStore    string        `yaml:"snapshotStore"`
	SnapshotPath     string        `yaml:"snapshotPath"`
	SnapshotInterval time.Duration `yaml:"snapshotInterval"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Ranking.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Default returns the built-in configuration without reading any file or
// environment variable.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Dataset: DatasetConfig{
			Source: SourceJSON,
			Path:   "data/onet.json",
		},
		Ranking: RankingConfig{
			DefaultImportance: 75,
			MinDF:             10,
			MaxDFRatio:        0.95,
			ScoringMode:       ScoringRaw,
			Tokenizer:         TokenizerWords,
			MaxResults:        10,
			TopItems:          10,
		},
		Review: ReviewConfig{
			Enabled:     false,
			Timeout:     2 * time.Second,
			Concurrency: 4,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "occupations",
			User:            "occupations",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			ConsumerGroup: "occupation-search",
			Topics: KafkaTopics{
				AnalyticsEvents: "occupation-search-events",
			},
		},
		Redis: RedisConfig{
			Enabled:  false,
			Addr:     "localhost:6379",
			DB:       0,
			PoolSize: 10,
			CacheTTL: 5 * time.Minute,
		},
		Analytics: AnalyticsConfig{
			Enabled:          true,
			BufferSize:       10000,
			BatchSize:        100,
			FlushInterval:    2 * time.Second,
			SnapshotStore:    SnapshotNone,
			SnapshotPath:     "data/analytics.db",
			SnapshotInterval: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads OS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("OS_SERVER_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.RateLimit = n
		}
	}
	if v := os.Getenv("OS_SERVER_CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("OS_DATASET_SOURCE"); v != "" {
		cfg.Dataset.Source = v
	}
	if v := os.Getenv("OS_DATASET_PATH"); v != "" {
		cfg.Dataset.Path = v
	}
	if v := os.Getenv("OS_RANKING_SCORING_MODE"); v != "" {
		cfg.Ranking.ScoringMode = v
	}
	if v := os.Getenv("OS_RANKING_TOKENIZER"); v != "" {
		cfg.Ranking.Tokenizer = v
	}
	if v := os.Getenv("OS_RANKING_MIN_DF"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Ranking.MinDF = n
		}
	}
	if v := os.Getenv("OS_RANKING_MAX_DF_RATIO"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Ranking.MaxDFRatio = f
		}
	}
	if v := os.Getenv("OS_REVIEW_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Review.Enabled = b
		}
	}
	if v := os.Getenv("OS_REVIEW_BASE_URL"); v != "" {
		cfg.Review.BaseURL = v
	}
	if v := os.Getenv("OS_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("OS_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("OS_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("OS_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("OS_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("OS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("OS_REDIS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Redis.Enabled = b
		}
	}
	if v := os.Getenv("OS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("OS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("OS_ANALYTICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Analytics.Enabled = b
		}
	}
	if v := os.Getenv("OS_ANALYTICS_SNAPSHOT_STORE"); v != "" {
		cfg.Analytics.SnapshotStore = v
	}
	if v := os.Getenv("OS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("OS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
