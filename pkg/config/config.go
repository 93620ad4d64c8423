// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Index, Analyzer, Search, Spell, Redis, Kafka, Postgres, etc.).
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
	Server   ServerConfig   `yaml:"server"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Index    IndexConfig    `yaml:"index"`
	Analyzer AnalyzerConfig `yaml:"analyzer"`
	Search   SearchConfig   `yaml:"search"`
	Spell    SpellConfig    `yaml:"spell"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings for the search API.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// PostgresConfig holds PostgreSQL connection parameters. It is only used when
// documents are read from a database instead of the filesystem.
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
	DocumentsQuery  string        `yaml:"documentsQuery"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings for analytics events.
type KafkaConfig struct {
	Enabled bool        `yaml:"enabled"`
	Brokers []string    `yaml:"brokers"`
	Topics  KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	SearchEvents string `yaml:"searchEvents"`
	BuildEvents  string `yaml:"buildEvents"`
}

// RedisConfig holds Redis connection and query-cache parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// IndexConfig controls where generations live and how a build is run.
type IndexConfig struct {
	DataDir           string `yaml:"dataDir"`
	SourceRoot        string `yaml:"sourceRoot"`
	Source            string `yaml:"source"`
	Workers           int    `yaml:"workers"`
	RetainGenerations int    `yaml:"retainGenerations"`
}

// AnalyzerConfig selects the text analysis chain. It is persisted with every
// index generation so the query side analyzes text the same way.
type AnalyzerConfig struct {
	Stemmer        string `yaml:"stemmer" json:"stemmer"`
	StopWords      string `yaml:"stopWords" json:"stop_words"`
	FoldDiacritics bool   `yaml:"foldDiacritics" json:"fold_diacritics"`
	MinTokenLength int    `yaml:"minTokenLength" json:"min_token_length"`
}

// SearchConfig controls query parsing and result limits.
type SearchConfig struct {
	Field          string        `yaml:"field"`
	DefaultLimit   int           `yaml:"defaultLimit"`
	MaxResults     int           `yaml:"maxResults"`
	PhraseSlop     int           `yaml:"phraseSlop"`
	ReloadInterval time.Duration `yaml:"reloadInterval"`
}

// SpellConfig controls the spell-correction dictionary.
type SpellConfig struct {
	Enabled       bool    `yaml:"enabled"`
	GramSize      int     `yaml:"gramSize"`
	MinSimilarity float64 `yaml:"minSimilarity"`
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
	cfg := Default()
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
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Default returns a Config with defaults suitable for local development.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "docsearch",
			User:            "docsearch",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
			DocumentsQuery:  "SELECT path, body, updated_at FROM documents ORDER BY path",
		},
		Kafka: KafkaConfig{
			Brokers: []string{"localhost:9092"},
			Topics: KafkaTopics{
				SearchEvents: "search-events",
				BuildEvents:  "index-builds",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Index: IndexConfig{
			DataDir:           "data/index",
			SourceRoot:        "docs",
			Source:            "fs",
			Workers:           4,
			RetainGenerations: 2,
		},
		Analyzer: AnalyzerConfig{
			Stemmer:        "snowball",
			StopWords:      "english",
			FoldDiacritics: true,
			MinTokenLength: 1,
		},
		Search: SearchConfig{
			Field:        "contents",
			DefaultLimit: 10,
			MaxResults:   1000,
			PhraseSlop:   0,
		},
		Spell: SpellConfig{
			Enabled:       true,
			GramSize:      3,
			MinSimilarity: 0.5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
	}
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	var problems []string
	switch c.Analyzer.Stemmer {
	case "snowball", "light", "none":
	default:
		problems = append(problems, fmt.Sprintf("analyzer.stemmer %q is not one of snowball, light, none", c.Analyzer.Stemmer))
	}
	switch c.Analyzer.StopWords {
	case "english", "romanian", "none":
	default:
		problems = append(problems, fmt.Sprintf("analyzer.stopWords %q is not one of english, romanian, none", c.Analyzer.StopWords))
	}
	switch c.Index.Source {
	case "fs", "postgres":
	default:
		problems = append(problems, fmt.Sprintf("index.source %q is not one of fs, postgres", c.Index.Source))
	}
	if c.Index.DataDir == "" {
		problems = append(problems, "index.dataDir is required")
	}
	if c.Search.Field == "" {
		problems = append(problems, "search.field is required")
	}
	if c.Search.DefaultLimit < 1 || c.Search.MaxResults < 1 {
		problems = append(problems, "search.defaultLimit and search.maxResults must be positive")
	}
	if c.Search.PhraseSlop < 0 {
		problems = append(problems, "search.phraseSlop must not be negative")
	}
	if c.Spell.GramSize < 1 {
		problems = append(problems, "spell.gramSize must be at least 1")
	}
	if c.Spell.MinSimilarity < 0 || c.Spell.MinSimilarity > 1 {
		problems = append(problems, "spell.minSimilarity must be within [0, 1]")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

// applyEnvOverrides reads SP_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SP_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SP_INDEX_DATA_DIR"); v != "" {
		cfg.Index.DataDir = v
	}
	if v := os.Getenv("SP_INDEX_SOURCE_ROOT"); v != "" {
		cfg.Index.SourceRoot = v
	}
	if v := os.Getenv("SP_INDEX_SOURCE"); v != "" {
		cfg.Index.Source = v
	}
	if v := os.Getenv("SP_INDEX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Index.Workers = n
		}
	}
	if v := os.Getenv("SP_ANALYZER_STEMMER"); v != "" {
		cfg.Analyzer.Stemmer = v
	}
	if v := os.Getenv("SP_ANALYZER_STOPWORDS"); v != "" {
		cfg.Analyzer.StopWords = v
	}
	if v := os.Getenv("SP_SEARCH_PHRASE_SLOP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Search.PhraseSlop = n
		}
	}
	if v := os.Getenv("SP_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("SP_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("SP_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("SP_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("SP_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("SP_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
		cfg.Kafka.Enabled = true
	}
	if v := os.Getenv("SP_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("SP_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("SP_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SP_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
