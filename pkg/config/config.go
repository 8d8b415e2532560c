package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// All environment variables are read here and nowhere else.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Oracle (external synthesis LLM)
	Oracle OracleConfig

	// Pipeline tuning
	Pipeline PipelineConfig

	// Corroboration worker
	Corroboration CorroborationConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	URL      string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// OracleConfig holds the synthesis LLM configuration
type OracleConfig struct {
	APIKey        string
	Model         string
	MaxTokens     int
	Timeout       time.Duration
	MaxClusters   int     // clusters sent per synthesis call
	RatePerMinute float64 // request pacing
}

// PipelineConfig holds the tunable thresholds of the signal pipeline.
// Defaults are the empirically validated values; all of them can be
// overridden per deployment without a code change.
type PipelineConfig struct {
	CronSpec string

	// Post intake per cycle
	PostWindow time.Duration
	PostLimit  int

	// Convergence promotion (hysteresis)
	PromoteHigh        float64 // score at or above promotes immediately
	PromoteLow         float64 // score at or above keeps a candidate alive
	CandidateDwell     time.Duration
	ClusterStateTTL    time.Duration
	MinConvergence     float64 // below this a candidate is dropped outright

	// Novelty and dedup
	NoveltyTTL          time.Duration
	FingerprintTTL      time.Duration
	SimilarityThreshold float64
	MergeWindow         time.Duration

	// Scoring and gating
	MinConviction    float64
	ConvergenceAlert float64
	NoiseThreshold   float64
	QualityMin       float64
	GuardrailEnabled bool

	// Evidence
	MinIndependence float64

	// Bounded parallelism for evidence building
	EvidenceWorkers int
}

// CorroborationConfig holds corroboration worker configuration
type CorroborationConfig struct {
	BatchSize     int
	SearchWindow  time.Duration
	MaxAddSources int
	FetchEnabled  bool          // page-title probe via HTTP
	FetchTimeout  time.Duration
}

// Load reads configuration from environment variables.
// Only this function calls os.Getenv().
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8090"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			Name:            getEnv("DB_NAME", "sift"),
			User:            getEnv("DB_USER", "sift"),
			Password:        getEnv("DB_PASSWORD", ""),
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
		},

		// Oracle
		Oracle: OracleConfig{
			APIKey:        getEnv("ANTHROPIC_API_KEY", ""),
			Model:         getEnv("ORACLE_MODEL", "claude-sonnet-4-20250514"),
			MaxTokens:     getEnvAsInt("ORACLE_MAX_TOKENS", 8192),
			Timeout:       getEnvAsDuration("ORACLE_TIMEOUT", "120s"),
			MaxClusters:   getEnvAsInt("ORACLE_MAX_CLUSTERS", 12),
			RatePerMinute: getEnvAsFloat("ORACLE_RATE_PER_MINUTE", 10),
		},

		// Pipeline
		Pipeline: PipelineConfig{
			CronSpec:            getEnv("PIPELINE_CRON", "0 */5 * * * *"),
			PostWindow:          getEnvAsDuration("POST_WINDOW", "30m"),
			PostLimit:           getEnvAsInt("POST_LIMIT", 2000),
			PromoteHigh:         getEnvAsFloat("CONVERGENCE_PROMOTE_HIGH", 0.30),
			PromoteLow:          getEnvAsFloat("CONVERGENCE_PROMOTE_LOW", 0.25),
			CandidateDwell:      getEnvAsDuration("CANDIDATE_DWELL", "30m"),
			ClusterStateTTL:     getEnvAsDuration("CLUSTER_STATE_TTL", "2h"),
			MinConvergence:      getEnvAsFloat("MIN_CONVERGENCE", 0.2),
			NoveltyTTL:          getEnvAsDuration("NOVELTY_TTL", "8h"),
			FingerprintTTL:      getEnvAsDuration("FINGERPRINT_TTL", "1h"),
			SimilarityThreshold: getEnvAsFloat("SIMILARITY_THRESHOLD", 0.60),
			MergeWindow:         getEnvAsDuration("MERGE_WINDOW", "8h"),
			MinConviction:       getEnvAsFloat("MIN_CONVICTION", 0.40),
			ConvergenceAlert:    getEnvAsFloat("CONVERGENCE_ALERT", 0.70),
			NoiseThreshold:      getEnvAsFloat("NOISE_THRESHOLD", 35),
			QualityMin:          getEnvAsFloat("QUALITY_MIN", 30),
			GuardrailEnabled:    getEnvAsBool("GUARDRAIL_ENABLED", true),
			MinIndependence:     getEnvAsFloat("MIN_INDEPENDENCE", 0.45),
			EvidenceWorkers:     getEnvAsInt("EVIDENCE_WORKERS", 4),
		},

		// Corroboration
		Corroboration: CorroborationConfig{
			BatchSize:     getEnvAsInt("CORROBORATION_BATCH", 50),
			SearchWindow:  getEnvAsDuration("CORROBORATION_WINDOW", "72h"),
			MaxAddSources: getEnvAsInt("CORROBORATION_MAX_SOURCES", 5),
			FetchEnabled:  getEnvAsBool("CORROBORATION_FETCH_ENABLED", false),
			FetchTimeout:  getEnvAsDuration("CORROBORATION_FETCH_TIMEOUT", "10s"),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks required values and repairs inconsistent thresholds
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	// A low threshold at or above the high threshold would make hysteresis
	// degenerate. Repair instead of failing so a bad override cannot take
	// the pipeline down.
	if c.Pipeline.PromoteLow >= c.Pipeline.PromoteHigh {
		c.Pipeline.PromoteLow = c.Pipeline.PromoteHigh - 0.05
		if c.Pipeline.PromoteLow < 0 {
			c.Pipeline.PromoteLow = 0
		}
	}

	if c.Pipeline.SimilarityThreshold <= 0 || c.Pipeline.SimilarityThreshold > 1 {
		return fmt.Errorf("SIMILARITY_THRESHOLD must be in (0, 1]")
	}

	if c.Pipeline.EvidenceWorkers < 1 {
		c.Pipeline.EvidenceWorkers = 1
	}

	if c.Pipeline.PostLimit < 1 {
		c.Pipeline.PostLimit = 2000
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
			filepath.Join(exeDir, "..", "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
