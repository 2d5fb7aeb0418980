package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/classifier"
	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/service"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	AlertStore AlertStoreConfig
	Redis      RedisConfig
	Neo4j      Neo4jConfig
	App        AppConfig
	Engine     EngineConfig
}

type ServerConfig struct {
	Port           string
	RateLimitRPS   float64
	RateLimitBurst int
	CORSOrigins    []string
}

// DatabaseConfig points at the Postgres instance holding facilities and
// financials. DSN, when set, wins over the individual fields.
type DatabaseConfig struct {
	DSN      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int
	MinConns int
}

// Enabled reports whether a database is configured at all.
func (d DatabaseConfig) Enabled() bool {
	return d.DSN != "" || d.Host != ""
}

const (
	AlertDriverNone     = "none"
	AlertDriverPostgres = "postgres"
	AlertDriverSQLite   = "sqlite"
)

type AlertStoreConfig struct {
	Driver     string
	SQLitePath string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

type Neo4jConfig struct {
	URI      string
	User     string
	Password string
	Database string
}

type AppConfig struct {
	Environment string
	LogLevel    string
	Version     string
}

// EngineConfig carries the analysis parameters plus where runs go and when
// the scheduler fires.
type EngineConfig struct {
	service.Config
	ConfigFile string
	OutDir     string
	DotBin     string
	Schedule   string
	Seed       int64
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			RateLimitRPS:   getEnvAsFloat("ANALYZE_RATE_LIMIT_RPS", 1),
			RateLimitBurst: getEnvAsInt("ANALYZE_RATE_LIMIT_BURST", 3),
			CORSOrigins:    getEnvAsList("CORS_ALLOW_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			DSN:      getEnv("DB_DSN", ""),
			Host:     getEnv("DB_HOST", ""),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "facilities"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns: getEnvAsInt("DB_MIN_CONNS", 2),
		},
		AlertStore: AlertStoreConfig{
			Driver:     strings.ToLower(getEnv("ALERT_STORE", AlertDriverNone)),
			SQLitePath: getEnv("ALERT_SQLITE_PATH", "out/alerts.db"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			TTL:      getEnvAsDuration("REPORT_CACHE_TTL", 7*24*time.Hour),
		},
		Neo4j: Neo4jConfig{
			URI:      getEnv("NEO4J_URI", ""),
			User:     getEnv("NEO4J_USER", "neo4j"),
			Password: getEnv("NEO4J_PASSWORD", ""),
			Database: getEnv("NEO4J_DATABASE", ""),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
	}

	engine, err := LoadEngine(getEnv("ENGINE_CONFIG", ""))
	if err != nil {
		return nil, err
	}
	cfg.Engine = engine

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadEngine starts from the built-in defaults, applies the optional YAML or
// TOML file at path and then the environment overrides.
func LoadEngine(path string) (EngineConfig, error) {
	e := EngineConfig{
		Config:     service.DefaultConfig(),
		ConfigFile: path,
	}

	if path != "" {
		if err := decodeFile(path, &e.Config); err != nil {
			return e, fmt.Errorf("engine config %s: %w", path, err)
		}
	}

	e.Ensemble.MinVotes = getEnvAsInt("ENSEMBLE_MIN_VOTES", e.Ensemble.MinVotes)
	e.Ensemble.Contamination = getEnvAsFloat("ENSEMBLE_CONTAMINATION", e.Ensemble.Contamination)
	e.Outlier.ZThreshold = getEnvAsFloat("OUTLIER_Z_THRESHOLD", e.Outlier.ZThreshold)
	e.Outlier.IQRMultiplier = getEnvAsFloat("OUTLIER_IQR_MULTIPLIER", e.Outlier.IQRMultiplier)
	e.Outlier.Margins.Upper = getEnvAsFloat("MARGIN_UPPER", e.Outlier.Margins.Upper)
	e.Outlier.Margins.Lower = getEnvAsFloat("MARGIN_LOWER", e.Outlier.Margins.Lower)
	e.ClusterExport = getEnvAsInt("CLUSTER_EXPORT_TOP", e.ClusterExport)
	e.ReportClusters = getEnvAsInt("REPORT_CLUSTERS_TOP", e.ReportClusters)
	e.AlertsPerType = getEnvAsInt("ALERTS_PER_TYPE", e.AlertsPerType)

	e.Seed = int64(getEnvAsInt("ENGINE_SEED", int(e.Detection.Seed)))
	e.SetSeed(e.Seed)

	e.OutDir = getEnv("OUT_DIR", "out")
	e.DotBin = getEnv("DOT_BIN", "")
	e.Schedule = getEnv("ENGINE_SCHEDULE", "0 2 * * *")
	return e, nil
}

func decodeFile(path string, into *service.Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(b, into)
	case ".toml":
		return toml.Unmarshal(b, into)
	default:
		return fmt.Errorf("unsupported format %q", filepath.Ext(path))
	}
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	switch c.AlertStore.Driver {
	case AlertDriverNone, AlertDriverSQLite:
	case AlertDriverPostgres:
		if !c.Database.Enabled() {
			return fmt.Errorf("ALERT_STORE=postgres requires DB_DSN or DB_HOST")
		}
	default:
		return fmt.Errorf("ALERT_STORE must be one of none, postgres, sqlite; got %q", c.AlertStore.Driver)
	}

	e := c.Engine
	if e.Ensemble.Contamination <= 0 || e.Ensemble.Contamination > 0.5 {
		return fmt.Errorf("ENSEMBLE_CONTAMINATION must be in (0, 0.5], got %v", e.Ensemble.Contamination)
	}
	if e.Ensemble.MinVotes < 1 {
		return fmt.Errorf("ENSEMBLE_MIN_VOTES must be at least 1, got %d", e.Ensemble.MinVotes)
	}
	if e.Ensemble.MinVotes > len(e.Detectors) {
		return fmt.Errorf("ENSEMBLE_MIN_VOTES %d exceeds the %d configured detectors", e.Ensemble.MinVotes, len(e.Detectors))
	}
	if e.Outlier.ZThreshold <= 0 {
		return fmt.Errorf("OUTLIER_Z_THRESHOLD must be positive")
	}
	if e.Outlier.Margins.Lower >= e.Outlier.Margins.Upper {
		return fmt.Errorf("MARGIN_LOWER must be below MARGIN_UPPER")
	}
	if ts := e.Classifier.TestSize; ts <= 0 || ts >= 1 {
		return fmt.Errorf("classifier test size must be in (0, 1), got %v", ts)
	}
	for _, m := range e.Classifier.Models {
		if m != classifier.GrowDepthwise && m != classifier.GrowLeafwise {
			return fmt.Errorf("classifier model must be depthwise or leafwise, got %q", m)
		}
	}
	if e.Outlier.IQRMultiplier <= 0 {
		return fmt.Errorf("OUTLIER_IQR_MULTIPLIER must be positive")
	}

	return nil
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
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
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
		log.Printf("Warning: Invalid number for %s, using default: %v", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid duration for %s, using default: %s", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
