package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Storage  StorageConfig
	Schedule ScheduleConfig
	App      AppConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	// DSN overrides the discrete fields when set.
	DSN      string
	MaxConns int
	MinConns int
	// TablePrefix starts every result table name, followed by plant and use case.
	TablePrefix string
	// WriteRate limits retry rounds of the result writer per second.
	WriteRate float64
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	RunTTL   time.Duration
}

type StorageConfig struct {
	Region   string
	Endpoint string
	Bucket   string
	// EngineeringPath and ArchivePath are the default key prefixes of the exports.
	EngineeringPath string
	ArchivePath     string
	CacheSize       int
}

type ScheduleConfig struct {
	Cron   string
	Plants []string
}

type AppConfig struct {
	Environment string
	LogLevel    string
	Version     string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Database: DatabaseConfig{
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        getEnvAsInt("DB_PORT", 5432),
			User:        getEnv("DB_USER", "postgres"),
			Password:    getEnv("DB_PASSWORD", ""),
			Name:        getEnv("DB_NAME", "alarm_reasons"),
			DSN:         getEnv("DB_DSN", ""),
			TablePrefix: getEnv("TABLE_PREFIX", "dls"),
			WriteRate:   getEnvAsFloat("WRITE_RATE", 5),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			RunTTL:   getEnvAsDuration("RUN_TTL", 7*24*time.Hour),
		},
		Storage: StorageConfig{
			Region:          getEnv("AWS_REGION", "eu-central-1"),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			Bucket:          getEnv("S3_BUCKET", ""),
			EngineeringPath: getEnv("ENG_PATH", ""),
			ArchivePath:     getEnv("ARC_PATH", ""),
			CacheSize:       getEnvAsInt("ENG_CACHE_SIZE", 16),
		},
		Schedule: ScheduleConfig{
			Cron:   getEnv("SCHEDULE_CRON", "0 30 2 * * *"),
			Plants: getEnvAsList("SCHEDULE_PLANTS"),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.Database.Host == "" && c.Database.DSN == "" {
		return fmt.Errorf("DB_HOST or DB_DSN is required")
	}

	if c.Database.TablePrefix == "" {
		return fmt.Errorf("TABLE_PREFIX is required")
	}

	if c.Database.WriteRate <= 0 {
		return fmt.Errorf("WRITE_RATE must be positive")
	}

	if c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("DB_MIN_CONNS must not exceed DB_MAX_CONNS")
	}

	if c.Storage.CacheSize <= 0 {
		return fmt.Errorf("ENG_CACHE_SIZE must be positive")
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
		log.Printf("Warning: Invalid number for %s, using default: %g", key, defaultValue)
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

// getEnvAsList splits a comma separated variable, dropping empty entries.
func getEnvAsList(key string) []string {
	var out []string
	for _, s := range strings.Split(os.Getenv(key), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
