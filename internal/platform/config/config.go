package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Config struct {
	APIPort     string
	JWTKey      []byte
	JWTExp      time.Duration
	AdminSecret string

	StorageDriver string
	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string
	DBSslMode     string
	DBConnStr     string

	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	RoundLockTTL     time.Duration
	RoundLockKeyBase string

	JudgeBaseURL        string
	JudgeAPIKey         string
	JudgeTimeout        time.Duration
	JudgeMaxConcurrency int

	SettingsCacheTTL               time.Duration
	DefaultRotationIntervalSeconds int
	DefaultEventDurationSeconds    int
	ServerTimersEnabled            bool

	LogLevel           string
	LogFormat          string
	CORSAllowedOrigins []string
}

// Load reads the process environment (and .env when present) into a Config.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("no .env file found, relying on environment variables")
	}

	cfg := &Config{
		APIPort:     getEnv("API_PORT", "8080"),
		JWTKey:      []byte(getEnv("JWT_SECRET", "defaultsecret")),
		JWTExp:      time.Duration(getEnvAsInt("JWT_EXPIRATION_HOURS", 12)) * time.Hour,
		AdminSecret: getEnv("ADMIN_SECRET", ""),

		StorageDriver: getEnv("STORAGE_DRIVER", StorageDriverPostgres),
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        getEnv("DB_PORT", "5432"),
		DBUser:        getEnv("DB_USER", "user"),
		DBPassword:    getEnv("DB_PASSWORD", "password"),
		DBName:        getEnv("DB_NAME", "shuffle_arena"),
		DBSslMode:     getEnv("DB_SSLMODE", "disable"),

		RedisAddr:        getEnv("REDIS_ADDR", ""),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisDB:          getEnvAsInt("REDIS_DB", 0),
		RoundLockTTL:     time.Duration(getEnvAsInt("ROUND_LOCK_TTL_SECONDS", 30)) * time.Second,
		RoundLockKeyBase: getEnv("ROUND_LOCK_KEY", "round_deadline_lock"),

		JudgeBaseURL:        getEnv("JUDGE_BASE_URL", "http://localhost:2358"),
		JudgeAPIKey:         getEnv("JUDGE_API_KEY", ""),
		JudgeTimeout:        time.Duration(getEnvAsInt("JUDGE_TIMEOUT_SECONDS", 30)) * time.Second,
		JudgeMaxConcurrency: getEnvAsInt("JUDGE_MAX_CONCURRENCY", 8),

		SettingsCacheTTL:               time.Duration(getEnvAsInt("SETTINGS_CACHE_TTL_SECONDS", 5)) * time.Second,
		DefaultRotationIntervalSeconds: getEnvAsInt("DEFAULT_ROTATION_INTERVAL_SECONDS", 600),
		DefaultEventDurationSeconds:    getEnvAsInt("DEFAULT_EVENT_DURATION_SECONDS", 3600),
		ServerTimersEnabled:            getEnvAsBool("SERVER_TIMERS_ENABLED", true),

		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "json"),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
	}

	cfg.DBConnStr = "host=" + cfg.DBHost +
		" port=" + cfg.DBPort +
		" user=" + cfg.DBUser +
		" password=" + cfg.DBPassword +
		" dbname=" + cfg.DBName +
		" sslmode=" + cfg.DBSslMode

	return cfg
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsList(key string, fallback []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
