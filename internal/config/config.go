// Package config reads process settings from the environment, after loading
// any local .env files.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	Port           string
	LogLevel       string
	DatabaseURL    string
	MigrationsPath string
	ThinkDelay     time.Duration

	DefaultPatientID     string
	AnalyticsSeed        uint64
	AnalyticsMaxSessions int64

	STTURL     string
	TTSURL     string
	TTSSpeaker string

	TelegramToken  string
	CareTeamChatID int64
	ReportFontPath string
}

// LoadEnv loads .env then .env.local, later files overriding earlier ones.
// Missing files are not an error.
func LoadEnv(logger *zap.Logger) []string {
	var loaded []string
	for _, file := range []string{".env", ".env.local"} {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Overload(file); err != nil {
			if logger != nil {
				logger.Warn("failed to load env file", zap.String("file", file), zap.Error(err))
			}
			continue
		}
		loaded = append(loaded, file)
	}
	if logger != nil && len(loaded) > 0 {
		logger.Debug("loaded env files", zap.Strings("files", loaded))
	}
	return loaded
}

func Load() Config {
	return Config{
		Port:           GetEnv("PORT", "8080"),
		LogLevel:       GetEnv("LOG_LEVEL", "info"),
		DatabaseURL:    GetEnv("DATABASE_URL", ""),
		MigrationsPath: GetEnv("MIGRATIONS_PATH", "file://migrations"),
		ThinkDelay:     GetEnvDuration("THINK_DELAY", 2*time.Second),

		DefaultPatientID:     GetEnv("DEFAULT_PATIENT_ID", ""),
		AnalyticsSeed:        uint64(GetEnvInt("ANALYTICS_SEED", 0)),
		AnalyticsMaxSessions: int64(GetEnvInt("ANALYTICS_MAX_SESSIONS", 1000)),

		STTURL:     GetEnv("STT_URL", ""),
		TTSURL:     GetEnv("TTS_URL", ""),
		TTSSpeaker: GetEnv("TTS_SPEAKER", ""),

		TelegramToken:  GetEnv("TELEGRAM_BOT_TOKEN", ""),
		CareTeamChatID: GetEnvInt64("CARE_TEAM_CHAT_ID", 0),
		ReportFontPath: GetEnv("REPORT_FONT_PATH", ""),
	}
}

// FontPaths returns the configured font first, if any.
func (c Config) FontPaths(defaults []string) []string {
	if c.ReportFontPath == "" {
		return defaults
	}
	return append([]string{c.ReportFontPath}, defaults...)
}

func GetEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func GetEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func GetEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetEnvDuration accepts Go durations ("1500ms") or bare seconds ("2").
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return defaultValue
}
