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

const (
	BackendFile = "file"
	BackendSQL  = "sql"
)

// Config keeps runtime settings for the bot.
type Config struct {
	TelegramToken   string
	AdminUserID     int64
	ReportChannel   string
	SponsorChannels []string

	StorageBackend string
	UsersCSV       string
	ChannelsFile   string
	DatabaseURL    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	LocalesFile    string
	DownloadDir    string
	BroadcastDelay time.Duration
	ReportDailyAt  string
	MetricsAddr    string
}

// Load reads configuration from environment variables, after loading an
// optional .env file from the working directory.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[warn] load .env: %v", err)
	}

	cfg := Config{
		TelegramToken:   firstEnv("BOT_TOKEN", "TELEGRAM_TOKEN"),
		AdminUserID:     parseAdminID(env("ADMIN_USER_ID")),
		ReportChannel:   env("REPORT_CHANNEL_ID"),
		SponsorChannels: splitList(firstEnv("SPONSOR_CHANNELS", "CHANNEL_ID", "CHANNEL_USERNAME")),
		StorageBackend:  strings.ToLower(env("STORAGE_BACKEND")),
		UsersCSV:        env("USERS_CSV"),
		ChannelsFile:    env("CHANNELS_FILE"),
		DatabaseURL:     env("DATABASE_URL"),
		RedisAddr:       env("REDIS_ADDR"),
		RedisPassword:   env("REDIS_PASSWORD"),
		RedisDB:         parseInt("REDIS_DB", env("REDIS_DB")),
		LocalesFile:     env("LOCALES_FILE"),
		DownloadDir:     env("DOWNLOAD_DIR"),
		BroadcastDelay:  parseDelay(env("BROADCAST_DELAY")),
		ReportDailyAt:   env("REPORT_DAILY_AT"),
		MetricsAddr:     env("METRICS_ADDR"),
	}

	if cfg.StorageBackend == "" {
		cfg.StorageBackend = BackendFile
	}
	if cfg.UsersCSV == "" {
		cfg.UsersCSV = "users.csv"
	}
	if cfg.ChannelsFile == "" {
		cfg.ChannelsFile = "channels.json"
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "scdl_bot.db"
	}

	if cfg.TelegramToken == "" {
		return cfg, fmt.Errorf("BOT_TOKEN is required")
	}
	if cfg.StorageBackend != BackendFile && cfg.StorageBackend != BackendSQL {
		return cfg, fmt.Errorf("STORAGE_BACKEND must be %q or %q, got %q", BackendFile, BackendSQL, cfg.StorageBackend)
	}

	return cfg, nil
}

// IsAdmin reports whether userID is the configured administrator.
func (c *Config) IsAdmin(userID int64) bool {
	return c.AdminUserID != 0 && userID == c.AdminUserID
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := env(key); v != "" {
			return v
		}
	}
	return ""
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseAdminID(raw string) int64 {
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.Printf("[warn] ADMIN_USER_ID %q is not a valid integer, ignoring", raw)
		return 0
	}
	return id
}

func parseInt(key, raw string) int {
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("[warn] %s %q is not a valid integer, ignoring", key, raw)
		return 0
	}
	return n
}

// parseDelay accepts a Go duration ("50ms") or plain milliseconds ("50").
func parseDelay(raw string) time.Duration {
	const fallback = 50 * time.Millisecond
	if raw == "" {
		return fallback
	}
	if ms, err := strconv.Atoi(raw); err == nil && ms >= 0 {
		return time.Duration(ms) * time.Millisecond
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		log.Printf("[warn] BROADCAST_DELAY %q is invalid, using %s", raw, fallback)
		return fallback
	}
	return d
}
