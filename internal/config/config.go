package config

import (
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all the environment-based configurations.
type Config struct {
	Host               string
	Port               string
	Banner             string
	BannerTimeout      time.Duration
	ReadTimeout        time.Duration
	MaxLine            int
	MaxSessions        int
	MaxAttempts        int
	MaxCommands        int
	AllowedCredentials []string
	LogFilePath        string
	LogLevel           string
	SessionLogPath     string
	RedisAddr          string
	RedisPass          string
	RedisDB            int
	RedisTTL           time.Duration
	RadiusAcctAddr     string
	RadiusSecret       string
	MetricsAddr        string
}

// Load reads the configuration from environment variables.
func Load() Config {
	return Config{
		Host:               getEnv("HONEYPOT_HOST", "0.0.0.0"),
		Port:               getEnv("HONEYPOT_PORT", "22"),
		Banner:             getEnv("HONEYPOT_BANNER", "SSH-2.0-OpenSSH_8.2p1 Ubuntu-4ubuntu0.11"),
		BannerTimeout:      getEnvDuration("HONEYPOT_BANNER_TIMEOUT", 5*time.Second),
		ReadTimeout:        getEnvDuration("HONEYPOT_READ_TIMEOUT", 60*time.Second),
		MaxLine:            getEnvInt("HONEYPOT_MAX_LINE", 1024),
		MaxSessions:        getEnvInt("HONEYPOT_MAX_SESSIONS", 200),
		MaxAttempts:        getEnvInt("HONEYPOT_MAX_ATTEMPTS", 2),
		MaxCommands:        getEnvInt("HONEYPOT_MAX_COMMANDS", 50),
		AllowedCredentials: getEnvList("HONEYPOT_ALLOWED_CREDENTIALS"),
		LogFilePath:        getEnv("LOG_FILE_PATH", "/app/logs/honeypot.log"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		SessionLogPath:     getEnv("SESSION_LOG_PATH", "/app/logs/sessions.jsonl"),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisPass:          getEnv("REDIS_PASSWORD", ""),
		RedisDB:            getEnvInt("REDIS_DB", 0),
		RedisTTL:           getEnvDuration("REDIS_TTL", 7*24*time.Hour),
		RadiusAcctAddr:     getEnv("RADIUS_ACCT_ADDR", ""),
		RadiusSecret:       getEnv("RADIUS_SECRET", "testing123"),
		MetricsAddr:        getEnv("METRICS_ADDR", ""),
	}
}

// ListenAddr returns the host:port the honeypot binds to.
func (c Config) ListenAddr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n < 0 {
		return defaultVal
	}
	return n
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

// getEnvList splits a comma separated variable, dropping empty items.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
