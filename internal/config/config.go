package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Bind              string
	WebServiceURL     string
	DatabaseURL       string
	CertDir           string
	PassesDir         string
	KeyPassphraseFile string
	WWDRCertFile      string
	APNsProduction    bool
	PushQueueURL      string
	PushTimeout       time.Duration
	AdminJWTSecret    string
	EnableSwagger     bool
	LogLevel          string
	LogFormat         string
	Redis             RedisConfig
	RateLimit         RateLimitConfig
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envBool(k string, d bool) bool {
	switch strings.ToLower(os.Getenv(k)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil && dur > 0 {
		return dur
	}
	return d
}

// Load reads the process environment, after merging variables from a .env
// file in the working directory when one exists.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Bind:              getenv("BIND", ":8080"),
		WebServiceURL:     strings.TrimRight(getenv("WEB_SERVICE_URL", "https://api.haweb.org/passkit"), "/"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		CertDir:           getenv("CERT_DIR", "certs"),
		PassesDir:         getenv("PASSES_DIR", "passes"),
		KeyPassphraseFile: os.Getenv("KEY_PASSPHRASE_FILE"),
		WWDRCertFile:      os.Getenv("WWDR_CERT_FILE"),
		APNsProduction:    envBool("APNS_PRODUCTION", true),
		PushQueueURL:      os.Getenv("PUSH_QUEUE_URL"),
		PushTimeout:       envDur("PUSH_TIMEOUT", 30*time.Second),
		AdminJWTSecret:    os.Getenv("ADMIN_JWT_SECRET"),
		EnableSwagger:     envBool("ENABLE_SWAGGER", false),
		LogLevel:          getenv("LOG_LEVEL", "info"),
		LogFormat:         getenv("LOG_FORMAT", "text"),
		Redis:             LoadRedisConfig(),
		RateLimit:         LoadRateLimitConfig(),
	}
	return cfg
}

// Log writes a one-line summary without secrets.
func (c Config) Log() {
	logrus.WithFields(logrus.Fields{
		"bind":            c.Bind,
		"web_service_url": c.WebServiceURL,
		"store":           c.storeKind(),
		"cert_dir":        c.CertDir,
		"passes_dir":      c.PassesDir,
		"apns_production": c.APNsProduction,
		"push_queue":      c.PushQueueURL != "",
		"redis":           c.Redis.Addr != "",
		"admin_auth":      c.AdminJWTSecret != "",
		"swagger":         c.EnableSwagger,
	}).Info("config loaded")
}

func (c Config) storeKind() string {
	if c.DatabaseURL == "" {
		return "memory"
	}
	return "postgres"
}

// KeyPassphrase returns the private key passphrase stored in
// KeyPassphraseFile with line breaks removed, or "" when no file is set.
func (c Config) KeyPassphrase() (string, error) {
	if c.KeyPassphraseFile == "" {
		return "", nil
	}
	b, err := os.ReadFile(c.KeyPassphraseFile)
	if err != nil {
		return "", fmt.Errorf("read passphrase file: %w", err)
	}
	return strings.NewReplacer("\r\n", "", "\n", "", "\r", "").Replace(string(b)), nil
}
