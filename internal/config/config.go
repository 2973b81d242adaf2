package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config captures runtime configuration sourced from environment variables.
type Config struct {
	Environment    string
	HTTPPort       string
	DatabasePath   string
	LogDir         string
	Debug          bool
	JWTSecret      string
	// TrustedProxies lists the proxy addresses or CIDRs whose forwarding
	// headers are honoured. Empty means the peer address is the client.
	TrustedProxies []string
	Bruteforce     BruteforceConfig
	Daemon         DaemonConfig
}

// BruteforceConfig holds the countermeasures applied to login and captcha forms.
// MaxAttemptsBeforeWait is expected to stay below both Max* values; nothing
// enforces it.
type BruteforceConfig struct {
	Enabled               bool
	MaxLogin              int
	MaxCaptcha            int
	WaitEnabled           bool
	MaxAttemptsBeforeWait int
	WaitSeconds           int
	BlockMinutes          int
	AlertURL              string
}

// DaemonConfig tells how to reach the backend provisioning daemon.
type DaemonConfig struct {
	Type    string // "imscp" talks to the daemon, anything else is a no-op
	Address string
}

// Load reads env vars and falls back to defaults so the server can boot with zero configuration.
func Load() (Config, error) {
	cfg := Config{
		Environment:    getEnv("HOSTWARDEN_ENV", "development"),
		HTTPPort:       getEnv("HOSTWARDEN_HTTP_PORT", "8080"),
		DatabasePath:   getEnv("HOSTWARDEN_DB_PATH", filepath.Join("data", "hostwarden.db")),
		LogDir:         getEnv("HOSTWARDEN_LOG_DIR", filepath.Join("data", "logs")),
		Debug:          getEnvBool("HOSTWARDEN_DEBUG", false),
		JWTSecret:      getEnv("HOSTWARDEN_JWT_SECRET", "change-me-in-production"),
		TrustedProxies: getEnvList("HOSTWARDEN_TRUSTED_PROXIES"),
		Bruteforce: BruteforceConfig{
			Enabled:               getEnvBool("BRUTEFORCE", true),
			MaxLogin:              getEnvInt("BRUTEFORCE_MAX_LOGIN", 5),
			MaxCaptcha:            getEnvInt("BRUTEFORCE_MAX_CAPTCHA", 5),
			WaitEnabled:           getEnvBool("BRUTEFORCE_BETWEEN", true),
			MaxAttemptsBeforeWait: getEnvInt("BRUTEFORCE_MAX_ATTEMPTS_BEFORE_WAIT", 2),
			WaitSeconds:           getEnvInt("BRUTEFORCE_BETWEEN_TIME", 30),
			BlockMinutes:          getEnvInt("BRUTEFORCE_BLOCK_TIME", 15),
			AlertURL:              getEnv("BRUTEFORCE_ALERT_URL", ""),
		},
		Daemon: DaemonConfig{
			Type:    getEnv("DAEMON_TYPE", "imscp"),
			Address: getEnv("DAEMON_ADDR", "127.0.0.1:9876"),
		},
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
		return Config{}, fmt.Errorf("ensure data directory: %w", err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return fallback
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvInt(key string, fallback int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	switch strings.ToLower(getEnv(key, "")) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
