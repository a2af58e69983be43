package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/lmorrell/coldreach/internal/domain"
)

// Config holds all configuration for the application.
type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string

	// BaseURL is the public origin used to build tracking links.
	BaseURL string

	// Provider selects the outbound transport: "smtp" or "resend".
	Provider string

	// FromEmail is the sending identity for the resend provider.
	FromEmail    string
	ResendAPIKey string

	// SMTPHost/SMTPPort apply to every account of the smtp provider.
	SMTPHost string
	SMTPPort int

	Accounts []SendingAccount

	// SendWorkers bounds campaign-batch parallelism.
	SendWorkers int

	// SendsPerSecond caps per-account send rate. Zero disables the throttle.
	SendsPerSecond int
}

// SendingAccount is one mailbox identity of the sending pool.
type SendingAccount struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	DailyLimit int    `json:"dailyLimit"`
}

// DefaultDailyLimit applies to accounts configured without an explicit limit.
const DefaultDailyLimit = 2000

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		RedisURL:       getEnv("REDIS_URL", ""),
		BaseURL:        strings.TrimRight(getEnv("BASE_URL", "http://localhost:8080"), "/"),
		Provider:       getEnv("EMAIL_PROVIDER", "smtp"),
		FromEmail:      getEnv("FROM_EMAIL", ""),
		ResendAPIKey:   getEnv("RESEND_API_KEY", ""),
		SMTPHost:       getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:       getEnvInt("SMTP_PORT", 587),
		SendWorkers:    getEnvInt("SEND_WORKERS", 4),
		SendsPerSecond: getEnvInt("SENDS_PER_SECOND", 0),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	switch cfg.Provider {
	case "smtp":
		accounts, err := ParseAccounts(os.Getenv("SENDING_ACCOUNTS"))
		if err != nil {
			return nil, fmt.Errorf("parsing SENDING_ACCOUNTS: %w", err)
		}
		cfg.Accounts = accounts
	case "resend":
		if cfg.ResendAPIKey == "" {
			return nil, fmt.Errorf("RESEND_API_KEY is required when EMAIL_PROVIDER=resend")
		}
		if cfg.FromEmail == "" {
			return nil, fmt.Errorf("FROM_EMAIL is required when EMAIL_PROVIDER=resend")
		}
	default:
		return nil, fmt.Errorf("unknown EMAIL_PROVIDER %q (want smtp or resend)", cfg.Provider)
	}

	return cfg, nil
}

// ParseAccounts decodes the SENDING_ACCOUNTS JSON array. Values pasted from
// shell configs often arrive single-quoted, so a failed parse is retried with
// quotes normalized. Every entry is validated here so a bad pool is caught at
// startup rather than deep in the send path.
func ParseAccounts(raw string) ([]SendingAccount, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("SENDING_ACCOUNTS is not set")
	}

	var accounts []SendingAccount
	if err := json.Unmarshal([]byte(raw), &accounts); err != nil {
		normalized := strings.ReplaceAll(raw, "'", `"`)
		if err2 := json.Unmarshal([]byte(normalized), &accounts); err2 != nil {
			return nil, fmt.Errorf("invalid JSON (expected [{\"email\":...,\"password\":...,\"dailyLimit\":...}]): %w", err)
		}
	}

	if len(accounts) == 0 {
		return nil, fmt.Errorf("account list is empty")
	}

	for i := range accounts {
		a := &accounts[i]
		if a.Email == "" || a.Password == "" {
			return nil, fmt.Errorf("account at index %d is missing required fields (email, password)", i)
		}
		if !domain.ValidEmail(a.Email) {
			return nil, fmt.Errorf("account at index %d has invalid email format: %s", i, a.Email)
		}
		if a.DailyLimit <= 0 {
			a.DailyLimit = DefaultDailyLimit
		}
	}

	return accounts, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}
