package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds application configuration
type Config struct {
	Port     string
	DBConn   string
	LogLevel string

	JWTSecret string

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SenderEmail  string

	ChatAPIURL   string
	ChatAPIToken string

	DefaultPenaltyPct       float64
	DefaultDailyInterestPct float64

	EscalationAmountThreshold float64
	IgnoredContactsThreshold  int
	IgnoredContactsWindowDays int

	NegotiationURL  string
	ChannelSendRate float64
	SchedulerSpec   string
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		DBConn:       getEnv("DB_CONN", "host=localhost port=5432 user=test password=test dbname=cobranca sslmode=disable"),
		LogLevel:     getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:    getEnv("JWT_SECRET", "secret"),
		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SenderEmail:  getEnv("SENDER_EMAIL", "cobranca@franquia.example.com"),
		ChatAPIURL:   getEnv("CHATAPI_URL", "http://localhost:9090/api/send"),
		ChatAPIToken: getEnv("CHATAPI_TOKEN", ""),

		NegotiationURL: getEnv("NEGOTIATION_URL", "https://franquia.example.com/negociar"),
		SchedulerSpec:  getEnv("SCHEDULER_SPEC", "0 8 * * *"),
	}

	var err error
	if cfg.DefaultPenaltyPct, err = getEnvFloat("DEFAULT_PENALTY_PCT", 2.0); err != nil {
		return nil, err
	}
	if cfg.DefaultDailyInterestPct, err = getEnvFloat("DEFAULT_DAILY_INTEREST_PCT", 0.033); err != nil {
		return nil, err
	}
	if cfg.EscalationAmountThreshold, err = getEnvFloat("ESCALATION_AMOUNT_THRESHOLD", 5000.0); err != nil {
		return nil, err
	}
	if cfg.IgnoredContactsThreshold, err = getEnvInt("IGNORED_CONTACTS_THRESHOLD", 3); err != nil {
		return nil, err
	}
	if cfg.IgnoredContactsWindowDays, err = getEnvInt("IGNORED_CONTACTS_WINDOW_DAYS", 30); err != nil {
		return nil, err
	}
	if cfg.ChannelSendRate, err = getEnvFloat("CHANNEL_SEND_RATE", 1.0); err != nil {
		return nil, err
	}

	if cfg.DBConn == "" {
		return nil, fmt.Errorf("DB_CONN is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.DefaultPenaltyPct < 0 || cfg.DefaultPenaltyPct > 100 {
		return nil, fmt.Errorf("DEFAULT_PENALTY_PCT must be between 0 and 100")
	}
	if cfg.DefaultDailyInterestPct < 0 || cfg.DefaultDailyInterestPct > 100 {
		return nil, fmt.Errorf("DEFAULT_DAILY_INTEREST_PCT must be between 0 and 100")
	}
	if cfg.ChannelSendRate <= 0 {
		return nil, fmt.Errorf("CHANNEL_SEND_RATE must be positive")
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) (float64, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getEnvInt(key string, defaultVal int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return i, nil
}
