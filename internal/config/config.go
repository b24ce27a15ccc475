package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application.
type AppConfig struct {
	HTTPAddr    string
	OpsAddr     string
	DatabaseURL string
	JWTSecret   string
	LogLevel    string
	Environment string

	// Notification engine
	CronSpecDailyRun string
	DefaultLeadDays  int

	// Email
	SMTPHost      string
	SMTPPort      string
	EmailAddress  string
	EmailPassword string
	TemplatesDir  string

	// Web push
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubject    string
}

// Load reads configuration from environment variables and .env file (if present).
// godotenv.Load never overrides variables already set in the environment.
func Load() (*AppConfig, error) {
	_ = godotenv.Load()

	cfg := &AppConfig{}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is not set")
	}

	cfg.HTTPAddr = os.Getenv("HTTP_ADDR")
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	cfg.OpsAddr = os.Getenv("OPS_ADDR")
	if cfg.OpsAddr == "" {
		cfg.OpsAddr = ":9090"
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	cfg.CronSpecDailyRun = os.Getenv("CRON_SPEC_DAILY_RUN")
	if cfg.CronSpecDailyRun == "" {
		cfg.CronSpecDailyRun = "0 9 * * *" // 9 AM daily
	}

	leadDaysStr := os.Getenv("DEFAULT_REMINDER_LEAD_DAYS")
	if leadDaysStr == "" {
		cfg.DefaultLeadDays = 7
	} else {
		leadDays, err := strconv.Atoi(leadDaysStr)
		if err != nil || leadDays < 1 {
			return nil, fmt.Errorf("invalid DEFAULT_REMINDER_LEAD_DAYS: %q", leadDaysStr)
		}
		cfg.DefaultLeadDays = leadDays
	}

	cfg.SMTPHost = os.Getenv("SMTP_HOST")
	if cfg.SMTPHost == "" {
		cfg.SMTPHost = "smtp.gmail.com"
	}
	cfg.SMTPPort = os.Getenv("SMTP_PORT")
	if cfg.SMTPPort == "" {
		cfg.SMTPPort = "587"
	}
	cfg.EmailAddress = os.Getenv("EMAIL_ADDRESS")
	cfg.EmailPassword = os.Getenv("EMAIL_PASSWORD")

	cfg.TemplatesDir = os.Getenv("TEMPLATES_DIR")
	if cfg.TemplatesDir == "" {
		cfg.TemplatesDir = "email_templates"
	}

	cfg.VAPIDPublicKey = os.Getenv("VAPID_PUBLIC_KEY")
	cfg.VAPIDPrivateKey = os.Getenv("VAPID_PRIVATE_KEY")
	cfg.VAPIDSubject = os.Getenv("VAPID_SUBJECT")
	if cfg.VAPIDSubject == "" {
		cfg.VAPIDSubject = "mailto:support@duely.app"
	}

	return cfg, nil
}
