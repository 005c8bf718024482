package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env  string
	Port int

	Database  DatabaseConfig
	Redis     RedisConfig
	Mail      MailConfig
	CORS      CORSConfig
	Log       LogConfig
	RateLimit RateLimitConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// MailConfig resolves the SMTP transport once at process start. Provider
// selects a known host/port pair; "custom" uses the Host and Port fields as-is.
type MailConfig struct {
	Provider     string
	Host         string
	Port         int
	Username     string
	Password     string
	From         string
	AdminAddress string
	AdminBaseURL string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// RateLimitConfig caps request volume per client IP. The submission window is
// deliberately much stricter than the general API window.
type RateLimitConfig struct {
	Enabled          bool
	GeneralLimit     int
	GeneralWindow    time.Duration
	SubmissionLimit  int
	SubmissionWindow time.Duration
}

// knownProviders enumerates the supported SMTP providers. Selecting one by
// name overrides host and port; credentials always come from config.
var knownProviders = map[string]struct {
	Host string
	Port int
}{
	"gmail":    {Host: "smtp.gmail.com", Port: 587},
	"outlook":  {Host: "smtp-mail.outlook.com", Port: 587},
	"mailtrap": {Host: "sandbox.smtp.mailtrap.io", Port: 2525},
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	mail := MailConfig{
		Provider:     strings.ToLower(v.GetString("MAIL_PROVIDER")),
		Host:         v.GetString("MAIL_HOST"),
		Port:         v.GetInt("MAIL_PORT"),
		Username:     v.GetString("MAIL_USERNAME"),
		Password:     v.GetString("MAIL_PASSWORD"),
		From:         v.GetString("MAIL_FROM"),
		AdminAddress: v.GetString("MAIL_ADMIN_ADDRESS"),
		AdminBaseURL: strings.TrimRight(v.GetString("ADMIN_BASE_URL"), "/"),
	}
	if mail.Provider != "" && mail.Provider != "custom" {
		p, ok := knownProviders[mail.Provider]
		if !ok {
			return nil, fmt.Errorf("unsupported mail provider %q", mail.Provider)
		}
		mail.Host = p.Host
		mail.Port = p.Port
	}
	cfg.Mail = mail

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.RateLimit = RateLimitConfig{
		Enabled:          v.GetBool("RATE_LIMIT_ENABLED"),
		GeneralLimit:     v.GetInt("RATE_LIMIT_GENERAL_MAX"),
		GeneralWindow:    parseDuration(v.GetString("RATE_LIMIT_GENERAL_WINDOW"), 15*time.Minute),
		SubmissionLimit:  v.GetInt("RATE_LIMIT_SUBMISSION_MAX"),
		SubmissionWindow: parseDuration(v.GetString("RATE_LIMIT_SUBMISSION_WINDOW"), 15*time.Minute),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "enrollment_intake")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("MAIL_PROVIDER", "custom")
	v.SetDefault("MAIL_HOST", "localhost")
	v.SetDefault("MAIL_PORT", 1025)
	v.SetDefault("MAIL_USERNAME", "")
	v.SetDefault("MAIL_PASSWORD", "")
	v.SetDefault("MAIL_FROM", "enrollment@example.edu")
	v.SetDefault("MAIL_ADMIN_ADDRESS", "admissions@example.edu")
	v.SetDefault("ADMIN_BASE_URL", "http://localhost:3000/admin")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("RATE_LIMIT_ENABLED", true)
	v.SetDefault("RATE_LIMIT_GENERAL_MAX", 100)
	v.SetDefault("RATE_LIMIT_GENERAL_WINDOW", "15m")
	v.SetDefault("RATE_LIMIT_SUBMISSION_MAX", 5)
	v.SetDefault("RATE_LIMIT_SUBMISSION_WINDOW", "15m")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
