package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AmoConfig holds the CRM account settings and the custom field mapping of
// the connected amoCRM account.
type AmoConfig struct {
	ClientID      string
	ClientSecret  string
	RedirectURI   string
	AccountDomain string

	PhoneFieldID  int
	EmailFieldID  int
	AgeFieldID    int
	GenderFieldID int
	MaleEnumID    int
	FemaleEnumID  int

	CatalogID        int
	ProductFieldCode string
	PhoneFieldCode   string

	Timezone string
}

type Config struct {
	Env             string
	HTTPAddr        string
	DatabaseURL     string
	JWTAccessSecret string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	CORSAllowAll    bool
	CORSOrigins     []string
	CORSAllowCreds  bool

	EmailEnabled     bool
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	EmailFromName    string
	EmailFromAddress string

	Amo AmoConfig
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	smtpHost := getEnv("SMTP_HOST", "")
	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "true"), "true")

	cfg := &Config{
		Env:             getEnv("APP_ENV", "development"),
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		JWTAccessSecret: getEnv("JWT_ACCESS_SECRET", ""),
		AccessTokenTTL:  mustDuration(getEnv("JWT_ACCESS_TTL", "15m")),
		RefreshTokenTTL: mustDuration(getEnv("JWT_REFRESH_TTL", "720h")),
		CORSAllowAll:    corsAllowAll,
		CORSOrigins:     corsOrigins,
		CORSAllowCreds:  strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),

		EmailEnabled:     emailEnabled && smtpHost != "",
		SMTPHost:         smtpHost,
		SMTPPort:         intEnv("SMTP_PORT", 587),
		SMTPUsername:     getEnv("SMTP_USERNAME", ""),
		SMTPPassword:     getEnv("SMTP_PASSWORD", ""),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "CRM Link"),
		EmailFromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),

		Amo: AmoConfig{
			ClientID:      getEnv("AMO_CLIENT_ID", ""),
			ClientSecret:  getEnv("AMO_CLIENT_SECRET", ""),
			RedirectURI:   getEnv("AMO_REDIRECT_URI", ""),
			AccountDomain: getEnv("AMO_ACCOUNT_DOMAIN", ""),

			PhoneFieldID:  intEnv("AMO_PHONE_FIELD_ID", 0),
			EmailFieldID:  intEnv("AMO_EMAIL_FIELD_ID", 0),
			AgeFieldID:    intEnv("AMO_AGE_FIELD_ID", 0),
			GenderFieldID: intEnv("AMO_GENDER_FIELD_ID", 0),
			MaleEnumID:    intEnv("AMO_MALE_ENUM_ID", 0),
			FemaleEnumID:  intEnv("AMO_FEMALE_ENUM_ID", 0),

			CatalogID:        intEnv("AMO_CATALOG_ID", 0),
			ProductFieldCode: getEnv("AMO_PRODUCT_FIELD_CODE", "PRICE"),
			PhoneFieldCode:   getEnv("AMO_PHONE_FIELD_CODE", "PHONE"),

			Timezone: getEnv("AMO_TIMEZONE", "Asia/Tashkent"),
		},
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.Amo.ClientID == "" || cfg.Amo.ClientSecret == "" {
		return nil, fmt.Errorf("AMO_CLIENT_ID and AMO_CLIENT_SECRET are required")
	}
	if cfg.Amo.AccountDomain == "" {
		return nil, fmt.Errorf("AMO_ACCOUNT_DOMAIN is required")
	}
	if _, err := time.LoadLocation(cfg.Amo.Timezone); err != nil {
		return nil, fmt.Errorf("AMO_TIMEZONE is invalid: %w", err)
	}
	if emailEnabled && smtpHost != "" && cfg.EmailFromAddress == "" {
		return nil, fmt.Errorf("EMAIL_FROM_ADDRESS is required when email is enabled")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}

	return cfg, nil
}

// Location resolves the configured CRM account timezone.
// Load validates the zone, so failures cannot happen after startup.
func (a AmoConfig) Location() *time.Location {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
