package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LoadENV loads variables from .env when ENVIRONMENT is unset or development.
func LoadENV() error {
	env := os.Getenv("ENVIRONMENT")

	if env == "" || env == "development" {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	return nil
}

type EnvironmentVariable struct {
	ENVIRONMENT string
	LOG_LEVEL   string
	PORT        int

	// Database
	DB_USER     string
	DB_PASSWORD string
	DB_NAME     string
	DB_HOST     string
	DB_PORT     string
	DB_SSLMODE  string

	// Auth
	JWT_SECRET                 string
	JWT_ISSUER                 string
	JWT_EXPIRY_HOURS           int
	REFRESH_TOKEN_EXPIRY_HOURS int
	REQUIRE_EMAIL_CONFIRMATION bool
	ADMIN_EMAIL                string
	ADMIN_PASSWORD             string

	// Redis
	REDIS_URL string

	// Object storage (S3 compatible)
	STORAGE_KEY        string
	STORAGE_SECRET     string
	STORAGE_ENDPOINT   string
	STORAGE_REGION     string
	STORAGE_BUCKET     string
	STORAGE_PUBLIC_URL string

	// Public site
	PUBLIC_BASE_URL string
	FILE_PROXY_BASE string
	WHATSAPP_NUMBER string
	ALLOWED_ORIGINS string

	// Interstitial
	INTERSTITIAL_COUNTDOWN_SECONDS     int
	INTERSTITIAL_INITIAL_DELAY_SECONDS int

	// Upload limits in MB
	MAX_UPLOAD_MB_MANAGEMENT int
	MAX_UPLOAD_MB_GENERATOR  int

	// Email
	SMTP_HOST     string
	SMTP_PORT     string
	SMTP_USERNAME string
	SMTP_PASSWORD string
	SMTP_FROM     string

	ENABLE_CRON bool
}

func Get() (*EnvironmentVariable, error) {
	return &EnvironmentVariable{
		ENVIRONMENT: getString("ENVIRONMENT", "development"),
		LOG_LEVEL:   getString("LOG_LEVEL", "info"),
		PORT:        getInt("PORT", 8080),

		DB_USER:     getString("DB_USER", "postgres"),
		DB_PASSWORD: os.Getenv("DB_PASSWORD"),
		DB_NAME:     getString("DB_NAME", "flashprint"),
		DB_HOST:     getString("DB_HOST", "localhost"),
		DB_PORT:     getString("DB_PORT", "5432"),
		DB_SSLMODE:  getString("DB_SSLMODE", "disable"),

		JWT_SECRET:                 os.Getenv("JWT_SECRET"),
		JWT_ISSUER:                 getString("JWT_ISSUER", "flashprint-api"),
		JWT_EXPIRY_HOURS:           getInt("JWT_EXPIRY", 24),
		REFRESH_TOKEN_EXPIRY_HOURS: getInt("REFRESH_TOKEN_EXPIRY", 24*7),
		REQUIRE_EMAIL_CONFIRMATION: getBool("REQUIRE_EMAIL_CONFIRMATION", false),
		ADMIN_EMAIL:                os.Getenv("ADMIN_EMAIL"),
		ADMIN_PASSWORD:             os.Getenv("ADMIN_PASSWORD"),

		REDIS_URL: getString("REDIS_URL", "redis://localhost:6379/0"),

		STORAGE_KEY:        os.Getenv("STORAGE_KEY"),
		STORAGE_SECRET:     os.Getenv("STORAGE_SECRET"),
		STORAGE_ENDPOINT:   os.Getenv("STORAGE_ENDPOINT"),
		STORAGE_REGION:     getString("STORAGE_REGION", "us-east-1"),
		STORAGE_BUCKET:     getString("STORAGE_BUCKET", "syllabus-files"),
		STORAGE_PUBLIC_URL: os.Getenv("STORAGE_PUBLIC_URL"),

		PUBLIC_BASE_URL: strings.TrimRight(getString("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		FILE_PROXY_BASE: strings.TrimRight(getString("FILE_PROXY_BASE", "/functions/v1/syllabus-file"), "/"),
		WHATSAPP_NUMBER: getString("WHATSAPP_NUMBER", "2430815050397"),
		ALLOWED_ORIGINS: getString("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000"),

		INTERSTITIAL_COUNTDOWN_SECONDS:     getInt("INTERSTITIAL_COUNTDOWN_SECONDS", 5),
		INTERSTITIAL_INITIAL_DELAY_SECONDS: getInt("INTERSTITIAL_INITIAL_DELAY_SECONDS", 3),

		MAX_UPLOAD_MB_MANAGEMENT: getInt("MAX_UPLOAD_MB_MANAGEMENT", 10),
		MAX_UPLOAD_MB_GENERATOR:  getInt("MAX_UPLOAD_MB_GENERATOR", 20),

		SMTP_HOST:     os.Getenv("SMTP_HOST"),
		SMTP_PORT:     getString("SMTP_PORT", "587"),
		SMTP_USERNAME: os.Getenv("SMTP_USERNAME"),
		SMTP_PASSWORD: os.Getenv("SMTP_PASSWORD"),
		SMTP_FROM:     getString("SMTP_FROM", "FlashPrint <no-reply@flashprint.cd>"),

		ENABLE_CRON: getBool("ENABLE_CRON", true),
	}, nil
}

// IsProduction reports whether the process runs with ENVIRONMENT=production.
func (e *EnvironmentVariable) IsProduction() bool {
	return e.ENVIRONMENT == "production"
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func getBool(key string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}
