package config

import (
	"crypto/rand"
	"encoding/base64"
	"os"
	"strconv"
	"strings"

	"permit_flow_app_go/logging"

	"github.com/joho/godotenv"
)

const (
	// MinJWTSecretLength is the minimum required length for the token secret in production
	MinJWTSecretLength = 32
)

type Config struct {
	ServerPort  string
	Environment string
	LogLevel    string
	// Database: sqlite path by default, DATABASE_URL (postgres) or Turso when set
	DBPath           string
	DatabaseURL      string
	TursoDatabaseURL string
	TursoAuthToken   string
	// Identity provider shared secret (HS256)
	JWTSecret string
	// Storage
	UploadDir     string
	MaxUploadSize int64
	// Cloudflare R2 Storage
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	// Email (Resend)
	ResendAPIKey  string
	EmailFrom     string
	EmailFromName string
	EmailTestMode bool // When true, emails are logged instead of sent
	// Notification dispatcher
	NotificationWorkers   int
	NotificationQueueSize int
	// Redis backs the pending registration code store; empty means in-memory
	RedisURL string
	// Other
	AllowedOrigins []string
	AppURL         string
}

func Load() *Config {
	// Load .env file (ignore error if not present - use system env vars)
	if err := godotenv.Load(); err != nil {
		logging.Log.Info("No .env file found, using system environment variables")
	}

	environment := getEnv("ENVIRONMENT", "development")
	jwtSecret := getEnv("JWT_SECRET", "")

	// Validate token secret - this will fatal in production if invalid
	ValidateJWTSecret(jwtSecret, environment)

	// In development, generate a secure secret if none provided
	if jwtSecret == "" && environment != "production" {
		jwtSecret = GenerateSecureSecret()
		logging.Log.Info("Generated temporary JWT secret for development. Set JWT_SECRET env var for persistence.")
	}

	return &Config{
		ServerPort:            getEnv("SERVER_PORT", "8080"),
		Environment:           environment,
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		DBPath:                getEnv("DB_PATH", "db/app.db"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		TursoDatabaseURL:      getEnv("TURSO_DATABASE_URL", ""),
		TursoAuthToken:        getEnv("TURSO_AUTH_TOKEN", ""),
		JWTSecret:             jwtSecret,
		UploadDir:             getEnv("UPLOAD_DIR", "uploads"),
		MaxUploadSize:         getEnvInt64("MAX_FILE_SIZE", 10*1024*1024),
		R2AccountID:           getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:         getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey:     getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2BucketName:          getEnv("R2_BUCKET_NAME", ""),
		ResendAPIKey:          getEnv("RESEND_API_KEY", ""),
		EmailFrom:             getEnv("EMAIL_FROM", "licencias@municipalidad.gob.pe"),
		EmailFromName:         getEnv("EMAIL_FROM_NAME", "Licencias de Construcción"),
		EmailTestMode:         getEnvBool("EMAIL_TEST_MODE", true), // Default true for safety
		NotificationWorkers:   int(getEnvInt64("NOTIFICATION_WORKERS", 2)),
		NotificationQueueSize: int(getEnvInt64("NOTIFICATION_QUEUE_SIZE", 256)),
		RedisURL:              getEnv("REDIS_URL", ""),
		AllowedOrigins:        strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		AppURL:                getEnv("APP_URL", "http://localhost:8080"),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		logging.Log.Debugf("Using default value for %s", key)
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Accept common boolean representations
	switch strings.ToLower(value) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return defaultValue
	}
}

func getEnvInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil || parsed <= 0 {
		logging.Log.Warnf("Invalid value for %s: %q, using %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

// ValidateJWTSecret validates the token secret meets security requirements
// In production, it must be at least 32 bytes and not a known insecure default
func ValidateJWTSecret(secret string, environment string) error {
	// Known insecure defaults that must be rejected
	insecureDefaults := []string{
		"dev-secret-change-in-production",
		"change-me",
		"secret",
		"development",
		"test",
		"",
	}

	for _, insecure := range insecureDefaults {
		if strings.EqualFold(secret, insecure) {
			if environment == "production" {
				logging.Log.Fatal("JWT_SECRET is set to an insecure default value. Generate a secure random secret with: openssl rand -base64 32")
			}
			logging.Log.Warn("JWT_SECRET is set to an insecure default value. This is acceptable only in development.")
			return nil
		}
	}

	if environment == "production" {
		if len(secret) < MinJWTSecretLength {
			logging.Log.Fatalf("JWT_SECRET must be at least %d characters in production (current: %d). Generate with: openssl rand -base64 32", MinJWTSecretLength, len(secret))
		}
	}

	return nil
}

// GenerateSecureSecret generates a cryptographically secure random secret
// This is used only for development when no secret is provided
func GenerateSecureSecret() string {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		logging.Log.Warnf("Failed to generate secure secret: %v", err)
		return ""
	}
	return base64.StdEncoding.EncodeToString(bytes)
}
