package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Catalog and clinic
	CatalogPath         string
	ClinicName          string
	ClinicTimezone      string
	ClinicAddress       string
	ClinicPhone         string
	ClinicEmail         string
	ClinicWebsite       string
	ClinicHours         string
	AppointmentDuration time.Duration

	// Conversation and reservation timing
	SessionIdleTimeout     time.Duration
	ReservationGracePeriod time.Duration
	SweepInterval          time.Duration

	// Commit pipeline
	BookingStore          string
	StoreRetryMaxAttempts int
	StoreRetryBaseDelay   time.Duration
	NotifyTimeout         time.Duration
	NotifyWorkers         int

	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Email
	EmailProvider     string
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	SESFromEmail      string
	SESFromName       string
	SESConfigSet      string
	EmailReplyTo      string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Google Workspace
	GoogleCredentialsJSON string
	GoogleCredentialsFile string
	GoogleSheetsID        string
	GoogleSheetsWorksheet string
	GoogleCalendarID      string

	// Reminders
	ReminderSchedule string
	ReminderLeadTime time.Duration

	// HTTP surface
	AdminJWTSecret     string
	RateLimitPerSecond float64
	RateLimitBurst     int
	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		CatalogPath:         getEnv("CATALOG_PATH", ""),
		ClinicName:          getEnv("CLINIC_NAME", "City Clinic"),
		ClinicTimezone:      getEnv("CLINIC_TIMEZONE", "UTC"),
		ClinicAddress:       getEnv("CLINIC_ADDRESS", "123 Health Street, Medical District"),
		ClinicPhone:         getEnv("CLINIC_PHONE", "+1 (555) 123-4567"),
		ClinicEmail:         getEnv("CLINIC_EMAIL", "info@clinic.com"),
		ClinicWebsite:       getEnv("CLINIC_WEBSITE", ""),
		ClinicHours:         getEnv("CLINIC_HOURS", "Monday - Friday: 9:00 AM - 6:00 PM"),
		AppointmentDuration: getEnvAsDuration("APPOINTMENT_DURATION", 30*time.Minute),

		SessionIdleTimeout:     getEnvAsDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
		ReservationGracePeriod: getEnvAsDuration("RESERVATION_GRACE_PERIOD", 5*time.Minute),
		SweepInterval:          getEnvAsDuration("SWEEP_INTERVAL", 30*time.Second),

		BookingStore:          strings.ToLower(strings.TrimSpace(getEnv("BOOKING_STORE", "memory"))),
		StoreRetryMaxAttempts: getEnvAsInt("STORE_RETRY_MAX_ATTEMPTS", 3),
		StoreRetryBaseDelay:   getEnvAsDuration("STORE_RETRY_BASE_DELAY", 200*time.Millisecond),
		NotifyTimeout:         getEnvAsDuration("NOTIFY_TIMEOUT", 10*time.Second),
		NotifyWorkers:         getEnvAsInt("NOTIFY_WORKERS", 2),

		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "auto"))),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "City Clinic Appointments"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),
		SESFromName:       getEnv("SES_FROM_NAME", "City Clinic Appointments"),
		SESConfigSet:      getEnv("SES_CONFIGURATION_SET", ""),
		EmailReplyTo:      getEnv("EMAIL_REPLY_TO", ""),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		GoogleCredentialsJSON: getEnv("GOOGLE_CREDENTIALS", ""),
		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", ""),
		GoogleSheetsID:        getEnv("GOOGLE_SHEETS_ID", ""),
		GoogleSheetsWorksheet: getEnv("GOOGLE_SHEETS_WORKSHEET", "Appointments"),
		GoogleCalendarID:      getEnv("GOOGLE_CALENDAR_ID", ""),

		ReminderSchedule: getEnv("REMINDER_SCHEDULE", "@every 15m"),
		ReminderLeadTime: getEnvAsDuration("REMINDER_LEAD_TIME", 24*time.Hour),

		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		RateLimitPerSecond: getEnvAsFloat("RATE_LIMIT_PER_SECOND", 5),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 10),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
	}
}

// GoogleEnabled reports whether service account credentials were supplied.
func (c *Config) GoogleEnabled() bool {
	return strings.TrimSpace(c.GoogleCredentialsJSON) != "" || strings.TrimSpace(c.GoogleCredentialsFile) != ""
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping empty entries.
func getEnvAsList(key string, defaultValue []string) []string {
	raw := getEnv(key, "")
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
