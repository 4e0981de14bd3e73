package config

import (
	"os"
	"strconv"
)

// Config holds application configuration
type Config struct {
	MongoDB  MongoDBConfig
	RabbitMQ RabbitMQConfig
	SMTP     SMTPConfig
	Server   ServerConfig
	Sweep    SweepConfig
}

// MongoDBConfig holds MongoDB configuration
type MongoDBConfig struct {
	URI      string
	Database string
}

// RabbitMQConfig holds RabbitMQ configuration. An empty URL disables the
// task event consumer; the service then runs on the cron cadence alone.
type RabbitMQConfig struct {
	URL string
}

// SMTPConfig holds SMTP configuration. Username and Password are the two
// values that gate delivery: when either is empty the delivery channel is
// considered unconfigured and every send is a silent skip.
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	FromName  string
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
}

// SweepConfig controls the periodic due-notification sweep
type SweepConfig struct {
	// Schedule is a cron expression for the sweep cadence.
	Schedule string
	// SendTimeoutSeconds bounds a single delivery call so one stalled
	// send cannot stall the rest of the sweep.
	SendTimeoutSeconds int
	// MaxDeliveryAttempts is the number of hard failures before a record
	// is moved to the dead letter collection.
	MaxDeliveryAttempts int
	// TriggerRateLimit and TriggerRateBurst bound the external sweep
	// trigger endpoint.
	TriggerRateLimit float64
	TriggerRateBurst int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	smtpPort, _ := strconv.Atoi(getEnv("SMTP_PORT", "587"))
	sendTimeout, _ := strconv.Atoi(getEnv("SEND_TIMEOUT_SECONDS", "30"))
	maxAttempts, _ := strconv.Atoi(getEnv("MAX_DELIVERY_ATTEMPTS", "3"))
	rateLimit, _ := strconv.ParseFloat(getEnv("SWEEP_RATE_LIMIT", "2"), 64)
	rateBurst, _ := strconv.Atoi(getEnv("SWEEP_RATE_BURST", "5"))

	return &Config{
		MongoDB: MongoDBConfig{
			URI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGODB_DATABASE", "reminder_service"),
		},
		RabbitMQ: RabbitMQConfig{
			URL: getEnv("RABBITMQ_URL", ""),
		},
		SMTP: SMTPConfig{
			Host:      getEnv("SMTP_HOST", "smtp.gmail.com"),
			Port:      smtpPort,
			Username:  getEnv("SMTP_USERNAME", ""),
			Password:  getEnv("SMTP_PASSWORD", ""),
			FromEmail: getEnv("SMTP_FROM_EMAIL", "noreply@example.com"),
			FromName:  getEnv("SMTP_FROM_NAME", "Task Reminders"),
		},
		Server: ServerConfig{
			Port: getEnv("REMINDER_SERVICE_PORT", "8086"),
		},
		Sweep: SweepConfig{
			Schedule:            getEnv("SWEEP_SCHEDULE", "* * * * *"),
			SendTimeoutSeconds:  sendTimeout,
			MaxDeliveryAttempts: maxAttempts,
			TriggerRateLimit:    rateLimit,
			TriggerRateBurst:    rateBurst,
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
