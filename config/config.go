package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment    string
	ServerPort     string
	AllowedOrigins string
	CookieDomain   string
	PublicBaseURL  string

	MongoDBURL  string
	MongoDBName string
	RedisURL    string
	PostgresURL string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool
	MinioRegion    string
	QRBucket       string
	QRSize         int

	JwtSecret       string
	SessionDuration time.Duration

	StorageBackend string
	CounterBackend string
	DoctorIDScheme string
	ClinicIDScheme string
	StoreTimeout   time.Duration
	OTPTTL         time.Duration
}

// getEnvWithDefault gets an environment variable with a default value
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}

func oneOf(key, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("invalid %s value: %s (expected one of %s)", key, value, strings.Join(allowed, ", "))
}

func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	env := strings.ToLower(getEnvWithDefault("ENVIRONMENT", "development"))
	if err := oneOf("ENVIRONMENT", env, "development", "staging", "production"); err != nil {
		return nil, err
	}

	// SESSION_DURATION is hours, as before
	sessionHours, err := strconv.Atoi(getEnvWithDefault("SESSION_DURATION", "12"))
	if err != nil || sessionHours <= 0 {
		return nil, fmt.Errorf("invalid SESSION_DURATION: must be a positive number of hours")
	}
	storeTimeout, err := getDuration("STORE_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}
	otpTTL, err := getDuration("OTP_TTL", 5*time.Minute)
	if err != nil {
		return nil, err
	}
	qrSize, err := strconv.Atoi(getEnvWithDefault("QR_SIZE", "512"))
	if err != nil || qrSize < 64 || qrSize > 4096 {
		return nil, fmt.Errorf("invalid QR_SIZE: must be between 64 and 4096")
	}

	config := &Config{
		Environment:    env,
		ServerPort:     getEnvWithDefault("SERVER_PORT", "8080"),
		AllowedOrigins: getEnvWithDefault("ALLOWED_ORIGINS", "http://localhost:3000"),
		CookieDomain:   getEnvWithDefault("COOKIE_DOMAIN", ""),

		MongoDBURL:  getEnvWithDefault("MONGODB_URL", "mongodb://localhost:27017"),
		MongoDBName: getEnvWithDefault("MONGODB_NAME", "docto_friend"),
		RedisURL:    getEnvWithDefault("REDIS_URL", "redis://localhost:6379/0"),
		PostgresURL: os.Getenv("POSTGRES_URL"),

		MinioEndpoint:  os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioUseSSL:    getEnvWithDefault("MINIO_USE_SSL", "true") == "true",
		MinioRegion:    getEnvWithDefault("MINIO_REGION", "india-s-1"),
		QRBucket:       getEnvWithDefault("QR_BUCKET", "clinic-qr"),
		QRSize:         qrSize,

		JwtSecret:       os.Getenv("JWT_SECRET"),
		SessionDuration: time.Duration(sessionHours) * time.Hour,

		StorageBackend: strings.ToLower(getEnvWithDefault("STORAGE_BACKEND", "mongo")),
		CounterBackend: strings.ToLower(getEnvWithDefault("COUNTER_BACKEND", "mongo")),
		DoctorIDScheme: strings.ToLower(getEnvWithDefault("DOCTOR_ID_SCHEME", "counter")),
		ClinicIDScheme: strings.ToLower(getEnvWithDefault("CLINIC_ID_SCHEME", "timestamp")),
		StoreTimeout:   storeTimeout,
		OTPTTL:         otpTTL,
	}
	config.PublicBaseURL = strings.TrimRight(getEnvWithDefault("PUBLIC_BASE_URL", "http://localhost:"+config.ServerPort), "/")

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) validate() error {
	if err := oneOf("STORAGE_BACKEND", c.StorageBackend, "mongo", "memory"); err != nil {
		return err
	}
	if err := oneOf("COUNTER_BACKEND", c.CounterBackend, "mongo", "redis", "postgres", "memory"); err != nil {
		return err
	}
	if err := oneOf("DOCTOR_ID_SCHEME", c.DoctorIDScheme, "counter", "timestamp"); err != nil {
		return err
	}
	if err := oneOf("CLINIC_ID_SCHEME", c.ClinicIDScheme, "counter", "timestamp"); err != nil {
		return err
	}
	if c.CounterBackend == "postgres" && c.PostgresURL == "" {
		return fmt.Errorf("POSTGRES_URL environment variable is required when COUNTER_BACKEND=postgres")
	}

	if c.JwtSecret == "" {
		if !c.IsDevelopment() {
			return fmt.Errorf("JWT_SECRET environment variable is required")
		}
		c.JwtSecret = "development-only-secret-change-me"
	}
	if len(c.JwtSecret) < 32 && c.IsProduction() {
		return fmt.Errorf("JWT_SECRET must be at least 32 bytes in production")
	}
	if c.IsProduction() && (c.StorageBackend == "memory" || c.CounterBackend == "memory") {
		return fmt.Errorf("memory backends are not allowed in production")
	}
	return nil
}

// UseMinio reports whether QR images go to object storage rather than memory.
func (c *Config) UseMinio() bool {
	return c.MinioEndpoint != ""
}

// IsDevelopment returns whether the current environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns whether the current environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsStaging returns whether the current environment is staging
func (c *Config) IsStaging() bool {
	return c.Environment == "staging"
}
