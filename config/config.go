package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	MinIO     MinIOConfig
	Email     EmailConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Log       LogConfig
	Store     StoreConfig
}

type ServerConfig struct {
	Port           string
	Environment    string
	Domain         string
	AllowedOrigins []string
	MaxImageBytes  int64
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
	RoleTTL  time.Duration
}

type JWTConfig struct {
	Secret string
	TTL    time.Duration
}

type MinIOConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	UseSSL        bool
	Bucket        string
	PublicBaseURL string
}

type EmailConfig struct {
	BaseURL              string
	ServiceID            string
	PublicKey            string
	PrivateKey           string
	SubmissionTemplateID string
	StatusTemplateID     string
	VerifyTemplateID     string
	Timeout              time.Duration
}

type AuthConfig struct {
	AdminAccessCode string
	VerifyURL       string
}

type RateLimitConfig struct {
	IssuesPerDay int
	QueuePrefix  string
}

type LogConfig struct {
	Level  string
	Format string
}

// StoreConfig selects the document store backend: "mongo" or "memory".
type StoreConfig struct {
	Driver string
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("GO_ENV", "development")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173")
	v.SetDefault("MAX_IMAGE_BYTES", 10<<20)
	v.SetDefault("MONGODB_DATABASE", "gramaalert")
	v.SetDefault("MONGODB_TIMEOUT", 10)
	v.SetDefault("REDIS_ROLE_TTL_MINUTES", 30)
	v.SetDefault("JWT_TTL_HOURS", 72)
	v.SetDefault("MINIO_BUCKET", "gramaalert")
	v.SetDefault("EMAILJS_BASE_URL", "https://api.emailjs.com")
	v.SetDefault("EMAILJS_SUBMISSION_TEMPLATE_ID", "template_1fztfaf")
	v.SetDefault("EMAILJS_STATUS_TEMPLATE_ID", "template_ppbuv1y")
	v.SetDefault("EMAILJS_TIMEOUT_SECONDS", 15)
	v.SetDefault("ADMIN_ACCESS_CODE", "ADMIN2024")
	v.SetDefault("VERIFY_URL", "http://localhost:8080/api/auth/verify")
	v.SetDefault("ISSUE_LIMIT_PER_DAY", 10)
	v.SetDefault("REDIS_QUEUE_FOR_ISSUE_LIMIT", "issue_limit")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORE_DRIVER", "mongo")

	env := v.GetString("GO_ENV")
	logFormat := v.GetString("LOG_FORMAT")
	if logFormat == "" {
		logFormat = "console"
		if env == "production" {
			logFormat = "json"
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           v.GetString("PORT"),
			Environment:    env,
			Domain:         v.GetString("DOMAIN"),
			AllowedOrigins: splitList(v.GetString("ALLOWED_ORIGINS")),
			MaxImageBytes:  v.GetInt64("MAX_IMAGE_BYTES"),
		},
		MongoDB: MongoDBConfig{
			URI:      v.GetString("MONGODB_URI"),
			Database: v.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(v.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Address:  v.GetString("REDIS_ADDRESS"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			RoleTTL:  time.Duration(v.GetInt("REDIS_ROLE_TTL_MINUTES")) * time.Minute,
		},
		JWT: JWTConfig{
			Secret: os.Getenv("JWT_SECRET"),
			TTL:    time.Duration(v.GetInt("JWT_TTL_HOURS")) * time.Hour,
		},
		MinIO: MinIOConfig{
			Endpoint:      v.GetString("MINIO_ENDPOINT"),
			AccessKey:     v.GetString("MINIO_ACCESS_KEY"),
			SecretKey:     os.Getenv("MINIO_SECRET_KEY"),
			UseSSL:        v.GetBool("MINIO_USE_SSL"),
			Bucket:        v.GetString("MINIO_BUCKET"),
			PublicBaseURL: strings.TrimRight(v.GetString("MINIO_PUBLIC_URL"), "/"),
		},
		Email: EmailConfig{
			BaseURL:              v.GetString("EMAILJS_BASE_URL"),
			ServiceID:            v.GetString("EMAILJS_SERVICE_ID"),
			PublicKey:            v.GetString("EMAILJS_PUBLIC_KEY"),
			PrivateKey:           os.Getenv("EMAILJS_PRIVATE_KEY"),
			SubmissionTemplateID: v.GetString("EMAILJS_SUBMISSION_TEMPLATE_ID"),
			StatusTemplateID:     v.GetString("EMAILJS_STATUS_TEMPLATE_ID"),
			VerifyTemplateID:     v.GetString("EMAILJS_VERIFY_TEMPLATE_ID"),
			Timeout:              time.Duration(v.GetInt("EMAILJS_TIMEOUT_SECONDS")) * time.Second,
		},
		Auth: AuthConfig{
			AdminAccessCode: v.GetString("ADMIN_ACCESS_CODE"),
			VerifyURL:       v.GetString("VERIFY_URL"),
		},
		RateLimit: RateLimitConfig{
			IssuesPerDay: v.GetInt("ISSUE_LIMIT_PER_DAY"),
			QueuePrefix:  v.GetString("REDIS_QUEUE_FOR_ISSUE_LIMIT"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: logFormat,
		},
		Store: StoreConfig{
			Driver: strings.ToLower(v.GetString("STORE_DRIVER")),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWT.Secret == "" {
		return errMissing("JWT_SECRET")
	}
	// Accounts can only become verified through this email.
	if c.Email.VerifyTemplateID == "" {
		return errMissing("EMAILJS_VERIFY_TEMPLATE_ID")
	}
	switch c.Store.Driver {
	case "mongo":
		if c.MongoDB.URI == "" {
			return errMissing("MONGODB_URI")
		}
	case "memory":
	default:
		return &Error{Key: "STORE_DRIVER", Reason: "must be mongo or memory"}
	}
	return nil
}

// IsProduction reports whether cookies must be Secure.
func (c *Config) IsProduction() bool {
	return c.Server.IsProduction()
}

func (s ServerConfig) IsProduction() bool {
	return s.Environment == "production"
}

// Error describes an invalid or missing configuration key.
type Error struct {
	Key    string
	Reason string
}

func (e *Error) Error() string {
	return "config " + e.Key + ": " + e.Reason
}

func errMissing(key string) error {
	return &Error{Key: key, Reason: "environment variable is required"}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
