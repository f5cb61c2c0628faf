package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	strlib "certtrack/pkg/platform/strings"
)

// Config captures everything the server binary needs from its environment.
type Config struct {
	Addr          string
	DatabaseURL   string
	JWTSigningKey string
	PublicBaseURL string

	Redis   Redis
	Email   Email
	Kafka   Kafka
	Jobs    Jobs
	Uploads Uploads
}

// Redis holds connection settings for the shared cache.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Email holds outbound mail settings.
type Email struct {
	SendGridAPIKey string
	FromAddress    string
	FromName       string
}

// Kafka holds audit event publishing settings. Empty Brokers disables
// publishing.
type Kafka struct {
	Brokers    []string
	AuditTopic string
}

// Jobs holds cron expressions for the recurring jobs.
type Jobs struct {
	SweepSchedule    string
	DispatchSchedule string
}

// Uploads holds settings for evidence upload URLs and magic links.
type Uploads struct {
	SigningSecret string
	BaseURL       string
	URLTTL        time.Duration
	LinkTTL       time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Addr:          getenv("CERTTRACK_ADDR", ":8080"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		JWTSigningKey: getenv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		PublicBaseURL: getenv("CERTTRACK_BASE_URL", "http://localhost:8080"),
		Redis: Redis{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getint("REDIS_POOL_SIZE", 10),
			MinIdleConns: getint("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getduration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getduration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getduration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Email: Email{
			SendGridAPIKey: os.Getenv("SENDGRID_API_KEY"),
			FromAddress:    getenv("EMAIL_FROM_ADDRESS", "no-reply@certtrack.local"),
			FromName:       getenv("EMAIL_FROM_NAME", "CertTrack"),
		},
		Kafka: Kafka{
			Brokers:    split(os.Getenv("KAFKA_BROKERS")),
			AuditTopic: getenv("KAFKA_AUDIT_TOPIC", "certtrack.audit"),
		},
		Jobs: Jobs{
			SweepSchedule:    getenv("SWEEP_SCHEDULE", "0 2 * * *"),
			DispatchSchedule: getenv("DISPATCH_SCHEDULE", "@hourly"),
		},
		Uploads: Uploads{
			SigningSecret: getenv("UPLOAD_SIGNING_SECRET", "dev-upload-secret"),
			BaseURL:       getenv("UPLOAD_BASE_URL", "http://localhost:8080/uploads"),
			URLTTL:        getduration("UPLOAD_URL_TTL", 15*time.Minute),
			LinkTTL:       getduration("MAGIC_LINK_TTL", 72*time.Hour),
		},
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getduration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func split(v string) []string {
	if v == "" {
		return nil
	}
	return strlib.DedupeAndTrim(strings.Split(v, ","))
}
