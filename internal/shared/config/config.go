package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"applybro-backend/internal/shared/telemetry"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	DatabaseURL     string
	RedisURL        string
	CORSAllowOrigin []string

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string
	ParseQueueURL   string
	UploadsBucket   string
	UploadsPrefix   string

	WorkerConcurrency     int
	SQSVisibilityTimeout  time.Duration
	WorkerShutdownTimeout time.Duration

	JWTAccessSecret  string
	JWTRefreshSecret string
	JWTAccessTTL     time.Duration
	JWTRefreshTTL    time.Duration
	AdminEmails      []string

	LogLevel  string
	LogFormat string

	RecommendationTimeout    time.Duration
	RecommendationTierLimit  int
	MatchDefaultEnglishScore float64
}

var defaults = map[string]any{
	"PORT":                        "8080",
	"ENV":                         "dev",
	"CORS_ALLOW_ORIGINS":          "http://localhost:5173",
	"OBJECT_STORE":                "local",
	"LOCAL_STORE_DIR":             "./data",
	"UPLOADS_S3_PREFIX":           "uploads/",
	"JWT_ACCESS_SECRET":           "dev-access-secret",
	"JWT_REFRESH_SECRET":          "dev-refresh-secret",
	"JWT_ACCESS_TTL":              "15m",
	"JWT_REFRESH_TTL":             "168h",
	"LOG_LEVEL":                   "info",
	"LOG_FORMAT":                  "console",
	"RECOMMENDATION_TIMEOUT":      "10s",
	"RECOMMENDATION_TIER_LIMIT":   10,
	"MATCH_DEFAULT_ENGLISH_SCORE": 6.0,
	"WORKER_CONCURRENCY":          4,
	"SQS_VISIBILITY_TIMEOUT":      "20m",
	"WORKER_SHUTDOWN_TIMEOUT":     "30s",
}

var keys = []string{
	"DATABASE_URL", "REDIS_URL", "AWS_REGION", "S3_BUCKET", "S3_PREFIX",
	"SSE_KMS_KEY_ID", "PARSE_QUEUE_URL", "ADMIN_EMAILS", "UPLOADS_S3_BUCKET",
}

// Load reads configuration from .env files and environment variables.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	for _, k := range keys {
		_ = v.BindEnv(k)
	}
	return v
}

// FromViper maps an already populated viper instance onto Config.
func FromViper(v *viper.Viper) Config {
	env := normalizeEnv(v.GetString("ENV"))
	cfg := Config{
		Port:            v.GetString("PORT"),
		Env:             env,
		DatabaseURL:     v.GetString("DATABASE_URL"),
		RedisURL:        v.GetString("REDIS_URL"),
		CORSAllowOrigin: splitAndTrim(v.GetString("CORS_ALLOW_ORIGINS")),

		ObjectStoreType: normalizeStoreType(v.GetString("OBJECT_STORE")),
		LocalStoreDir:   v.GetString("LOCAL_STORE_DIR"),
		AWSRegion:       v.GetString("AWS_REGION"),
		S3Bucket:        v.GetString("S3_BUCKET"),
		S3Prefix:        v.GetString("S3_PREFIX"),
		SSEKMSKeyID:     v.GetString("SSE_KMS_KEY_ID"),
		ParseQueueURL:   v.GetString("PARSE_QUEUE_URL"),
		UploadsBucket:   strings.TrimSpace(v.GetString("UPLOADS_S3_BUCKET")),
		UploadsPrefix:   v.GetString("UPLOADS_S3_PREFIX"),

		WorkerConcurrency:     v.GetInt("WORKER_CONCURRENCY"),
		SQSVisibilityTimeout:  durationOr(v, "SQS_VISIBILITY_TIMEOUT", 20*time.Minute),
		WorkerShutdownTimeout: durationOr(v, "WORKER_SHUTDOWN_TIMEOUT", 30*time.Second),

		JWTAccessSecret:  v.GetString("JWT_ACCESS_SECRET"),
		JWTRefreshSecret: v.GetString("JWT_REFRESH_SECRET"),
		JWTAccessTTL:     durationOr(v, "JWT_ACCESS_TTL", 15*time.Minute),
		JWTRefreshTTL:    durationOr(v, "JWT_REFRESH_TTL", 7*24*time.Hour),
		AdminEmails:      lowerAll(splitAndTrim(v.GetString("ADMIN_EMAILS"))),

		LogLevel:  strings.ToLower(v.GetString("LOG_LEVEL")),
		LogFormat: strings.ToLower(v.GetString("LOG_FORMAT")),

		RecommendationTimeout:    durationOr(v, "RECOMMENDATION_TIMEOUT", 10*time.Second),
		RecommendationTierLimit:  v.GetInt("RECOMMENDATION_TIER_LIMIT"),
		MatchDefaultEnglishScore: v.GetFloat64("MATCH_DEFAULT_ENGLISH_SCORE"),
	}

	if cfg.RecommendationTierLimit <= 0 {
		cfg.RecommendationTierLimit = 10
	}
	if cfg.WorkerConcurrency <= 0 {
		cfg.WorkerConcurrency = 4
	}
	if cfg.MatchDefaultEnglishScore <= 0 || cfg.MatchDefaultEnglishScore > 9 {
		cfg.MatchDefaultEnglishScore = 6.0
	}

	if env == "production" {
		if cfg.DatabaseURL == "" {
			telemetry.Warn("config.missing", map[string]any{"key": "DATABASE_URL"})
		}
		if cfg.JWTAccessSecret == defaults["JWT_ACCESS_SECRET"] || cfg.JWTRefreshSecret == defaults["JWT_REFRESH_SECRET"] {
			telemetry.Warn("config.insecure_default", map[string]any{"key": "JWT_*_SECRET"})
		}
	}
	return cfg
}

func durationOr(v *viper.Viper, key string, def time.Duration) time.Duration {
	d := v.GetDuration(key)
	if d <= 0 {
		return def
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func lowerAll(in []string) []string {
	for i := range in {
		in[i] = strings.ToLower(in[i])
	}
	return in
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "test":
		return "test"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

// IsAdminEmail reports whether email is listed in ADMIN_EMAILS.
func (c Config) IsAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, e := range c.AdminEmails {
		if e == email {
			return true
		}
	}
	return false
}
