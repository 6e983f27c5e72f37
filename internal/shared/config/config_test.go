package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("RECOMMENDATION_TIER_LIMIT", "")
	cfg := FromViper(newViper())

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "local", cfg.ObjectStoreType)
	assert.Equal(t, 15*time.Minute, cfg.JWTAccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.JWTRefreshTTL)
	assert.Equal(t, 10, cfg.RecommendationTierLimit)
	assert.InDelta(t, 6.0, cfg.MatchDefaultEnglishScore, 0.0001)
}

func TestLoadOverridesFromEnv(t *testing.T) {
	t.Setenv("ENV", "prod")
	t.Setenv("OBJECT_STORE", "S3")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("JWT_ACCESS_TTL", "5m")
	t.Setenv("RECOMMENDATION_TIER_LIMIT", "4")
	t.Setenv("MATCH_DEFAULT_ENGLISH_SCORE", "6.5")
	t.Setenv("ADMIN_EMAILS", "Root@Example.com")

	cfg := FromViper(newViper())
	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, "s3", cfg.ObjectStoreType)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowOrigin)
	assert.Equal(t, 5*time.Minute, cfg.JWTAccessTTL)
	assert.Equal(t, 4, cfg.RecommendationTierLimit)
	assert.InDelta(t, 6.5, cfg.MatchDefaultEnglishScore, 0.0001)
	assert.True(t, cfg.IsAdminEmail(" root@example.com"))
	assert.False(t, cfg.IsAdminEmail("someone@example.com"))
}

func TestLoadEnvFilesDoesNotOverrideExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("APPLYBRO_TEST_A=from-file\nAPPLYBRO_TEST_B=\"quoted\"\n"), 0o600))

	t.Setenv("APPLYBRO_TEST_A", "from-env")
	t.Setenv("APPLYBRO_TEST_B", "")
	require.NoError(t, os.Unsetenv("APPLYBRO_TEST_B"))

	loadEnvFiles(filepath.Join(dir, "missing.env"), path)

	assert.Equal(t, "from-env", os.Getenv("APPLYBRO_TEST_A"))
	assert.Equal(t, "quoted", os.Getenv("APPLYBRO_TEST_B"))
}

func TestLoadWorkerAndUploadSettings(t *testing.T) {
	t.Setenv("WORKER_CONCURRENCY", "0")
	t.Setenv("SQS_VISIBILITY_TIMEOUT", "5m")
	t.Setenv("UPLOADS_S3_BUCKET", " applybro-uploads ")
	t.Setenv("PARSE_QUEUE_URL", "https://sqs.us-east-1.amazonaws.com/123/parse")

	cfg := FromViper(newViper())
	assert.Equal(t, 4, cfg.WorkerConcurrency)
	assert.Equal(t, 5*time.Minute, cfg.SQSVisibilityTimeout)
	assert.Equal(t, 30*time.Second, cfg.WorkerShutdownTimeout)
	assert.Equal(t, "applybro-uploads", cfg.UploadsBucket)
	assert.Equal(t, "uploads/", cfg.UploadsPrefix)
	assert.Equal(t, "https://sqs.us-east-1.amazonaws.com/123/parse", cfg.ParseQueueURL)
}
