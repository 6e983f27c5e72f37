package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"

	"applybro-backend/internal/auth"
	"applybro-backend/internal/documents"
	"applybro-backend/internal/matching"
	"applybro-backend/internal/queue"
	"applybro-backend/internal/scholarships"
	"applybro-backend/internal/services/health"
	sharedauth "applybro-backend/internal/shared/auth"
	"applybro-backend/internal/shared/config"
	"applybro-backend/internal/shared/server"
	"applybro-backend/internal/shared/server/middleware"
	"applybro-backend/internal/shared/storage/cache"
	"applybro-backend/internal/shared/storage/db"
	"applybro-backend/internal/shared/storage/object"
	localstore "applybro-backend/internal/shared/storage/object/local"
	s3store "applybro-backend/internal/shared/storage/object/s3"
	"applybro-backend/internal/shared/telemetry"
	"applybro-backend/internal/uploads"
	"applybro-backend/internal/users"
)

const (
	defaultRegion = "us-east-1"

	authRateLimitGroup = "AUTH"
	// Twelve attempts a minute per caller with a burst of ten.
	authRatePerSecond = 0.2
	authRateBurst     = 10
)

// App holds shared dependencies and the wired router.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Cache  *cache.Redis
	Store  object.ObjectStore
	Queue  queue.Client
	// InProcessQueue is set when no SQS queue is configured; callers drain it on shutdown.
	InProcessQueue *queue.InProcessClient
	Tokens         *sharedauth.TokenService

	UsersRepo        users.Repo
	ScholarshipsRepo scholarships.Repo
	DocumentsRepo    documents.Repo

	UsersService        *users.Service
	AuthService         *auth.Service
	ScholarshipsService *scholarships.Service
	DocumentsService    *documents.Service
	MatchingService     *matching.Service
	Health              *health.Service
}

// Build prepares every dependency and the HTTP router.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	if strings.TrimSpace(cfg.AWSRegion) == "" {
		cfg.AWSRegion = defaultRegion
	}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	redisCache, err := buildCache(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Cache:  redisCache,
		Store:  store,
		Tokens: sharedauth.NewTokenService(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL),
	}

	if err := buildQueue(ctx, app); err != nil {
		return nil, err
	}

	presign, err := buildUploadsPresign(ctx, cfg)
	if err != nil {
		return nil, err
	}

	handlers := buildServices(app, presign)
	app.Router = server.NewRouter(server.RouterDeps{
		Config:   cfg,
		Tokens:   app.Tokens,
		Health:   app.Health,
		Handlers: handlers,
	})
	return app, nil
}

// Close releases pooled connections.
func (a *App) Close() error {
	var errs []error
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	if a.Cache != nil {
		errs = append(errs, a.Cache.Close())
	}
	return errors.Join(errs...)
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.RuntimeOptions()))
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{"reason": "database connect failed", "error": err.Error()})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildCache(ctx context.Context, cfg config.Config) (*cache.Redis, error) {
	if strings.TrimSpace(cfg.RedisURL) == "" {
		return nil, nil
	}
	r, err := cache.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_token_store", map[string]any{"error": err.Error()})
			return nil, nil
		}
		return nil, err
	}
	return r, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

// buildQueue picks SQS when a queue URL is configured. Otherwise parse jobs run
// in-process; the processor is bound once the documents service exists.
func buildQueue(ctx context.Context, app *App) error {
	if strings.TrimSpace(app.Config.ParseQueueURL) != "" {
		client, err := queue.NewSQSClient(ctx, app.Config.AWSRegion, app.Config.ParseQueueURL)
		if err != nil {
			return err
		}
		app.Queue = client
		return nil
	}
	inproc := queue.NewInProcessClient(app.Config.WorkerConcurrency)
	app.Queue = inproc
	app.InProcessQueue = inproc
	return nil
}

func buildUploadsPresign(ctx context.Context, cfg config.Config) (*s3.PresignClient, error) {
	if cfg.UploadsBucket == "" {
		return nil, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewPresignClient(s3.NewFromConfig(awsCfg)), nil
}

func buildServices(app *App, presign *s3.PresignClient) []server.RouteRegistrar {
	if app.DB != nil {
		app.UsersRepo = &users.PGRepo{DB: app.DB}
		app.ScholarshipsRepo = &scholarships.PGRepo{DB: app.DB}
		app.DocumentsRepo = &documents.PGRepo{DB: app.DB}
	} else {
		app.UsersRepo = users.NewMemoryRepo()
		app.ScholarshipsRepo = scholarships.NewMemoryRepo()
		app.DocumentsRepo = documents.NewMemoryRepo()
	}

	var refreshStore auth.RefreshStore
	if app.Cache != nil {
		refreshStore = auth.NewRedisStore(app.Cache)
	} else {
		refreshStore = auth.NewMemoryStore(nil)
	}

	app.UsersService = users.NewService(app.UsersRepo)
	app.AuthService = auth.NewService(app.UsersService, app.Tokens, refreshStore, app.Config.IsAdminEmail)
	app.ScholarshipsService = scholarships.NewService(app.ScholarshipsRepo)
	app.DocumentsService = documents.NewService(app.Store, app.DocumentsRepo, app.Queue, app.Config.ObjectStoreType)
	app.DocumentsService.Owners = ownerAdapter{repo: app.UsersRepo}
	if app.InProcessQueue != nil {
		app.InProcessQueue.Bind(app.DocumentsService)
	}

	matchCfg := matching.DefaultConfig()
	matchCfg.TierLimit = app.Config.RecommendationTierLimit
	matchCfg.Timeout = app.Config.RecommendationTimeout
	matchCfg.DefaultEnglishScore = app.Config.MatchDefaultEnglishScore
	app.MatchingService = matching.NewService(
		scholarshipAdapter{repo: app.ScholarshipsRepo},
		documentAdapter{repo: app.DocumentsRepo},
		profileAdapter{repo: app.UsersRepo},
		matchCfg,
	)

	app.Health = health.NewService()
	if app.DB != nil {
		app.Health.Register("database", health.PingFunc(app.DB.PingContext))
	}
	if app.Cache != nil {
		app.Health.Register("redis", app.Cache)
	}

	authLimit := middleware.RateLimit(middleware.RateLimitConfig{
		DefaultGroup: authRateLimitGroup,
		Rules: map[string]middleware.RateLimitRule{
			authRateLimitGroup: {Rate: authRatePerSecond, Burst: authRateBurst},
		},
		Limiter: middleware.NewRateLimiter(time.Now),
	})

	return []server.RouteRegistrar{
		auth.NewHandler(app.AuthService, authLimit),
		users.NewHandler(app.UsersService),
		matching.NewHandler(app.MatchingService),
		scholarships.NewHandler(app.ScholarshipsService),
		documents.NewHandler(app.DocumentsService),
		uploads.NewHandler(presign, app.Config.UploadsBucket, app.Config.UploadsPrefix),
	}
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local", "test":
		return true
	default:
		return false
	}
}
