package main

// Run database migrations:
//   go run ./cmd/migrate            apply pending migrations
//   go run ./cmd/migrate status     print migration status
//   go run ./cmd/migrate down       roll back the last migration

import (
	"context"
	"log"
	"os"

	"applybro-backend/internal/shared/config"
	"applybro-backend/internal/shared/storage/db"
	"applybro-backend/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()
	if _, err := telemetry.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer telemetry.Sync()
	ctx := context.Background()

	opts := db.OptionsFromEnv(db.DefaultMigrateOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		log.Printf("failed to connect database: %v", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "up":
		err = db.RunMigrations(ctx, sqlDB)
	case "status":
		err = db.MigrationStatus(ctx, sqlDB)
	case "down":
		err = db.RollbackLast(ctx, sqlDB)
	default:
		log.Printf("unknown command %q (want up, status or down)", command)
		os.Exit(2)
	}
	if err != nil {
		log.Printf("migrate %s failed: %v", command, err)
		os.Exit(1)
	}
}
