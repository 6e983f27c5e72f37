package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"applybro-backend/internal/bootstrap"
	"applybro-backend/internal/shared/config"
	"applybro-backend/internal/shared/telemetry"
	"applybro-backend/internal/workerproc"
)

func main() {
	cfg := config.Load()
	if _, err := telemetry.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer telemetry.Sync()

	if strings.TrimSpace(cfg.ParseQueueURL) == "" {
		log.Fatal("PARSE_QUEUE_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}
	defer app.Close()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(app.Config.AWSRegion))
	if err != nil {
		log.Fatalf("load aws config: %v", err)
	}

	poller := &workerproc.Poller{
		Client:          sqs.NewFromConfig(awsCfg),
		QueueURL:        cfg.ParseQueueURL,
		Processor:       app.DocumentsService,
		Concurrency:     cfg.WorkerConcurrency,
		Visibility:      cfg.SQSVisibilityTimeout,
		ShutdownTimeout: cfg.WorkerShutdownTimeout,
	}
	if err := poller.Run(ctx); err != nil {
		log.Fatalf("worker: %v", err)
	}
	telemetry.Info("worker.stopped", nil)
}
