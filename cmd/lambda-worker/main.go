package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=amd64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-worker

import (
	"context"
	"log"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"applybro-backend/internal/bootstrap"
	"applybro-backend/internal/shared/config"
	"applybro-backend/internal/shared/telemetry"
	"applybro-backend/internal/workerproc"
)

var (
	initOnce sync.Once
	initErr  error
	handle   func(context.Context, events.SQSEvent) (events.SQSEventResponse, error)
)

func initApp(ctx context.Context) {
	cfg := config.Load()
	if _, err := telemetry.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
		initErr = err
		return
	}
	app, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		initErr = err
		return
	}
	handle = workerproc.BatchHandler(app.DocumentsService)
}

func handler(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	initOnce.Do(func() { initApp(context.WithoutCancel(ctx)) })
	if initErr != nil {
		log.Printf("bootstrap error: %v", initErr)
		return workerproc.FailAll(event), initErr
	}
	resp, err := handle(ctx, event)
	telemetry.Sync()
	return resp, err
}

func main() {
	lambda.Start(handler)
}
