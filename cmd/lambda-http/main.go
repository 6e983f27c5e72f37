package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=arm64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-http

import (
	"context"
	"log"
	"net/http"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"

	"applybro-backend/internal/bootstrap"
	"applybro-backend/internal/shared/config"
	"applybro-backend/internal/shared/telemetry"
)

var (
	initOnce  sync.Once
	initErr   error
	app       *bootstrap.App
	ginLambda *ginadapter.GinLambdaV2
)

func initApp(ctx context.Context) {
	cfg := config.Load()
	if _, err := telemetry.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
		initErr = err
		return
	}
	built, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		initErr = err
		return
	}
	app = built
	ginLambda = ginadapter.NewV2(app.Router)
}

func errorResponse(code, message string) events.APIGatewayV2HTTPResponse {
	return events.APIGatewayV2HTTPResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error":{"code":"` + code + `","message":"` + message + `"}}`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

func handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	initOnce.Do(func() { initApp(context.WithoutCancel(ctx)) })
	if initErr != nil {
		log.Printf("bootstrap error: %v", initErr)
		return errorResponse("bootstrap_failed", "service failed to start"), nil
	}

	resp, err := ginLambda.ProxyWithContext(ctx, req)
	// Without SQS, parse jobs run in this process and must finish before the
	// execution environment is frozen.
	if app.InProcessQueue != nil {
		if waitErr := app.InProcessQueue.Wait(ctx); waitErr != nil {
			telemetry.Warn("lambda.parse_jobs_pending", map[string]any{"error": waitErr.Error()})
		}
	}
	telemetry.Sync()
	return resp, err
}

func main() {
	lambda.Start(handler)
}
