package workerproc

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"applybro-backend/internal/queue"
	"applybro-backend/internal/shared/metrics"
	"applybro-backend/internal/shared/telemetry"
)

const (
	defaultVisibility      = 20 * time.Minute
	defaultConcurrency     = 4
	defaultShutdownTimeout = 30 * time.Second
	receiveWaitSeconds     = 20
	receiveErrorBackoff    = 2 * time.Second
	receiveCountAttribute  = "ApproximateReceiveCount"
)

// SQSAPI is the subset of the SQS client the poller needs.
type SQSAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Poller long-polls an SQS queue and hands parse jobs to a processor with
// bounded concurrency. Messages are deleted after success or when they can
// never succeed; failed jobs are left for redelivery.
type Poller struct {
	Client          SQSAPI
	QueueURL        string
	Processor       queue.Processor
	Concurrency     int
	Visibility      time.Duration
	ShutdownTimeout time.Duration
}

// Run polls until ctx is cancelled, then waits up to ShutdownTimeout for
// in-flight jobs.
func (p *Poller) Run(ctx context.Context) error {
	if p.Client == nil || p.Processor == nil {
		return errors.New("poller requires an sqs client and a processor")
	}
	if strings.TrimSpace(p.QueueURL) == "" {
		return errors.New("poller requires a queue url")
	}

	concurrency := p.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	visibility := p.Visibility
	if visibility <= 0 {
		visibility = defaultVisibility
	}
	shutdownTimeout := p.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	telemetry.Info("worker.started", map[string]any{
		"queue":       p.QueueURL,
		"concurrency": concurrency,
		"visibility":  visibility.String(),
	})

pollLoop:
	for {
		select {
		case <-ctx.Done():
			break pollLoop
		default:
		}

		resp, err := p.Client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(p.QueueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     receiveWaitSeconds,
			VisibilityTimeout:   int32(visibility / time.Second),
			AttributeNames:      []sqstypes.QueueAttributeName{sqstypes.QueueAttributeName(receiveCountAttribute)},
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				break pollLoop
			}
			telemetry.Error("worker.receive_failed", map[string]any{"error": err.Error()})
			select {
			case <-ctx.Done():
				break pollLoop
			case <-time.After(receiveErrorBackoff):
			}
			continue
		}

		for _, msg := range resp.Messages {
			select {
			case <-ctx.Done():
				break pollLoop
			case sem <- struct{}{}:
			}
			metrics.ObserveWorkerMessage("received")
			wg.Add(1)
			go func(m sqstypes.Message) {
				defer wg.Done()
				defer func() { <-sem }()
				// Jobs finish on their own deadline so a shutdown does not cut a parse in half.
				jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), visibility)
				defer cancel()
				p.Handle(jobCtx, m)
			}(msg)
		}
	}

	telemetry.Info("worker.draining", map[string]any{"timeout": shutdownTimeout.String()})
	waitDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
	case <-time.After(shutdownTimeout):
		telemetry.Warn("worker.shutdown_timeout", map[string]any{"timeout": shutdownTimeout.String()})
	}
	return nil
}

// Handle processes one SQS message and deletes it when appropriate.
func (p *Poller) Handle(ctx context.Context, msg sqstypes.Message) {
	body := aws.ToString(msg.Body)

	decoded, meta, err := ParseMessage(body)
	if err != nil {
		fields := baseFields(msg, "", "")
		fields["body_len"] = meta.BodyLen
		if meta.BodySHA != "" {
			fields["body_sha256"] = meta.BodySHA
		}
		var missing ErrMissingDocumentID
		if errors.As(err, &missing) && missing.RequestID != "" {
			fields["request_id"] = missing.RequestID
		}
		fields["error"] = err.Error()
		telemetry.Error("worker.document.invalid_message", fields)
		if p.deleteMessage(ctx, msg, "", "") {
			metrics.ObserveWorkerMessage("dropped")
		}
		return
	}

	telemetry.Info("worker.document.received", baseFields(msg, decoded.DocumentID, decoded.RequestID))

	if err := HandleMessage(WithParsedMessage(ctx, decoded), p.Processor, body); err != nil {
		fields := baseFields(msg, decoded.DocumentID, decoded.RequestID)
		fields["error"] = err.Error()
		telemetry.Error("worker.document.failed", fields)
		metrics.ObserveWorkerMessage("failed")
		return
	}

	if p.deleteMessage(ctx, msg, decoded.DocumentID, decoded.RequestID) {
		telemetry.Info("worker.document.completed", baseFields(msg, decoded.DocumentID, decoded.RequestID))
		metrics.ObserveWorkerMessage("completed")
	}
}

func (p *Poller) deleteMessage(ctx context.Context, msg sqstypes.Message, documentID, requestID string) bool {
	receipt := aws.ToString(msg.ReceiptHandle)
	if receipt == "" {
		fields := baseFields(msg, documentID, requestID)
		fields["error"] = "missing receipt handle"
		telemetry.Error("worker.document.delete_failed", fields)
		return false
	}
	if _, err := p.Client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(p.QueueURL),
		ReceiptHandle: aws.String(receipt),
	}); err != nil {
		fields := baseFields(msg, documentID, requestID)
		fields["error"] = err.Error()
		telemetry.Error("worker.document.delete_failed", fields)
		return false
	}
	return true
}

func baseFields(msg sqstypes.Message, documentID, requestID string) map[string]any {
	fields := map[string]any{
		"document_id":    documentID,
		"sqs_message_id": aws.ToString(msg.MessageId),
		"receive_count":  receiveCount(msg),
	}
	if strings.TrimSpace(requestID) != "" {
		fields["request_id"] = requestID
	}
	return fields
}

func receiveCount(msg sqstypes.Message) int {
	if msg.Attributes == nil {
		return 0
	}
	raw := msg.Attributes[receiveCountAttribute]
	if raw == "" {
		return 0
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return parsed
}
