package workerproc

import (
	"context"
	"errors"

	"github.com/aws/aws-lambda-go/events"

	"applybro-backend/internal/queue"
	"applybro-backend/internal/shared/metrics"
	"applybro-backend/internal/shared/telemetry"
)

// BatchHandler adapts a processor to an SQS-triggered Lambda. Records that can
// never succeed are acknowledged; processing failures are reported back so SQS
// redelivers only those.
func BatchHandler(processor queue.Processor) func(context.Context, events.SQSEvent) (events.SQSEventResponse, error) {
	return func(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
		failures := make([]events.SQSBatchItemFailure, 0)
		for _, record := range event.Records {
			if !handleRecord(ctx, processor, record) {
				failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
			}
		}
		return events.SQSEventResponse{BatchItemFailures: failures}, nil
	}
}

// FailAll reports every record for redelivery, used when the app failed to start.
func FailAll(event events.SQSEvent) events.SQSEventResponse {
	failures := make([]events.SQSBatchItemFailure, 0, len(event.Records))
	for _, record := range event.Records {
		failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
	}
	return events.SQSEventResponse{BatchItemFailures: failures}
}

func handleRecord(ctx context.Context, processor queue.Processor, record events.SQSMessage) bool {
	fields := map[string]any{"sqs_message_id": record.MessageId}

	msg, meta, err := ParseMessage(record.Body)
	if err != nil {
		fields["body_len"] = meta.BodyLen
		fields["body_sha256"] = meta.BodySHA
		fields["error"] = err.Error()
		var missing ErrMissingDocumentID
		if errors.As(err, &missing) && missing.RequestID != "" {
			fields["request_id"] = missing.RequestID
		}
		telemetry.Error("worker.document.invalid_message", fields)
		metrics.ObserveWorkerMessage("dropped")
		return true
	}

	fields["document_id"] = msg.DocumentID
	if msg.RequestID != "" {
		fields["request_id"] = msg.RequestID
	}
	if err := HandleMessage(WithParsedMessage(ctx, msg), processor, record.Body); err != nil {
		fields["error"] = err.Error()
		telemetry.Error("worker.document.failed", fields)
		metrics.ObserveWorkerMessage("failed")
		return false
	}
	telemetry.Info("worker.document.completed", fields)
	metrics.ObserveWorkerMessage("completed")
	return true
}
