package workerproc

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"applybro-backend/internal/shared/telemetry"
)

func TestBatchHandlerReportsOnlyProcessingFailures(t *testing.T) {
	telemetry.UseLogger(zaptest.NewLogger(t))
	proc := &fakeProcessor{err: errors.New("object store down")}
	handler := BatchHandler(proc)

	resp, err := handler(context.Background(), events.SQSEvent{Records: []events.SQSMessage{
		{MessageId: "m-ok", Body: encoded(t, "doc-1", "req-1")},
		{MessageId: "m-bad", Body: "{not json"},
		{MessageId: "m-empty", Body: ""},
	}})
	require.NoError(t, err)
	require.Len(t, resp.BatchItemFailures, 1)
	assert.Equal(t, "m-ok", resp.BatchItemFailures[0].ItemIdentifier)
	assert.Equal(t, []string{"doc-1"}, proc.calls)
}

func TestBatchHandlerAcknowledgesProcessedRecords(t *testing.T) {
	telemetry.UseLogger(zaptest.NewLogger(t))
	proc := &fakeProcessor{}
	resp, err := BatchHandler(proc)(context.Background(), events.SQSEvent{Records: []events.SQSMessage{
		{MessageId: "m-1", Body: encoded(t, "doc-1", "")},
		{MessageId: "m-2", Body: encoded(t, "doc-2", "req-2")},
	}})
	require.NoError(t, err)
	assert.Empty(t, resp.BatchItemFailures)
	assert.Equal(t, []string{"doc-1", "doc-2"}, proc.calls)
}

func TestFailAll(t *testing.T) {
	resp := FailAll(events.SQSEvent{Records: []events.SQSMessage{{MessageId: "a"}, {MessageId: "b"}}})
	require.Len(t, resp.BatchItemFailures, 2)
	assert.Equal(t, "b", resp.BatchItemFailures[1].ItemIdentifier)
}
