package queue

import "context"

// Client sends messages to a queue backend.
type Client interface {
	Send(ctx context.Context, msg Message) error
}

// Processor parses one document. documents.Service satisfies it.
type Processor interface {
	ProcessParsing(ctx context.Context, documentID string) error
}

// Abandoner is implemented by processors that record a job as failed once
// every retry has been used up.
type Abandoner interface {
	AbandonParsing(ctx context.Context, documentID string, cause error) error
}
