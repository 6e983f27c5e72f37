package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"applybro-backend/internal/shared/telemetry"
)

const (
	defaultJobTimeout  = 2 * time.Minute
	defaultJobAttempts = 3
	defaultJobBackoff  = 2 * time.Second
)

// InProcessClient runs parse jobs on background goroutines inside the API
// process. It is used when no SQS queue is configured. Failed jobs are retried
// with exponential backoff; after the last attempt the processor is told to
// abandon the job when it implements Abandoner.
type InProcessClient struct {
	mu        sync.RWMutex
	processor Processor
	wg        sync.WaitGroup
	sem       chan struct{}
	timeout   time.Duration
	attempts  int
	backoff   time.Duration
}

// NewInProcessClient returns a client running at most concurrency jobs at once.
func NewInProcessClient(concurrency int) *InProcessClient {
	if concurrency <= 0 {
		concurrency = 2
	}
	return &InProcessClient{
		sem:      make(chan struct{}, concurrency),
		timeout:  defaultJobTimeout,
		attempts: defaultJobAttempts,
		backoff:  defaultJobBackoff,
	}
}

// WithRetry overrides the attempt budget and the first backoff delay.
func (c *InProcessClient) WithRetry(attempts int, backoff time.Duration) *InProcessClient {
	if attempts < 1 {
		attempts = 1
	}
	if backoff < 0 {
		backoff = 0
	}
	c.attempts = attempts
	c.backoff = backoff
	return c
}

// Bind sets the processor jobs are handed to. It must be called before Send.
func (c *InProcessClient) Bind(p Processor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.processor = p
}

// Send schedules msg for processing and returns immediately.
func (c *InProcessClient) Send(ctx context.Context, msg Message) error {
	c.mu.RLock()
	p := c.processor
	c.mu.RUnlock()
	if p == nil {
		return errors.New("in-process queue has no processor")
	}
	if msg.DocumentID == "" {
		return ErrInvalidMessage
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.sem <- struct{}{}
		defer func() { <-c.sem }()
		c.run(p, msg)
	}()
	return nil
}

func (c *InProcessClient) run(p Processor, msg Message) {
	fields := map[string]any{"documentId": msg.DocumentID, "requestId": msg.RequestID}
	delay := c.backoff

	var err error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		// The request context is gone by the time the job runs.
		jobCtx, cancel := context.WithTimeout(context.Background(), c.timeout)
		err = p.ProcessParsing(jobCtx, msg.DocumentID)
		cancel()
		if err == nil {
			return
		}
		fields["attempt"] = attempt
		fields["error"] = err.Error()
		if attempt == c.attempts {
			break
		}
		telemetry.Warn("queue.inprocess.retry", fields)
		time.Sleep(delay)
		delay *= 2
	}

	telemetry.Error("queue.inprocess.failed", fields)
	ab, ok := p.(Abandoner)
	if !ok {
		return
	}
	abCtx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	if abErr := ab.AbandonParsing(abCtx, msg.DocumentID, err); abErr != nil {
		fields["abandonError"] = abErr.Error()
		telemetry.Error("queue.inprocess.abandon_failed", fields)
	}
}

// Wait blocks until every scheduled job has finished or ctx ends.
func (c *InProcessClient) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ Client = (*InProcessClient)(nil)
