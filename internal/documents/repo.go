package documents

import "context"

// Repo defines persistence operations for documents.
type Repo interface {
	Create(ctx context.Context, doc Document) error
	// Get loads a document regardless of owner. Used by parse jobs.
	Get(ctx context.Context, documentID string) (Document, error)
	GetByID(ctx context.Context, userID, documentID string) (Document, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Document, error)
	ListCompletedByUser(ctx context.Context, userID string) ([]Document, error)
	UpdateParsing(ctx context.Context, documentID string, out ParseOutcome) error
	Delete(ctx context.Context, userID, documentID string) error
	// ListPendingVerification returns documents awaiting review, newest first,
	// with the total number pending.
	ListPendingVerification(ctx context.Context, limit, offset int) ([]Document, int, error)
	SetVerification(ctx context.Context, userID, documentID string, v Verification) error
}
