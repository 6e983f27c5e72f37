package documents

import (
	"context"
	"sort"
	"sync"

	"applybro-backend/internal/extract"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Document // documentID -> document
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data: make(map[string]Document),
	}
}

// Create stores a new document.
func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[doc.ID] = cloneDocument(doc)
	return nil
}

// Get returns a document by ID.
func (r *MemoryRepo) Get(ctx context.Context, documentID string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.data[documentID]
	if !ok {
		return Document{}, ErrNotFound
	}
	return cloneDocument(doc), nil
}

// GetByID returns a document by ID for a user.
func (r *MemoryRepo) GetByID(ctx context.Context, userID, documentID string) (Document, error) {
	doc, err := r.Get(ctx, documentID)
	if err != nil {
		return Document{}, err
	}
	if doc.UserID != userID {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

// ListByUser returns documents for a user, newest first, honoring limit/offset.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}

	docs := r.filter(userID, func(Document) bool { return true })
	if offset >= len(docs) {
		return []Document{}, nil
	}
	end := len(docs)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return docs[offset:end], nil
}

// ListCompletedByUser returns the user's successfully parsed documents, newest first.
func (r *MemoryRepo) ListCompletedByUser(ctx context.Context, userID string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.filter(userID, func(d Document) bool { return d.ParsingStatus == ParsingCompleted }), nil
}

// UpdateParsing records the result of a parse job.
func (r *MemoryRepo) UpdateParsing(ctx context.Context, documentID string, out ParseOutcome) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.data[documentID]
	if !ok {
		return ErrNotFound
	}
	doc.ParsingStatus = out.Status
	doc.ParsedData = cloneParsed(out.Data)
	doc.ParsingError = out.Error
	at := out.At
	doc.ParsedAt = &at
	r.data[documentID] = doc
	return nil
}

// Delete removes a user's document.
func (r *MemoryRepo) Delete(ctx context.Context, userID, documentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.data[documentID]
	if !ok || doc.UserID != userID {
		return ErrNotFound
	}
	delete(r.data, documentID)
	return nil
}

// ListPendingVerification returns documents awaiting review across all users.
func (r *MemoryRepo) ListPendingVerification(ctx context.Context, limit, offset int) ([]Document, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	r.mu.RLock()
	pending := []Document{}
	for _, doc := range r.data {
		if doc.VerificationStatus == VerificationPending {
			pending = append(pending, cloneDocument(doc))
		}
	}
	r.mu.RUnlock()
	sortNewestFirst(pending)

	total := len(pending)
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []Document{}, total, nil
	}
	end := total
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return pending[offset:end], total, nil
}

// SetVerification records an admin decision on a user's document.
func (r *MemoryRepo) SetVerification(ctx context.Context, userID, documentID string, v Verification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.data[documentID]
	if !ok || doc.UserID != userID {
		return ErrNotFound
	}
	doc.VerificationStatus = v.Status
	if v.Note != "" {
		doc.AdminNote = v.Note
	}
	at := v.At
	doc.VerifiedAt = &at
	r.data[documentID] = doc
	return nil
}

func (r *MemoryRepo) filter(userID string, keep func(Document) bool) []Document {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []Document{}
	for _, doc := range r.data {
		if doc.UserID == userID && keep(doc) {
			out = append(out, cloneDocument(doc))
		}
	}
	sortNewestFirst(out)
	return out
}

func sortNewestFirst(docs []Document) {
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].UploadedAt.Equal(docs[j].UploadedAt) {
			return docs[i].UploadedAt.After(docs[j].UploadedAt)
		}
		return docs[i].ID < docs[j].ID
	})
}

func cloneDocument(doc Document) Document {
	doc.ParsedData = cloneParsed(doc.ParsedData)
	if doc.ParsedAt != nil {
		at := *doc.ParsedAt
		doc.ParsedAt = &at
	}
	if doc.VerifiedAt != nil {
		at := *doc.VerifiedAt
		doc.VerifiedAt = &at
	}
	return doc
}

func cloneParsed(p *extract.ParsedData) *extract.ParsedData {
	if p == nil {
		return nil
	}
	cp := *p
	if p.EnglishScore != nil {
		es := *p.EnglishScore
		cp.EnglishScore = &es
	}
	return &cp
}

var _ Repo = (*MemoryRepo)(nil)
