package documents

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"applybro-backend/internal/shared/telemetry"
)

const (
	defaultReviewPageSize = 20
	maxReviewPageSize     = 100
	maxAdminNoteLength    = 1000
)

// OwnerLookup resolves the uploader of a document for reviewers.
type OwnerLookup interface {
	Owner(ctx context.Context, userID string) (name, email string, err error)
}

// PendingDocument is a document waiting for review with its uploader.
type PendingDocument struct {
	Document
	OwnerName  string
	OwnerEmail string
}

// Pagination describes one page of the review queue.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// ListPending returns one page of documents awaiting verification, newest first.
func (s *Service) ListPending(ctx context.Context, page, pageSize int) ([]PendingDocument, Pagination, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultReviewPageSize
	}
	if pageSize > maxReviewPageSize {
		pageSize = maxReviewPageSize
	}

	docs, total, err := s.Repo.ListPendingVerification(ctx, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, Pagination{}, err
	}

	out := make([]PendingDocument, 0, len(docs))
	owners := map[string][2]string{}
	for _, doc := range docs {
		p := PendingDocument{Document: doc}
		if s.Owners != nil {
			who, ok := owners[doc.UserID]
			if !ok {
				name, email, err := s.Owners.Owner(ctx, doc.UserID)
				if err != nil {
					telemetry.Warn("documents.owner_lookup_failed", map[string]any{"userId": doc.UserID, "error": err.Error()})
				}
				who = [2]string{name, email}
				owners[doc.UserID] = who
			}
			p.OwnerName, p.OwnerEmail = who[0], who[1]
		}
		out = append(out, p)
	}

	return out, Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}, nil
}

// Verify records an admin's verified or rejected decision on a user's document.
func (s *Service) Verify(ctx context.Context, adminID, userID, documentID, status, note string) (Document, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if status != VerificationVerified && status != VerificationRejected {
		return Document{}, fmt.Errorf("%w: status must be verified or rejected", ErrInvalidInput)
	}
	note = strings.TrimSpace(note)
	if utf8.RuneCountInString(note) > maxAdminNoteLength {
		return Document{}, fmt.Errorf("%w: adminNote must be at most %d characters", ErrInvalidInput, maxAdminNoteLength)
	}
	if userID == "" || documentID == "" {
		return Document{}, ErrNotFound
	}

	v := Verification{Status: status, Note: note, At: s.now()}
	if err := s.Repo.SetVerification(ctx, userID, documentID, v); err != nil {
		return Document{}, err
	}
	doc, err := s.Repo.GetByID(ctx, userID, documentID)
	if err != nil {
		return Document{}, err
	}

	telemetry.Info("documents.verification_recorded", map[string]any{
		"documentId": documentID,
		"userId":     userID,
		"adminId":    adminID,
		"status":     status,
		"type":       doc.Type,
	})
	return doc, nil
}
