package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"applybro-backend/internal/extract"
	"applybro-backend/internal/queue"
	"applybro-backend/internal/shared/metrics"
	"applybro-backend/internal/shared/storage/object"
	"applybro-backend/internal/shared/telemetry"
)

// MaxUploadSize is the largest accepted upload.
const MaxUploadSize = 10 << 20 // 10MB

const (
	scheduleFailedMessage = "could not schedule document parsing"
	abandonedParseMessage = "Document parsing failed after repeated errors"
)

// Service contains business logic for documents.
type Service struct {
	Store           object.ObjectStore
	Repo            Repo
	Queue           queue.Client
	StorageProvider string
	// Owners decorates the admin review queue with uploader names. Optional.
	Owners          OwnerLookup
	Now             func() time.Time
}

var _ queue.Abandoner = (*Service)(nil)

// NewService constructs a Service.
func NewService(store object.ObjectStore, repo Repo, q queue.Client, storageProvider string) *Service {
	return &Service{
		Store:           store,
		Repo:            repo,
		Queue:           q,
		StorageProvider: storageProvider,
		Now:             func() time.Time { return time.Now().UTC() },
	}
}

// UploadInput describes one multipart upload.
type UploadInput struct {
	UserID       string
	FileName     string
	Type         string
	DocumentType string
	RequestID    string
	Body         io.Reader
}

// Upload stores the file, records the document in processing state and
// schedules a parse job.
func (s *Service) Upload(ctx context.Context, in UploadInput) (Document, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return Document{}, fmt.Errorf("%w: user id required", ErrInvalidInput)
	}
	fileName := strings.TrimSpace(in.FileName)
	if fileName == "" || in.Body == nil {
		return Document{}, fmt.Errorf("%w: file is required", ErrInvalidInput)
	}
	docType, kind, err := normalizeTypes(in.Type, in.DocumentType)
	if err != nil {
		return Document{}, err
	}

	data, err := io.ReadAll(io.LimitReader(in.Body, MaxUploadSize+1))
	if err != nil {
		return Document{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return Document{}, fmt.Errorf("%w: file is empty", ErrInvalidInput)
	}
	if len(data) > MaxUploadSize {
		return Document{}, ErrTooLarge
	}
	mimeType := extract.NormalizeMimeType(http.DetectContentType(data), fileName, data)
	if !extract.Accepted(mimeType) {
		return Document{}, fmt.Errorf("%w: only PDF, DOCX, JPEG and PNG files are allowed", ErrInvalidInput)
	}

	storageKey, size, _, err := s.Store.Save(ctx, in.UserID, fileName, bytes.NewReader(data))
	if err != nil {
		return Document{}, fmt.Errorf("store upload: %w", err)
	}

	doc := Document{
		ID:                 uuid.NewString(),
		UserID:             in.UserID,
		Type:               docType,
		DocumentType:       kind,
		OriginalFilename:   fileName,
		StorageProvider:    s.StorageProvider,
		StorageKey:         storageKey,
		MimeType:           mimeType,
		SizeBytes:          size,
		ParsingStatus:      ParsingProcessing,
		VerificationStatus: VerificationPending,
		UploadedAt:         s.now(),
	}
	if err := s.Repo.Create(ctx, doc); err != nil {
		if delErr := s.Store.Delete(ctx, storageKey); delErr != nil {
			telemetry.Warn("documents.orphaned_object", map[string]any{"storageKey": storageKey, "error": delErr.Error()})
		}
		return Document{}, err
	}

	msg := queue.NewMessage(doc.ID, doc.UserID, in.RequestID, doc.UploadedAt)
	if err := s.Queue.Send(ctx, msg); err != nil {
		telemetry.Error("documents.enqueue_failed", map[string]any{
			"documentId": doc.ID,
			"requestId":  in.RequestID,
			"error":      err.Error(),
		})
		out := ParseOutcome{Status: ParsingFailed, Error: scheduleFailedMessage, At: s.now()}
		if upErr := s.Repo.UpdateParsing(ctx, doc.ID, out); upErr != nil {
			return Document{}, upErr
		}
		doc.ParsingStatus = ParsingFailed
		doc.ParsingError = scheduleFailedMessage
		doc.ParsedAt = &out.At
		return doc, nil
	}

	telemetry.Info("documents.uploaded", map[string]any{
		"documentId": doc.ID,
		"userId":     doc.UserID,
		"type":       doc.Type,
		"mimeType":   doc.MimeType,
		"sizeBytes":  doc.SizeBytes,
	})
	return doc, nil
}

// ProcessParsing extracts and parses a stored document. Documents already in a
// terminal state are skipped, so redelivered jobs are harmless. Bad files are
// recorded as failed and return nil; storage and database errors are returned
// so the job is retried.
func (s *Service) ProcessParsing(ctx context.Context, documentID string) error {
	started := time.Now()
	doc, err := s.Repo.Get(ctx, documentID)
	if errors.Is(err, ErrNotFound) {
		telemetry.Warn("documents.parse_skipped", map[string]any{"documentId": documentID, "reason": "not_found"})
		return nil
	}
	if err != nil {
		return fmt.Errorf("load document %s: %w", documentID, err)
	}
	if doc.Finished() {
		return nil
	}

	metrics.ParseJobsActive.Inc()
	defer metrics.ParseJobsActive.Dec()

	text, err := extract.ExtractText(ctx, s.Store, doc.StorageKey, doc.MimeType, doc.OriginalFilename)
	if err != nil {
		if !permanentParseError(err) {
			metrics.ObserveParse("retry", started)
			return fmt.Errorf("extract document %s: %w", documentID, err)
		}
		out := ParseOutcome{Status: ParsingFailed, Error: parseErrorMessage(err), At: s.now()}
		if upErr := s.Repo.UpdateParsing(ctx, doc.ID, out); upErr != nil {
			return upErr
		}
		metrics.ObserveParse(ParsingFailed, started)
		telemetry.Warn("documents.parse_failed", map[string]any{"documentId": doc.ID, "error": err.Error()})
		return nil
	}

	kind := doc.DocumentType
	if doc.Type == TypeIELTS {
		kind = KindIELTS
	}
	parsed := extract.ParseAcademic(text, kind)
	parsed.ExtractionConfidence = extract.ConfidenceFor(doc.MimeType)

	out := ParseOutcome{Status: ParsingCompleted, Data: &parsed, At: s.now()}
	if err := s.Repo.UpdateParsing(ctx, doc.ID, out); err != nil {
		return err
	}
	metrics.ObserveParse(ParsingCompleted, started)
	telemetry.Info("documents.parsed", map[string]any{
		"documentId": doc.ID,
		"level":      parsed.Level,
		"hasGPA":     parsed.GPA != nil,
		"hasIELTS":   parsed.EnglishScore != nil,
	})
	return nil
}

// AbandonParsing marks a document failed once its parse job has run out of
// retries. Documents that already reached a terminal state are left alone.
func (s *Service) AbandonParsing(ctx context.Context, documentID string, cause error) error {
	started := time.Now()
	doc, err := s.Repo.Get(ctx, documentID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load document %s: %w", documentID, err)
	}
	if doc.Finished() {
		return nil
	}
	out := ParseOutcome{Status: ParsingFailed, Error: abandonedParseMessage, At: s.now()}
	if err := s.Repo.UpdateParsing(ctx, documentID, out); err != nil {
		return err
	}
	fields := map[string]any{"documentId": documentID}
	if cause != nil {
		fields["error"] = cause.Error()
	}
	metrics.ObserveParse(ParsingFailed, started)
	telemetry.Warn("documents.parse_abandoned", fields)
	return nil
}

// List returns a user's documents newest first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Document, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id required", ErrInvalidInput)
	}
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

// ListCompletedByUser returns the user's successfully parsed documents.
func (s *Service) ListCompletedByUser(ctx context.Context, userID string) ([]Document, error) {
	return s.Repo.ListCompletedByUser(ctx, userID)
}

// Get returns one of the user's documents.
func (s *Service) Get(ctx context.Context, userID, documentID string) (Document, error) {
	if userID == "" {
		return Document{}, fmt.Errorf("%w: user id required", ErrInvalidInput)
	}
	return s.Repo.GetByID(ctx, userID, documentID)
}

// Delete removes the document record and its stored files.
func (s *Service) Delete(ctx context.Context, userID, documentID string) error {
	doc, err := s.Get(ctx, userID, documentID)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, userID, documentID); err != nil {
		return err
	}
	for _, key := range []string{doc.StorageKey, doc.StorageKey + extract.ExtractedSuffix} {
		if err := s.Store.Delete(ctx, key); err != nil && !errors.Is(err, object.ErrNotFound) {
			telemetry.Warn("documents.orphaned_object", map[string]any{"storageKey": key, "error": err.Error()})
		}
	}
	return nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func normalizeTypes(rawType, rawKind string) (string, string, error) {
	docType := strings.ToLower(strings.TrimSpace(rawType))
	if docType == "" {
		docType = TypeOther
	}
	if !validTypes[docType] {
		return "", "", fmt.Errorf("%w: type must be one of +2, bachelor, master, phd, ielts, other", ErrInvalidInput)
	}

	kind := strings.ToLower(strings.TrimSpace(rawKind))
	if kind == "" {
		kind = KindOther
		if docType == TypeIELTS {
			kind = KindIELTS
		}
	}
	if !validKinds[kind] {
		return "", "", fmt.Errorf("%w: documentType must be one of transcript, certificate, passport, ielts, other", ErrInvalidInput)
	}
	return docType, kind, nil
}

func permanentParseError(err error) bool {
	return errors.Is(err, extract.ErrUnsupported) ||
		errors.Is(err, extract.ErrUnreadable) ||
		errors.Is(err, extract.ErrNoText) ||
		errors.Is(err, object.ErrNotFound)
}

func parseErrorMessage(err error) string {
	switch {
	case errors.Is(err, extract.ErrUnsupported):
		return "Text extraction is not supported for this file type"
	case errors.Is(err, extract.ErrNoText):
		return "No text could be found in the document"
	case errors.Is(err, object.ErrNotFound):
		return "Stored file is missing"
	default:
		return "The document could not be read"
	}
}
