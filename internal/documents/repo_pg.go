package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"applybro-backend/internal/extract"
)

const documentColumns = `id, user_id, type, document_type, original_filename, storage_provider, storage_key,
  mime_type, size_bytes, parsed_data, parsing_status, parsing_error, verification_status, uploaded_at, parsed_at,
  admin_note, verified_at`

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new document.
func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO user_documents (
    id,
    user_id,
    type,
    document_type,
    original_filename,
    storage_provider,
    storage_key,
    mime_type,
    size_bytes,
    parsing_status,
    verification_status,
    uploaded_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	storageProvider := doc.StorageProvider
	if storageProvider == "" {
		storageProvider = "local"
	}
	status := doc.ParsingStatus
	if status == "" {
		status = ParsingPending
	}
	verification := doc.VerificationStatus
	if verification == "" {
		verification = VerificationPending
	}

	_, err := r.DB.ExecContext(
		ctx,
		query,
		doc.ID,
		doc.UserID,
		doc.Type,
		doc.DocumentType,
		doc.OriginalFilename,
		storageProvider,
		doc.StorageKey,
		doc.MimeType,
		doc.SizeBytes,
		status,
		verification,
		doc.UploadedAt,
	)
	return err
}

// Get fetches a document by ID.
func (r *PGRepo) Get(ctx context.Context, documentID string) (Document, error) {
	query := `SELECT ` + documentColumns + ` FROM user_documents WHERE id = $1 LIMIT 1`
	return scanOne(r.DB.QueryRowContext(ctx, query, documentID))
}

// GetByID fetches a document by ID for a user.
func (r *PGRepo) GetByID(ctx context.Context, userID, documentID string) (Document, error) {
	query := `SELECT ` + documentColumns + ` FROM user_documents WHERE user_id = $1 AND id = $2 LIMIT 1`
	return scanOne(r.DB.QueryRowContext(ctx, query, userID, documentID))
}

// ListByUser lists documents ordered newest-first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Document, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + documentColumns + `
FROM user_documents
WHERE user_id = $1
ORDER BY uploaded_at DESC, id ASC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return scanAll(rows)
}

// ListCompletedByUser lists the user's parsed documents ordered newest-first.
func (r *PGRepo) ListCompletedByUser(ctx context.Context, userID string) ([]Document, error) {
	query := `SELECT ` + documentColumns + `
FROM user_documents
WHERE user_id = $1 AND parsing_status = 'completed'
ORDER BY uploaded_at DESC, id ASC`

	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	return scanAll(rows)
}

// UpdateParsing stores the outcome of a parse job.
func (r *PGRepo) UpdateParsing(ctx context.Context, documentID string, out ParseOutcome) error {
	const query = `
UPDATE user_documents
SET parsing_status = $1, parsed_data = $2, parsing_error = $3, parsed_at = $4
WHERE id = $5`

	var parsed any
	if out.Data != nil {
		raw, err := json.Marshal(out.Data)
		if err != nil {
			return fmt.Errorf("encode parsed data: %w", err)
		}
		parsed = string(raw)
	}
	var parseErr sql.NullString
	if out.Error != "" {
		parseErr = sql.NullString{String: out.Error, Valid: true}
	}

	res, err := r.DB.ExecContext(ctx, query, out.Status, parsed, parseErr, out.At, documentID)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// Delete removes a user's document.
func (r *PGRepo) Delete(ctx context.Context, userID, documentID string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM user_documents WHERE user_id = $1 AND id = $2`, userID, documentID)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// ListPendingVerification lists documents awaiting review across all users.
func (r *PGRepo) ListPendingVerification(ctx context.Context, limit, offset int) ([]Document, int, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_documents WHERE verification_status = 'pending'`,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + documentColumns + `
FROM user_documents
WHERE verification_status = 'pending'
ORDER BY uploaded_at DESC, id ASC
LIMIT $1 OFFSET $2`
	rows, err := r.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	docs, err := scanAll(rows)
	if err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

// SetVerification stores an admin decision. An empty note keeps the old one.
func (r *PGRepo) SetVerification(ctx context.Context, userID, documentID string, v Verification) error {
	const query = `
UPDATE user_documents
SET verification_status = $1, admin_note = COALESCE($2, admin_note), verified_at = $3
WHERE user_id = $4 AND id = $5`

	var note sql.NullString
	if v.Note != "" {
		note = sql.NullString{String: v.Note, Valid: true}
	}
	res, err := r.DB.ExecContext(ctx, query, v.Status, note, v.At, userID, documentID)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOne(row rowScanner) (Document, error) {
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return doc, nil
}

func scanAll(rows *sql.Rows) ([]Document, error) {
	defer rows.Close()
	out := make([]Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	var parsed []byte
	var parseErr sql.NullString
	var parsedAt sql.NullTime
	var adminNote sql.NullString
	var verifiedAt sql.NullTime
	if err := row.Scan(
		&doc.ID,
		&doc.UserID,
		&doc.Type,
		&doc.DocumentType,
		&doc.OriginalFilename,
		&doc.StorageProvider,
		&doc.StorageKey,
		&doc.MimeType,
		&doc.SizeBytes,
		&parsed,
		&doc.ParsingStatus,
		&parseErr,
		&doc.VerificationStatus,
		&doc.UploadedAt,
		&parsedAt,
		&adminNote,
		&verifiedAt,
	); err != nil {
		return Document{}, err
	}
	if len(parsed) > 0 {
		var data extract.ParsedData
		if err := json.Unmarshal(parsed, &data); err != nil {
			return Document{}, fmt.Errorf("decode parsed data for %s: %w", doc.ID, err)
		}
		doc.ParsedData = &data
	}
	if parseErr.Valid {
		doc.ParsingError = parseErr.String
	}
	if parsedAt.Valid {
		doc.ParsedAt = &parsedAt.Time
	}
	doc.AdminNote = adminNote.String
	if verifiedAt.Valid {
		doc.VerifiedAt = &verifiedAt.Time
	}
	return doc, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

var _ Repo = (*PGRepo)(nil)
