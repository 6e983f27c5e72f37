package documents

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"applybro-backend/internal/extract"
	"applybro-backend/internal/queue"
	"applybro-backend/internal/shared/storage/object"
	"applybro-backend/internal/shared/storage/object/local"
)

type fakeQueue struct {
	mu   sync.Mutex
	msgs []queue.Message
	err  error
}

func (q *fakeQueue) Send(_ context.Context, msg queue.Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.msgs = append(q.msgs, msg)
	return nil
}

// flakyStore fails reads until healed.
type flakyStore struct {
	object.ObjectStore
	openErr error
}

func (s *flakyStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	return s.ObjectStore.Open(ctx, key)
}

type serviceEnv struct {
	svc   *Service
	repo  *MemoryRepo
	store object.ObjectStore
	queue *fakeQueue
}

var fixedNow = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func newServiceEnv(t *testing.T) serviceEnv {
	t.Helper()
	repo := NewMemoryRepo()
	store := local.New(t.TempDir())
	q := &fakeQueue{}
	svc := NewService(store, repo, q, "local")
	svc.Now = func() time.Time { return fixedNow }
	return serviceEnv{svc: svc, repo: repo, store: store, queue: q}
}

func docxBytes(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	var body strings.Builder
	body.WriteString(`<?xml version="1.0" encoding="UTF-8"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		body.WriteString("<w:p><w:r><w:t>" + p + "</w:t></w:r></w:p>")
	}
	body.WriteString("</w:body></w:document>")

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(body.String()))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func pngBytes() []byte {
	return append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)
}

func (e serviceEnv) upload(t *testing.T, in UploadInput) Document {
	t.Helper()
	if in.UserID == "" {
		in.UserID = "user-1"
	}
	doc, err := e.svc.Upload(context.Background(), in)
	require.NoError(t, err)
	return doc
}

func TestUploadThenParseTranscript(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	doc := env.upload(t, UploadInput{
		FileName:     "transcript.docx",
		Type:         "Bachelor",
		DocumentType: "transcript",
		RequestID:    "req-1",
		Body:         bytes.NewReader(docxBytes(t, "Bachelor of Science", "CGPA: 3.6 / 4.0", "Graduated: 2024")),
	})

	assert.Equal(t, ParsingProcessing, doc.ParsingStatus)
	assert.Equal(t, TypeBachelor, doc.Type)
	assert.Equal(t, KindTranscript, doc.DocumentType)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", doc.MimeType)
	assert.Equal(t, VerificationPending, doc.VerificationStatus)
	assert.Equal(t, fixedNow, doc.UploadedAt)

	require.Len(t, env.queue.msgs, 1)
	msg := env.queue.msgs[0]
	assert.Equal(t, doc.ID, msg.DocumentID)
	assert.Equal(t, "user-1", msg.UserID)
	assert.Equal(t, "req-1", msg.RequestID)

	require.NoError(t, env.svc.ProcessParsing(ctx, doc.ID))

	parsed, err := env.svc.Get(ctx, "user-1", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, ParsingCompleted, parsed.ParsingStatus)
	require.NotNil(t, parsed.ParsedData)
	assert.Equal(t, "Bachelor", parsed.ParsedData.Level)
	require.NotNil(t, parsed.ParsedData.GPA)
	assert.InDelta(t, 3.6, *parsed.ParsedData.GPA, 1e-9)
	assert.Equal(t, 85, parsed.ParsedData.ExtractionConfidence)
	require.NotNil(t, parsed.ParsedAt)

	completed, err := env.svc.ListCompletedByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, doc.ID, completed[0].ID)
}

func TestProcessParsingIsIdempotent(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	doc := env.upload(t, UploadInput{FileName: "t.docx", Body: bytes.NewReader(docxBytes(t, "GPA: 3.1"))})

	require.NoError(t, env.svc.ProcessParsing(ctx, doc.ID))
	first, err := env.repo.Get(ctx, doc.ID)
	require.NoError(t, err)

	env.svc.Now = func() time.Time { return fixedNow.Add(time.Hour) }
	require.NoError(t, env.svc.ProcessParsing(ctx, doc.ID))
	second, err := env.repo.Get(ctx, doc.ID)
	require.NoError(t, err)

	assert.Equal(t, *first.ParsedAt, *second.ParsedAt)
}

func TestIELTSUploadReadsBands(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	doc := env.upload(t, UploadInput{
		FileName: "trf.docx",
		Type:     "ielts",
		Body:     bytes.NewReader(docxBytes(t, "Listening 7.0", "Reading 6.5", "Writing 6.0", "Speaking 6.5")),
	})
	assert.Equal(t, KindIELTS, doc.DocumentType)

	require.NoError(t, env.svc.ProcessParsing(ctx, doc.ID))
	got, err := env.repo.Get(ctx, doc.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ParsedData)
	require.NotNil(t, got.ParsedData.EnglishScore)
	require.NotNil(t, got.ParsedData.EnglishScore.Overall)
	assert.InDelta(t, 6.5, *got.ParsedData.EnglishScore.Overall, 1e-9)
}

func TestImageUploadIsStoredButParsingFails(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	doc := env.upload(t, UploadInput{FileName: "scan.png", Type: "+2", Body: bytes.NewReader(pngBytes())})
	assert.Equal(t, "image/png", doc.MimeType)

	require.NoError(t, env.svc.ProcessParsing(ctx, doc.ID))

	got, err := env.repo.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, ParsingFailed, got.ParsingStatus)
	assert.Equal(t, "Text extraction is not supported for this file type", got.ParsingError)
	assert.Nil(t, got.ParsedData)

	completed, err := env.svc.ListCompletedByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, completed)
}

func TestUploadValidation(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   UploadInput
		want error
	}{
		{"plain text", UploadInput{UserID: "u", FileName: "notes.txt", Body: strings.NewReader("hello world")}, ErrInvalidInput},
		{"empty", UploadInput{UserID: "u", FileName: "a.pdf", Body: strings.NewReader("")}, ErrInvalidInput},
		{"no name", UploadInput{UserID: "u", FileName: " ", Body: bytes.NewReader(pngBytes())}, ErrInvalidInput},
		{"bad type", UploadInput{UserID: "u", FileName: "a.png", Type: "diploma", Body: bytes.NewReader(pngBytes())}, ErrInvalidInput},
		{"bad kind", UploadInput{UserID: "u", FileName: "a.png", DocumentType: "selfie", Body: bytes.NewReader(pngBytes())}, ErrInvalidInput},
		{"too large", UploadInput{UserID: "u", FileName: "a.png", Body: bytes.NewReader(append(pngBytes(), make([]byte, MaxUploadSize)...))}, ErrTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.svc.Upload(ctx, tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}
	assert.Empty(t, env.queue.msgs)
}

func TestUploadMarksFailedWhenQueueRejects(t *testing.T) {
	env := newServiceEnv(t)
	env.queue.err = errors.New("sqs unavailable")

	doc := env.upload(t, UploadInput{FileName: "t.docx", Body: bytes.NewReader(docxBytes(t, "GPA: 3.1"))})
	assert.Equal(t, ParsingFailed, doc.ParsingStatus)
	assert.Equal(t, scheduleFailedMessage, doc.ParsingError)

	stored, err := env.repo.Get(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, ParsingFailed, stored.ParsingStatus)
}

func TestProcessParsingRetriesOnStorageErrors(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	flaky := &flakyStore{ObjectStore: env.store, openErr: errors.New("connection reset")}
	env.svc.Store = flaky

	doc := env.upload(t, UploadInput{FileName: "t.docx", Body: bytes.NewReader(docxBytes(t, "GPA: 3.1"))})

	err := env.svc.ProcessParsing(ctx, doc.ID)
	require.Error(t, err)
	got, _ := env.repo.Get(ctx, doc.ID)
	assert.Equal(t, ParsingProcessing, got.ParsingStatus)

	flaky.openErr = nil
	require.NoError(t, env.svc.ProcessParsing(ctx, doc.ID))
	got, _ = env.repo.Get(ctx, doc.ID)
	assert.Equal(t, ParsingCompleted, got.ParsingStatus)
}

func TestInProcessParsingGivesUpAfterRetries(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	env.svc.Store = &flakyStore{ObjectStore: env.store, openErr: errors.New("connection reset")}
	inproc := queue.NewInProcessClient(1).WithRetry(2, time.Millisecond)
	inproc.Bind(env.svc)
	env.svc.Queue = inproc

	doc := env.upload(t, UploadInput{FileName: "t.docx", Body: bytes.NewReader(docxBytes(t, "GPA: 3.1"))})
	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, inproc.Wait(waitCtx))

	got, err := env.repo.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, ParsingFailed, got.ParsingStatus)
	assert.Equal(t, abandonedParseMessage, got.ParsingError)
	require.NotNil(t, got.ParsedAt)
}

func TestAbandonParsingLeavesFinishedDocuments(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	doc := env.upload(t, UploadInput{FileName: "t.docx", Body: bytes.NewReader(docxBytes(t, "GPA: 3.1"))})
	require.NoError(t, env.svc.ProcessParsing(ctx, doc.ID))

	require.NoError(t, env.svc.AbandonParsing(ctx, doc.ID, errors.New("late failure")))
	got, _ := env.repo.Get(ctx, doc.ID)
	assert.Equal(t, ParsingCompleted, got.ParsingStatus)
	assert.Empty(t, got.ParsingError)

	assert.NoError(t, env.svc.AbandonParsing(ctx, "missing", nil))
}

func TestProcessParsingMissingFileFails(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	doc := env.upload(t, UploadInput{FileName: "t.docx", Body: bytes.NewReader(docxBytes(t, "GPA: 3.1"))})
	require.NoError(t, env.store.Delete(ctx, doc.StorageKey))

	require.NoError(t, env.svc.ProcessParsing(ctx, doc.ID))
	got, _ := env.repo.Get(ctx, doc.ID)
	assert.Equal(t, ParsingFailed, got.ParsingStatus)
	assert.Equal(t, "Stored file is missing", got.ParsingError)
}

func TestProcessParsingUnknownDocument(t *testing.T) {
	env := newServiceEnv(t)
	assert.NoError(t, env.svc.ProcessParsing(context.Background(), "missing"))
}

func TestGetAndDeleteAreScopedToOwner(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	doc := env.upload(t, UploadInput{FileName: "t.docx", Body: bytes.NewReader(docxBytes(t, "GPA: 3.1"))})
	require.NoError(t, env.svc.ProcessParsing(ctx, doc.ID))

	_, err := env.svc.Get(ctx, "intruder", doc.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, env.svc.Delete(ctx, "intruder", doc.ID), ErrNotFound)

	require.NoError(t, env.svc.Delete(ctx, "user-1", doc.ID))
	_, err = env.svc.Get(ctx, "user-1", doc.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.store.Open(ctx, doc.StorageKey)
	assert.ErrorIs(t, err, object.ErrNotFound)
	_, err = env.store.Open(ctx, doc.StorageKey+extract.ExtractedSuffix)
	assert.ErrorIs(t, err, object.ErrNotFound)
}

func TestListNewestFirst(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	older := env.upload(t, UploadInput{FileName: "a.png", Body: bytes.NewReader(pngBytes())})
	env.svc.Now = func() time.Time { return fixedNow.Add(time.Minute) }
	newer := env.upload(t, UploadInput{FileName: "b.png", Body: bytes.NewReader(pngBytes())})

	docs, err := env.svc.List(ctx, "user-1", 10, 0)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, newer.ID, docs[0].ID)
	assert.Equal(t, older.ID, docs[1].ID)

	docs, err = env.svc.List(ctx, "user-1", 1, 1)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, older.ID, docs[0].ID)
}
