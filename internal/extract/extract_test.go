package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"applybro-backend/internal/shared/storage/object"
	"applybro-backend/internal/shared/storage/object/local"
)

// countingStore decorates a store the way instrumentation wrappers do.
type countingStore struct {
	object.ObjectStore
	opens int
}

func (s *countingStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	s.opens++
	return s.ObjectStore.Open(ctx, key)
}

func buildDocx(t *testing.T, paragraphs ...string) []byte {
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
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	if _, err := w.Write([]byte(body.String())); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestExtractTextFromBytes_ZipDocxNormalizes(t *testing.T) {
	data := buildDocx(t, "Bachelor of Science", "CGPA: 3.65 / 4.0")

	text, err := ExtractTextFromBytes(context.Background(), data, "application/zip", "transcript.docx")
	if err != nil {
		t.Fatalf("expected docx to extract from zip mime, got error: %v", err)
	}
	if !strings.Contains(text, "Bachelor of Science\nCGPA: 3.65 / 4.0") {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestExtractTextFromBytes_RealZipRejected(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("notes.txt")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	if _, err := w.Write([]byte("hello")); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}

	_, err = ExtractTextFromBytes(context.Background(), buf.Bytes(), "application/zip", "notes.zip")
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	if !strings.Contains(err.Error(), "application/zip") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExtractTextFromBytes_ImagesUnsupported(t *testing.T) {
	for _, mime := range []string{"image/png", "image/jpeg", "image/jpg"} {
		_, err := ExtractTextFromBytes(context.Background(), []byte{0x89, 'P', 'N', 'G'}, mime, "scan")
		if !errors.Is(err, ErrUnsupported) {
			t.Fatalf("%s: expected ErrUnsupported, got %v", mime, err)
		}
	}
}

func TestExtractTextFromBytes_EmptyDocx(t *testing.T) {
	data := buildDocx(t)
	_, err := ExtractTextFromBytes(context.Background(), data, mimeDOCX, "blank.docx")
	if !errors.Is(err, ErrNoText) {
		t.Fatalf("expected ErrNoText, got %v", err)
	}
}

func TestExtractTextFromBytes_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ExtractTextFromBytes(ctx, nil, mimePDF, "a.pdf"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNormalizeMimeType(t *testing.T) {
	cases := []struct {
		mime, name, want string
	}{
		{"application/pdf", "a.pdf", mimePDF},
		{"APPLICATION/PDF; charset=binary", "a.pdf", mimePDF},
		{"application/octet-stream", "a.pdf", mimePDF},
		{"image/jpg", "a.jpg", mimeJPEG},
		{"application/zip", "a.docx", mimeDOCX},
		{"text/plain", "a.txt", "text/plain"},
	}
	for _, tc := range cases {
		if got := NormalizeMimeType(tc.mime, tc.name, nil); got != tc.want {
			t.Fatalf("NormalizeMimeType(%q, %q) = %q, want %q", tc.mime, tc.name, got, tc.want)
		}
	}
}

func TestAcceptedAndConfidence(t *testing.T) {
	for _, mime := range []string{mimePDF, mimeDOCX, mimeJPEG, mimePNG} {
		if !Accepted(mime) {
			t.Fatalf("expected %s to be accepted", mime)
		}
	}
	if Accepted("text/plain") {
		t.Fatal("text/plain must be rejected")
	}
	if ConfidenceFor(mimePDF) != 85 || ConfidenceFor(mimePNG) != 0 {
		t.Fatalf("unexpected confidence values")
	}
}

func TestExtractText_PersistsExtractedCopy(t *testing.T) {
	ctx := context.Background()
	store := local.New(t.TempDir())
	key, _, _, err := store.Save(ctx, "user-1", "transcript.docx", bytes.NewReader(buildDocx(t, "GPA: 3.2")))
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	text, err := ExtractText(ctx, store, key, mimeDOCX, "transcript.docx")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if text != "GPA: 3.2" {
		t.Fatalf("unexpected text %q", text)
	}

	rc, err := store.Open(ctx, key+ExtractedSuffix)
	if err != nil {
		t.Fatalf("open extracted copy: %v", err)
	}
	defer rc.Close()
	saved, _ := io.ReadAll(rc)
	if string(saved) != "GPA: 3.2" {
		t.Fatalf("unexpected extracted copy %q", saved)
	}
}

func TestExtractText_WrappedStoreKeepsExtractedCopy(t *testing.T) {
	ctx := context.Background()
	inner := local.New(t.TempDir())
	key, _, _, err := inner.Save(ctx, "user-1", "transcript.docx", bytes.NewReader(buildDocx(t, "CGPA: 3.7")))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	store := &countingStore{ObjectStore: inner}

	if _, err := ExtractText(ctx, store, key, mimeDOCX, "transcript.docx"); err != nil {
		t.Fatalf("extract through wrapper: %v", err)
	}
	if store.opens != 1 {
		t.Fatalf("expected one read through the wrapper, got %d", store.opens)
	}
	rc, err := inner.Open(ctx, key+ExtractedSuffix)
	if err != nil {
		t.Fatalf("open extracted copy: %v", err)
	}
	defer rc.Close()
	saved, _ := io.ReadAll(rc)
	if string(saved) != "CGPA: 3.7" {
		t.Fatalf("unexpected extracted copy %q", saved)
	}
}

func TestExtractTextFromBytes_CorruptPDF(t *testing.T) {
	_, err := ExtractTextFromBytes(context.Background(), []byte("definitely not a pdf"), "application/pdf", "broken.pdf")
	if !errors.Is(err, ErrUnreadable) {
		t.Fatalf("expected ErrUnreadable, got %v", err)
	}
}
