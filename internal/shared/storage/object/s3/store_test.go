package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"applybro-backend/internal/shared/storage/object"
	"applybro-backend/internal/shared/util"
)

type fakeAPI struct {
	puts      []*s3.PutObjectInput
	bodies    []string
	getErr    error
	deleteErr error
	deleted   []string
}

func (f *fakeAPI) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.puts = append(f.puts, in)
	f.bodies = append(f.bodies, string(b))
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeAPI) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader("body of " + *in.Key))}, nil
}

func (f *fakeAPI) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	f.deleted = append(f.deleted, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestApplyPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", prefix: "", key: "abc/transcript.pdf", want: "abc/transcript.pdf"},
		{name: "prefix", prefix: "documents", key: "abc/transcript.pdf", want: "documents/abc/transcript.pdf"},
		{name: "slashes on both sides", prefix: "/documents/", key: "/abc/transcript.pdf", want: "documents/abc/transcript.pdf"},
		{name: "empty key", prefix: "documents", key: "", want: "documents"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := applyPrefix(tt.prefix, tt.key); got != tt.want {
				t.Fatalf("applyPrefix(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
			}
		})
	}
}

func TestSaveWritesUnderHashedUserDirWithKMS(t *testing.T) {
	api := &fakeAPI{}
	store := NewWithClient(api, "bucket", "/documents/", "kms-key")

	key, size, mimeType, err := store.Save(context.Background(), "user-1", "my transcript?.pdf", strings.NewReader("%PDF-1.4 grades"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasPrefix(key, util.HashUserKey("user-1")+"/") || !strings.HasSuffix(key, "_my transcript_.pdf") {
		t.Fatalf("unexpected storage key %q", key)
	}
	if size != int64(len("%PDF-1.4 grades")) || mimeType != "application/pdf" {
		t.Fatalf("size=%d mime=%q", size, mimeType)
	}

	in := api.puts[0]
	if *in.Key != "documents/"+key || *in.Bucket != "bucket" {
		t.Fatalf("put bucket=%s key=%s", *in.Bucket, *in.Key)
	}
	if in.ServerSideEncryption != s3types.ServerSideEncryptionAwsKms || *in.SSEKMSKeyId != "kms-key" {
		t.Fatalf("expected kms encryption, got %q", in.ServerSideEncryption)
	}
	if api.bodies[0] != "%PDF-1.4 grades" {
		t.Fatalf("body = %q", api.bodies[0])
	}
}

func TestSaveWithKeyDefaultsToAES256(t *testing.T) {
	api := &fakeAPI{}
	store := NewWithClient(api, "bucket", "", "")

	n, err := store.SaveWithKey(context.Background(), "abc/doc.txt", "text/plain; charset=utf-8", strings.NewReader("GPA 3.6"))
	if err != nil || n != 7 {
		t.Fatalf("SaveWithKey = %d, %v", n, err)
	}
	in := api.puts[0]
	if in.ServerSideEncryption != s3types.ServerSideEncryptionAes256 || in.SSEKMSKeyId != nil {
		t.Fatalf("expected AES256, got %q", in.ServerSideEncryption)
	}
	if *in.ContentType != "text/plain; charset=utf-8" || *in.Key != "abc/doc.txt" {
		t.Fatalf("content type %q key %q", *in.ContentType, *in.Key)
	}
}

func TestSaveRejectsTraversalNames(t *testing.T) {
	api := &fakeAPI{}
	store := NewWithClient(api, "bucket", "", "")
	if _, _, _, err := store.Save(context.Background(), "u", "../x.pdf", strings.NewReader("x")); !errors.Is(err, util.ErrInvalidFileName) {
		t.Fatalf("expected invalid file name, got %v", err)
	}
	if len(api.puts) != 0 {
		t.Fatalf("nothing should be uploaded")
	}
}

func TestOpenMapsMissingKeys(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{name: "typed", err: &s3types.NoSuchKey{}},
		{name: "api code", err: &smithy.GenericAPIError{Code: "NotFound"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := NewWithClient(&fakeAPI{getErr: tc.err}, "bucket", "documents", "")
			if _, err := store.Open(context.Background(), "abc/doc.pdf"); !errors.Is(err, object.ErrNotFound) {
				t.Fatalf("expected object.ErrNotFound, got %v", err)
			}
		})
	}
}

func TestOpenReadsPrefixedKey(t *testing.T) {
	store := NewWithClient(&fakeAPI{}, "bucket", "documents", "")
	rc, err := store.Open(context.Background(), "abc/doc.pdf")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	if string(b) != "body of documents/abc/doc.pdf" {
		t.Fatalf("read %q", b)
	}
}

func TestDeleteMapsNoSuchKeyToNotFound(t *testing.T) {
	store := NewWithClient(&fakeAPI{deleteErr: &smithy.GenericAPIError{Code: "NoSuchKey", Message: "gone"}}, "bucket", "", "")
	if err := store.Delete(context.Background(), "abc/doc.pdf"); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected object.ErrNotFound, got %v", err)
	}
}

func TestDeleteWrapsOtherErrors(t *testing.T) {
	cause := &smithy.GenericAPIError{Code: "AccessDenied"}
	store := NewWithClient(&fakeAPI{deleteErr: cause}, "bucket", "", "")
	err := store.Delete(context.Background(), "abc/doc.pdf")
	if err == nil || errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected wrapped access error, got %v", err)
	}
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) || apiErr.ErrorCode() != "AccessDenied" {
		t.Fatalf("cause not preserved: %v", err)
	}
}

func TestDeleteUsesPrefix(t *testing.T) {
	api := &fakeAPI{}
	store := NewWithClient(api, "bucket", "documents", "")
	if err := store.Delete(context.Background(), "abc/doc.pdf"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(api.deleted) != 1 || api.deleted[0] != "documents/abc/doc.pdf" {
		t.Fatalf("deleted %v", api.deleted)
	}
}

func TestCanceledContextSkipsCalls(t *testing.T) {
	api := &fakeAPI{}
	store := NewWithClient(api, "bucket", "", "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := store.Delete(ctx, "abc/doc.pdf"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(api.deleted) != 0 {
		t.Fatalf("delete should not reach s3")
	}
}
