package queue

import (
	"errors"
	"testing"
	"time"
)

func TestNewMessageStampsVersionAndTime(t *testing.T) {
	now := time.Date(2026, 1, 30, 22, 0, 0, 0, time.FixedZone("NPT", 5*3600+45*60))
	msg := NewMessage("doc-1", "user-1", "req-1", now)

	if msg.Version != MessageVersion {
		t.Fatalf("expected version %d, got %d", MessageVersion, msg.Version)
	}
	if msg.EnqueuedAt != "2026-01-30T16:15:00Z" {
		t.Fatalf("unexpected enqueuedAt %q", msg.EnqueuedAt)
	}
}

func TestDecodeMessage(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		wantErr bool
		wantDoc string
	}{
		{name: "valid", payload: `{"documentId":" doc-1 ","userId":"u","version":1}`, wantDoc: "doc-1"},
		{name: "legacy without version", payload: `{"documentId":"doc-2"}`, wantDoc: "doc-2"},
		{name: "not json", payload: `not-json`, wantErr: true},
		{name: "missing document", payload: `{"userId":"u","version":1}`, wantErr: true},
		{name: "future version", payload: `{"documentId":"doc-3","version":9}`, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg, err := DecodeMessage([]byte(tc.payload))
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidMessage) {
					t.Fatalf("expected ErrInvalidMessage, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if msg.DocumentID != tc.wantDoc {
				t.Fatalf("expected document %q, got %q", tc.wantDoc, msg.DocumentID)
			}
		})
	}
}
