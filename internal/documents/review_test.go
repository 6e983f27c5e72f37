package documents

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ownerBook map[string][2]string

func (o ownerBook) Owner(_ context.Context, userID string) (string, string, error) {
	who, ok := o[userID]
	if !ok {
		return "", "", errors.New("user not found")
	}
	return who[0], who[1], nil
}

func seedDocument(t *testing.T, repo *MemoryRepo, id, userID string, uploaded time.Time, verification string) {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), Document{
		ID:                 id,
		UserID:             userID,
		Type:               TypeBachelor,
		DocumentType:       KindTranscript,
		OriginalFilename:   id + ".pdf",
		StorageKey:         "k/" + id,
		MimeType:           "application/pdf",
		ParsingStatus:      ParsingCompleted,
		VerificationStatus: verification,
		UploadedAt:         uploaded,
	}))
}

func TestListPendingPagesNewestFirstWithOwners(t *testing.T) {
	env := newServiceEnv(t)
	env.svc.Owners = ownerBook{"user-1": {"Asha", "asha@example.com"}}
	for i, id := range []string{"d1", "d2", "d3"} {
		seedDocument(t, env.repo, id, "user-1", fixedNow.Add(time.Duration(i)*time.Hour), VerificationPending)
	}
	seedDocument(t, env.repo, "d4", "user-2", fixedNow.Add(10*time.Hour), VerificationPending)
	seedDocument(t, env.repo, "done", "user-1", fixedNow.Add(20*time.Hour), VerificationVerified)

	docs, page, err := env.svc.ListPending(context.Background(), 1, 3)
	require.NoError(t, err)
	assert.Equal(t, Pagination{Page: 1, PageSize: 3, Total: 4, TotalPages: 2}, page)
	require.Len(t, docs, 3)
	assert.Equal(t, []string{"d4", "d3", "d2"}, []string{docs[0].ID, docs[1].ID, docs[2].ID})
	assert.Empty(t, docs[0].OwnerName, "unknown owners are left blank")
	assert.Equal(t, "Asha", docs[1].OwnerName)
	assert.Equal(t, "asha@example.com", docs[2].OwnerEmail)

	docs, page, err = env.svc.ListPending(context.Background(), 2, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Page)
	require.Len(t, docs, 1)
	assert.Equal(t, "d1", docs[0].ID)
}

func TestListPendingDefaultsPaging(t *testing.T) {
	env := newServiceEnv(t)
	docs, page, err := env.svc.ListPending(context.Background(), 0, 500)
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.Equal(t, Pagination{Page: 1, PageSize: maxReviewPageSize}, page)
}

func TestVerifyRecordsDecision(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	seedDocument(t, env.repo, "d1", "user-1", fixedNow, VerificationPending)

	doc, err := env.svc.Verify(ctx, "admin-1", "user-1", "d1", " Rejected ", "  marks are illegible ")
	require.NoError(t, err)
	assert.Equal(t, VerificationRejected, doc.VerificationStatus)
	assert.Equal(t, "marks are illegible", doc.AdminNote)
	require.NotNil(t, doc.VerifiedAt)
	assert.True(t, fixedNow.Equal(*doc.VerifiedAt))

	doc, err = env.svc.Verify(ctx, "admin-1", "user-1", "d1", VerificationVerified, "")
	require.NoError(t, err)
	assert.Equal(t, VerificationVerified, doc.VerificationStatus)
	assert.Equal(t, "marks are illegible", doc.AdminNote, "an empty note keeps the previous one")

	_, page, err := env.svc.ListPending(ctx, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, page.Total)
}

func TestVerifyRejectsBadInput(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	seedDocument(t, env.repo, "d1", "user-1", fixedNow, VerificationPending)

	_, err := env.svc.Verify(ctx, "admin-1", "user-1", "d1", "pending", "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.svc.Verify(ctx, "admin-1", "user-1", "d1", VerificationVerified, strings.Repeat("x", maxAdminNoteLength+1))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.svc.Verify(ctx, "admin-1", "user-2", "d1", VerificationVerified, "")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.svc.Verify(ctx, "admin-1", "user-1", "missing", VerificationVerified, "")
	assert.ErrorIs(t, err, ErrNotFound)
}
