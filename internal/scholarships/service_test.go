package scholarships

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

func newTestService() *Service {
	svc := NewService(NewMemoryRepo())
	svc.Now = func() time.Time { return fixedNow }
	return svc
}

func seed(t *testing.T, svc *Service, in Scholarship, admin bool) Scholarship {
	t.Helper()
	out, err := svc.Create(context.Background(), in, "admin-1", admin)
	require.NoError(t, err)
	return out
}

func TestDeriveStatus(t *testing.T) {
	cases := []struct {
		name     string
		status   string
		deadline time.Time
		want     string
	}{
		{"past deadline closes", StatusOpen, fixedNow.Add(-time.Hour), StatusClosed},
		{"upcoming within a week opens", StatusUpcoming, fixedNow.Add(6 * 24 * time.Hour), StatusOpen},
		{"upcoming far away stays", StatusUpcoming, fixedNow.Add(20 * 24 * time.Hour), StatusUpcoming},
		{"closed in future stays closed", StatusClosed, fixedNow.Add(20 * 24 * time.Hour), StatusClosed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DeriveStatus(tc.status, tc.deadline, fixedNow))
		})
	}
}

func TestCreateNormalizesAndVerifiesAdminRecords(t *testing.T) {
	svc := newTestService()

	out := seed(t, svc, Scholarship{
		Title:    "  DAAD Masters ",
		Country:  "Germany",
		Levels:   []string{"master", "Master", "phd"},
		Fields:   []string{"Engineering", " "},
		Deadline: fixedNow.Add(3 * 24 * time.Hour),
		Status:   StatusUpcoming,
	}, true)

	assert.NotEmpty(t, out.ID)
	assert.Equal(t, "DAAD Masters", out.Title)
	assert.Equal(t, []string{"Master", "PhD"}, out.Levels)
	assert.Equal(t, []string{"Engineering"}, out.Fields)
	assert.True(t, out.Verified)
	assert.Equal(t, StatusOpen, out.Status)
	assert.Equal(t, "admin-1", out.CreatedBy)
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService()
	bad := 4.2
	cases := map[string]Scholarship{
		"missing title": {Country: "UK", Deadline: fixedNow},
		"unknown level": {Title: "x", Country: "UK", Deadline: fixedNow, Levels: []string{"Diploma"}},
		"gpa range":     {Title: "x", Country: "UK", Deadline: fixedNow, Eligibility: Eligibility{MinGPA: &bad}},
		"bad link":      {Title: "x", Country: "UK", Deadline: fixedNow, ExternalLink: "ftp://example.com"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), in, "admin-1", true)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestListFiltersAndPaginates(t *testing.T) {
	svc := newTestService()
	seed(t, svc, Scholarship{Title: "Chevening", Country: "UK", Levels: []string{"Master"}, Fields: []string{"Public Policy"}, Deadline: fixedNow.Add(40 * 24 * time.Hour)}, true)
	seed(t, svc, Scholarship{Title: "DAAD", Country: "Germany", Levels: []string{"Master"}, Fields: []string{"Computer Engineering"}, Deadline: fixedNow.Add(20 * 24 * time.Hour)}, true)
	seed(t, svc, Scholarship{Title: "MEXT", Country: "Japan", Levels: []string{"Bachelor"}, Deadline: fixedNow.Add(30 * 24 * time.Hour)}, true)
	seed(t, svc, Scholarship{Title: "Hidden", Country: "UK", Levels: []string{"Master"}, Deadline: fixedNow.Add(10 * 24 * time.Hour)}, false)
	seed(t, svc, Scholarship{Title: "Gone", Country: "UK", Deadline: fixedNow.Add(-24 * time.Hour)}, true)
	ctx := context.Background()

	all, err := svc.List(ctx, Filter{}, false)
	require.NoError(t, err)
	assert.Equal(t, 3, all.Pagination.Total)
	assert.Equal(t, DefaultPageLimit, all.Pagination.Limit)
	assert.Equal(t, "DAAD", all.Scholarships[0].Title)

	masters, err := svc.List(ctx, Filter{Level: "Master"}, false)
	require.NoError(t, err)
	assert.Equal(t, 2, masters.Pagination.Total)

	eng, err := svc.List(ctx, Filter{Field: "engineering"}, false)
	require.NoError(t, err)
	require.Len(t, eng.Scholarships, 1)
	assert.Equal(t, "DAAD", eng.Scholarships[0].Title)

	search, err := svc.List(ctx, Filter{Search: "japan"}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, search.Pagination.Total)

	paged, err := svc.List(ctx, Filter{Page: 2, Limit: 2}, false)
	require.NoError(t, err)
	assert.Len(t, paged.Scholarships, 1)
	assert.Equal(t, 2, paged.Pagination.Pages)

	adminView, err := svc.List(ctx, Filter{IncludeUnverified: true, Country: "uk"}, true)
	require.NoError(t, err)
	assert.Equal(t, 2, adminView.Pagination.Total)

	studentView, err := svc.List(ctx, Filter{IncludeUnverified: true, Country: "uk"}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, studentView.Pagination.Total)

	closed, err := svc.List(ctx, Filter{Status: StatusClosed}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, closed.Pagination.Total)

	_, err = svc.List(ctx, Filter{Status: "archived"}, false)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestGetHidesUnverifiedAndReportsBookmark(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	visible := seed(t, svc, Scholarship{Title: "A", Country: "UK", Deadline: fixedNow.Add(40 * 24 * time.Hour)}, true)
	hidden := seed(t, svc, Scholarship{Title: "B", Country: "UK", Deadline: fixedNow.Add(40 * 24 * time.Hour)}, false)

	_, err := svc.Get(ctx, hidden.ID, "u1", false)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Get(ctx, hidden.ID, "admin", true)
	assert.NoError(t, err)

	marked, err := svc.ToggleBookmark(ctx, "u1", visible.ID)
	require.NoError(t, err)
	assert.True(t, marked)

	detail, err := svc.Get(ctx, visible.ID, "u1", false)
	require.NoError(t, err)
	assert.True(t, detail.IsBookmarked)

	marked, err = svc.ToggleBookmark(ctx, "u1", visible.ID)
	require.NoError(t, err)
	assert.False(t, marked)

	_, err = svc.ToggleBookmark(ctx, "u1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPopularOrdersByBookmarks(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	a := seed(t, svc, Scholarship{Title: "A", Country: "UK", Deadline: fixedNow.Add(10 * 24 * time.Hour)}, true)
	b := seed(t, svc, Scholarship{Title: "B", Country: "UK", Deadline: fixedNow.Add(50 * 24 * time.Hour)}, true)
	seed(t, svc, Scholarship{Title: "C", Country: "UK", Deadline: fixedNow.Add(5 * 24 * time.Hour)}, true)

	for _, user := range []string{"u1", "u2"} {
		_, err := svc.ToggleBookmark(ctx, user, b.ID)
		require.NoError(t, err)
	}
	_, err := svc.ToggleBookmark(ctx, "u1", a.ID)
	require.NoError(t, err)

	popular, err := svc.Popular(ctx, 0)
	require.NoError(t, err)
	require.Len(t, popular, 3)
	assert.Equal(t, "B", popular[0].Title)
	assert.Equal(t, 2, popular[0].BookmarkCount)
	assert.Equal(t, "A", popular[1].Title)
	assert.Equal(t, "C", popular[2].Title)

	saved, err := svc.Bookmarks(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, saved, 2)
}

func TestUpdateAndDelete(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	orig := seed(t, svc, Scholarship{Title: "A", Country: "UK", Deadline: fixedNow.Add(40 * 24 * time.Hour)}, true)

	updated, err := svc.Update(ctx, orig.ID, Scholarship{Title: "A2", Country: "UK", Deadline: fixedNow.Add(-time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, "A2", updated.Title)
	assert.Equal(t, StatusClosed, updated.Status)
	assert.Equal(t, "admin-1", updated.CreatedBy)

	require.NoError(t, svc.Delete(ctx, orig.ID))
	assert.ErrorIs(t, svc.Delete(ctx, orig.ID), ErrNotFound)
	_, err = svc.Update(ctx, orig.ID, Scholarship{Title: "x", Country: "UK", Deadline: fixedNow})
	assert.ErrorIs(t, err, ErrNotFound)
}
