package scholarships

import (
	"context"
	"time"
)

type Repo interface {
	Create(ctx context.Context, s Scholarship) error
	Update(ctx context.Context, s Scholarship) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (Scholarship, error)
	// List returns one page plus the total number of matching rows.
	List(ctx context.Context, f Filter) ([]Scholarship, int, error)
	// ListOpen returns open, verified scholarships with deadline after now,
	// soonest deadline first.
	ListOpen(ctx context.Context, now time.Time, limit int) ([]Scholarship, error)
	// ListMatchable returns open or upcoming verified scholarships.
	ListMatchable(ctx context.Context) ([]Scholarship, error)
	// Popular orders open, verified, unexpired scholarships by bookmark count.
	Popular(ctx context.Context, now time.Time, limit int) ([]Scholarship, error)

	ToggleBookmark(ctx context.Context, userID, scholarshipID string) (bool, error)
	IsBookmarked(ctx context.Context, userID, scholarshipID string) (bool, error)
	ListBookmarked(ctx context.Context, userID string) ([]Scholarship, error)
}
