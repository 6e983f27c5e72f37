package scholarships

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"applybro-backend/internal/shared/telemetry"
)

const (
	DefaultPageLimit    = 12
	MaxPageLimit        = 50
	DefaultPopularLimit = 10
	MaxPopularLimit     = 50
)

type Service struct {
	Repo Repo
	Now  func() time.Time
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo, Now: func() time.Time { return time.Now().UTC() }}
}

// Pagination describes one page of a listing.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

type ListResult struct {
	Scholarships []Scholarship `json:"scholarships"`
	Pagination   Pagination    `json:"pagination"`
}

// Detail is a single scholarship as seen by the caller.
type Detail struct {
	Scholarship
	IsBookmarked bool `json:"isBookmarked"`
}

// List returns a filtered page. Unverified records are only visible to admins
// that ask for them.
func (s *Service) List(ctx context.Context, f Filter, isAdmin bool) (ListResult, error) {
	if !isAdmin {
		f.IncludeUnverified = false
	}
	if f.Status != "" && !validStatus(f.Status) {
		return ListResult{}, fmt.Errorf("%w: status must be open, upcoming or closed", ErrInvalidInput)
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = DefaultPageLimit
	}
	if f.Limit > MaxPageLimit {
		f.Limit = MaxPageLimit
	}
	f.Country = strings.TrimSpace(f.Country)
	f.Level = strings.TrimSpace(f.Level)
	f.Field = strings.TrimSpace(f.Field)
	f.Search = strings.TrimSpace(f.Search)

	list, total, err := s.Repo.List(ctx, f)
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{
		Scholarships: list,
		Pagination: Pagination{
			Page:  f.Page,
			Limit: f.Limit,
			Total: total,
			Pages: int(math.Ceil(float64(total) / float64(f.Limit))),
		},
	}, nil
}

// Get returns one scholarship. Unverified records are hidden from non-admins.
func (s *Service) Get(ctx context.Context, id, userID string, isAdmin bool) (Detail, error) {
	sch, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	if !sch.Verified && !isAdmin {
		return Detail{}, ErrNotFound
	}
	detail := Detail{Scholarship: sch}
	if userID != "" {
		marked, err := s.Repo.IsBookmarked(ctx, userID, id)
		if err != nil {
			return Detail{}, err
		}
		detail.IsBookmarked = marked
	}
	return detail, nil
}

func (s *Service) Popular(ctx context.Context, limit int) ([]Scholarship, error) {
	if limit <= 0 {
		limit = DefaultPopularLimit
	}
	if limit > MaxPopularLimit {
		limit = MaxPopularLimit
	}
	return s.Repo.Popular(ctx, s.now(), limit)
}

// Create stores a new scholarship. Records created by an admin are verified.
func (s *Service) Create(ctx context.Context, in Scholarship, createdBy string, byAdmin bool) (Scholarship, error) {
	in.ID = uuid.NewString()
	in.CreatedBy = createdBy
	in.Verified = byAdmin
	if in.Status == "" {
		in.Status = StatusOpen
	}
	if err := s.prepare(&in); err != nil {
		return Scholarship{}, err
	}
	if err := s.Repo.Create(ctx, in); err != nil {
		return Scholarship{}, err
	}
	telemetry.Info("scholarship.created", map[string]any{
		"scholarship_id": in.ID,
		"created_by":     createdBy,
		"status":         in.Status,
	})
	return s.Repo.GetByID(ctx, in.ID)
}

// Update replaces the editable fields of an existing scholarship.
func (s *Service) Update(ctx context.Context, id string, in Scholarship) (Scholarship, error) {
	existing, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return Scholarship{}, err
	}
	in.ID = existing.ID
	in.CreatedBy = existing.CreatedBy
	in.Verified = existing.Verified
	if in.Status == "" {
		in.Status = existing.Status
	}
	if err := s.prepare(&in); err != nil {
		return Scholarship{}, err
	}
	if err := s.Repo.Update(ctx, in); err != nil {
		return Scholarship{}, err
	}
	telemetry.Info("scholarship.updated", map[string]any{"scholarship_id": id, "status": in.Status})
	return s.Repo.GetByID(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}
	telemetry.Info("scholarship.deleted", map[string]any{"scholarship_id": id})
	return nil
}

// ToggleBookmark flips the caller's bookmark and returns the new state.
func (s *Service) ToggleBookmark(ctx context.Context, userID, scholarshipID string) (bool, error) {
	if strings.TrimSpace(userID) == "" {
		return false, errors.New("user id is required")
	}
	if _, err := s.Repo.GetByID(ctx, scholarshipID); err != nil {
		return false, err
	}
	return s.Repo.ToggleBookmark(ctx, userID, scholarshipID)
}

func (s *Service) Bookmarks(ctx context.Context, userID string) ([]Scholarship, error) {
	return s.Repo.ListBookmarked(ctx, userID)
}

// prepare validates and normalizes a scholarship before it is written.
func (s *Service) prepare(in *Scholarship) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Country = strings.TrimSpace(in.Country)
	in.University.Name = strings.TrimSpace(in.University.Name)
	in.Fields = trimList(in.Fields)
	in.Eligibility.RequiredDocs = trimList(in.Eligibility.RequiredDocs)
	in.Eligibility.Nationality = trimList(in.Eligibility.Nationality)

	switch {
	case in.Title == "":
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	case in.Country == "":
		return fmt.Errorf("%w: country is required", ErrInvalidInput)
	case in.Deadline.IsZero():
		return fmt.Errorf("%w: deadline is required", ErrInvalidInput)
	case !validStatus(in.Status):
		return fmt.Errorf("%w: status must be open, upcoming or closed", ErrInvalidInput)
	}

	levels, err := normalizeLevels(in.Levels)
	if err != nil {
		return err
	}
	in.Levels = levels

	if g := in.Eligibility.MinGPA; g != nil && (*g < 0 || *g > 4) {
		return fmt.Errorf("%w: minGPA must be between 0 and 4", ErrInvalidInput)
	}
	if e := in.Eligibility.RequiredEnglishScore; e != nil && (*e < 0 || *e > 9) {
		return fmt.Errorf("%w: requiredEnglishScore must be between 0 and 9", ErrInvalidInput)
	}
	if a := in.Eligibility.AgeLimit; a != nil && *a <= 0 {
		return fmt.Errorf("%w: ageLimit must be positive", ErrInvalidInput)
	}
	if in.ExternalLink != "" {
		u, err := url.Parse(in.ExternalLink)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: externalLink must be an http(s) URL", ErrInvalidInput)
		}
	}

	in.Deadline = in.Deadline.UTC()
	in.Status = DeriveStatus(in.Status, in.Deadline, s.now())
	return nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func validStatus(status string) bool {
	return status == StatusOpen || status == StatusUpcoming || status == StatusClosed
}

func normalizeLevels(in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	for _, raw := range in {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		canon := ""
		for _, l := range Levels {
			if strings.EqualFold(l, raw) {
				canon = l
				break
			}
		}
		if canon == "" {
			return nil, fmt.Errorf("%w: unknown level %q", ErrInvalidInput, raw)
		}
		if !containsFold(out, canon) {
			out = append(out, canon)
		}
	}
	return out, nil
}

func trimList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
