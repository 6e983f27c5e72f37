package scholarships

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

type MemoryRepo struct {
	mu           sync.RWMutex
	scholarships map[string]Scholarship
	bookmarks    map[string]map[string]time.Time // userID -> scholarshipID -> created
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		scholarships: make(map[string]Scholarship),
		bookmarks:    make(map[string]map[string]time.Time),
	}
}

func (r *MemoryRepo) Create(ctx context.Context, s Scholarship) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now
	r.scholarships[s.ID] = clone(s)
	return nil
}

func (r *MemoryRepo) Update(ctx context.Context, s Scholarship) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.scholarships[s.ID]
	if !ok {
		return ErrNotFound
	}
	s.CreatedAt = existing.CreatedAt
	s.CreatedBy = existing.CreatedBy
	s.UpdatedAt = time.Now().UTC()
	r.scholarships[s.ID] = clone(s)
	return nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.scholarships[id]; !ok {
		return ErrNotFound
	}
	delete(r.scholarships, id)
	for _, marks := range r.bookmarks {
		delete(marks, id)
	}
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Scholarship, error) {
	if err := ctx.Err(); err != nil {
		return Scholarship{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.scholarships[id]
	if !ok {
		return Scholarship{}, ErrNotFound
	}
	return clone(s), nil
}

func (r *MemoryRepo) List(ctx context.Context, f Filter) ([]Scholarship, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	r.mu.RLock()
	matched := make([]Scholarship, 0)
	for _, s := range r.scholarships {
		if matchesFilter(s, f) {
			matched = append(matched, clone(s))
		}
	}
	r.mu.RUnlock()

	sortByDeadline(matched)
	total := len(matched)
	start := f.offset()
	if start >= total || start < 0 {
		return []Scholarship{}, total, nil
	}
	end := start + f.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (r *MemoryRepo) ListOpen(ctx context.Context, now time.Time, limit int) ([]Scholarship, error) {
	out, err := r.collect(ctx, func(s Scholarship) bool {
		return s.Status == StatusOpen && s.Verified && s.Deadline.After(now)
	})
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) ListMatchable(ctx context.Context) ([]Scholarship, error) {
	return r.collect(ctx, func(s Scholarship) bool {
		return s.Verified && (s.Status == StatusOpen || s.Status == StatusUpcoming)
	})
}

func (r *MemoryRepo) Popular(ctx context.Context, now time.Time, limit int) ([]Scholarship, error) {
	out, err := r.collect(ctx, func(s Scholarship) bool {
		return s.Status == StatusOpen && s.Verified && s.Deadline.After(now)
	})
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	counts := make(map[string]int)
	for _, marks := range r.bookmarks {
		for id := range marks {
			counts[id]++
		}
	}
	r.mu.RUnlock()

	for i := range out {
		out[i].BookmarkCount = counts[out[i].ID]
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].BookmarkCount != out[j].BookmarkCount {
			return out[i].BookmarkCount > out[j].BookmarkCount
		}
		return out[i].Deadline.Before(out[j].Deadline)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) ToggleBookmark(ctx context.Context, userID, scholarshipID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.scholarships[scholarshipID]; !ok {
		return false, ErrNotFound
	}
	marks := r.bookmarks[userID]
	if marks == nil {
		marks = make(map[string]time.Time)
		r.bookmarks[userID] = marks
	}
	if _, ok := marks[scholarshipID]; ok {
		delete(marks, scholarshipID)
		return false, nil
	}
	marks[scholarshipID] = time.Now().UTC()
	return true, nil
}

func (r *MemoryRepo) IsBookmarked(ctx context.Context, userID, scholarshipID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.bookmarks[userID][scholarshipID]
	return ok, nil
}

func (r *MemoryRepo) ListBookmarked(ctx context.Context, userID string) ([]Scholarship, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	type marked struct {
		s  Scholarship
		at time.Time
	}
	items := make([]marked, 0, len(r.bookmarks[userID]))
	for id, at := range r.bookmarks[userID] {
		if s, ok := r.scholarships[id]; ok {
			items = append(items, marked{s: clone(s), at: at})
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].at.After(items[j].at) })
	out := make([]Scholarship, 0, len(items))
	for _, it := range items {
		out = append(out, it.s)
	}
	return out, nil
}

func (r *MemoryRepo) collect(ctx context.Context, keep func(Scholarship) bool) ([]Scholarship, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Scholarship, 0)
	for _, s := range r.scholarships {
		if keep(s) {
			out = append(out, clone(s))
		}
	}
	sortByDeadline(out)
	return out, nil
}

func matchesFilter(s Scholarship, f Filter) bool {
	if !f.IncludeUnverified && !s.Verified {
		return false
	}
	if f.Status != "" {
		if s.Status != f.Status {
			return false
		}
	} else if s.Status != StatusOpen && s.Status != StatusUpcoming {
		return false
	}
	if f.Country != "" && !strings.EqualFold(s.Country, f.Country) {
		return false
	}
	if f.Level != "" && !containsFold(s.Levels, f.Level) {
		return false
	}
	if f.Field != "" && !anyContainsFold(s.Fields, f.Field) {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(s.Title), q) &&
			!strings.Contains(strings.ToLower(s.Description), q) &&
			!strings.Contains(strings.ToLower(s.Country), q) {
			return false
		}
	}
	return true
}

func sortByDeadline(list []Scholarship) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].Deadline.Equal(list[j].Deadline) {
			return list[i].Deadline.Before(list[j].Deadline)
		}
		return list[i].ID < list[j].ID
	})
}

func containsFold(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(item, v) {
			return true
		}
	}
	return false
}

func anyContainsFold(list []string, v string) bool {
	v = strings.ToLower(v)
	for _, item := range list {
		if strings.Contains(strings.ToLower(item), v) {
			return true
		}
	}
	return false
}

func clone(s Scholarship) Scholarship {
	s.Levels = append([]string{}, s.Levels...)
	s.Fields = append([]string{}, s.Fields...)
	s.Eligibility.RequiredDocs = append([]string{}, s.Eligibility.RequiredDocs...)
	s.Eligibility.Nationality = append([]string{}, s.Eligibility.Nationality...)
	if s.Eligibility.MinGPA != nil {
		v := *s.Eligibility.MinGPA
		s.Eligibility.MinGPA = &v
	}
	if s.Eligibility.RequiredEnglishScore != nil {
		v := *s.Eligibility.RequiredEnglishScore
		s.Eligibility.RequiredEnglishScore = &v
	}
	if s.Eligibility.AgeLimit != nil {
		v := *s.Eligibility.AgeLimit
		s.Eligibility.AgeLimit = &v
	}
	return s
}
