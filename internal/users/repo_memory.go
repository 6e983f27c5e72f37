package users

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

type MemoryRepo struct {
	mu    sync.RWMutex
	users map[string]User
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{users: make(map[string]User)}
}

func (r *MemoryRepo) Create(ctx context.Context, user User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return ErrEmailTaken
		}
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = cloneUser(user)
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, userID string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[userID]
	if !ok {
		return User{}, ErrNotFound
	}
	return cloneUser(user), nil
}

func (r *MemoryRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if strings.EqualFold(user.Email, email) {
			return cloneUser(user), nil
		}
	}
	return User{}, ErrNotFound
}

func (r *MemoryRepo) UpdateProfile(ctx context.Context, user User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.users[user.ID]
	if !ok {
		return ErrNotFound
	}
	existing.Name = user.Name
	existing.Profile = user.Profile
	existing.UpdatedAt = time.Now().UTC()
	r.users[user.ID] = cloneUser(existing)
	return nil
}

func (r *MemoryRepo) List(ctx context.Context, f ListFilter) ([]User, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	search := strings.ToLower(f.Search)
	r.mu.RLock()
	out := []User{}
	for _, user := range r.users {
		if f.Role != "" && user.Role != f.Role {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(user.Name), search) &&
			!strings.Contains(strings.ToLower(user.Email), search) {
			continue
		}
		out = append(out, cloneUser(user))
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})

	total := len(out)
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []User{}, total, nil
	}
	end := total
	if f.Limit > 0 && offset+f.Limit < end {
		end = offset + f.Limit
	}
	return out[offset:end], total, nil
}

func (r *MemoryRepo) UpdateRole(ctx context.Context, userID, role string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.users[userID]
	if !ok {
		return ErrNotFound
	}
	existing.Role = role
	existing.UpdatedAt = time.Now().UTC()
	r.users[userID] = existing
	return nil
}

func cloneUser(u User) User {
	u.Profile.PreferredCountries = append([]string{}, u.Profile.PreferredCountries...)
	if u.Profile.GPA != nil {
		gpa := *u.Profile.GPA
		u.Profile.GPA = &gpa
	}
	return u
}
