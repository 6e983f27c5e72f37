package users

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
)

const (
	maxNameLength         = 120
	maxPreferredCountries = 20
	defaultPageSize       = 20
	maxPageSize           = 100
)

// Pagination describes one page of the admin user listing.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

type Service struct {
	Repo Repo
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

// Register stores a new account. The caller hashes the password.
func (s *Service) Register(ctx context.Context, name, email, passwordHash, role string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" || passwordHash == "" {
		return User{}, fmt.Errorf("%w: name, email and password are required", ErrInvalidInput)
	}
	if role != RoleAdmin {
		role = RoleStudent
	}
	user := User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		Profile:      Profile{PreferredCountries: []string{}},
	}
	if err := s.Repo.Create(ctx, user); err != nil {
		return User{}, err
	}
	return s.Repo.GetByID(ctx, user.ID)
}

func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return User{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return s.Repo.GetByID(ctx, userID)
}

func (s *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return User{}, ErrNotFound
	}
	return s.Repo.GetByEmail(ctx, email)
}

// UpdateProfile applies a partial update and returns the stored user.
func (s *Service) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (User, error) {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return User{}, err
	}

	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" || len(name) > maxNameLength {
			return User{}, fmt.Errorf("%w: name must be 1-%d characters", ErrInvalidInput, maxNameLength)
		}
		user.Name = name
	}
	if upd.EducationLevel != nil {
		level, ok := normalizeEducationLevel(*upd.EducationLevel)
		if !ok {
			return User{}, fmt.Errorf("%w: educationLevel must be one of %s", ErrInvalidInput, strings.Join(EducationLevels, ", "))
		}
		user.Profile.EducationLevel = level
	}
	if upd.Major != nil {
		user.Profile.Major = strings.TrimSpace(*upd.Major)
	}
	if upd.GPA != nil {
		if *upd.GPA < 0 || *upd.GPA > 4 {
			return User{}, fmt.Errorf("%w: gpa must be between 0 and 4", ErrInvalidInput)
		}
		gpa := *upd.GPA
		user.Profile.GPA = &gpa
	}
	if upd.PreferredCountries != nil {
		countries := dedupeCountries(upd.PreferredCountries)
		if len(countries) > maxPreferredCountries {
			return User{}, fmt.Errorf("%w: at most %d preferred countries", ErrInvalidInput, maxPreferredCountries)
		}
		user.Profile.PreferredCountries = countries
	}
	if upd.Country != nil {
		user.Profile.Country = strings.TrimSpace(*upd.Country)
	}

	if err := s.Repo.UpdateProfile(ctx, user); err != nil {
		return User{}, err
	}
	return s.Repo.GetByID(ctx, userID)
}

// List pages through users for admins, newest first.
func (s *Service) List(ctx context.Context, role, search string, page, pageSize int) ([]User, Pagination, error) {
	if s == nil || s.Repo == nil {
		return nil, Pagination{}, errors.New("users service not configured")
	}
	role = strings.ToLower(strings.TrimSpace(role))
	if role != "" && !validRole(role) {
		return nil, Pagination{}, fmt.Errorf("%w: role must be student or admin", ErrInvalidInput)
	}
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	list, total, err := s.Repo.List(ctx, ListFilter{
		Role:   role,
		Search: strings.TrimSpace(search),
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	})
	if err != nil {
		return nil, Pagination{}, err
	}
	return list, Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}, nil
}

// UpdateRole changes a user's role. Admins cannot demote themselves, so the
// console always keeps at least the caller as an admin.
func (s *Service) UpdateRole(ctx context.Context, actorID, userID, role string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	role = strings.ToLower(strings.TrimSpace(role))
	if !validRole(role) {
		return User{}, fmt.Errorf("%w: role must be student or admin", ErrInvalidInput)
	}
	if actorID != "" && actorID == userID && role != RoleAdmin {
		return User{}, fmt.Errorf("%w: admins cannot remove their own admin role", ErrInvalidInput)
	}
	if err := s.Repo.UpdateRole(ctx, userID, role); err != nil {
		return User{}, err
	}
	return s.Repo.GetByID(ctx, userID)
}

func validRole(role string) bool {
	return role == RoleStudent || role == RoleAdmin
}

// normalizeEducationLevel accepts case variants; an empty value clears the level.
func normalizeEducationLevel(level string) (string, bool) {
	level = strings.TrimSpace(level)
	if level == "" {
		return "", true
	}
	for _, l := range EducationLevels {
		if strings.EqualFold(l, level) {
			return l, true
		}
	}
	return "", false
}

func dedupeCountries(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, c := range in {
		c = strings.TrimSpace(c)
		key := strings.ToLower(c)
		if c == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}
