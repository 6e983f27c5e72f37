package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	sharedauth "applybro-backend/internal/shared/auth"
	"applybro-backend/internal/shared/telemetry"
	"applybro-backend/internal/shared/util"
	"applybro-backend/internal/users"
)

const (
	minPasswordLength = 8
	// bcrypt ignores input past 72 bytes.
	maxPasswordLength = 72
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidRefresh     = errors.New("invalid refresh token")
)

// Session is what signup, login and refresh hand back to the client.
type Session struct {
	User   users.User
	Tokens sharedauth.TokenPair
}

type Service struct {
	Users        *users.Service
	Tokens       *sharedauth.TokenService
	Store        RefreshStore
	IsAdminEmail func(email string) bool
	HashCost     int
}

func NewService(usersSvc *users.Service, tokens *sharedauth.TokenService, store RefreshStore, isAdminEmail func(string) bool) *Service {
	return &Service{
		Users:        usersSvc,
		Tokens:       tokens,
		Store:        store,
		IsAdminEmail: isAdminEmail,
		HashCost:     bcrypt.DefaultCost,
	}
}

// Signup creates a student account (admin when the email is allow-listed) and logs it in.
func (s *Service) Signup(ctx context.Context, name, email, password string) (Session, error) {
	if err := validatePassword(password); err != nil {
		return Session{}, err
	}
	cost := s.HashCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	role := users.RoleStudent
	if s.isAdmin(email) {
		role = users.RoleAdmin
	}
	user, err := s.Users.Register(ctx, name, email, string(hash), role)
	if err != nil {
		return Session{}, err
	}
	telemetry.Info("auth.signup", map[string]any{"user_id": user.ID, "role": user.Role})
	return s.issue(ctx, user)
}

func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	return s.issue(ctx, user)
}

// Refresh rotates the token pair. Only the most recently issued refresh token is accepted.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	claims, err := s.Tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return Session{}, ErrInvalidRefresh
	}
	ok, err := s.Store.Matches(ctx, claims.UserID(), util.SHA256Hex(strings.TrimSpace(refreshToken)))
	if err != nil {
		return Session{}, err
	}
	if !ok {
		telemetry.Warn("auth.refresh_rejected", map[string]any{"user_id": claims.UserID()})
		return Session{}, ErrInvalidRefresh
	}
	user, err := s.Users.GetByID(ctx, claims.UserID())
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return Session{}, ErrInvalidRefresh
		}
		return Session{}, err
	}
	return s.issue(ctx, user)
}

func (s *Service) Logout(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return s.Store.Delete(ctx, userID)
}

func (s *Service) Me(ctx context.Context, userID string) (users.User, error) {
	return s.Users.GetByID(ctx, userID)
}

func (s *Service) issue(ctx context.Context, user users.User) (Session, error) {
	role := user.Role
	if s.isAdmin(user.Email) {
		role = users.RoleAdmin
	}
	pair, err := s.Tokens.IssuePair(sharedauth.Identity{UserID: user.ID, Email: user.Email, Role: role})
	if err != nil {
		return Session{}, err
	}
	if err := s.Store.Save(ctx, user.ID, util.SHA256Hex(pair.RefreshToken), s.Tokens.RefreshTTL()); err != nil {
		return Session{}, fmt.Errorf("store refresh token: %w", err)
	}
	user.Role = role
	return Session{User: user, Tokens: pair}, nil
}

func (s *Service) isAdmin(email string) bool {
	return s.IsAdminEmail != nil && s.IsAdminEmail(email)
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	if len(password) > maxPasswordLength {
		return fmt.Errorf("%w: password must be at most %d bytes", ErrInvalidInput, maxPasswordLength)
	}
	return nil
}
