package auth

import (
	"errors"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"

	RoleStudent = "student"
	RoleAdmin   = "admin"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Claims represents the identity contained in a JWT.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	Type  string `json:"typ"`
	jwtlib.RegisteredClaims
}

// UserID returns the subject claim.
func (c Claims) UserID() string {
	return c.Subject
}

// Identity is the minimal user shape needed to mint tokens.
type Identity struct {
	UserID string
	Email  string
	Role   string
}

// TokenPair is returned on signup, login and refresh.
type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

// TokenService signs and verifies HS256 access and refresh tokens.
// Access and refresh tokens use separate secrets.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewTokenService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenService {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &TokenService{
		accessSecret:  []byte(strings.TrimSpace(accessSecret)),
		refreshSecret: []byte(strings.TrimSpace(refreshSecret)),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

// WithClock overrides the time source. Used by tests.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	if now != nil {
		s.now = now
	}
	return s
}

// RefreshTTL exposes the refresh lifetime so stores can expire entries with the token.
func (s *TokenService) RefreshTTL() time.Duration {
	return s.refreshTTL
}

// IssuePair mints a fresh access and refresh token for id.
func (s *TokenService) IssuePair(id Identity) (TokenPair, error) {
	access, accessExp, err := s.sign(TokenTypeAccess, id)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, refreshExp, err := s.sign(TokenTypeRefresh, id)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// VerifyAccess validates an access token.
func (s *TokenService) VerifyAccess(token string) (Claims, error) {
	return s.verify(token, TokenTypeAccess)
}

// VerifyRefresh validates a refresh token.
func (s *TokenService) VerifyRefresh(token string) (Claims, error) {
	return s.verify(token, TokenTypeRefresh)
}

func (s *TokenService) sign(tokenType string, id Identity) (string, time.Time, error) {
	if strings.TrimSpace(id.UserID) == "" {
		return "", time.Time{}, errors.New("sub is required")
	}
	secret, ttl := s.secretFor(tokenType)
	if len(secret) == 0 {
		return "", time.Time{}, errors.New("jwt secret not configured")
	}
	now := s.now().UTC()
	exp := now.Add(ttl)
	role := id.Role
	if role == "" {
		role = RoleStudent
	}
	claims := Claims{
		Email: id.Email,
		Role:  role,
		Type:  tokenType,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(exp),
			// jti keeps two tokens minted in the same second distinct.
			ID: uuid.NewString(),
		},
	}
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (s *TokenService) verify(token, tokenType string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, ErrInvalidToken
	}
	secret, _ := s.secretFor(tokenType)
	if len(secret) == 0 {
		return Claims{}, ErrInvalidToken
	}

	parser := jwtlib.NewParser(
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithTimeFunc(s.now),
		jwtlib.WithExpirationRequired(),
	)
	var claims Claims
	parsed, err := parser.ParseWithClaims(token, &claims, func(*jwtlib.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrInvalidToken
	}
	if parsed == nil || !parsed.Valid || claims.Subject == "" || claims.Type != tokenType {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

func (s *TokenService) secretFor(tokenType string) ([]byte, time.Duration) {
	if tokenType == TokenTypeRefresh {
		return s.refreshSecret, s.refreshTTL
	}
	return s.accessSecret, s.accessTTL
}
