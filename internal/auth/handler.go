package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	sharedauth "applybro-backend/internal/shared/auth"
	"applybro-backend/internal/shared/server/middleware"
	"applybro-backend/internal/shared/server/respond"
	"applybro-backend/internal/users"
)

type Handler struct {
	Svc *Service
	// Guards run before every /auth route, typically the auth rate limit.
	Guards []gin.HandlerFunc
}

func NewHandler(svc *Service, guards ...gin.HandlerFunc) *Handler {
	return &Handler{Svc: svc, Guards: guards}
}

// RegisterRoutes attaches the email and password auth routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/auth", h.Guards...)
	g.POST("/signup", h.signup)
	g.POST("/login", h.login)
	g.POST("/refresh", h.refresh)
	g.POST("/logout", middleware.RequireAuth(), h.logout)
	g.GET("/me", middleware.RequireAuth(), h.me)
}

type signupRequest struct {
	Name     string `json:"name" binding:"required,max=120"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type sessionResponse struct {
	User *users.User `json:"user,omitempty"`
	sharedauth.TokenPair
}

func (h *Handler) signup(c *gin.Context) {
	var req signupRequest
	if !bindJSON(c, &req) {
		return
	}
	session, err := h.Svc.Signup(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.Created(c, sessionResponse{User: &session.User, TokenPair: session.Tokens})
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	session, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.OK(c, sessionResponse{User: &session.User, TokenPair: session.Tokens})
}

func (h *Handler) refresh(c *gin.Context) {
	var req refreshRequest
	if !bindJSON(c, &req) {
		return
	}
	session, err := h.Svc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.OK(c, sessionResponse{TokenPair: session.Tokens})
}

func (h *Handler) logout(c *gin.Context) {
	if err := h.Svc.Logout(c.Request.Context(), middleware.UserIDFromContext(c)); err != nil {
		h.fail(c, err)
		return
	}
	respond.NoContent(c)
}

func (h *Handler) me(c *gin.Context) {
	user, err := h.Svc.Me(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.OK(c, gin.H{"user": user})
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", []map[string]string{
			{"field": "body", "issue": err.Error()},
		})
		return false
	}
	return true
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", strings.TrimPrefix(err.Error(), ErrInvalidInput.Error()+": "), nil)
	case errors.Is(err, users.ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", strings.TrimPrefix(err.Error(), users.ErrInvalidInput.Error()+": "), nil)
	case errors.Is(err, users.ErrEmailTaken):
		respond.Error(c, http.StatusConflict, "conflict", "email already registered", nil)
	case errors.Is(err, ErrInvalidCredentials):
		respond.Error(c, http.StatusUnauthorized, "invalid_credentials", "invalid email or password", nil)
	case errors.Is(err, ErrInvalidRefresh):
		respond.Error(c, http.StatusUnauthorized, "invalid_token", "refresh token is invalid or expired", nil)
	case errors.Is(err, users.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "user not found", nil)
	default:
		respond.Internal(c, err)
	}
}
