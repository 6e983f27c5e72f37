package users

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"applybro-backend/internal/shared/server/middleware"
	"applybro-backend/internal/shared/server/respond"
	"applybro-backend/internal/shared/telemetry"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	me := rg.Group("/users", middleware.RequireAuth())
	me.GET("/me", h.me)
	me.PUT("/me", h.updateMe)

	admin := rg.Group("/admin/users", middleware.RequireAdmin())
	admin.GET("", h.list)
	admin.PUT("/:id/role", h.updateRole)
}

type updateProfileRequest struct {
	Name               *string  `json:"name"`
	EducationLevel     *string  `json:"educationLevel"`
	Major              *string  `json:"major" binding:"omitempty,max=120"`
	GPA                *float64 `json:"gpa" binding:"omitempty,gte=0,lte=4"`
	PreferredCountries []string `json:"preferredCountries" binding:"omitempty,dive,max=80"`
	Country            *string  `json:"country" binding:"omitempty,max=80"`
}

func (h *Handler) me(c *gin.Context) {
	user, err := h.Svc.GetByID(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.OK(c, gin.H{"user": user})
}

func (h *Handler) updateMe(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", []map[string]string{
			{"field": "body", "issue": err.Error()},
		})
		return
	}

	user, err := h.Svc.UpdateProfile(c.Request.Context(), middleware.UserIDFromContext(c), ProfileUpdate{
		Name:               req.Name,
		EducationLevel:     req.EducationLevel,
		Major:              req.Major,
		GPA:                req.GPA,
		PreferredCountries: req.PreferredCountries,
		Country:            req.Country,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.OK(c, gin.H{"user": user})
}

func (h *Handler) list(c *gin.Context) {
	page, ok := positiveQuery(c, "page")
	if !ok {
		return
	}
	pageSize, ok := positiveQuery(c, "pageSize")
	if !ok {
		return
	}
	list, pagination, err := h.Svc.List(c.Request.Context(), c.Query("role"), c.Query("search"), page, pageSize)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.OK(c, gin.H{"users": list, "pagination": pagination})
}

type updateRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

func (h *Handler) updateRole(c *gin.Context) {
	var req updateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "role must be student or admin", []map[string]string{
			{"field": "role", "issue": "required"},
		})
		return
	}
	user, err := h.Svc.UpdateRole(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"), req.Role)
	if err != nil {
		h.fail(c, err)
		return
	}
	telemetry.Info("users.role_updated", map[string]any{
		"userId":  user.ID,
		"role":    user.Role,
		"adminId": middleware.UserIDFromContext(c),
	})
	respond.OK(c, gin.H{"user": user, "message": "User role updated successfully"})
}

func positiveQuery(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", name+" must be a positive integer", []map[string]string{
			{"field": name, "issue": "invalid"},
		})
		return 0, false
	}
	return v, true
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "user not found", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", strings.TrimPrefix(err.Error(), ErrInvalidInput.Error()+": "), nil)
	default:
		respond.Internal(c, err)
	}
}
