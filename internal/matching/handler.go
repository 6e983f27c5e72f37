package matching

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"applybro-backend/internal/shared/server/middleware"
	"applybro-backend/internal/shared/server/respond"
)

// Handler exposes the match and recommendation endpoints.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches matching routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	authed := rg.Group("/scholarships", middleware.RequireAuth())
	authed.GET("/match", h.match)
	authed.GET("/recommendations", h.recommendations)
	authed.GET("/:id/match", h.explain)
}

func (h *Handler) match(c *gin.Context) {
	res, err := h.Svc.Match(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.OK(c, res)
}

func (h *Handler) recommendations(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			respond.Error(c, http.StatusBadRequest, "validation_error", "limit must be a positive integer", []map[string]string{
				{"field": "limit", "issue": "invalid"},
			})
			return
		}
		limit = parsed
	}

	userID := middleware.UserIDFromContext(c)
	if legacy, _ := strconv.ParseBool(c.Query("legacy")); legacy {
		res, err := h.Svc.Legacy(c.Request.Context(), userID, limit)
		if err != nil {
			h.fail(c, err)
			return
		}
		respond.OK(c, gin.H{"recommendations": res, "count": len(res)})
		return
	}

	res, err := h.Svc.Recommend(c.Request.Context(), userID, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.OK(c, res)
}

func (h *Handler) explain(c *gin.Context) {
	res, err := h.Svc.Explain(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.OK(c, res)
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrUserNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "user not found", nil)
	case errors.Is(err, ErrScholarshipNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "scholarship not found", nil)
	default:
		respond.Internal(c, err)
	}
}
