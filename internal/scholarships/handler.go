package scholarships

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"applybro-backend/internal/shared/server/middleware"
	"applybro-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the scholarships service.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches scholarship routes. The group is expected to run the
// optional Auth middleware so listings can tell admins apart.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/scholarships")
	g.GET("", h.list)
	g.GET("/popular", h.popular)
	g.GET("/bookmarks", middleware.RequireAuth(), h.bookmarks)
	g.GET("/:id", h.get)
	g.POST("/:id/bookmark", middleware.RequireAuth(), h.toggleBookmark)

	g.POST("", middleware.RequireAdmin(), h.create)
	g.PUT("/:id", middleware.RequireAdmin(), h.update)
	g.DELETE("/:id", middleware.RequireAdmin(), h.remove)
}

func (h *Handler) list(c *gin.Context) {
	page, ok := queryInt(c, "page")
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	includeUnverified, _ := strconv.ParseBool(c.Query("includeUnverified"))

	res, err := h.Svc.List(c.Request.Context(), Filter{
		Country:           c.Query("country"),
		Level:             c.Query("level"),
		Field:             c.Query("field"),
		Status:            strings.ToLower(c.Query("status")),
		Search:            c.Query("search"),
		IncludeUnverified: includeUnverified,
		Page:              page,
		Limit:             limit,
	}, middleware.IsAdmin(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.OK(c, res)
}

func (h *Handler) popular(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	list, err := h.Svc.Popular(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.OK(c, gin.H{"scholarships": list})
}

func (h *Handler) get(c *gin.Context) {
	detail, err := h.Svc.Get(c.Request.Context(), c.Param("id"), middleware.UserIDFromContext(c), middleware.IsAdmin(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.OK(c, gin.H{"scholarship": detail})
}

func (h *Handler) create(c *gin.Context) {
	var req scholarshipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", []map[string]string{
			{"field": "body", "issue": err.Error()},
		})
		return
	}
	in, err := req.toModel()
	if err != nil {
		h.fail(c, err)
		return
	}
	created, err := h.Svc.Create(c.Request.Context(), in, middleware.UserIDFromContext(c), middleware.IsAdmin(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.Created(c, gin.H{"scholarship": created})
}

func (h *Handler) update(c *gin.Context) {
	var req scholarshipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", []map[string]string{
			{"field": "body", "issue": err.Error()},
		})
		return
	}
	in, err := req.toModel()
	if err != nil {
		h.fail(c, err)
		return
	}
	updated, err := h.Svc.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.OK(c, gin.H{"scholarship": updated})
}

func (h *Handler) remove(c *gin.Context) {
	if err := h.Svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	respond.NoContent(c)
}

func (h *Handler) toggleBookmark(c *gin.Context) {
	marked, err := h.Svc.ToggleBookmark(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.OK(c, gin.H{"isBookmarked": marked})
}

func (h *Handler) bookmarks(c *gin.Context) {
	list, err := h.Svc.Bookmarks(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.OK(c, gin.H{"scholarships": list})
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "scholarship not found", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", strings.TrimPrefix(err.Error(), ErrInvalidInput.Error()+": "), nil)
	default:
		respond.Internal(c, err)
	}
}

// queryInt reads an optional positive integer query parameter, answering 400 when malformed.
func queryInt(c *gin.Context, name string) (int, bool) {
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
