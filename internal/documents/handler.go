package documents

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"applybro-backend/internal/shared/server/middleware"
	"applybro-backend/internal/shared/server/respond"
)

// maxRequestBody leaves room for multipart framing and the text fields.
const maxRequestBody = MaxUploadSize + 1<<20

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches document routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/documents", middleware.RequireAuth())
	g.POST("", h.upload)
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.DELETE("/:id", h.remove)

	admin := rg.Group("/admin/documents", middleware.RequireAdmin())
	admin.GET("/pending", h.pending)
	admin.PUT("/:userId/:docId/verify", h.verify)
}

func (h *Handler) upload(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestBody)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "File size must not exceed 10MB", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	if fileHeader.Size > MaxUploadSize {
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "File size must not exceed 10MB", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	doc, err := h.Svc.Upload(c.Request.Context(), UploadInput{
		UserID:       userID,
		FileName:     fileHeader.Filename,
		Type:         c.PostForm("type"),
		DocumentType: c.PostForm("documentType"),
		RequestID:    middleware.RequestIDFromContext(c),
		Body:         file,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	message := "Document uploaded. Parsing started."
	if doc.ParsingStatus == ParsingFailed {
		message = "Document uploaded, but parsing could not be scheduled."
	}
	respond.Created(c, gin.H{"document": toResponse(doc), "message": message})
}

func (h *Handler) list(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	limit := 20
	offset := 0

	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit < 0 {
		limit = 0
	}
	if limit > 50 {
		limit = 50
	}

	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	if offset < 0 {
		offset = 0
	}

	docs, err := h.Svc.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		h.fail(c, err)
		return
	}

	resp := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		resp = append(resp, toResponse(doc))
	}
	respond.OK(c, gin.H{"documents": resp, "count": len(resp)})
}

func (h *Handler) get(c *gin.Context) {
	doc, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.OK(c, gin.H{"document": toResponse(doc)})
}

func (h *Handler) remove(c *gin.Context) {
	if err := h.Svc.Delete(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	respond.NoContent(c)
}

func (h *Handler) pending(c *gin.Context) {
	page, ok := positiveQuery(c, "page")
	if !ok {
		return
	}
	pageSize, ok := positiveQuery(c, "pageSize")
	if !ok {
		return
	}

	docs, pagination, err := h.Svc.ListPending(c.Request.Context(), page, pageSize)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp := make([]PendingDocumentResponse, 0, len(docs))
	for _, d := range docs {
		resp = append(resp, toPendingResponse(d))
	}
	respond.OK(c, gin.H{"documents": resp, "pagination": pagination})
}

type verifyRequest struct {
	Status    string `json:"status" binding:"required"`
	AdminNote string `json:"adminNote"`
}

func (h *Handler) verify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "status must be verified or rejected", []map[string]string{
			{"field": "status", "issue": "required"},
		})
		return
	}

	doc, err := h.Svc.Verify(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("userId"), c.Param("docId"), req.Status, req.AdminNote)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.OK(c, gin.H{
		"document": toResponse(doc),
		"message":  "Document " + doc.VerificationStatus + " successfully",
	})
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
		respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
	case errors.Is(err, ErrTooLarge):
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "File size must not exceed 10MB", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", strings.TrimPrefix(err.Error(), ErrInvalidInput.Error()+": "), nil)
	default:
		respond.Internal(c, err)
	}
}
