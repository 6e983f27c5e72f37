package uploads

import (
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"applybro-backend/internal/extract"
	"applybro-backend/internal/shared/server/middleware"
	"applybro-backend/internal/shared/server/respond"
	"applybro-backend/internal/shared/telemetry"
	"applybro-backend/internal/shared/util"
)

const (
	presignExpires       = 15 * time.Minute
	defaultUploadsPrefix = "uploads/"
)

// Handler issues presigned PUT URLs so clients can upload straight to S3.
// A nil presign client means uploads are not configured.
type Handler struct {
	presign *s3.PresignClient
	bucket  string
	prefix  string
}

func NewHandler(presign *s3.PresignClient, bucket, prefix string) *Handler {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultUploadsPrefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Handler{presign: presign, bucket: strings.TrimSpace(bucket), prefix: prefix}
}

type presignResponse struct {
	UploadURL        string `json:"uploadUrl"`
	StorageKey       string `json:"storageKey"`
	ContentType      string `json:"contentType"`
	ExpiresInSeconds int64  `json:"expiresInSeconds"`
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/uploads/presign", middleware.RequireAuth(), h.presignPut)
}

func (h *Handler) presignPut(c *gin.Context) {
	if h == nil || h.presign == nil || h.bucket == "" {
		respond.Error(c, http.StatusServiceUnavailable, "uploads_unavailable", "direct uploads are not configured", nil)
		return
	}

	fileName := strings.TrimSpace(c.Query("fileName"))
	contentType := strings.ToLower(strings.TrimSpace(c.Query("contentType")))
	if fileName == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "fileName is required", nil)
		return
	}
	contentType = extract.NormalizeMimeType(contentType, fileName, nil)
	if !extract.Accepted(contentType) {
		respond.Error(c, http.StatusBadRequest, "validation_error", "contentType is not allowed", nil)
		return
	}
	sanitized, err := util.SanitizeFileName(fileName)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid fileName", nil)
		return
	}

	userID := middleware.UserIDFromContext(c)
	key := path.Join(h.prefix, util.HashUserKey(userID), uuid.NewString()+"-"+sanitized)

	out, err := h.presign.PresignPutObject(c.Request.Context(), presignInput(h.bucket, key, contentType), func(opts *s3.PresignOptions) {
		opts.Expires = presignExpires
	})
	if err != nil {
		telemetry.Error("uploads.presign.failed", map[string]any{
			"error":        err.Error(),
			"bucket":       h.bucket,
			"key":          key,
			"content_type": contentType,
			"request_id":   middleware.RequestIDFromContext(c),
		})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to generate upload url", nil)
		return
	}

	respond.OK(c, presignResponse{
		UploadURL:        out.URL,
		StorageKey:       key,
		ContentType:      contentType,
		ExpiresInSeconds: int64(presignExpires.Seconds()),
	})
}

func presignInput(bucket, key, contentType string) *s3.PutObjectInput {
	return &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}
}
