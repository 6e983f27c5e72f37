package documents

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"applybro-backend/internal/shared/auth"
	"applybro-backend/internal/shared/server/middleware"
)

type handlerEnv struct {
	serviceEnv
	router *gin.Engine
	tokens *auth.TokenService
}

func newHandlerEnv(t *testing.T) handlerEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	env := newServiceEnv(t)
	tokens := auth.NewTokenService("access-secret", "refresh-secret", time.Minute, time.Hour)
	router := gin.New()
	router.Use(middleware.RequestID())
	api := router.Group("/api/v1", middleware.Auth(tokens))
	NewHandler(env.svc).RegisterRoutes(api)
	return handlerEnv{serviceEnv: env, router: router, tokens: tokens}
}

func (e handlerEnv) do(t *testing.T, req *http.Request, userID string) *httptest.ResponseRecorder {
	t.Helper()
	return e.doAs(t, req, userID, auth.RoleStudent)
}

func (e handlerEnv) doAs(t *testing.T, req *http.Request, userID, role string) *httptest.ResponseRecorder {
	t.Helper()
	if userID != "" {
		pair, err := e.tokens.IssuePair(auth.Identity{UserID: userID, Email: userID + "@example.com", Role: role})
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	}
	resp := httptest.NewRecorder()
	e.router.ServeHTTP(resp, req)
	return resp
}

func multipartUpload(t *testing.T, fileName string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	fileWriter, err := writer.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = io.Copy(fileWriter, bytes.NewReader(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-Request-Id", "req-upload")
	return req
}

type documentEnvelope struct {
	Document DocumentResponse `json:"document"`
	Message  string           `json:"message"`
}

func TestDocumentsUploadListGetDelete(t *testing.T) {
	env := newHandlerEnv(t)

	req := multipartUpload(t, "transcript.docx", docxBytes(t, "Bachelor of Science", "GPA: 3.4"), map[string]string{
		"type":         "bachelor",
		"documentType": "transcript",
	})
	resp := env.do(t, req, "user-1")
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var created documentEnvelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	assert.NotEmpty(t, created.Document.ID)
	assert.Equal(t, ParsingProcessing, created.Document.ParsingStatus)
	assert.Equal(t, "Document uploaded. Parsing started.", created.Message)
	require.Len(t, env.queue.msgs, 1)
	assert.Equal(t, "req-upload", env.queue.msgs[0].RequestID)

	resp = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil), "user-1")
	require.Equal(t, http.StatusOK, resp.Code)
	var listed struct {
		Documents []DocumentResponse `json:"documents"`
		Count     int                `json:"count"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &listed))
	assert.Equal(t, 1, listed.Count)

	resp = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+created.Document.ID, nil), "user-2")
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+created.Document.ID, nil), "user-1")
	require.Equal(t, http.StatusOK, resp.Code)

	resp = env.do(t, httptest.NewRequest(http.MethodDelete, "/api/v1/documents/"+created.Document.ID, nil), "user-1")
	assert.Equal(t, http.StatusNoContent, resp.Code)

	resp = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+created.Document.ID, nil), "user-1")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestDocumentsRequireAuth(t *testing.T) {
	env := newHandlerEnv(t)
	resp := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil), "")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestDocumentsUploadRejects(t *testing.T) {
	env := newHandlerEnv(t)

	cases := []struct {
		name   string
		req    func() *http.Request
		status int
		code   string
	}{
		{
			name: "missing file",
			req: func() *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", bytes.NewBufferString("{}"))
				req.Header.Set("Content-Type", "application/json")
				return req
			},
			status: http.StatusBadRequest,
			code:   "validation_error",
		},
		{
			name:   "text file",
			req:    func() *http.Request { return multipartUpload(t, "notes.txt", []byte("hello world"), nil) },
			status: http.StatusBadRequest,
			code:   "validation_error",
		},
		{
			name: "unknown type",
			req: func() *http.Request {
				return multipartUpload(t, "scan.png", pngBytes(), map[string]string{"type": "diploma"})
			},
			status: http.StatusBadRequest,
			code:   "validation_error",
		},
		{
			name: "too large",
			req: func() *http.Request {
				return multipartUpload(t, "scan.png", append(pngBytes(), make([]byte, MaxUploadSize)...), nil)
			},
			status: http.StatusRequestEntityTooLarge,
			code:   "file_too_large",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := env.do(t, tc.req(), "user-1")
			require.Equal(t, tc.status, resp.Code, resp.Body.String())
			var body struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
			assert.Equal(t, tc.code, body.Error.Code)
		})
	}
}

func TestAdminReviewQueue(t *testing.T) {
	env := newHandlerEnv(t)
	env.svc.Owners = ownerBook{"user-1": {"Asha", "asha@example.com"}}
	seedDocument(t, env.repo, "d1", "user-1", fixedNow, VerificationPending)
	seedDocument(t, env.repo, "d2", "user-1", fixedNow.Add(time.Hour), VerificationPending)

	resp := env.doAs(t, httptest.NewRequest(http.MethodGet, "/api/v1/admin/documents/pending?pageSize=1", nil), "admin-1", auth.RoleAdmin)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var listed struct {
		Documents  []PendingDocumentResponse `json:"documents"`
		Pagination Pagination                `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &listed))
	assert.Equal(t, Pagination{Page: 1, PageSize: 1, Total: 2, TotalPages: 2}, listed.Pagination)
	require.Len(t, listed.Documents, 1)
	assert.Equal(t, "d2", listed.Documents[0].ID)
	assert.Equal(t, "user-1", listed.Documents[0].UserID)
	assert.Equal(t, "Asha", listed.Documents[0].UserName)

	body := strings.NewReader(`{"status":"verified","adminNote":"looks good"}`)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/admin/documents/user-1/d2/verify", body)
	req.Header.Set("Content-Type", "application/json")
	resp = env.doAs(t, req, "admin-1", auth.RoleAdmin)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var verified documentEnvelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &verified))
	assert.Equal(t, VerificationVerified, verified.Document.VerificationStatus)
	assert.Equal(t, "looks good", verified.Document.AdminNote)
	require.NotNil(t, verified.Document.VerifiedAt)
	assert.Equal(t, "Document verified successfully", verified.Message)

	resp = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/documents/d2", nil), "user-1")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"verificationStatus":"verified"`)
}

func TestAdminReviewRejects(t *testing.T) {
	env := newHandlerEnv(t)
	seedDocument(t, env.repo, "d1", "user-1", fixedNow, VerificationPending)

	verify := func(path, payload string) *http.Request {
		req := httptest.NewRequest(http.MethodPut, path, strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		return req
	}

	cases := []struct {
		name   string
		req    *http.Request
		role   string
		status int
		code   string
	}{
		{"student listing", httptest.NewRequest(http.MethodGet, "/api/v1/admin/documents/pending", nil), auth.RoleStudent, http.StatusForbidden, "forbidden"},
		{"student verifying", verify("/api/v1/admin/documents/user-1/d1/verify", `{"status":"verified"}`), auth.RoleStudent, http.StatusForbidden, "forbidden"},
		{"bad page", httptest.NewRequest(http.MethodGet, "/api/v1/admin/documents/pending?page=0", nil), auth.RoleAdmin, http.StatusBadRequest, "validation_error"},
		{"missing status", verify("/api/v1/admin/documents/user-1/d1/verify", `{}`), auth.RoleAdmin, http.StatusBadRequest, "validation_error"},
		{"unknown status", verify("/api/v1/admin/documents/user-1/d1/verify", `{"status":"approved"}`), auth.RoleAdmin, http.StatusBadRequest, "validation_error"},
		{"wrong owner", verify("/api/v1/admin/documents/user-9/d1/verify", `{"status":"rejected"}`), auth.RoleAdmin, http.StatusNotFound, "not_found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := env.doAs(t, tc.req, "someone", tc.role)
			require.Equal(t, tc.status, resp.Code, resp.Body.String())
			var body struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
			assert.Equal(t, tc.code, body.Error.Code)
		})
	}

	got, err := env.repo.Get(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, VerificationPending, got.VerificationStatus)
}
