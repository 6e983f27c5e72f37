package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"applybro-backend/internal/shared/server/middleware"
)

func newAuthRouter(t *testing.T) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := newTestService(t)
	router := gin.New()
	api := router.Group("/api/v1", middleware.Auth(svc.Tokens))
	NewHandler(svc).RegisterRoutes(api)
	return router, svc
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

type sessionBody struct {
	User struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Role  string `json:"role"`
	} `json:"user"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func decodeSession(t *testing.T, resp *httptest.ResponseRecorder) sessionBody {
	t.Helper()
	var body sessionBody
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	return body
}

func errorCode(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	return body.Error.Code
}

func TestAuthFlow(t *testing.T) {
	router, _ := newAuthRouter(t)

	resp := postJSON(t, router, "/api/v1/auth/signup", gin.H{"name": "Asha", "email": "asha@example.com", "password": "correct-horse"}, "")
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	signup := decodeSession(t, resp)
	assert.Equal(t, "asha@example.com", signup.User.Email)
	assert.Equal(t, "student", signup.User.Role)
	assert.NotContains(t, resp.Body.String(), "passwordHash")

	resp = postJSON(t, router, "/api/v1/auth/login", gin.H{"email": "asha@example.com", "password": "correct-horse"}, "")
	require.Equal(t, http.StatusOK, resp.Code)
	login := decodeSession(t, resp)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+login.AccessToken)
	me := httptest.NewRecorder()
	router.ServeHTTP(me, req)
	require.Equal(t, http.StatusOK, me.Code)
	assert.Contains(t, me.Body.String(), signup.User.ID)

	resp = postJSON(t, router, "/api/v1/auth/refresh", gin.H{"refreshToken": login.RefreshToken}, "")
	require.Equal(t, http.StatusOK, resp.Code)
	refreshed := decodeSession(t, resp)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.Empty(t, refreshed.User.ID)

	resp = postJSON(t, router, "/api/v1/auth/logout", gin.H{}, refreshed.AccessToken)
	assert.Equal(t, http.StatusNoContent, resp.Code)

	resp = postJSON(t, router, "/api/v1/auth/refresh", gin.H{"refreshToken": refreshed.RefreshToken}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "invalid_token", errorCode(t, resp))
}

func TestAuthErrors(t *testing.T) {
	router, _ := newAuthRouter(t)
	resp := postJSON(t, router, "/api/v1/auth/signup", gin.H{"name": "Asha", "email": "asha@example.com", "password": "correct-horse"}, "")
	require.Equal(t, http.StatusCreated, resp.Code)

	cases := []struct {
		name   string
		path   string
		body   gin.H
		status int
		code   string
	}{
		{"duplicate email", "/api/v1/auth/signup", gin.H{"name": "A", "email": "ASHA@example.com", "password": "correct-horse"}, http.StatusConflict, "conflict"},
		{"short password", "/api/v1/auth/signup", gin.H{"name": "B", "email": "b@example.com", "password": "short"}, http.StatusBadRequest, "validation_error"},
		{"bad email", "/api/v1/auth/signup", gin.H{"name": "B", "email": "not-an-email", "password": "correct-horse"}, http.StatusBadRequest, "validation_error"},
		{"wrong password", "/api/v1/auth/login", gin.H{"email": "asha@example.com", "password": "nope-nope"}, http.StatusUnauthorized, "invalid_credentials"},
		{"garbage refresh", "/api/v1/auth/refresh", gin.H{"refreshToken": "abc"}, http.StatusUnauthorized, "invalid_token"},
		{"missing refresh", "/api/v1/auth/refresh", gin.H{}, http.StatusBadRequest, "validation_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postJSON(t, router, tc.path, tc.body, "")
			require.Equal(t, tc.status, resp.Code, resp.Body.String())
			assert.Equal(t, tc.code, errorCode(t, resp))
		})
	}
}

func TestAuthLogoutRequiresToken(t *testing.T) {
	router, _ := newAuthRouter(t)
	resp := postJSON(t, router, "/api/v1/auth/logout", gin.H{}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAuthGuardsRun(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := newTestService(t)
	router := gin.New()
	blocked := func(c *gin.Context) { c.AbortWithStatus(http.StatusTooManyRequests) }
	NewHandler(svc, blocked).RegisterRoutes(router.Group("/api/v1"))

	resp := postJSON(t, router, "/api/v1/auth/login", gin.H{"email": "a@example.com", "password": "whatever1"}, "")
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
}
