package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-auth-facade/internal/domain/entity"
	"github.com/oksasatya/go-auth-facade/internal/infrastructure/local"
	"github.com/oksasatya/go-auth-facade/internal/interface/middleware"
	"github.com/oksasatya/go-auth-facade/pkg/validation"
)

type fakeLinks struct {
	confirmErr error
	resetErr   error
	initErr    error
	verifyErr  error
	tokens     []string
	passwords  []string
	resetFor   []string
	verifyFor  []string
}

func (f *fakeLinks) ConfirmEmail(_ context.Context, token string) error {
	f.tokens = append(f.tokens, token)
	return f.confirmErr
}

func (f *fakeLinks) ConfirmPasswordReset(_ context.Context, token, pw string) error {
	f.tokens = append(f.tokens, token)
	f.passwords = append(f.passwords, pw)
	return f.resetErr
}

func (f *fakeLinks) SendPasswordResetEmail(_ context.Context, email string) error {
	f.resetFor = append(f.resetFor, email)
	return f.initErr
}

func (f *fakeLinks) SendVerificationFor(_ context.Context, uid string) error {
	f.verifyFor = append(f.verifyFor, uid)
	return f.verifyErr
}

type envelope struct {
	Status  int               `json:"status"`
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    map[string]any    `json:"data"`
	Error   map[string]string `json:"error"`
}

func init() {
	gin.SetMode(gin.TestMode)
	validation.Init()
}

func newEngine(h *AuthHandler) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestIDMiddleware())
	r.POST("/api/auth/verify/confirm", h.VerifyConfirm)
	r.POST("/api/auth/reset/init", h.ResetInit)
	r.POST("/api/auth/reset/confirm", h.ResetConfirm)
	r.POST("/api/auth/verify/init", func(c *gin.Context) { c.Set(middleware.CtxUserIDKey, "u1") }, h.VerifyInit)
	return r
}

func do(t *testing.T, r http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func TestVerifyConfirm(t *testing.T) {
	links := &fakeLinks{}
	logger, _ := test.NewNullLogger()
	r := newEngine(NewAuthHandler(links, logger))

	rec, env := do(t, r, http.MethodPost, "/api/auth/verify/confirm", `{"token":"tok"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.Equal(t, true, env.Data["verified"])
	assert.Equal(t, []string{"tok"}, links.tokens)
	assert.NotEmpty(t, rec.Header().Get(middleware.HeaderRequestID))

	links.confirmErr = local.ErrInvalidToken
	rec, env = do(t, r, http.MethodPost, "/api/auth/verify/confirm", `{"token":"tok"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid or expired token", env.Message)

	links.confirmErr = errors.New("db down")
	rec, _ = do(t, r, http.MethodPost, "/api/auth/verify/confirm", `{"token":"tok"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec, env = do(t, r, http.MethodPost, "/api/auth/verify/confirm", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "is required", env.Error["token"])
}

func TestResetConfirm(t *testing.T) {
	links := &fakeLinks{}
	logger, _ := test.NewNullLogger()
	r := newEngine(NewAuthHandler(links, logger))

	rec, env := do(t, r, http.MethodPost, "/api/auth/reset/confirm", `{"token":"t","new_password":"short"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "must be at least 8 characters", env.Error["new_password"])
	assert.Empty(t, links.passwords)

	rec, _ = do(t, r, http.MethodPost, "/api/auth/reset/confirm", `{"token":"t","new_password":"long-enough"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"long-enough"}, links.passwords)

	links.resetErr = local.ErrInvalidToken
	rec, _ = do(t, r, http.MethodPost, "/api/auth/reset/confirm", `{"token":"t","new_password":"long-enough"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = do(t, r, http.MethodPost, "/api/auth/reset/confirm", `{"token":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid json", env.Error["payload"])
}

func TestResetInit_DoesNotRevealAccounts(t *testing.T) {
	links := &fakeLinks{initErr: local.ErrAccountNotFound}
	logger, hook := test.NewNullLogger()
	r := newEngine(NewAuthHandler(links, logger))

	rec, env := do(t, r, http.MethodPost, "/api/auth/reset/init", `{"email":"nobody@x.io"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.Equal(t, []string{"nobody@x.io"}, links.resetFor)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "reset requested for unknown email", hook.LastEntry().Message)

	rec, env = do(t, r, http.MethodPost, "/api/auth/reset/init", `{"email":"not-an-email"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "must be a valid email", env.Error["email"])
}

func TestVerifyInit(t *testing.T) {
	links := &fakeLinks{}
	logger, _ := test.NewNullLogger()
	r := newEngine(NewAuthHandler(links, logger))

	rec, _ := do(t, r, http.MethodPost, "/api/auth/verify/init", ``)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"u1"}, links.verifyFor)
}

type fakeSearcher struct {
	q    string
	size int
	err  error
}

func (f *fakeSearcher) Search(_ context.Context, q string, size int) ([]entity.UserProfile, error) {
	f.q, f.size = q, size
	if f.err != nil {
		return nil, f.err
	}
	return []entity.UserProfile{{UID: "u1", Email: entity.StringPtr("a@x.io")}}, nil
}

func TestSearchUsers(t *testing.T) {
	s := &fakeSearcher{}
	h := NewUserHandler(s, nil)
	r := gin.New()
	r.GET("/api/users/search", h.SearchUsers)

	req := httptest.NewRequest(http.MethodGet, "/api/users/search?q=ann&size=5", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ann", s.q)
	assert.Equal(t, 5, s.size)
	assert.Contains(t, rec.Body.String(), `"uid":"u1"`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users/search", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	r := gin.New()
	h := &HealthHandler{Checks: map[string]Pinger{
		"redis": func(context.Context) error { return nil },
	}}
	r.GET("/api/healthz", h.Healthz)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	h.Checks["postgres"] = func(context.Context) error { return errors.New("refused") }
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "refused")
}
