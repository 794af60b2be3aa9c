package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/nsvirk/hrassistapi/internal/api/middleware"
	"github.com/nsvirk/hrassistapi/internal/repository"
	"github.com/nsvirk/hrassistapi/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type envelope struct {
	Status    string          `json:"status"`
	Data      json.RawMessage `json:"data"`
	ErrorType string          `json:"error_type"`
	Message   string          `json:"message"`
}

type testServer struct {
	e       *echo.Echo
	metrics *service.MetricsService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("wonderland"), bcrypt.MinCost)
	require.NoError(t, err)
	authn, err := service.NewStaticAuthenticator("alice:" + string(hash) + ",bob:" + string(hash))
	require.NoError(t, err)

	sessions := service.NewSessionService(repository.NewMemorySessionRepository(), 15*time.Minute)
	metrics := service.NewMetricsService(repository.NewMemoryMetricRepository())
	vault := service.NewRememberMeService(repository.NewMemoryRememberMeRepository())
	tokens := service.NewTokenService("0123456789abcdef0123", time.Hour, "hrassist")

	e := echo.New()
	SetupRoutes(e, Services{
		APIName:    "HR Assistant API",
		APIVersion: "v1",
		Auth:       service.NewAuthService(authn, tokens, vault),
		Flows:      service.NewFlowService(sessions, metrics, service.MenuResponder{}, service.NewLinkDocumentGenerator("/api/documents")),
		Metrics:    metrics,
		Cron:       service.NewCronService("0 3 * * *", sessions, metrics, vault, 90*24*time.Hour, 0),
	})
	t.Cleanup(metrics.Wait)
	return &testServer{e: e, metrics: metrics}
}

func (s *testServer) do(t *testing.T, method, target, body string, cookie *http.Cookie) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func (s *testServer) login(t *testing.T) (*http.Cookie, string) {
	t.Helper()
	return s.loginAs(t, "alice")
}

func (s *testServer) loginAs(t *testing.T, username string) (*http.Cookie, string) {
	t.Helper()
	rec, env := s.do(t, http.MethodPost, "/api/auth/login",
		`{"username":"`+username+`","password":"wonderland","remember_me":true,"device_fingerprint":"dev-1"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var data struct {
		Username        string `json:"username"`
		RememberMeToken string `json:"remember_me_token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, username, data.Username)

	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.AuthCookieName {
			return c, data.RememberMeToken
		}
	}
	t.Fatal("auth cookie not set")
	return nil, ""
}

func TestIndexAndHealth(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodGet, "/api/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `"HR Assistant API v1"`, string(env.Data))

	rec, _ = s.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodPost, "/api/auth/login", `{"username":"alice","password":"nope"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "AuthenticationException", env.ErrorType)

	rec, env = s.do(t, http.MethodPost, "/api/auth/login", `{"username":"alice"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "InputException", env.ErrorType)

	cookie, raw := s.login(t)
	assert.NotEmpty(t, raw)

	_, env = s.do(t, http.MethodGet, "/api/auth/status", "", cookie)
	assert.JSONEq(t, `{"authenticated":true,"username":"alice"}`, string(env.Data))

	_, env = s.do(t, http.MethodGet, "/api/auth/status", "", nil)
	assert.JSONEq(t, `{"authenticated":false}`, string(env.Data))
}

func TestProtectedRoutesNeedAuth(t *testing.T) {
	s := newTestServer(t)

	for _, target := range []string{"/api/chat", "/api/chat/clear", "/api/admin/sweep", "/api/auth/logout"} {
		rec, env := s.do(t, http.MethodPost, target, `{}`, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, target)
		assert.Equal(t, "AuthorizationException", env.ErrorType, target)
	}

	rec, _ := s.do(t, http.MethodPost, "/api/chat", `{"message":"hi"}`, &http.Cookie{Name: middleware.AuthCookieName, Value: "garbage"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBearerToken(t *testing.T) {
	s := newTestServer(t)
	cookie, _ := s.login(t)

	req := httptest.NewRequest(http.MethodGet, "/api/metrics/summary", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+cookie.Value)
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestChat(t *testing.T) {
	s := newTestServer(t)
	cookie, _ := s.login(t)

	rec, env := s.do(t, http.MethodPost, "/api/chat", `{"thread_id":"t1","message":"start=timeoff"}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var reply struct {
		ThreadID    string `json:"thread_id"`
		Text        string `json:"text"`
		SessionType string `json:"session_type"`
		State       string `json:"state"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &reply))
	assert.Equal(t, "t1", reply.ThreadID)
	assert.Equal(t, "timeoff", reply.SessionType)
	assert.Equal(t, "collecting_dates", reply.State)
	assert.NotEmpty(t, reply.Text)

	rec, _ = s.do(t, http.MethodPost, "/api/chat/clear", `{"thread_id":"t1"}`, cookie)
	assert.Equal(t, http.StatusOK, rec.Code)

	_, env = s.do(t, http.MethodPost, "/api/chat", `{"thread_id":"t1","message":"timeoff_date_range=01/07/2030"}`, cookie)
	require.NoError(t, json.Unmarshal(env.Data, &reply))
	assert.Equal(t, service.ExpiredMessage, reply.Text)

	rec, env = s.do(t, http.MethodPost, "/api/chat", `{"thread_id":"t1","message":"   "}`, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "InputException", env.ErrorType)
}

func TestChat_OtherUsersThreadIsForbidden(t *testing.T) {
	s := newTestServer(t)
	alice, _ := s.login(t)
	bob, _ := s.loginAs(t, "bob")

	rec, _ := s.do(t, http.MethodPost, "/api/chat", `{"thread_id":"t1","message":"start=timeoff"}`, alice)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env := s.do(t, http.MethodPost, "/api/chat", `{"thread_id":"t1","message":"cancel"}`, bob)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "AuthorizationException", env.ErrorType)

	rec, env = s.do(t, http.MethodPost, "/api/chat/clear", `{"thread_id":"t1"}`, bob)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "AuthorizationException", env.ErrorType)

	rec, env = s.do(t, http.MethodPost, "/api/chat", `{"thread_id":"t1","message":"timeoff_date_range=01/07/2030"}`, alice)
	require.Equal(t, http.StatusOK, rec.Code)
	var reply struct {
		State string `json:"state"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &reply))
	assert.Equal(t, "collecting_reason", reply.State)
}

func TestMetricsSummary(t *testing.T) {
	s := newTestServer(t)
	cookie, _ := s.login(t)

	s.do(t, http.MethodPost, "/api/chat", `{"thread_id":"t1","message":"hello"}`, cookie)
	s.metrics.Wait()

	rec, env := s.do(t, http.MethodGet, "/api/metrics/summary?days=1", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var data struct {
		Counts map[string]int64 `json:"counts"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, int64(1), data.Counts["chat"])
	assert.Contains(t, data.Counts, "overtime_cancellation")

	rec, _ = s.do(t, http.MethodGet, "/api/metrics/summary?days=0", "", cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRememberMeLifecycle(t *testing.T) {
	s := newTestServer(t)
	cookie, raw := s.login(t)

	_, env := s.do(t, http.MethodGet, "/api/auth/remember-me?device_fingerprint=dev-1", "", nil)
	assert.JSONEq(t, `{"available":true}`, string(env.Data))

	rec, env := s.do(t, http.MethodPost, "/api/auth/remember-me/verify", `{"token":"`+raw+`","device_fingerprint":"dev-2"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Please log in manually", env.Message)

	rec, _ = s.do(t, http.MethodPost, "/api/auth/remember-me/verify", `{"token":"`+raw+`","device_fingerprint":"dev-1"}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/api/auth/logout", `{"device_fingerprint":"dev-1"}`, cookie)
	assert.Equal(t, http.StatusOK, rec.Code)

	_, env = s.do(t, http.MethodGet, "/api/auth/remember-me?device_fingerprint=dev-1", "", nil)
	assert.JSONEq(t, `{"available":false}`, string(env.Data))

	rec, _ = s.do(t, http.MethodPost, "/api/auth/remember-me/verify", `{"token":"`+raw+`","device_fingerprint":"dev-1"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminSweep(t *testing.T) {
	s := newTestServer(t)
	cookie, _ := s.login(t)

	rec, env := s.do(t, http.MethodPost, "/api/admin/sweep", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"sessions":0,"metrics":0,"remember_me_tokens":0}`, string(env.Data))
}
