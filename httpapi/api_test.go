package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MrEthical07/sessionauth"
	"github.com/MrEthical07/sessionauth/middleware"
	"github.com/MrEthical07/sessionauth/notify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAPI struct {
	handler http.Handler
	mail    *notify.Recorder
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	cfg := sessionauth.DefaultConfig()
	cfg.JWT.Secret = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Revocation.PruneInterval = 0

	mail := &notify.Recorder{}
	engine, err := sessionauth.New().WithConfig(cfg).WithNotifier(mail).Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	return &testAPI{
		handler: NewRouter(engine, Options{CORSOrigins: []string{"http://localhost:8000"}}),
		mail:    mail,
	}
}

func (a *testAPI) post(t *testing.T, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, req)
	return rr
}

func (a *testAPI) lastCode(t *testing.T) string {
	t.Helper()
	msg, ok := a.mail.Last()
	require.True(t, ok, "no 2FA mail sent")
	return strings.TrimPrefix(msg.Body, "Your login code is: ")
}

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == middleware.CookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", middleware.CookieName)
	return nil
}

func errorBody(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body.Error
}

func tokenBody(token string) string {
	raw, _ := json.Marshal(map[string]string{"token": token})
	return string(raw)
}

func TestEndToEndWithoutTwoFA(t *testing.T) {
	api := newTestAPI(t)

	rr := api.post(t, "/signup", `{"email":"alice@example.com","password":"password123","requires2FA":false}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = api.post(t, "/login", `{"email":"alice@example.com","password":"password123"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	cookie := sessionCookie(t, rr)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.NotEmpty(t, cookie.Value)

	rr = api.post(t, "/verify-token", tokenBody(cookie.Value))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestEndToEndWithTwoFA(t *testing.T) {
	api := newTestAPI(t)

	rr := api.post(t, "/signup", `{"email":"bob@example.com","password":"password123","requires2FA":true}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = api.post(t, "/login", `{"email":"bob@example.com","password":"password123"}`)
	require.Equal(t, http.StatusPartialContent, rr.Code)
	assert.Empty(t, rr.Result().Cookies())

	var partial twoFactorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &partial))
	assert.Equal(t, "2FA required", partial.Message)
	require.NotEmpty(t, partial.LoginAttemptID)
	assert.NotContains(t, rr.Body.String(), api.lastCode(t))

	raw, _ := json.Marshal(map[string]string{
		"email":          "bob@example.com",
		"login_attempt_id": partial.LoginAttemptID,
		"two_fa_code":      api.lastCode(t),
	})
	rr = api.post(t, "/verify-2fa", string(raw))
	require.Equal(t, http.StatusOK, rr.Code)
	cookie := sessionCookie(t, rr)

	rr = api.post(t, "/verify-2fa", string(raw))
	assert.Equal(t, http.StatusUnauthorized, rr.Code, "a challenge can only be used once")

	rr = api.post(t, "/verify-token", tokenBody(cookie.Value))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestSignupStatuses(t *testing.T) {
	api := newTestAPI(t)

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantErr  string
	}{
		{name: "created", body: `{"email":"carol@example.com","password":"password123","requires2FA":false}`, wantCode: http.StatusCreated},
		{name: "duplicate", body: `{"email":"CAROL@example.com","password":"password456","requires2FA":true}`, wantCode: http.StatusConflict, wantErr: "User already exists"},
		{name: "bad email", body: `{"email":"carol","password":"password123","requires2FA":false}`, wantCode: http.StatusBadRequest, wantErr: "Invalid credentials"},
		{name: "short password", body: `{"email":"dave@example.com","password":"short","requires2FA":false}`, wantCode: http.StatusBadRequest, wantErr: "Invalid credentials"},
		{name: "empty email", body: `{"email":"","password":"password123","requires2FA":false}`, wantCode: http.StatusBadRequest},
		{name: "missing field", body: `{"email":"erin@example.com","password":"password123"}`, wantCode: http.StatusUnprocessableEntity, wantErr: "Malformed input"},
		{name: "not json", body: `{ivalid json::}`, wantCode: http.StatusUnprocessableEntity},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := api.post(t, "/signup", tc.body)
			require.Equal(t, tc.wantCode, rr.Code, rr.Body.String())
			if tc.wantErr != "" {
				assert.Equal(t, tc.wantErr, errorBody(t, rr))
			}
		})
	}
}

func TestLoginIncorrectCredentialsIndistinguishable(t *testing.T) {
	api := newTestAPI(t)
	require.Equal(t, http.StatusCreated, api.post(t, "/signup", `{"email":"alice@example.com","password":"password123","requires2FA":false}`).Code)

	wrongPassword := api.post(t, "/login", `{"email":"alice@example.com","password":"password999"}`)
	unknownEmail := api.post(t, "/login", `{"email":"nobody@example.com","password":"password123"}`)

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, wrongPassword.Code, unknownEmail.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())

	rr := api.post(t, "/login", `{"email":"alice@example.com","password":"short"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestVerifyTwoFAInvalidInput(t *testing.T) {
	api := newTestAPI(t)

	rr := api.post(t, "/verify-2fa", `{}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = api.post(t, "/verify-2fa", `{"email":"userm","login_attempt_id":"string","two_fa_code":"string"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// camelCase keys leave the snake_case fields unset.
	rr = api.post(t, "/verify-2fa", `{"email":"bob@example.com","loginAttemptId":"string","2FACode":"123456"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestVerifyTwoFASnakeCaseBody(t *testing.T) {
	api := newTestAPI(t)
	require.Equal(t, http.StatusCreated, api.post(t, "/signup", `{"email":"carol@example.com","password":"password123","requires2FA":true}`).Code)

	rr := api.post(t, "/login", `{"email":"carol@example.com","password":"password123"}`)
	require.Equal(t, http.StatusPartialContent, rr.Code)
	var partial twoFactorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &partial))

	body := `{"email":"carol@example.com","login_attempt_id":"` + partial.LoginAttemptID + `","two_fa_code":"` + api.lastCode(t) + `"}`
	rr = api.post(t, "/verify-2fa", body)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, sessionCookie(t, rr).Value)
}

func TestLogout(t *testing.T) {
	api := newTestAPI(t)
	require.Equal(t, http.StatusCreated, api.post(t, "/signup", `{"email":"alice@example.com","password":"password123","requires2FA":false}`).Code)
	cookie := sessionCookie(t, api.post(t, "/login", `{"email":"alice@example.com","password":"password123"}`))

	t.Run("missing token", func(t *testing.T) {
		rr := api.post(t, "/logout", "")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "Missing token", errorBody(t, rr))
	})

	t.Run("invalid token", func(t *testing.T) {
		rr := api.post(t, "/logout", "", &http.Cookie{Name: middleware.CookieName, Value: "not-a-jwt"})
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, "Invalid token", errorBody(t, rr))
	})

	t.Run("revokes and clears cookie", func(t *testing.T) {
		rr := api.post(t, "/logout", "", cookie)
		require.Equal(t, http.StatusOK, rr.Code)
		cleared := sessionCookie(t, rr)
		assert.Empty(t, cleared.Value)
		assert.Negative(t, cleared.MaxAge)

		assert.Equal(t, http.StatusUnauthorized, api.post(t, "/verify-token", tokenBody(cookie.Value)).Code)
		assert.Equal(t, http.StatusUnauthorized, api.post(t, "/logout", "", cookie).Code)
	})
}

func TestLogoutBearer(t *testing.T) {
	api := newTestAPI(t)
	require.Equal(t, http.StatusCreated, api.post(t, "/signup", `{"email":"alice@example.com","password":"password123","requires2FA":false}`).Code)
	cookie := sessionCookie(t, api.post(t, "/login", `{"email":"alice@example.com","password":"password123"}`))

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.Header.Set("Authorization", "Bearer "+cookie.Value)
	rr := httptest.NewRecorder()
	api.handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestVerifyTokenStatuses(t *testing.T) {
	api := newTestAPI(t)

	assert.Equal(t, http.StatusUnprocessableEntity, api.post(t, "/verify-token", `{"token":"   "}`).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, api.post(t, "/verify-token", `{}`).Code)

	rr := api.post(t, "/verify-token", `{"token":"abc.def.ghi"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Invalid token", errorBody(t, rr))
}

func TestMeRequiresSession(t *testing.T) {
	api := newTestAPI(t)
	require.Equal(t, http.StatusCreated, api.post(t, "/signup", `{"email":"alice@example.com","password":"password123","requires2FA":false}`).Code)
	cookie := sessionCookie(t, api.post(t, "/login", `{"email":"alice@example.com","password":"password123"}`))

	rr := httptest.NewRecorder()
	api.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(cookie)
	rr = httptest.NewRecorder()
	api.handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var me meResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &me))
	assert.Equal(t, "alice@example.com", me.Email)
}

func TestHealthAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	handler := NewRouter(&failingAuth{}, Options{Registry: reg})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body, _ := io.ReadAll(rr.Body)
	assert.Contains(t, string(body), `http_requests_total{method="GET",path="/healthz",status="200"} 1`)
}

func TestCORSPreflight(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodOptions, "/login", nil)
	req.Header.Set("Origin", "http://localhost:8000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	api.handler.ServeHTTP(rr, req)

	assert.Equal(t, "http://localhost:8000", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))
}

type failingAuth struct{}

var errBackend = errors.New("backend down")

func (failingAuth) Signup(context.Context, string, string, bool) error {
	return errors.Join(sessionauth.ErrUnexpected, errBackend)
}

func (failingAuth) Login(context.Context, string, string) (*sessionauth.LoginResult, error) {
	return nil, errors.Join(sessionauth.ErrUnexpected, errBackend)
}

func (failingAuth) VerifyChallenge(context.Context, string, string, string) (*sessionauth.LoginResult, error) {
	return nil, errors.Join(sessionauth.ErrUnexpected, errBackend)
}

func (failingAuth) Logout(context.Context, string) error {
	return errors.Join(sessionauth.ErrUnexpected, errBackend)
}

func (failingAuth) VerifyToken(context.Context, string) (*sessionauth.Claims, error) {
	return nil, sessionauth.ErrInvalidToken
}

func TestUnexpectedErrorsHideCause(t *testing.T) {
	handler := NewRouter(failingAuth{}, Options{})

	req := httptest.NewRequest(http.MethodPost, "/signup", bytes.NewBufferString(`{"email":"a@b.co","password":"password123","requires2FA":false}`))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "Unexpected error", errorBody(t, rr))
	assert.NotContains(t, rr.Body.String(), "backend down")
}
