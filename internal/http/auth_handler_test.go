package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"auth-portal/internal/repository"
	"auth-portal/internal/service"
)

type mockNotifier struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (m *mockNotifier) Send(_ context.Context, to, _, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, to)
	return m.err
}

type fixedOTP struct {
	code string
}

func (f fixedOTP) Generate() (string, error) {
	return f.code, nil
}

type testServer struct {
	router   *gin.Engine
	store    *repository.MemoryUserStore
	notifier *mockNotifier
	sessions *service.SessionTokenService
}

func newTestServer(t *testing.T, production bool) testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := repository.NewMemoryUserStore()
	notifier := &mockNotifier{}
	sessions := service.NewSessionTokenService("secret", 7*24*time.Hour, "auth-portal", nil)
	authSvc := service.NewAuthService(
		zap.NewNop(),
		store,
		notifier,
		service.NewBcryptHasher(bcrypt.MinCost),
		fixedOTP{code: "123456"},
		sessions,
		service.AuthOptions{AppName: "Security Portal", OTPTTL: 5 * time.Minute, OperationTimeout: 5 * time.Second},
	)
	handler := NewAuthHandler(zap.NewNop(), authSvc, NewCookieConfig(production, sessions.TTL()))
	return testServer{
		router:   NewRouter(zap.NewNop(), handler, sessions),
		store:    store,
		notifier: notifier,
		sessions: sessions,
	}
}

func (s testServer) do(t *testing.T, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) response {
	t.Helper()
	var resp response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return resp
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			return c
		}
	}
	return nil
}

func expectResponse(t *testing.T, rec *httptest.ResponseRecorder, status int, success bool, message string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("expected %d, got %d: %s", status, rec.Code, rec.Body.String())
	}
	resp := decodeResponse(t, rec)
	if resp.Success != success || resp.Message != message {
		t.Fatalf("expected success=%v message=%q, got %+v", success, message, resp)
	}
}

func registerBody() map[string]string {
	return map[string]string{"name": "Alice", "email": "a@x.com", "password": "pw123"}
}

func TestRegister_SetsSessionCookie(t *testing.T) {
	srv := newTestServer(t, false)

	rec := srv.do(t, http.MethodPost, "/register", registerBody(), nil)
	expectResponse(t, rec, http.StatusOK, true, "")

	cookie := sessionCookie(rec)
	if cookie == nil || cookie.Value == "" {
		t.Fatalf("expected session cookie")
	}
	if !cookie.HttpOnly || cookie.Secure || cookie.SameSite != http.SameSiteStrictMode {
		t.Fatalf("unexpected cookie attributes: %+v", cookie)
	}
	if cookie.Path != "/" || cookie.MaxAge != 7*24*60*60 {
		t.Fatalf("unexpected cookie path/max-age: %+v", cookie)
	}
	if _, err := srv.sessions.Verify(context.Background(), cookie.Value); err != nil {
		t.Fatalf("expected valid session token: %v", err)
	}
	if len(srv.notifier.sent) != 1 || srv.notifier.sent[0] != "a@x.com" {
		t.Fatalf("expected welcome email, got %+v", srv.notifier.sent)
	}
}

func TestRegister_ProductionCookie(t *testing.T) {
	srv := newTestServer(t, true)

	rec := srv.do(t, http.MethodPost, "/register", registerBody(), nil)
	cookie := sessionCookie(rec)
	if cookie == nil || !cookie.Secure || cookie.SameSite != http.SameSiteNoneMode {
		t.Fatalf("expected secure SameSite=None cookie, got %+v", cookie)
	}
}

func TestRegister_Errors(t *testing.T) {
	srv := newTestServer(t, false)
	srv.do(t, http.MethodPost, "/register", registerBody(), nil)

	rec := srv.do(t, http.MethodPost, "/register", registerBody(), nil)
	expectResponse(t, rec, http.StatusConflict, false, "User already exists!")
	if sessionCookie(rec) != nil {
		t.Fatalf("expected no cookie on conflict")
	}

	rec = srv.do(t, http.MethodPost, "/register", map[string]string{"email": "b@x.com"}, nil)
	expectResponse(t, rec, http.StatusBadRequest, false, "Missing Details")

	rec = srv.do(t, http.MethodPost, "/register", nil, nil)
	expectResponse(t, rec, http.StatusBadRequest, false, "Missing Details")

	req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewBufferString("{not json"))
	rec = httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	expectResponse(t, rec, http.StatusBadRequest, false, "Invalid request body")
}

func TestRegister_EmailFailureStillSetsCookie(t *testing.T) {
	srv := newTestServer(t, false)
	srv.notifier.err = errors.New("smtp down")

	rec := srv.do(t, http.MethodPost, "/register", registerBody(), nil)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	if sessionCookie(rec) == nil {
		t.Fatalf("expected session cookie despite delivery failure")
	}
	if _, err := srv.store.FindByEmail(context.Background(), "a@x.com"); err != nil {
		t.Fatalf("expected account persisted: %v", err)
	}
}

func TestLogin(t *testing.T) {
	srv := newTestServer(t, false)
	srv.do(t, http.MethodPost, "/register", registerBody(), nil)

	rec := srv.do(t, http.MethodPost, "/login", map[string]string{"email": "a@x.com", "password": "pw123"}, nil)
	expectResponse(t, rec, http.StatusOK, true, "")
	if sessionCookie(rec) == nil {
		t.Fatalf("expected session cookie")
	}

	rec = srv.do(t, http.MethodPost, "/login", map[string]string{"email": "a@x.com", "password": "nope"}, nil)
	expectResponse(t, rec, http.StatusUnauthorized, false, "Invalid Password")
	if sessionCookie(rec) != nil {
		t.Fatalf("expected no cookie on failed login")
	}

	rec = srv.do(t, http.MethodPost, "/login", map[string]string{"email": "z@x.com", "password": "pw123"}, nil)
	expectResponse(t, rec, http.StatusNotFound, false, "Invalid E-mail")

	rec = srv.do(t, http.MethodPost, "/login", map[string]string{"email": "a@x.com"}, nil)
	expectResponse(t, rec, http.StatusBadRequest, false, "Email and Password are required")
}

func TestLogout_ClearsCookie(t *testing.T) {
	srv := newTestServer(t, false)

	rec := srv.do(t, http.MethodPost, "/logout", nil, nil)
	expectResponse(t, rec, http.StatusOK, true, "Logged Out")

	cookie := sessionCookie(rec)
	if cookie == nil || cookie.Value != "" || cookie.MaxAge >= 0 {
		t.Fatalf("expected cleared cookie, got %+v", cookie)
	}
	if !cookie.HttpOnly || cookie.Path != "/" || cookie.SameSite != http.SameSiteStrictMode {
		t.Fatalf("expected same attributes on clear, got %+v", cookie)
	}
}

func TestProtectedRoutes_RequireSession(t *testing.T) {
	srv := newTestServer(t, false)
	for _, path := range []string{"/send-verify-otp", "/verify-email", "/is-auth"} {
		rec := srv.do(t, http.MethodPost, path, nil, nil)
		expectResponse(t, rec, http.StatusUnauthorized, false, "Not Authorized. Login Again")

		rec = srv.do(t, http.MethodPost, path, nil, &http.Cookie{Name: sessionCookieName, Value: "forged"})
		expectResponse(t, rec, http.StatusUnauthorized, false, "Not Authorized. Login Again")
	}
}

func TestIsAuth(t *testing.T) {
	srv := newTestServer(t, false)
	cookie := sessionCookie(srv.do(t, http.MethodPost, "/register", registerBody(), nil))

	rec := srv.do(t, http.MethodPost, "/is-auth", nil, cookie)
	expectResponse(t, rec, http.StatusOK, true, "")
}

func TestVerifyEmailFlow(t *testing.T) {
	srv := newTestServer(t, false)
	cookie := sessionCookie(srv.do(t, http.MethodPost, "/register", registerBody(), nil))

	rec := srv.do(t, http.MethodPost, "/send-verify-otp", nil, cookie)
	expectResponse(t, rec, http.StatusOK, true, "Verification OTP sent on email: a@x.com")

	rec = srv.do(t, http.MethodPost, "/verify-email", map[string]string{"otp": "000000"}, cookie)
	expectResponse(t, rec, http.StatusUnauthorized, false, "Invalid OTP")

	rec = srv.do(t, http.MethodPost, "/verify-email", map[string]string{"otp": "123456"}, cookie)
	expectResponse(t, rec, http.StatusOK, true, "E-mail verified successfully")

	rec = srv.do(t, http.MethodPost, "/verify-email", map[string]string{"otp": "123456"}, cookie)
	expectResponse(t, rec, http.StatusUnauthorized, false, "Invalid OTP")

	rec = srv.do(t, http.MethodPost, "/send-verify-otp", nil, cookie)
	expectResponse(t, rec, http.StatusConflict, false, "Account already verified.")

	account, _ := srv.store.FindByEmail(context.Background(), "a@x.com")
	if !account.IsVerified {
		t.Fatalf("expected verified account")
	}
}

func TestPasswordResetFlow(t *testing.T) {
	srv := newTestServer(t, false)
	srv.do(t, http.MethodPost, "/register", registerBody(), nil)

	rec := srv.do(t, http.MethodPost, "/send-password-reset-otp", map[string]string{"email": "a@x.com"}, nil)
	expectResponse(t, rec, http.StatusOK, true, "OTP to reset password is sent to email a@x.com")

	rec = srv.do(t, http.MethodPost, "/send-password-reset-otp", map[string]string{"email": "z@x.com"}, nil)
	expectResponse(t, rec, http.StatusNotFound, false, "User not found")

	rec = srv.do(t, http.MethodPost, "/reset-password", map[string]string{"email": "a@x.com", "otp": "123456"}, nil)
	expectResponse(t, rec, http.StatusBadRequest, false, "Email, OTP, and new password are required")

	rec = srv.do(t, http.MethodPost, "/reset-password", map[string]string{"email": "a@x.com", "otp": "123456", "newPassword": "new-pw"}, nil)
	expectResponse(t, rec, http.StatusOK, true, "Password has been reset successfully")

	rec = srv.do(t, http.MethodPost, "/login", map[string]string{"email": "a@x.com", "password": "new-pw"}, nil)
	expectResponse(t, rec, http.StatusOK, true, "")
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, false)
	rec := srv.do(t, http.MethodGet, "/healthz", nil, nil)
	expectResponse(t, rec, http.StatusOK, true, "")
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&service.Error{Kind: service.KindValidation, Message: "x"}, http.StatusBadRequest},
		{&service.Error{Kind: service.KindAuth, Message: "x"}, http.StatusUnauthorized},
		{&service.Error{Kind: service.KindNotFound, Message: "x"}, http.StatusNotFound},
		{&service.Error{Kind: service.KindConflict, Message: "x"}, http.StatusConflict},
		{&service.Error{Kind: service.KindExpired, Message: "x"}, http.StatusGone},
		{&service.Error{Kind: service.KindDelivery, Message: "x"}, http.StatusBadGateway},
		{&service.Error{Kind: service.KindStore, Message: "x"}, http.StatusServiceUnavailable},
		{&service.Error{Kind: service.KindInternal, Message: "x"}, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := statusFor(c.err); got != c.want {
			t.Fatalf("statusFor(%v) = %d, want %d", c.err, got, c.want)
		}
	}
	if messageFor(errors.New("boom")) != "Something went wrong, try again later" {
		t.Fatalf("expected generic message for unknown errors")
	}
}
