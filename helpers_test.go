package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/tasknest/internal/config"
)

// captureMailer records outgoing tokens instead of sending mail.
type captureMailer struct {
	mu            sync.Mutex
	verifications map[string]string // email -> token
	resets        map[string]string
	failNext      bool
}

func (m *captureMailer) SendVerificationEmail(_ context.Context, email, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext {
		m.failNext = false
		return io.ErrClosedPipe
	}
	if m.verifications == nil {
		m.verifications = map[string]string{}
	}
	m.verifications[email] = token
	return nil
}

func (m *captureMailer) SendPasswordResetEmail(_ context.Context, email, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.resets == nil {
		m.resets = map[string]string{}
	}
	m.resets[email] = token
	return nil
}

func (m *captureMailer) verificationToken(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.verifications[email]
}

func (m *captureMailer) resetToken(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resets[email]
}

func newTestApp(t *testing.T) (*App, *MemStore, *captureMailer) {
	t.Helper()
	c := &config.Config{
		Port:               "3000",
		JWTAccessSecret:    "test-access-secret",
		JWTRefreshSecret:   "test-refresh-secret",
		AccessTokenTTL:     time.Hour,
		RefreshTokenTTL:    24 * time.Hour,
		BcryptCost:         bcrypt.MinCost,
		RateLimitPerMinute: 10000,
	}
	store := NewMemStore()
	blacklist := NewMemoryBlacklist()
	t.Cleanup(blacklist.Stop)
	mailer := &captureMailer{}
	return NewApp(c, store, blacklist, mailer), store, mailer
}

// doJSON runs one request through the full router and decodes the JSON body.
func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}, token string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var out map[string]interface{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

// registerVerified registers a user, completes email verification, and
// returns the login response body.
func registerVerified(t *testing.T, h http.Handler, mailer *captureMailer, username, email, password, role string) map[string]interface{} {
	t.Helper()
	rec, _ := doJSON(t, h, http.MethodPost, "/auth/register", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
		"role":     role,
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	token := mailer.verificationToken(email)
	require.NotEmpty(t, token)
	rec, _ = doJSON(t, h, http.MethodGet, "/auth/verify-email/"+token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body := doJSON(t, h, http.MethodPost, "/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	return body
}
