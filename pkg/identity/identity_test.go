package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-portal-api/pkg/config"
)

func signClaims(t *testing.T, secret string, claims *Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestVerifierRoundTrip(t *testing.T) {
	v := NewVerifier("secret")
	now := time.Now()
	token := signClaims(t, "secret", &Claims{
		Email:     "student@example.com",
		SessionID: "sess-1",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	})

	claims, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "sess-1", claims.SessionID)
}

func TestVerifierRejects(t *testing.T) {
	v := NewVerifier("secret")
	now := time.Now()

	expired := signClaims(t, "secret", &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u", ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour))}})
	_, err := v.Verify(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noSubject := signClaims(t, "secret", &Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))}})
	_, err = v.Verify(noSubject)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := signClaims(t, "other", &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u", ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))}})
	_, err = v.Verify(other)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func testBackend(url string) config.BackendConfig {
	return config.BackendConfig{URL: url, PublicKey: "eyJ" + strings.Repeat("k", 120), Timeout: time.Second}
}

func TestClientSignOut(t *testing.T) {
	var gotAuth, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/logout", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		gotKey = r.Header.Get("apikey")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(testBackend(srv.URL))
	require.NoError(t, c.SignOut(context.Background(), "tok"))
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.True(t, strings.HasPrefix(gotKey, "eyJ"))
}

func TestClientSignOutFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewClient(testBackend(srv.URL)).SignOut(context.Background(), "tok")
	assert.Error(t, err)
}

func TestAuthorizeURL(t *testing.T) {
	c := NewClient(testBackend("https://project.example.co/"))
	raw := c.AuthorizeURL("https://portal.example.com/dashboard")
	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/auth/v1/authorize", parsed.Path)
	assert.Equal(t, "google", parsed.Query().Get("provider"))
	assert.Equal(t, "https://portal.example.com/dashboard", parsed.Query().Get("redirect_to"))

	assert.NotContains(t, c.AuthorizeURL(""), "redirect_to")
}
