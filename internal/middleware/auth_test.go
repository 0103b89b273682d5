// AuraPrep | 2026
// auth_test.go

package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MaxNguyenMinhLuan/AuraPrep-sub001/internal/core"
)

type staticVerifier struct {
	tokens map[string]*AccessTokenClaims
}

func (v *staticVerifier) VerifyAccessToken(
	token string,
) (*AccessTokenClaims, error) {
	claims, ok := v.tokens[token]
	if !ok {
		return nil, fmt.Errorf("verify: %w", core.ErrTokenInvalid)
	}
	return claims, nil
}

func newVerifier() *staticVerifier {
	return &staticVerifier{
		tokens: map[string]*AccessTokenClaims{
			"good-token": {UserID: "user-1", Email: "alice@example.com"},
		},
	}
}

func echoIdentity(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(
		w,
		"%s|%s",
		GetUserID(r.Context()),
		GetUserEmail(r.Context()),
	)
}

func TestAuthenticatorAcceptsValidBearer(t *testing.T) {
	handler := Authenticator(newVerifier())(http.HandlerFunc(echoIdentity))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good-token")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1|alice@example.com", rec.Body.String())
}

func TestAuthenticatorRejectsMissingToken(t *testing.T) {
	handler := Authenticator(newVerifier())(http.HandlerFunc(echoIdentity))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticatorRejectsBadTokenWithSingleCode(t *testing.T) {
	handler := Authenticator(newVerifier())(http.HandlerFunc(echoIdentity))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer forged-token")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "INVALID_TOKEN", body.Error.Code)
}

func TestOptionalAuthPassesThroughWithoutToken(t *testing.T) {
	handler := OptionalAuth(newVerifier())(http.HandlerFunc(echoIdentity))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "|", rec.Body.String())
}

func TestOptionalAuthIgnoresInvalidToken(t *testing.T) {
	handler := OptionalAuth(newVerifier())(http.HandlerFunc(echoIdentity))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer forged-token")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "|", rec.Body.String())
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"bearer", "Bearer abc123", "abc123"},
		{"lowercase scheme", "bearer abc123", "abc123"},
		{"missing header", "", ""},
		{"wrong scheme", "Basic abc123", ""},
		{"scheme only", "Bearer", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			assert.Equal(t, tt.want, ExtractToken(req))
		})
	}
}

func TestIsAuthenticated(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.False(t, IsAuthenticated(req.Context()))

	handler := Authenticator(newVerifier())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.True(t, IsAuthenticated(r.Context()))
			w.WriteHeader(http.StatusOK)
		}),
	)

	authed := httptest.NewRequest(http.MethodGet, "/", nil)
	authed.Header.Set("Authorization", "Bearer good-token")
	handler.ServeHTTP(httptest.NewRecorder(), authed)
}
