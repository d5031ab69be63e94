// pkg/stream/auth_test.go
package stream

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authRequest(headers map[string]string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/stream", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req
}

func TestBearerAuthenticator(t *testing.T) {
	auth, err := NewAuthenticator(&AuthConfig{Type: AuthTypeBearer, Token: "secret-token"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		headers map[string]string
		wantErr error
	}{
		{"valid token", map[string]string{"Authorization": "Bearer secret-token"}, nil},
		{"wrong token", map[string]string{"Authorization": "Bearer other"}, ErrAuthenticationFailed},
		{"missing header", nil, ErrAuthenticationFailed},
		{"wrong scheme", map[string]string{"Authorization": "Basic secret-token"}, ErrAuthenticationFailed},
		{"empty token", map[string]string{"Authorization": "Bearer "}, ErrAuthenticationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := auth.Authenticate(authRequest(tt.headers))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBasicAuthenticator(t *testing.T) {
	auth, err := NewAuthenticator(&AuthConfig{Type: AuthTypeBasic, Username: "viewer", Password: "pw"})
	require.NoError(t, err)

	req := authRequest(nil)
	req.SetBasicAuth("viewer", "pw")
	assert.NoError(t, auth.Authenticate(req))

	req = authRequest(nil)
	req.SetBasicAuth("viewer", "wrong")
	assert.ErrorIs(t, auth.Authenticate(req), ErrAuthenticationFailed)

	req = authRequest(nil)
	req.SetBasicAuth("other", "pw")
	assert.ErrorIs(t, auth.Authenticate(req), ErrAuthenticationFailed)

	assert.ErrorIs(t, auth.Authenticate(authRequest(nil)), ErrAuthenticationFailed)
}

func signJWT(t *testing.T, secret, issuer string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	if issuer != "" {
		claims["iss"] = issuer
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestJWTAuthenticator(t *testing.T) {
	auth, err := NewAuthenticator(&AuthConfig{Type: AuthTypeJWT, Secret: "hmac-secret"})
	require.NoError(t, err)

	valid := signJWT(t, "hmac-secret", "")
	assert.NoError(t, auth.Authenticate(authRequest(map[string]string{"Authorization": "Bearer " + valid})))

	// 错误密钥签名
	forged := signJWT(t, "other-secret", "")
	assert.ErrorIs(t, auth.Authenticate(authRequest(map[string]string{"Authorization": "Bearer " + forged})), ErrAuthenticationFailed)

	// 非 JWT 负载
	assert.ErrorIs(t, auth.Authenticate(authRequest(map[string]string{"Authorization": "Bearer not-a-jwt"})), ErrAuthenticationFailed)
	assert.ErrorIs(t, auth.Authenticate(authRequest(nil)), ErrAuthenticationFailed)
}

func TestJWTAuthenticatorIssuer(t *testing.T) {
	auth, err := NewAuthenticator(&AuthConfig{Type: AuthTypeJWT, Secret: "hmac-secret", Issuer: "logstream"})
	require.NoError(t, err)

	good := signJWT(t, "hmac-secret", "logstream")
	assert.NoError(t, auth.Authenticate(authRequest(map[string]string{"Authorization": "Bearer " + good})))

	bad := signJWT(t, "hmac-secret", "someone-else")
	assert.ErrorIs(t, auth.Authenticate(authRequest(map[string]string{"Authorization": "Bearer " + bad})), ErrAuthenticationFailed)
}

func TestCustomAuthenticator(t *testing.T) {
	auth, err := NewAuthenticator(&AuthConfig{
		Type: AuthTypeCustom,
		Verify: func(r *http.Request) bool {
			return r.Header.Get("X-Api-Key") == "k1"
		},
	})
	require.NoError(t, err)

	assert.NoError(t, auth.Authenticate(authRequest(map[string]string{"X-Api-Key": "k1"})))
	assert.ErrorIs(t, auth.Authenticate(authRequest(nil)), ErrAuthenticationFailed)
}

func TestNewAuthenticatorInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  *AuthConfig
	}{
		{"bearer without token", &AuthConfig{Type: AuthTypeBearer}},
		{"basic without username", &AuthConfig{Type: AuthTypeBasic}},
		{"jwt without secret", &AuthConfig{Type: AuthTypeJWT}},
		{"custom without verify", &AuthConfig{Type: AuthTypeCustom}},
		{"unknown type", &AuthConfig{Type: "saml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth, err := NewAuthenticator(tt.cfg)
			assert.ErrorIs(t, err, ErrInvalidAuthConfig)
			assert.Nil(t, auth)
		})
	}
}

func TestNewAuthenticatorNilConfig(t *testing.T) {
	auth, err := NewAuthenticator(nil)
	assert.NoError(t, err)
	assert.Nil(t, auth)
}
