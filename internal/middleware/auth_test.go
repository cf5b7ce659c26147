package middleware

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reidmcb/fairway-live/internal/config"
	"github.com/reidmcb/fairway-live/internal/models"
)

func signedToken(t *testing.T, method jwt.SigningMethod, key any, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestParseTokenVerifiesWithConfiguredSecret(t *testing.T) {
	cfg := &config.Config{ClerkSecretKey: "sk_test_secret"}
	token := signedToken(t, jwt.SigningMethodHS256, []byte("sk_test_secret"), Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user_abc"},
		Role:             "manager",
		Email:            "pat@example.com",
	})

	claims, err := parseToken(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, "user_abc", claims.Subject)
	assert.Equal(t, "manager", claims.Role)
	assert.Equal(t, "pat@example.com", claims.Email)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	cfg := &config.Config{ClerkSecretKey: "sk_test_secret"}
	token := signedToken(t, jwt.SigningMethodHS256, []byte("some-other-secret"), Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user_abc"},
	})

	_, err := parseToken(cfg, token)
	assert.Error(t, err)
}

func TestParseTokenRejectsUnsignedTokenWhenSecretSet(t *testing.T) {
	cfg := &config.Config{ClerkSecretKey: "sk_test_secret"}
	token := signedToken(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user_abc"},
	})

	_, err := parseToken(cfg, token)
	assert.Error(t, err)
}

func TestParseTokenUnverifiedWithoutSecret(t *testing.T) {
	cfg := &config.Config{}
	token := signedToken(t, jwt.SigningMethodHS256, []byte("anything"), Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user_dev"},
		Role:             "admin",
	})

	claims, err := parseToken(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, "user_dev", claims.Subject)
	assert.Equal(t, "admin", claims.Role)
}

func TestRoleFromClaim(t *testing.T) {
	cases := []struct {
		claim string
		want  models.UserRole
	}{
		{"admin", models.UserRoleAdmin},
		{"manager", models.UserRoleManager},
		{"user", models.UserRoleUser},
		{"", models.UserRoleUser},
		{"superuser", models.UserRoleUser},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, roleFromClaim(tc.claim), "claim %q", tc.claim)
	}
}
