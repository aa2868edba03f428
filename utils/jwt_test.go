package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key"

func TestGenerateToken(t *testing.T) {
	token, err := GenerateToken(Claims{SubjectID: "g-123", Email: "a@x.com"}, testSecret, time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestValidateToken(t *testing.T) {
	token, err := GenerateToken(Claims{SubjectID: "g-456", Email: "valid@example.com", Name: "Valid"}, testSecret, time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "g-456", claims.SubjectID)
	assert.Equal(t, "valid@example.com", claims.Email)
	assert.Equal(t, "Valid", claims.Name)
	assert.NotEmpty(t, claims.ID, "jti attendu")
}

func TestValidateTokenMauvaisSecret(t *testing.T) {
	token, _ := GenerateToken(Claims{SubjectID: "u", Email: "e@e.com"}, "secret1", time.Hour)
	_, err := ValidateToken(token, "secret2")
	assert.Error(t, err)
}

func TestValidateTokenInvalide(t *testing.T) {
	_, err := ValidateToken("invalid-token", testSecret)
	assert.Error(t, err)
}

func TestValidateTokenIdentiteIncomplete(t *testing.T) {
	token, _ := GenerateToken(Claims{SubjectID: "u"}, testSecret, time.Hour)
	_, err := ValidateToken(token, testSecret)
	assert.Error(t, err)
}

func TestAdminTokenAllerRetour(t *testing.T) {
	token, err := GenerateAdminToken("admin-1", "root", testSecret, time.Hour)
	require.NoError(t, err)

	claims, err := ValidateAdminToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", claims.AdminID)
	assert.Equal(t, "root", claims.Username)
	assert.True(t, claims.HasAdminRole())
}

func TestAdminTokenExpire(t *testing.T) {
	token, err := GenerateAdminToken("admin-1", "root", testSecret, -time.Minute)
	require.NoError(t, err)

	_, err = ValidateAdminToken(token, testSecret)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestAdminTokenAlgorithmeRefuse(t *testing.T) {
	claims := &AdminClaims{AdminID: "x", Role: RoleAdmin, RegisteredClaims: registered("x", time.Hour)}
	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	raw, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ValidateAdminToken(raw, testSecret)
	assert.Error(t, err)
}

func TestHasAdminRole(t *testing.T) {
	tests := []struct {
		name   string
		claims AdminClaims
		want   bool
	}{
		{"rôle admin", AdminClaims{Role: "admin"}, true},
		{"ancien marqueur isAdmin", AdminClaims{IsAdmin: true}, true},
		{"rôle éditeur", AdminClaims{Role: "editor"}, false},
		{"rôle éditeur avec isAdmin", AdminClaims{Role: "editor", IsAdmin: true}, false},
		{"aucun rôle", AdminClaims{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.claims.HasAdminRole())
		})
	}
}
