package security_test

import (
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/linemk/elite-cart/internal/domain/models"
	security "github.com/linemk/elite-cart/internal/jwt"
	"github.com/stretchr/testify/assert"
)

func TestNewToken_RoundTrip(t *testing.T) {
	secret := "testsecret"
	os.Setenv("JWT_SECRET", secret)
	defer os.Unsetenv("JWT_SECRET")

	user := &models.User{ID: 42, Email: "test@example.com"}
	tokenStr, err := security.NewToken(user, time.Hour)
	assert.NoError(t, err)
	assert.NotEmpty(t, tokenStr)

	userID, err := security.UserIDFromToken(tokenStr, secret)
	assert.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestNewToken_SubjectIsString(t *testing.T) {
	secret := "testsecret"
	os.Setenv("JWT_SECRET", secret)
	defer os.Unsetenv("JWT_SECRET")

	user := &models.User{ID: 7, Email: "seven@example.com"}
	tokenStr, err := security.NewToken(user, time.Hour)
	assert.NoError(t, err)

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	assert.NoError(t, err)

	claims, ok := token.Claims.(jwt.MapClaims)
	assert.True(t, ok)
	// the subject must be the string form of the id, not a number
	assert.Equal(t, "7", claims["sub"])
	assert.Equal(t, "seven@example.com", claims["email"])
}

func TestNewToken_NoSecret(t *testing.T) {
	os.Unsetenv("JWT_SECRET")

	user := &models.User{ID: 1, Email: "test@example.com"}
	_, err := security.NewToken(user, time.Hour)
	assert.Error(t, err)
}

func TestUserIDFromToken_Expired(t *testing.T) {
	secret := "testsecret"
	os.Setenv("JWT_SECRET", secret)
	defer os.Unsetenv("JWT_SECRET")

	user := &models.User{ID: 42, Email: "test@example.com"}
	tokenStr, err := security.NewToken(user, -time.Minute)
	assert.NoError(t, err)

	_, err = security.UserIDFromToken(tokenStr, secret)
	assert.ErrorIs(t, err, security.ErrInvalidToken)
}

func TestUserIDFromToken_WrongSecret(t *testing.T) {
	os.Setenv("JWT_SECRET", "first-secret")
	defer os.Unsetenv("JWT_SECRET")

	user := &models.User{ID: 42, Email: "test@example.com"}
	tokenStr, err := security.NewToken(user, time.Hour)
	assert.NoError(t, err)

	_, err = security.UserIDFromToken(tokenStr, "another-secret")
	assert.ErrorIs(t, err, security.ErrInvalidToken)
}

func TestUserIDFromToken_NonNumericSubject(t *testing.T) {
	secret := "testsecret"
	claims := jwt.MapClaims{"sub": "not-a-number"}
	tokenStr, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	assert.NoError(t, err)

	_, err = security.UserIDFromToken(tokenStr, secret)
	assert.ErrorIs(t, err, security.ErrInvalidToken)
}
