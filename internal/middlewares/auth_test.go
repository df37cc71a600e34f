package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testServiceKey = "test-service-key"

func signServiceToken(t *testing.T, key string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"service": "hospital-service",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	signed, err := token.SignedString([]byte(key))
	require.NoError(t, err)
	return signed
}

func runAuth(t *testing.T, authorization string) (*gin.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, "/api/notifications", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	Auth(testServiceKey)(c)
	return c, w
}

func TestAuth_ValidToken(t *testing.T) {
	c, w := runAuth(t, "Bearer "+signServiceToken(t, testServiceKey))

	assert.False(t, c.IsAborted())
	assert.Equal(t, http.StatusOK, w.Result().StatusCode)
}

func TestAuth_MissingToken(t *testing.T) {
	c, w := runAuth(t, "")

	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusUnauthorized, w.Result().StatusCode)
	assert.Contains(t, w.Body.String(), "not logged in")
}

func TestAuth_InvalidToken(t *testing.T) {
	c, w := runAuth(t, "Bearer invalidtoken")

	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusUnauthorized, w.Result().StatusCode)
	assert.Contains(t, w.Body.String(), "invalid service key")
}

func TestAuth_WrongKey(t *testing.T) {
	c, w := runAuth(t, "Bearer "+signServiceToken(t, "some-other-key"))

	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusUnauthorized, w.Result().StatusCode)
}
