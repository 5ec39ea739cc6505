package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ticketly/internal/shared/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func accessClaims(userID uuid.UUID, role string) jwt.MapClaims {
	return jwt.MapClaims{
		"user_id": userID.String(),
		"email":   "user@example.com",
		"role":    role,
		"type":    "access",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
}

func newTestEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", append(handlers, func(c *gin.Context) {
		id, _ := GetUserID(c)
		c.JSON(http.StatusOK, gin.H{"user": id.String(), "admin": IsAdmin(c)})
	})...)
	return r
}

func doRequest(r *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth(t *testing.T) {
	cfg := &config.Config{JWT: config.JWTConfig{Secret: testSecret}}
	r := newTestEngine(JWTAuthWithConfig(cfg))
	userID := uuid.New()

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid token", "Bearer " + signToken(t, accessClaims(userID, "USER"), testSecret), http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Token abc", http.StatusUnauthorized},
		{"bad signature", "Bearer " + signToken(t, accessClaims(userID, "USER"), "other"), http.StatusUnauthorized},
		{"refresh token", "Bearer " + signToken(t, jwt.MapClaims{"user_id": userID.String(), "type": "refresh"}, testSecret), http.StatusUnauthorized},
		{"expired", "Bearer " + signToken(t, jwt.MapClaims{"user_id": userID.String(), "type": "access", "exp": time.Now().Add(-time.Minute).Unix()}, testSecret), http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(r, tt.header)
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusOK {
				assert.Contains(t, w.Body.String(), userID.String())
			}
		})
	}
}

func TestRequireRoles(t *testing.T) {
	cfg := &config.Config{JWT: config.JWTConfig{Secret: testSecret}}
	r := newTestEngine(JWTAuthWithConfig(cfg), RequireAdmin())

	user := doRequest(r, "Bearer "+signToken(t, accessClaims(uuid.New(), "USER"), testSecret))
	assert.Equal(t, http.StatusForbidden, user.Code)

	admin := doRequest(r, "Bearer "+signToken(t, accessClaims(uuid.New(), "ADMIN"), testSecret))
	assert.Equal(t, http.StatusOK, admin.Code)
	assert.Contains(t, admin.Body.String(), `"admin":true`)
}

func TestOptionalAuth(t *testing.T) {
	cfg := &config.Config{JWT: config.JWTConfig{Secret: testSecret}}
	r := newTestEngine(OptionalAuthWithConfig(cfg))

	anon := doRequest(r, "")
	assert.Equal(t, http.StatusOK, anon.Code)
	assert.Contains(t, anon.Body.String(), uuid.Nil.String())

	bad := doRequest(r, "Bearer garbage")
	assert.Equal(t, http.StatusOK, bad.Code)
}

func TestCanAccessUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	owner := uuid.New()

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Set(ContextUserID, owner.String())
	c.Set(ContextUserRole, "USER")
	assert.True(t, CanAccessUser(c, owner))
	assert.False(t, CanAccessUser(c, uuid.New()))

	c.Set(ContextUserRole, "ADMIN")
	assert.True(t, CanAccessUser(c, uuid.New()))
}
