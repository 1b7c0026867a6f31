// internal/middleware/auth_test.go
package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medcouncil/registry-backend/internal/utils"
)

func setupAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	r.GET("/protected", AuthRequired(), func(c *gin.Context) {
		userID, _ := c.Get("user_id")
		c.JSON(http.StatusOK, gin.H{"user_id": userID})
	})
	r.GET("/admin", AuthRequired(), AdminRequired(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/staff", AuthRequired(), StaffRequired(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	return r
}

func doRequest(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequiredRejectsMissingToken(t *testing.T) {
	r := setupAuthRouter()

	w := doRequest(r, "/protected", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRequiredRejectsMalformedHeader(t *testing.T) {
	r := setupAuthRouter()

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Token abcdef")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRequiredAcceptsValidToken(t *testing.T) {
	r := setupAuthRouter()

	token, err := utils.GenerateJWT(uuid.New(), "applicant.user", "applicant", 1)
	require.NoError(t, err)

	w := doRequest(r, "/protected", token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminRequiredRejectsNonAdminRoles(t *testing.T) {
	r := setupAuthRouter()

	for _, role := range []string{"applicant", "agent", "commission", "president"} {
		token, err := utils.GenerateJWT(uuid.New(), "user", role, 1)
		require.NoError(t, err)

		w := doRequest(r, "/admin", token)
		assert.Equal(t, http.StatusForbidden, w.Code, "role %s reached admin route", role)
	}

	token, err := utils.GenerateJWT(uuid.New(), "admin", "admin", 1)
	require.NoError(t, err)
	w := doRequest(r, "/admin", token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStaffRequiredAdmitsReviewRolesOnly(t *testing.T) {
	r := setupAuthRouter()

	for _, role := range []string{"agent", "commission", "president", "admin"} {
		token, err := utils.GenerateJWT(uuid.New(), "staff", role, 1)
		require.NoError(t, err)

		w := doRequest(r, "/staff", token)
		assert.Equal(t, http.StatusOK, w.Code, "role %s turned away from staff route", role)
	}

	token, err := utils.GenerateJWT(uuid.New(), "applicant.user", "applicant", 1)
	require.NoError(t, err)
	w := doRequest(r, "/staff", token)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
