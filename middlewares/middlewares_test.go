package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/yeremiapane/tableorder/models"
	"github.com/yeremiapane/tableorder/utils"
)

func setupRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handlers...)
	r.GET("/x", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextRole))
	})
	return r
}

func get(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthAndRoles(t *testing.T) {
	kitchen, err := utils.GenerateToken(2, models.RoleKitchen)
	require.NoError(t, err)
	admin, err := utils.GenerateToken(1, models.RoleAdmin)
	require.NoError(t, err)

	r := setupRouter(AuthMiddleware(), RequireRoles(models.RoleKitchen))
	assert.Equal(t, http.StatusUnauthorized, get(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "garbage").Code)

	w := get(r, kitchen)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.RoleKitchen, w.Body.String())
	assert.Equal(t, http.StatusOK, get(r, admin).Code)

	adminOnly := setupRouter(AuthMiddleware(), RequireRoles())
	assert.Equal(t, http.StatusForbidden, get(adminOnly, kitchen).Code)
	assert.Equal(t, http.StatusOK, get(adminOnly, admin).Code)
}

func TestOptionalAuth(t *testing.T) {
	r := setupRouter(OptionalAuth())

	w := get(r, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())

	assert.Equal(t, http.StatusOK, get(r, "garbage").Code)

	token, err := utils.GenerateToken(2, models.RoleKitchen)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/x?token="+token, nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, models.RoleKitchen, w.Body.String())
}

func TestRateLimiterPerIP(t *testing.T) {
	r := setupRouter(NewRateLimiter(rate.Limit(0.001), 2).RateLimit())

	assert.Equal(t, http.StatusOK, get(r, "").Code)
	assert.Equal(t, http.StatusOK, get(r, "").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, "").Code)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.RemoteAddr = "10.0.0.9:4000"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	r := setupRouter(CORSMiddlewares("http://localhost:3000"))
	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}
