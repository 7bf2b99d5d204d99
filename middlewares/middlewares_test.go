package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/restaurant-pos/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
	utils.SilenceLoggers()
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.GET("/probe", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"role": c.GetString("role"), "operator": c.GetBool("operator")})
	})
	return r
}

func get(r http.Handler, target string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestOperatorPinMiddleware(t *testing.T) {
	hash, err := HashPin("4321")
	require.NoError(t, err)
	r := newEngine(OperatorPinMiddleware(hash))

	assert.Equal(t, http.StatusUnauthorized, get(r, "/probe", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/probe", map[string]string{HeaderOperatorPin: "0000"}).Code)

	w := get(r, "/probe", map[string]string{HeaderOperatorPin: "4321"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"operator":true`)

	assert.Equal(t, http.StatusOK, get(r, "/probe?pin=4321", nil).Code)
}

func TestOperatorPinMiddleware_DisabledWithoutHash(t *testing.T) {
	r := newEngine(OperatorPinMiddleware(""))
	assert.Equal(t, http.StatusOK, get(r, "/probe", nil).Code)
}

func TestRateLimiterPerIP(t *testing.T) {
	rl := NewRateLimiter(2, 60)
	r := newEngine(rl.RateLimit())

	assert.Equal(t, http.StatusOK, get(r, "/probe", nil).Code)
	assert.Equal(t, http.StatusOK, get(r, "/probe", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, "/probe", nil).Code)
}

func TestStrictRateLimiter(t *testing.T) {
	r := newEngine(NewStrictRateLimiter(time.Hour, 1))

	assert.Equal(t, http.StatusOK, get(r, "/probe", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, "/probe", nil).Code)
}

func TestScreenRoleMiddleware(t *testing.T) {
	r := newEngine(ScreenRoleMiddleware())

	w := get(r, "/probe", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"pos"`)

	w = get(r, "/probe?role=kitchen", nil)
	assert.Contains(t, w.Body.String(), `"role":"kitchen"`)

	assert.Equal(t, http.StatusBadRequest, get(r, "/probe?role=admin", nil).Code)
}

func TestLoggerMiddlewareSetsRequestID(t *testing.T) {
	r := newEngine(LoggerMiddleware(), SecurityHeaders())

	w := get(r, "/probe", nil)
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	w = get(r, "/probe", map[string]string{HeaderRequestID: "req-42"})
	assert.Equal(t, "req-42", w.Header().Get(HeaderRequestID))
}

func TestCORSPreflight(t *testing.T) {
	r := newEngine(CORSMiddlewares("http://localhost:3000"))

	req := httptest.NewRequest(http.MethodOptions, "/probe", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "X-Operator-Pin")
}
