package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/akeren/mehfil-api/internal/log"
	apperrors "github.com/akeren/mehfil-api/pkg/errors"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mountTestController(rs *RouterService) {
	ctrl := NewRESTController("TestController", "/", func(rs *RouterService, c *RESTController) {
		rs.AddGetHandler(c, nil, "ip", func(ctx *RequestContext) *ServiceResult {
			return OKResult(gin.H{"ip": ctx.ClientIP()})
		})

		rs.AddPostHandler(c, nil, "echo", func(ctx *RequestContext) *ServiceResult {
			var payload map[string]any
			if res := BindJSON(ctx, &payload); res != nil {
				return res
			}
			return CreatedResult(payload)
		})

		rs.AddGetHandler(c, rs.NewRateLimiter("tight", 1, time.Minute), "tight", func(ctx *RequestContext) *ServiceResult {
			return OKResult(nil)
		})

		rs.AddGetHandler(c, nil, "boom", func(ctx *RequestContext) *ServiceResult {
			return ErrorResultFrom(apperrors.NewDatabaseError("count failed", assert.AnError))
		})
	})

	rs.MountController(ctrl)
}

func newTestRouterService(t *testing.T) *RouterService {
	t.Helper()

	logger := log.NewLoggerWithJSONOutput()
	rs := CreateRouterService(logger, nil, &RouterConfig{
		RateLimitRequests: 1000,
		RateLimitWindow:   time.Minute,
		RequestTimeout:    5 * time.Second,
	})
	t.Cleanup(rs.Cleanup)
	return rs
}

func serve(rs *RouterService, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	rs.GetEngine().ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func TestTrustedProxies_DisabledByDefault(t *testing.T) {
	t.Setenv("TRUSTED_PROXIES", "")

	rs := newTestRouterService(t)
	mountTestController(rs)

	req := httptest.NewRequest(http.MethodGet, "/ip", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	req.Header.Set("X-Forwarded-For", "1.1.1.1")

	w := serve(rs, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "10.0.0.2", decodeBody(t, w)["ip"])
}

func TestTrustedProxies_StarTrustsForwardedFor(t *testing.T) {
	t.Setenv("TRUSTED_PROXIES", "*")

	rs := newTestRouterService(t)
	mountTestController(rs)

	req := httptest.NewRequest(http.MethodGet, "/ip", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	req.Header.Set("X-Forwarded-For", "1.1.1.1")

	w := serve(rs, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "1.1.1.1", decodeBody(t, w)["ip"])
}

func TestMaxBodySize_Returns413(t *testing.T) {
	t.Setenv("MAX_REQUEST_BODY_BYTES", "10")

	rs := newTestRouterService(t)
	mountTestController(rs)

	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewReader(bytes.Repeat([]byte{'a'}, 50)))
	req.Header.Set("Content-Type", "application/json")

	w := serve(rs, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "Request payload too large", decodeBody(t, w)["error"])
}

func TestBindJSON_MalformedBodyReturns400(t *testing.T) {
	rs := newTestRouterService(t)
	mountTestController(rs)

	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString(`{"a":`))
	req.Header.Set("Content-Type", "application/json")

	w := serve(rs, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid request body", decodeBody(t, w)["error"])
}

func TestSuccessBodyIsRawData(t *testing.T) {
	rs := newTestRouterService(t)
	mountTestController(rs)

	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString(`{"hello":"world"}`))
	req.Header.Set("Content-Type", "application/json")

	w := serve(rs, req)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, map[string]any{"hello": "world"}, decodeBody(t, w))
	assert.NotEmpty(t, w.Header().Get("X-Correlation-ID"))
}

func TestInternalErrorsAreHidden(t *testing.T) {
	rs := newTestRouterService(t)
	mountTestController(rs)

	w := serve(rs, httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, map[string]any{"error": "Internal server error"}, decodeBody(t, w))
}

func TestUnknownRouteAndMethod(t *testing.T) {
	rs := newTestRouterService(t)
	mountTestController(rs)

	w := serve(rs, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Route not found", decodeBody(t, w)["error"])

	w = serve(rs, httptest.NewRequest(http.MethodDelete, "/ip", nil))
	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "Method not allowed", decodeBody(t, w)["error"])
}

func TestRouteLimiterOverridesGlobal(t *testing.T) {
	rs := newTestRouterService(t)
	mountTestController(rs)

	first := serve(rs, httptest.NewRequest(http.MethodGet, "/tight", nil))
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Limit"))

	second := serve(rs, httptest.NewRequest(http.MethodGet, "/tight", nil))
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "60", second.Header().Get("Retry-After"))

	body := decodeBody(t, second)
	assert.Equal(t, "Too many requests", body["error"])
	assert.NotNil(t, body["details"])

	// the global limiter is untouched
	assert.Equal(t, http.StatusOK, serve(rs, httptest.NewRequest(http.MethodGet, "/ip", nil)).Code)
}

func TestDuplicateHandlerPanics(t *testing.T) {
	rs := newTestRouterService(t)
	mountTestController(rs)

	assert.Panics(t, func() {
		mountTestController(rs)
	})
}

func TestParseTrustedProxiesEnv(t *testing.T) {
	assert.Nil(t, parseTrustedProxiesEnv("  "))
	assert.Equal(t, []string{"0.0.0.0/0", "::/0"}, parseTrustedProxiesEnv("*"))
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.0/8"}, parseTrustedProxiesEnv("10.0.0.1, ,10.0.0.0/8"))
}

func TestMetricsEndpoint(t *testing.T) {
	t.Setenv("METRICS_ENABLED", "true")

	rs := newTestRouterService(t)
	mountTestController(rs)

	serve(rs, httptest.NewRequest(http.MethodGet, "/ip", nil))

	w := serve(rs, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}
