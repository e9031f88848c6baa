package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tutorbill/tutorbill-api/internal/service"
)

func buildTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	authSvc := service.NewAuthService(nil, nil, zap.NewNop(), service.AuthConfig{Secret: "secret", TokenExpiry: time.Hour})
	metricsSvc := service.NewMetricsService()

	RegisterRoutes(r, Handlers{
		Auth:     NewAuthHandler(authSvc),
		Students: NewStudentHandler(nil),
		Lessons:  NewLessonHandler(nil),
		Payments: NewPaymentHandler(nil),
		Rollover: NewRolloverHandler(nil),
		Exports:  NewExportHandler(nil),
	}, authSvc, metricsSvc, true)
	return r
}

func performRequest(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouterHealth(t *testing.T) {
	r := buildTestRouter()

	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	resp := performRequest(r, req)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"status":"ok"`)
}

func TestRouterMetricsExposed(t *testing.T) {
	r := buildTestRouter()

	req, _ := http.NewRequest(http.MethodGet, "/metrics", nil)
	resp := performRequest(r, req)
	require.Equal(t, http.StatusOK, resp.Code)
}

func TestRouterSecuredRoutesRequireToken(t *testing.T) {
	r := buildTestRouter()

	for _, route := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/students"},
		{http.MethodGet, "/api/v1/students/s1/lessons"},
		{http.MethodGet, "/api/v1/students/s1/payments"},
		{http.MethodGet, "/api/v1/billing/summary"},
		{http.MethodPost, "/api/v1/billing/rollover"},
		{http.MethodGet, "/api/v1/reports/statement"},
	} {
		req, _ := http.NewRequest(route.method, route.path, nil)
		resp := performRequest(r, req)
		assert.Equal(t, http.StatusUnauthorized, resp.Code, route.path)
	}
}

func TestRouterRejectsMalformedBearer(t *testing.T) {
	r := buildTestRouter()

	req, _ := http.NewRequest(http.MethodGet, "/api/v1/students", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp := performRequest(r, req)
	require.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Contains(t, resp.Body.String(), "UNAUTHORIZED")
}
