package server

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"snapbuzz/pkg/config"
	"snapbuzz/pkg/logger"
	"snapbuzz/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestNewRouter_HealthAndMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(&config.Config{CORSAllowedOrigins: []string{"*"}}, metrics.New("test"))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/metrics", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "snapbuzz_http_requests_total")
}

func TestCorsConfig(t *testing.T) {
	all := corsConfig([]string{"*"})
	assert.True(t, all.AllowAllOrigins)
	assert.Empty(t, all.AllowOrigins)
	assert.False(t, all.AllowCredentials)

	some := corsConfig([]string{"http://localhost:19006"})
	assert.False(t, some.AllowAllOrigins)
	assert.Equal(t, []string{"http://localhost:19006"}, some.AllowOrigins)
	assert.True(t, some.AllowCredentials)
}

func TestShutdown_RunsClosers(t *testing.T) {
	srv := &http.Server{}
	log := logger.NewWithWriters(io.Discard, io.Discard)
	calls := 0

	err := Shutdown(srv, log,
		func() error { calls++; return nil },
		nil,
		func() error { calls++; return errors.New("boom") },
	)

	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}
