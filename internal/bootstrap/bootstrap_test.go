package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SickoOrange/SimpleAndReason/config"
	"github.com/SickoOrange/SimpleAndReason/internal/metrics"
)

func TestOpenRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client, err := OpenRedis(context.Background(), config.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	client.Close()

	addr := mr.Addr()
	mr.Close()
	_, err = OpenRedis(context.Background(), config.RedisConfig{Addr: addr})
	assert.Error(t, err)
}

func TestOpenDB_RequiresDSN(t *testing.T) {
	_, err := OpenDB(context.Background(), DBOptions{})
	assert.Error(t, err)
}

func TestBuildRouter(t *testing.T) {
	SetGinMode("test")
	assert.Equal(t, gin.TestMode, gin.Mode())

	m := metrics.NewRegistry()
	m.RecordWrite("alarmnot", 3, 0)
	r := BuildRouter(RouterDeps{ServiceName: "alarm-reasons", Version: "1.0.0", Metrics: m})

	t.Run("health", func(t *testing.T) {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.NotEmpty(t, rr.Header().Get("X-Request-Id"))
	})

	t.Run("metrics", func(t *testing.T) {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "alarm_reasons_records_written_total")
	})

	t.Run("cors preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/alarm-reasons/runs", nil)
		req.Header.Set("Origin", "http://dashboard.local")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	})
}
