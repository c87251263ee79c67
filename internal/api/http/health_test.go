package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name      string
		db, redis Pinger
		wantDB    string
		wantRedis string
	}{
		{name: "no dependencies", wantDB: "disabled", wantRedis: "disabled"},
		{name: "redis up, db down", db: down, redis: RedisPinger{Client: client}, wantDB: "down", wantRedis: "up"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			NewHealthHandler("alarm-reasons", "1.0.0", tt.db, tt.redis).RegisterRoutes(router)

			for _, path := range []string{"/health", "/healthz"} {
				rr := httptest.NewRecorder()
				router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
				require.Equal(t, http.StatusOK, rr.Code)

				var response HealthResponse
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
				assert.Equal(t, "healthy", response.Status)
				assert.Equal(t, "alarm-reasons", response.Service)
				assert.Equal(t, tt.wantDB, response.DB)
				assert.Equal(t, tt.wantRedis, response.Redis)
			}
		})
	}
}
