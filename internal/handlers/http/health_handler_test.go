package http

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	ts.clock.Advance(90 * time.Second)

	w := ts.do(http.MethodGet, "/health", "", false)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "1m30s", body["uptime"])
}

func TestReady(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		ts := newTestServer(t)
		ts.checker.AddCheck("storage", func(ctx context.Context) error { return nil }, time.Second)

		w := ts.do(http.MethodGet, "/ready", "", false)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, map[string]interface{}{"storage": "healthy"}, decodeBody(t, w)["checks"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		ts := newTestServer(t)
		ts.checker.AddCheck("storage", func(ctx context.Context) error { return errors.New("redis down") }, time.Second)

		w := ts.do(http.MethodGet, "/ready", "", false)

		require.Equal(t, http.StatusServiceUnavailable, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "unhealthy", body["status"])
		assert.Equal(t, "redis down", body["checks"].(map[string]interface{})["storage"])
	})
}

func TestMetricsRoute(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/metrics", "", false)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "relaycast_up")
}
