package healthcheck

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func get(t *testing.T, s *Server, path string) (*httptest.ResponseRecorder, HealthResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestHealth(t *testing.T) {
	s := NewServer("0", zaptest.NewLogger(t))

	rec, body := get(t, s, "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "UP", body.Status)
	assert.Equal(t, Version, body.Version)
}

func TestReady_AllChecksPass(t *testing.T) {
	s := NewServer("0", zaptest.NewLogger(t))
	s.RegisterCheck("database", func(context.Context) error { return nil })
	s.RegisterCheck("nats", func(context.Context) error { return nil })

	rec, body := get(t, s, "/ready")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "READY", body.Status)
	assert.Equal(t, "ok", body.Details["database"])
	assert.Equal(t, "ok", body.Details["nats"])
	assert.NotEmpty(t, body.Details["timestamp"])
}

func TestReady_FailingCheck(t *testing.T) {
	s := NewServer("0", zaptest.NewLogger(t))
	s.RegisterCheck("database", func(context.Context) error { return nil })
	s.RegisterCheck("nats", func(context.Context) error { return errors.New("nats connection is not established") })

	rec, body := get(t, s, "/ready")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "NOT_READY", body.Status)
	assert.Equal(t, "ok", body.Details["database"])
	assert.Equal(t, "nats connection is not established", body.Details["nats"])
}

func TestReady_NoChecks(t *testing.T) {
	s := NewServer("0", zaptest.NewLogger(t))

	rec, body := get(t, s, "/ready")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "READY", body.Status)
}

func TestRegisterMetricsHandler(t *testing.T) {
	s := NewServer("0", zaptest.NewLogger(t))
	s.RegisterMetricsHandler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# metrics"))
	}))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, "# metrics", rec.Body.String())
}
