package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakePinger struct {
	err   error
	delay time.Duration
	open  bool
}

func (f *fakePinger) Ping(ctx context.Context) error {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.err
}

func (f *fakePinger) BreakerOpen() bool { return f.open }

func TestPingChecker(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		target *fakePinger
		want   CheckStatus
	}{
		{"healthy", &fakePinger{}, StatusHealthy},
		{"ping error", &fakePinger{err: errors.New("refused")}, StatusUnhealthy},
		{"breaker open", &fakePinger{open: true}, StatusUnhealthy},
		{"slow", &fakePinger{delay: 20 * time.Millisecond}, StatusDegraded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewPingChecker("redis", tt.target, true)
			c.SlowAfter = 10 * time.Millisecond
			assert.Equal(t, tt.want, c.Check(ctx).Status)
		})
	}
}

func TestManagerCheck(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t))
	rep := m.Check(context.Background())
	assert.Equal(t, StatusHealthy, rep.Status)
	assert.True(t, rep.Ready)

	require.NoError(t, m.Register(NewPingChecker("docstore", &fakePinger{}, true)))
	require.NoError(t, m.Register(NewPingChecker("geometry_cache", &fakePinger{err: errors.New("down")}, false)))
	assert.Error(t, m.Register(NewPingChecker("docstore", &fakePinger{}, true)))
	assert.Equal(t, []string{"docstore", "geometry_cache"}, m.Names())

	rep = m.Check(context.Background())
	assert.Equal(t, StatusDegraded, rep.Status)
	assert.True(t, rep.Ready)
	assert.Equal(t, "geometry_cache", rep.Components["geometry_cache"].Component)
	assert.False(t, rep.Components["geometry_cache"].Critical)

	require.NoError(t, m.Register(NewPingChecker("critical", &fakePinger{err: errors.New("down")}, true)))
	rep = m.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, rep.Status)
	assert.False(t, rep.Ready)
}

func TestHTTPHandler(t *testing.T) {
	m := NewManager(nil)
	require.NoError(t, m.Register(NewPingChecker("docstore", &fakePinger{err: errors.New("down")}, true)))
	mux := http.NewServeMux()
	NewHTTPHandler(m, zaptest.NewLogger(t)).RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unhealthy", body["status"])

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
