package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-reminders/internal/auth"
	"github.com/ukydev/fleet-reminders/internal/metrics"
	"github.com/ukydev/fleet-reminders/internal/middleware"
	"github.com/ukydev/fleet-reminders/internal/models"
	"github.com/ukydev/fleet-reminders/internal/reminders"
)

type stubExecutor struct {
	calls int
}

func (s *stubExecutor) Execute(ctx context.Context, source string) (*reminders.RunResult, error) {
	s.calls++
	return &reminders.RunResult{RunID: "run-1", GeneratedCount: 2}, nil
}

type stubPinger struct{}

func (stubPinger) Ping(ctx context.Context) error { return nil }

func newTestRouter(t *testing.T) (http.Handler, *auth.Service, *stubExecutor) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	hash, err := auth.HashSecret("cron-secret")
	require.NoError(t, err)
	authService := auth.NewService("test-secret", time.Hour, hash)
	reg := prometheus.NewRegistry()
	metrics.New(reg)
	executor := &stubExecutor{}

	router := NewRouter(Deps{
		Auth:        authService,
		Executor:    executor,
		DB:          stubPinger{},
		Gatherer:    reg,
		RateLimiter: middleware.NewRateLimiter(100, 100),
		Logger:      logger,
		RunTimeout:  time.Minute,
	})
	return router, authService, executor
}

func TestRouter_PublicEndpoints(t *testing.T) {
	router, _, _ := newTestRouter(t)

	for _, path := range []string{"/health", "/ready", "/metrics"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestRouter_Generate(t *testing.T) {
	router, authService, executor := newTestRouter(t)

	// No credentials
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/reminders/generate", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Cron secret
	req := httptest.NewRequest(http.MethodPost, "/api/reminders/generate", nil)
	req.Header.Set(middleware.CronSecretHeader, "cron-secret")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"generated_count":2`)

	// Viewer token lacks run_generation
	token, err := authService.GenerateToken(&models.User{ID: "u1", Username: "viewer", Role: models.RoleViewer})
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodPost, "/api/reminders/generate", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	assert.Equal(t, 1, executor.calls)
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	logger, _ := test.NewNullLogger()
	srv := New("127.0.0.1:0", Deps{
		Auth:        auth.NewService("test-secret", time.Hour, ""),
		Executor:    &stubExecutor{},
		DB:          stubPinger{},
		Gatherer:    prometheus.NewRegistry(),
		RateLimiter: middleware.NewRateLimiter(1, 1),
		Logger:      logger,
		RunTimeout:  time.Minute,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
