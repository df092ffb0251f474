package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/pokemnky/catalog-sync/internal/api"
	v1 "github.com/pokemnky/catalog-sync/internal/api/v1"
	"github.com/pokemnky/catalog-sync/internal/cache"
	"github.com/pokemnky/catalog-sync/internal/status"
	syncmocks "github.com/pokemnky/catalog-sync/internal/sync/mocks"
	"github.com/pokemnky/catalog-sync/internal/sync/state"
	"github.com/pokemnky/catalog-sync/internal/versions"
)

func testServices(t *testing.T) v1.Services {
	t.Helper()
	ctrl := gomock.NewController(t)
	store := cache.NewMemoryStore()
	return v1.Services{
		Manager:   syncmocks.NewMockManager(ctrl),
		Jobs:      state.NewMemoryStateService(),
		Progress:  status.NewTracker(store, nil, nil),
		Resources: store,
	}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, path, nil)
	require.NoError(t, err)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	rr := get(t, api.NewServer(testServices(t)), "/health")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var response map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	assert.Equal(t, "healthy", response["status"])
}

func TestReadinessEndpoint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		check          api.ReadinessCheck
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "no check configured",
			expectedStatus: http.StatusOK,
			expectedBody:   "ready",
		},
		{
			name:           "service ready",
			check:          func(context.Context) error { return nil },
			expectedStatus: http.StatusOK,
			expectedBody:   "ready",
		},
		{
			name:           "service not ready",
			check:          func(context.Context) error { return errors.New("database unreachable") },
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   "database unreachable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := api.NewServer(testServices(t), api.WithReadinessCheck(tt.check))
			rr := get(t, server, "/readiness")

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.expectedBody)
		})
	}
}

func TestVersionEndpoint(t *testing.T) {
	t.Parallel()

	rr := get(t, api.NewServer(testServices(t)), "/version")
	require.Equal(t, http.StatusOK, rr.Code)

	var response api.VersionResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	assert.Equal(t, versions.Version, response.Version)
	assert.NotEmpty(t, response.GoVersion)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("not mounted without handler", func(t *testing.T) {
		t.Parallel()
		rr := get(t, api.NewServer(testServices(t)), "/metrics")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("served by handler", func(t *testing.T) {
		t.Parallel()
		handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("catalog_sync_resources_total 1\n"))
		})
		rr := get(t, api.NewServer(testServices(t), api.WithMetricsHandler(handler)), "/metrics")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "catalog_sync_resources_total")
	})
}

func TestV1Mounted(t *testing.T) {
	t.Parallel()

	server := api.NewServer(testServices(t))

	rr := get(t, server, "/v1/sync/progress")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = get(t, server, "/v1/sync/jobs")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"jobs":[]}`, rr.Body.String())

	rr = get(t, server, "/v1/resources/pokemon/1")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestMiddlewaresApplied(t *testing.T) {
	t.Parallel()

	called := false
	mw := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			next.ServeHTTP(w, r)
		})
	}

	server := api.NewServer(testServices(t), api.WithMiddlewares(mw, api.LoggingMiddleware))
	rr := get(t, server, "/health")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, called)
}
