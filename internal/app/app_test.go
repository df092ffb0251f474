package app

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/pokemnky/catalog-sync/internal/config"
	httpmocks "github.com/pokemnky/catalog-sync/internal/httpclient/mocks"
)

func createTestApp(t *testing.T, address string) *CatalogApp {
	t.Helper()

	ctrl := gomock.NewController(t)
	app, err := NewCatalogApp(context.Background(),
		WithConfig(config.Default()),
		WithAddress(address),
		WithUpstreamClient(httpmocks.NewMockClient(ctrl)),
	)
	require.NoError(t, err)
	return app
}

func freeAddress(t *testing.T) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())
	return addr
}

func TestCatalogApp_StartAndStop(t *testing.T) {
	t.Parallel()

	addr := freeAddress(t)
	app := createTestApp(t, addr)

	errChan := make(chan error, 1)
	go func() {
		errChan <- app.Start()
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/health")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	resp, err := http.Get("http://" + addr + "/v1/sync/progress")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, app.Stop(5*time.Second))

	select {
	case startErr := <-errChan:
		require.NoError(t, startErr)
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return after Stop()")
	}
	assert.Error(t, app.ctx.Err(), "stop cancels the app context")
}

func TestCatalogApp_StopWithoutStart(t *testing.T) {
	t.Parallel()

	app := createTestApp(t, "127.0.0.1:0")
	require.NoError(t, app.Stop(time.Second))
}

func TestCatalogApp_StopWithNilCancelFunc(t *testing.T) {
	t.Parallel()

	app := createTestApp(t, "127.0.0.1:0")
	cancel := app.cancelFunc
	app.cancelFunc = nil
	t.Cleanup(cancel)

	require.NoError(t, app.Stop(time.Second))
}

func TestCatalogApp_StartError_AddressInUse(t *testing.T) {
	t.Parallel()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { listener.Close() })

	app := createTestApp(t, listener.Addr().String())
	t.Cleanup(func() { _ = app.Stop(time.Second) })

	err = app.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP server failed")
}

func TestCatalogApp_Getters(t *testing.T) {
	t.Parallel()

	app := createTestApp(t, "127.0.0.1:0")
	t.Cleanup(func() { _ = app.Stop(time.Second) })

	assert.Equal(t, config.StorageTypeMemory, app.GetConfig().GetStorageType())
	assert.Equal(t, "127.0.0.1:0", app.GetHTTPServer().Addr)
	assert.NotNil(t, app.Components().Tracker)
}
