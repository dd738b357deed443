package api_test

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lolPants/NorthstarMasterServer/internal/api"
	"github.com/lolPants/NorthstarMasterServer/internal/factory"
	"github.com/lolPants/NorthstarMasterServer/internal/testutil"
)

func TestServerStartAndShutdown(t *testing.T) {
	app := factory.NewTestApp()
	router := api.NewRouter(api.RouterConfig{Logger: testutil.NopLogger(), Coordinator: app.Coordinator})

	cfg := api.DefaultServerConfig()
	cfg.Addr = "127.0.0.1:0"
	cfg.ShutdownTimeout = 5 * time.Second
	server := api.NewServer(router, cfg, testutil.NopLogger())
	require.NoError(t, server.Listen())
	assert.NotEqual(t, "127.0.0.1:0", server.Addr())

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	resp, err := http.Get("http://" + server.Addr() + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))

	require.NoError(t, server.Shutdown(context.Background()))
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServerListenError(t *testing.T) {
	cfg := api.DefaultServerConfig()
	cfg.Addr = "127.0.0.1:99999"
	server := api.NewServer(http.NotFoundHandler(), cfg, testutil.NopLogger())

	assert.Error(t, server.Start())
}
