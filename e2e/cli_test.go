package e2e_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lolPants/NorthstarMasterServer/internal/api"
	"github.com/lolPants/NorthstarMasterServer/internal/cli"
	"github.com/lolPants/NorthstarMasterServer/internal/factory"
	"github.com/lolPants/NorthstarMasterServer/internal/model"
	"github.com/lolPants/NorthstarMasterServer/internal/testutil"
)

// cliRunner runs nsmasterctl in-process against a test master server
type cliRunner struct {
	serverURL string
	tokenFile string
}

func newCLIRunner(t *testing.T, serverURL string) *cliRunner {
	t.Helper()
	return &cliRunner{
		serverURL: serverURL,
		tokenFile: filepath.Join(t.TempDir(), "token"),
	}
}

func (r *cliRunner) run(args ...string) (string, error) {
	fullArgs := append([]string{
		"--server", r.serverURL,
		"--token-file", r.tokenFile,
		"--output", "json",
	}, args...)

	var out bytes.Buffer
	cmd := cli.NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(fullArgs)
	err := cmd.Execute()
	return out.String(), err
}

func startTestServer(t *testing.T) (*factory.TestApp, *httptest.Server) {
	t.Helper()

	app := factory.NewTestApp()
	router := api.NewRouter(api.RouterConfig{
		Logger:      testutil.NopLogger(),
		Coordinator: app.Coordinator,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return app, srv
}

// addServer registers a game server the way a dedicated server does
func addServer(t *testing.T, baseURL, password string) string {
	t.Helper()

	q := url.Values{
		"port":       {"37015"},
		"authPort":   {"8081"},
		"name":       {"E2E Server"},
		"map":        {"mp_glitch"},
		"playlist":   {"ps"},
		"maxPlayers": {"12"},
		"password":   {password},
	}
	body := []byte(`{"Mods":[{"Name":"Northstar.Custom","Version":"1.0.0","RequiredOnClient":true}]}`)
	resp, err := http.Post(baseURL+"/server/add_server?"+q.Encode(), "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var added struct {
		Success bool   `json:"success"`
		ID      string `json:"id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&added))
	require.True(t, added.Success)
	return added.ID
}

func TestCLI_HealthCheck(t *testing.T) {
	_, srv := startTestServer(t)
	runner := newCLIRunner(t, srv.URL)

	output, err := runner.run("health")
	require.NoError(t, err, output)
	assert.Contains(t, output, `"status": "ok"`)
}

func TestCLI_ServersList(t *testing.T) {
	_, srv := startTestServer(t)
	runner := newCLIRunner(t, srv.URL)

	output, err := runner.run("servers", "list")
	require.NoError(t, err, output)
	assert.JSONEq(t, `[]`, output)

	id := addServer(t, srv.URL, "")

	output, err = runner.run("servers", "list")
	require.NoError(t, err, output)

	var servers []cli.Server
	require.NoError(t, json.Unmarshal([]byte(output), &servers))
	require.Len(t, servers, 1)
	assert.Equal(t, id, servers[0].ID)
	assert.Equal(t, "E2E Server", servers[0].Name)
	assert.Equal(t, 12, servers[0].MaxPlayers)
}

func TestCLI_FullJoinFlow(t *testing.T) {
	app, srv := startTestServer(t)
	runner := newCLIRunner(t, srv.URL)
	serverID := addServer(t, srv.URL, "hunter2")

	output, err := runner.run("client", "origin-auth", "--id", "1000123", "--token", "proof")
	require.NoError(t, err, output)

	var auth cli.OriginAuthResult
	require.NoError(t, json.Unmarshal([]byte(output), &auth))
	require.True(t, auth.Success)
	require.NotEmpty(t, auth.Token)

	// The saved token is used when --token is omitted
	output, err = runner.run("client", "auth-server", "--id", "1000123", "--game-server", serverID, "--password", "hunter2")
	require.NoError(t, err, output)

	var join cli.ServerJoinResult
	require.NoError(t, json.Unmarshal([]byte(output), &join))
	assert.True(t, join.Success)
	assert.Equal(t, "127.0.0.1", join.IP)
	assert.Equal(t, 37015, join.Port)
	assert.NotEmpty(t, join.AuthToken)
	require.Len(t, app.MockRemoteAuth.Calls(), 1)

	output, err = runner.run("client", "auth-self", "--id", "1000123")
	require.NoError(t, err, output)

	var self cli.SelfJoinResult
	require.NoError(t, json.Unmarshal([]byte(output), &self))
	assert.True(t, self.Success)
	assert.Len(t, self.PersistentData, factory.TestBlobSize)

	output, err = runner.run("server", "heartbeat", "--id", serverID, "--players", "3")
	require.NoError(t, err, output)

	server, found := app.Registry.Get(serverID)
	require.True(t, found)
	assert.Equal(t, 3, server.PlayerCount)
}

func TestCLI_ErrorHandling(t *testing.T) {
	app, srv := startTestServer(t)
	runner := newCLIRunner(t, srv.URL)

	t.Run("rejection exits non-zero", func(t *testing.T) {
		output, err := runner.run("client", "auth-self", "--id", "1000123", "--token", "nope")
		require.Error(t, err)
		assert.ErrorIs(t, err, cli.ErrRequestFailed)
		assert.Contains(t, output, "account not found")
	})

	t.Run("wrong password", func(t *testing.T) {
		serverID := addServer(t, srv.URL, "hunter2")
		_, err := runner.run("client", "origin-auth", "--id", "1000123", "--token", "proof")
		require.NoError(t, err)

		output, err := runner.run("client", "auth-server", "--id", "1000123", "--game-server", serverID, "--password", "guess")
		assert.ErrorIs(t, err, cli.ErrRequestFailed)
		assert.Contains(t, output, "wrong server password")
	})

	t.Run("unavailable is reported as retryable", func(t *testing.T) {
		app.MockOracle.SetError(model.Unavailable("identity oracle", errors.New("timeout")))

		output, err := runner.run("client", "origin-auth", "--id", "1000456", "--token", "proof")
		assert.ErrorIs(t, err, cli.ErrRequestFailed)
		assert.Contains(t, output, `"retryable": true`)
	})

	t.Run("unknown server heartbeat", func(t *testing.T) {
		_, err := runner.run("server", "heartbeat", "--id", "missing")
		assert.ErrorIs(t, err, cli.ErrRequestFailed)
	})

	t.Run("missing required flag", func(t *testing.T) {
		_, err := runner.run("client", "origin-auth", "--id", "1000123")
		assert.Error(t, err)
	})

	t.Run("bad request", func(t *testing.T) {
		_, err := runner.run("server", "heartbeat", "--id", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "INVALID_REQUEST")
	})

	t.Run("unreachable server", func(t *testing.T) {
		dead := newCLIRunner(t, "http://127.0.0.1:1")
		_, err := dead.run("health")
		assert.Error(t, err)
	})
}

func TestCLI_TextOutput(t *testing.T) {
	_, srv := startTestServer(t)
	addServer(t, srv.URL, "pw")

	var out bytes.Buffer
	cmd := cli.NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--server", srv.URL, "servers", "list"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "E2E Server")
	assert.Contains(t, out.String(), "0/12")
	assert.Contains(t, out.String(), "[password]")
	assert.Contains(t, out.String(), "Northstar.Custom@1.0.0")
}
