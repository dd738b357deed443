package api_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/lolPants/NorthstarMasterServer/internal/api"
	"github.com/lolPants/NorthstarMasterServer/internal/api/handler"
	"github.com/lolPants/NorthstarMasterServer/internal/api/response"
	"github.com/lolPants/NorthstarMasterServer/internal/factory"
	"github.com/lolPants/NorthstarMasterServer/internal/model"
	"github.com/lolPants/NorthstarMasterServer/internal/services/oracle"
	"github.com/lolPants/NorthstarMasterServer/internal/testutil"
)

// httptest.NewRequest connects from this address
const testClientIP = "192.0.2.1"

type APISuite struct {
	suite.Suite
	app     *factory.TestApp
	handler http.Handler
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APISuite))
}

func (s *APISuite) SetupTest() {
	s.app = factory.NewTestApp()
	s.handler = api.NewRouter(api.RouterConfig{
		Logger:      testutil.NopLogger(),
		Coordinator: s.app.Coordinator,
	})
}

func (s *APISuite) do(method, path string, query url.Values, body []byte, contentType string) *httptest.ResponseRecorder {
	target := path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

func (s *APISuite) decode(rr *httptest.ResponseRecorder, v any) {
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), v), rr.Body.String())
}

func (s *APISuite) originAuth(id string) string {
	rr := s.do(http.MethodGet, "/client/origin_auth", url.Values{"id": {id}, "token": {"proof"}}, nil, "")
	s.Require().Equal(http.StatusOK, rr.Code)

	var resp response.OriginAuth
	s.decode(rr, &resp)
	s.Require().True(resp.Success, resp.Reason)
	return resp.Token
}

func (s *APISuite) addServer(password string, modinfo string) response.AddServer {
	q := url.Values{
		"port":       {"37015"},
		"authPort":   {"8081"},
		"name":       {"Frontier"},
		"map":        {"mp_forwardbase_kodai"},
		"playlist":   {"aitdm"},
		"maxPlayers": {"16"},
	}
	if password != "" {
		q.Set("password", password)
	}
	rr := s.do(http.MethodPost, "/server/add_server", q, []byte(modinfo), "application/json")
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())

	var resp response.AddServer
	s.decode(rr, &resp)
	s.Require().True(resp.Success, resp.Reason)
	return resp
}

func (s *APISuite) TestHealthCheck() {
	rr := s.do(http.MethodGet, "/health", nil, nil, "")
	s.Equal(http.StatusOK, rr.Code)
	s.JSONEq(`{"status":"ok"}`, rr.Body.String())
}

func (s *APISuite) TestUnknownRouteAndMethod() {
	rr := s.do(http.MethodGet, "/client/nope", nil, nil, "")
	s.Equal(http.StatusNotFound, rr.Code)
	s.Contains(rr.Body.String(), "NOT_FOUND")

	rr = s.do(http.MethodPost, "/client/origin_auth", nil, nil, "")
	s.Contains([]int{http.StatusMethodNotAllowed, http.StatusNotFound}, rr.Code)
	s.Empty(s.app.MockOracle.Calls())
}

func (s *APISuite) TestOriginAuth() {
	rr := s.do(http.MethodGet, "/client/origin_auth", url.Values{"id": {"1000123"}, "token": {"proof"}}, nil, "")
	s.Equal(http.StatusOK, rr.Code)
	s.Equal("application/json", rr.Header().Get("Content-Type"))

	var resp response.OriginAuth
	s.decode(rr, &resp)
	s.True(resp.Success)
	s.NotEmpty(resp.Token)

	account, err := s.app.Store.GetAccount(s.T().Context(), "1000123")
	s.Require().NoError(err)
	s.Equal(resp.Token, account.SessionToken)
}

func (s *APISuite) TestOriginAuthMissingParams() {
	rr := s.do(http.MethodGet, "/client/origin_auth", url.Values{"id": {"1000123"}}, nil, "")
	s.Equal(http.StatusBadRequest, rr.Code)
	s.Contains(rr.Body.String(), "token is required")
	s.Empty(s.app.MockOracle.Calls())
}

func (s *APISuite) TestOriginAuthRejectedIsOK() {
	s.app.MockOracle.SetVerdict(oracle.Verdict{HasOnlineAccess: true, OwnsGame: false})

	rr := s.do(http.MethodGet, "/client/origin_auth", url.Values{"id": {"1000123"}, "token": {"proof"}}, nil, "")
	s.Equal(http.StatusOK, rr.Code)
	s.JSONEq(`{"success":false,"reason":"missing game access"}`, rr.Body.String())
}

func (s *APISuite) TestOriginAuthOracleDown() {
	s.app.MockOracle.SetError(model.Unavailable("identity oracle", errors.New("timeout")))

	rr := s.do(http.MethodGet, "/client/origin_auth", url.Values{"id": {"1000123"}, "token": {"proof"}}, nil, "")
	s.Equal(http.StatusServiceUnavailable, rr.Code)
	s.JSONEq(`{"success":false,"reason":"service temporarily unavailable","retryable":true}`, rr.Body.String())
}

func (s *APISuite) TestOriginAuthBanned() {
	s.originAuth("1000123")
	s.Require().NoError(s.app.MemoryStore.SetBanned("1000123", true))

	rr := s.do(http.MethodGet, "/client/origin_auth", url.Values{"id": {"1000123"}, "token": {"proof"}}, nil, "")
	s.Equal(http.StatusOK, rr.Code)
	s.JSONEq(`{"success":false,"reason":"you are banned"}`, rr.Body.String())
}

func (s *APISuite) TestAddServerAndList() {
	added := s.addServer("hunter2", `{"Mods":[{"Name":"Northstar.Client","Version":"1.4.0","RequiredOnClient":true,"pdiff":"ns-client"}]}`)
	s.NotEmpty(added.ID)
	s.NotEmpty(added.ServerAuthToken)

	server, found := s.app.Registry.Get(added.ID)
	s.Require().True(found)
	s.Equal(testClientIP, server.IP)
	s.Equal(37015, server.Port)
	s.Equal(8081, server.AuthPort)
	s.Equal([]string{"ns-client"}, server.PersistenceDiffIDs())

	rr := s.do(http.MethodGet, "/client/servers", nil, nil, "")
	s.Equal(http.StatusOK, rr.Code)

	var servers []response.Server
	s.decode(rr, &servers)
	s.Require().Len(servers, 1)
	s.Equal(added.ID, servers[0].ID)
	s.Equal("Frontier", servers[0].Name)
	s.True(servers[0].HasPassword)
	s.Require().Len(servers[0].ModInfo.Mods, 1)
	s.NotContains(rr.Body.String(), testClientIP)
	s.NotContains(rr.Body.String(), added.ServerAuthToken)
}

func (s *APISuite) TestAddServerMultipartModInfo() {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("modinfo", "modinfo.json")
	s.Require().NoError(err)
	_, err = part.Write([]byte(`{"Mods":[{"Name":"Mod.A","Version":"0.1.0","pdiff":"a"}]}`))
	s.Require().NoError(err)
	s.Require().NoError(mw.Close())

	q := url.Values{"port": {"37015"}, "authPort": {"8081"}, "name": {"Multipart"}}
	rr := s.do(http.MethodPost, "/server/add_server", q, body.Bytes(), mw.FormDataContentType())
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())

	var resp response.AddServer
	s.decode(rr, &resp)
	server, found := s.app.Registry.Get(resp.ID)
	s.Require().True(found)
	s.Equal([]string{"a"}, server.PersistenceDiffIDs())
}

func (s *APISuite) TestAddServerBadRequests() {
	tests := []struct {
		name  string
		query url.Values
		body  string
		code  int
		want  string
	}{
		{"missing port", url.Values{"authPort": {"8081"}, "name": {"x"}}, "", http.StatusBadRequest, "port is required"},
		{"non numeric port", url.Values{"port": {"abc"}, "authPort": {"8081"}, "name": {"x"}}, "", http.StatusBadRequest, "port must be an integer"},
		{"bad modinfo", url.Values{"port": {"1"}, "authPort": {"2"}, "name": {"x"}}, "{", http.StatusBadRequest, "invalid modinfo"},
		{"port out of range", url.Values{"port": {"70000"}, "authPort": {"8081"}, "name": {"x"}}, "", http.StatusOK, `"success":false`},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			rr := s.do(http.MethodPost, "/server/add_server", tt.query, []byte(tt.body), "application/json")
			s.Equal(tt.code, rr.Code)
			s.Contains(rr.Body.String(), tt.want)
		})
	}
	s.Equal(0, s.app.Registry.Len())
}

func (s *APISuite) TestHeartbeatAndRemove() {
	added := s.addServer("", "")

	s.app.MockClock.Advance(20 * time.Second)
	rr := s.do(http.MethodPost, "/server/heartbeat", url.Values{"id": {added.ID}, "playerCount": {"7"}}, nil, "")
	s.Equal(http.StatusOK, rr.Code)
	s.JSONEq(`{"success":true}`, rr.Body.String())

	server, found := s.app.Registry.Get(added.ID)
	s.Require().True(found)
	s.Equal(7, server.PlayerCount)

	rr = s.do(http.MethodDelete, "/server/remove_server", url.Values{"id": {added.ID}}, nil, "")
	s.Equal(http.StatusOK, rr.Code)
	s.JSONEq(`{"success":true}`, rr.Body.String())

	_, found = s.app.Registry.Get(added.ID)
	s.False(found)

	rr = s.do(http.MethodPost, "/server/heartbeat", url.Values{"id": {added.ID}, "playerCount": {"0"}}, nil, "")
	s.Equal(http.StatusOK, rr.Code)
	s.JSONEq(`{"success":false,"reason":"server not found"}`, rr.Body.String())
}

func (s *APISuite) TestHeartbeatBadRequests() {
	added := s.addServer("", "")

	tests := []struct {
		name    string
		query   url.Values
		message string
	}{
		{"missing id", url.Values{"playerCount": {"1"}}, "id is required"},
		{"missing player count", url.Values{"id": {added.ID}}, "playerCount is required"},
		{"non-numeric player count", url.Values{"id": {added.ID}, "playerCount": {"many"}}, "playerCount must be an integer"},
		{"negative player count", url.Values{"id": {added.ID}, "playerCount": {"-1"}}, "playerCount must not be negative"},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			rr := s.do(http.MethodPost, "/server/heartbeat", tt.query, nil, "")
			s.Equal(http.StatusBadRequest, rr.Code)
			s.Contains(rr.Body.String(), "INVALID_REQUEST")
			s.Contains(rr.Body.String(), tt.message)
		})
	}

	server, found := s.app.Registry.Get(added.ID)
	s.Require().True(found)
	s.Equal(0, server.PlayerCount)
}

func (s *APISuite) TestHeartbeatFromOtherOrigin() {
	added := s.addServer("", "")

	req := httptest.NewRequest(http.MethodPost, "/server/heartbeat?playerCount=1&id="+added.ID, nil)
	req.RemoteAddr = "198.51.100.9:5000"
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)

	s.Equal(http.StatusOK, rr.Code)
	s.Contains(rr.Body.String(), `"success":false`)
	s.Contains(rr.Body.String(), model.ErrOriginMismatch.Error())
}

func (s *APISuite) TestJoinFlow() {
	token := s.originAuth("1000123")
	added := s.addServer("hunter2", `{"Mods":[{"Name":"Mod.A","Version":"1","pdiff":"a"}]}`)

	q := url.Values{"id": {"1000123"}, "playerToken": {token}, "server": {added.ID}, "password": {"wrong"}}
	rr := s.do(http.MethodPost, "/client/auth_with_server", q, nil, "")
	s.Equal(http.StatusOK, rr.Code)
	s.JSONEq(`{"success":false,"reason":"wrong server password"}`, rr.Body.String())

	q.Set("password", "hunter2")
	rr = s.do(http.MethodPost, "/client/auth_with_server", q, nil, "")
	s.Require().Equal(http.StatusOK, rr.Code)

	var join response.ServerJoin
	s.decode(rr, &join)
	s.True(join.Success)
	s.Equal(testClientIP, join.IP)
	s.Equal(37015, join.Port)
	s.NotEmpty(join.AuthToken)

	calls := s.app.MockRemoteAuth.Calls()
	s.Require().Len(calls, 1)
	s.Equal(join.AuthToken, calls[0].JoinToken)
	s.Equal([]string{"a"}, calls[0].Payload.DiffIDs)
	s.Len(calls[0].Payload.Blob, factory.TestBlobSize)

	blob := bytes.Repeat([]byte{0xAB}, factory.TestBlobSize)
	rr = s.do(http.MethodPost, "/accounts/write_persistence", url.Values{"id": {"1000123"}, "serverId": {added.ID}}, blob, "application/octet-stream")
	s.Equal(http.StatusOK, rr.Code)
	s.JSONEq(`{"success":true,"written":true}`, rr.Body.String())

	account, err := s.app.Store.GetAccount(s.T().Context(), "1000123")
	s.Require().NoError(err)
	s.Equal(blob, account.PersistenceBlob)
	s.Equal(added.ID, account.CurrentServerID)
}

func (s *APISuite) TestAuthWithServerRemoteDown() {
	token := s.originAuth("1000123")
	added := s.addServer("", "")
	s.app.MockRemoteAuth.SetError(model.Unavailable("remote auth", errors.New("connection refused")))

	q := url.Values{"id": {"1000123"}, "playerToken": {token}, "server": {added.ID}}
	rr := s.do(http.MethodPost, "/client/auth_with_server", q, nil, "")
	s.Equal(http.StatusServiceUnavailable, rr.Code)
	s.Contains(rr.Body.String(), `"retryable":true`)
}

func (s *APISuite) TestAuthWithSelf() {
	token := s.originAuth("1000123")

	rr := s.do(http.MethodPost, "/client/auth_with_self", url.Values{"id": {"1000123"}, "playerToken": {token}}, nil, "")
	s.Require().Equal(http.StatusOK, rr.Code)

	var resp struct {
		Success        bool    `json:"success"`
		ID             string  `json:"id"`
		AuthToken      string  `json:"authToken"`
		PersistentData []int64 `json:"persistentData"`
	}
	s.decode(rr, &resp)
	s.True(resp.Success)
	s.Equal("1000123", resp.ID)
	s.NotEmpty(resp.AuthToken)
	s.Len(resp.PersistentData, factory.TestBlobSize)

	rr = s.do(http.MethodPost, "/client/auth_with_self", url.Values{"id": {"1000123"}, "playerToken": {"stale"}}, nil, "")
	s.JSONEq(`{"success":false,"reason":"invalid session token"}`, rr.Body.String())
}

func (s *APISuite) TestWritePersistenceMultipartFromSelfServer() {
	token := s.originAuth("1000123")
	rr := s.do(http.MethodPost, "/client/auth_with_self", url.Values{"id": {"1000123"}, "playerToken": {token}}, nil, "")
	s.Require().Equal(http.StatusOK, rr.Code)

	blob := bytes.Repeat([]byte{0x01}, factory.TestBlobSize)
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("pdata", "pdata.bin")
	s.Require().NoError(err)
	_, err = part.Write(blob)
	s.Require().NoError(err)
	s.Require().NoError(mw.Close())

	rr = s.do(http.MethodPost, "/accounts/write_persistence", url.Values{"id": {"1000123"}}, body.Bytes(), mw.FormDataContentType())
	s.Equal(http.StatusOK, rr.Code)
	s.JSONEq(`{"success":true,"written":true}`, rr.Body.String())
}

func (s *APISuite) TestWritePersistenceWrongSizeIsDropped() {
	token := s.originAuth("1000123")
	rr := s.do(http.MethodPost, "/client/auth_with_self", url.Values{"id": {"1000123"}, "playerToken": {token}}, nil, "")
	s.Require().Equal(http.StatusOK, rr.Code)
	s.Require().Contains(rr.Body.String(), `"success":true`)

	rr = s.do(http.MethodPost, "/accounts/write_persistence", url.Values{"id": {"1000123"}}, []byte{1, 2, 3}, "application/octet-stream")
	s.Equal(http.StatusOK, rr.Code)
	s.JSONEq(`{"success":true,"written":false}`, rr.Body.String())
}

func (s *APISuite) TestWritePersistenceTooLarge() {
	s.originAuth("1000123")

	blob := make([]byte, handler.MaxPersistenceUpload+1)
	rr := s.do(http.MethodPost, "/accounts/write_persistence", url.Values{"id": {"1000123"}}, blob, "application/octet-stream")
	s.Equal(http.StatusRequestEntityTooLarge, rr.Code)
	s.Contains(rr.Body.String(), "PAYLOAD_TOO_LARGE")
}

func (s *APISuite) TestWritePersistenceUnknownAccount() {
	rr := s.do(http.MethodPost, "/accounts/write_persistence", url.Values{"id": {"999"}}, []byte{1}, "application/octet-stream")
	s.Equal(http.StatusOK, rr.Code)
	s.JSONEq(`{"success":false,"reason":"account not found"}`, rr.Body.String())
}

func TestTrustedProxyHeaders(t *testing.T) {
	app := factory.NewTestApp()
	router := api.NewRouter(api.RouterConfig{
		Logger:            testutil.NopLogger(),
		Coordinator:       app.Coordinator,
		TrustProxyHeaders: true,
	})

	req := httptest.NewRequest(http.MethodPost, "/server/add_server?port=37015&authPort=8081&name=proxied", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp response.AddServer
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	server, found := app.Registry.Get(resp.ID)
	require.True(t, found)
	assert.Equal(t, "203.0.113.7", server.IP)
}
