package httpsse

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/Gatimoro-Games/lobbysignal/internal/config"
	"github.com/Gatimoro-Games/lobbysignal/internal/router"
	"github.com/Gatimoro-Games/lobbysignal/internal/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	s := store.New(log)
	rtr := router.New(s, log)

	mr := mux.NewRouter()
	NewHandler(s, rtr, log, config.Load(nil)).Mount(mr)
	return httptest.NewServer(mr)
}

func postJSON(t *testing.T, srv *httptest.Server, path string, body any) map[string]any {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(srv.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestConnectThenCreateLobby(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	connectResp := postJSON(t, srv, "/api/lobby/connect", map[string]any{})
	peerID := connectResp["peer_id"]
	require.NotNil(t, peerID)

	createResp := postJSON(t, srv, "/api/lobby/create", map[string]any{
		"peer_id": peerID,
		"name":    "Hx",
	})
	require.Equal(t, "lobby_created", createResp["t"])
	require.Equal(t, "Hx", createResp["name"])
}

func TestJoinUnknownPeerReturnsPeerNotFound(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	resp := postJSON(t, srv, "/api/lobby/join", map[string]any{
		"peer_id": 999,
		"code":    "ABCD",
	})
	require.Equal(t, "error", resp["t"])
	require.Equal(t, "PEER_NOT_FOUND", resp["code"])
}

func TestLegacyHostAndJoin(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	hostResp := postJSON(t, srv, "/session/host", map[string]any{
		"lobby_name": "Legacy",
		"public":     true,
	})
	require.Equal(t, true, hostResp["success"])
	code, _ := hostResp["code"].(string)
	require.Len(t, code, 4)

	joinResp := postJSON(t, srv, "/session/join/"+code, map[string]any{})
	require.Equal(t, true, joinResp["success"])
	require.Equal(t, code, joinResp["code"])
}

func TestLegacyJoinMissingReturns404(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/session/join/ZZZZ", "application/json", bytes.NewReader([]byte("{}")))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, false, body["success"])
	require.Equal(t, "ROOM_NOT_FOUND", body["code"])
}

func TestHealthReportsCounts(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "ok", body["status"])
}

func TestDebugHostUsesFixedCode(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	resp := postJSON(t, srv, "/session/host", map[string]any{"is_debug": true})
	require.Equal(t, "TEST", resp["code"])
}

func TestCORSPreflightRespondsOK(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/lobby/list", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestCORSOriginIsTakenFromConfig(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	s := store.New(log)
	rtr := router.New(s, log)

	cfg := config.Load(nil)
	cfg.CORSOrigins = "https://example.test"

	mr := mux.NewRouter()
	NewHandler(s, rtr, log, cfg).Mount(mr)
	srv := httptest.NewServer(mr)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "https://example.test", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestEventStreamHeartbeatUsesConfiguredInterval(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	s := store.New(log)
	rtr := router.New(s, log)

	cfg := config.Load(nil)
	cfg.HeartbeatInterval = 20 * time.Millisecond

	mr := mux.NewRouter()
	NewHandler(s, rtr, log, cfg).Mount(mr)
	srv := httptest.NewServer(mr)
	defer srv.Close()

	connectResp := postJSON(t, srv, "/api/lobby/connect", map[string]any{})
	peerID := int(connectResp["peer_id"].(float64))

	resp, err := http.Get(srv.URL + "/api/lobby/events?peer_id=" + strconv.Itoa(peerID))
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	deadline := time.Now().Add(500 * time.Millisecond)
	sawHeartbeat := false
	for time.Now().Before(deadline) {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if line == "event: heartbeat\n" {
			sawHeartbeat = true
			break
		}
	}
	require.True(t, sawHeartbeat, "expected a heartbeat frame before the configured interval elapsed")
}
