package webui

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/keshon/server-warden/datastore"
	"github.com/keshon/server-warden/internal/host"
	"github.com/keshon/server-warden/internal/permission"
)

const testSecret = "hunter2"

func newTestService(t *testing.T) (*permission.Service, *host.Registry) {
	t.Helper()

	ds, err := datastore.NewWithConfig(&datastore.Config{
		FilePath:         filepath.Join(t.TempDir(), "overrides.json"),
		AutoSaveInterval: time.Hour,
		BackupCount:      0,
	})
	require.NoError(t, err)
	t.Cleanup(func() { ds.Close() })

	reg := host.NewRegistry()
	reg.RegisterPlugin("music", true)
	reg.Register("music", host.NewHandler("play", "play a track",
		host.NewCommandFilter("play", "p"),
		&host.PermissionFilter{Tier: host.TierMember},
	))
	reg.Register("music", host.NewHandler("queue", "queue controls",
		host.NewCommandGroupFilter("queue"),
	))

	store := permission.NewStore(ds)
	return permission.NewService(reg, store, host.TierMember, false), reg
}

// newTestAPI serves the route tree over httptest with a cookie-holding client.
func newTestAPI(t *testing.T) (*httptest.Server, *http.Client) {
	t.Helper()

	svc, _ := newTestService(t)
	s := New("127.0.0.1", 0, testSecret, svc)
	ts := httptest.NewServer(s.routes())
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return ts, &http.Client{Jar: jar}
}

func login(t *testing.T, ts *httptest.Server, client *http.Client) {
	t.Helper()
	resp, err := client.PostForm(ts.URL+"/login", url.Values{"secret_key": {testSecret}})
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func postJSON(t *testing.T, client *http.Client, url string, payload any) *http.Response {
	t.Helper()
	buf, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := client.Post(url, "application/json", bytes.NewReader(buf))
	require.NoError(t, err)
	return resp
}

func TestAPIRequiresLogin(t *testing.T) {
	ts, client := newTestAPI(t)

	resp, err := client.Get(ts.URL + "/api/plugins")
	require.NoError(t, err)
	body := decode(t, resp)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, false, body["success"])
}

func TestLoginRejectsWrongSecret(t *testing.T) {
	ts, client := newTestAPI(t)

	resp, err := client.PostForm(ts.URL+"/login", url.Values{"secret_key": {"wrong"}})
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// A failed login issues no session.
	resp, err = client.Get(ts.URL + "/api/plugins")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLoginThenListPlugins(t *testing.T) {
	ts, client := newTestAPI(t)
	login(t, ts, client)

	resp, err := client.Get(ts.URL + "/api/plugins")
	require.NoError(t, err)
	body := decode(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["success"])

	data, ok := body["data"].([]any)
	require.True(t, ok)
	require.Len(t, data, 1)
	plugin := data[0].(map[string]any)
	require.Equal(t, "music", plugin["name"])
	require.Equal(t, float64(2), plugin["total_commands"])
}

func TestLogoutDropsSession(t *testing.T) {
	ts, client := newTestAPI(t)
	login(t, ts, client)

	resp, err := client.Get(ts.URL + "/logout")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = client.Get(ts.URL + "/api/plugins")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPluginCommandsEndpoint(t *testing.T) {
	ts, client := newTestAPI(t)
	login(t, ts, client)

	resp, err := client.Get(ts.URL + "/api/plugin/music/commands")
	require.NoError(t, err)
	body := decode(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data := body["data"].(map[string]any)
	require.Len(t, data["commands"], 1)
	require.Len(t, data["groups"], 1)

	resp, err = client.Get(ts.URL + "/api/plugin/ghost/commands")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSetPluginPermissionEndpoint(t *testing.T) {
	ts, client := newTestAPI(t)
	login(t, ts, client)

	resp := postJSON(t, client, ts.URL+"/api/plugin/music/set-permission",
		map[string]any{"permission": "admin"})
	body := decode(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := body["data"].(map[string]any)
	require.Equal(t, float64(2), result["applied_count"])
	require.Equal(t, float64(2), result["total_count"])

	resp = postJSON(t, client, ts.URL+"/api/plugin/music/set-permission",
		map[string]any{"permission": "owner"})
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSetCommandEndpoints(t *testing.T) {
	ts, client := newTestAPI(t)
	login(t, ts, client)

	resp := postJSON(t, client, ts.URL+"/api/command/music/play/set-permission",
		map[string]any{"permission": "admin"})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, client, ts.URL+"/api/command/music/play/set-name",
		map[string]any{"name": "spin"})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, client, ts.URL+"/api/command/music/play/set-aliases",
		map[string]any{"aliases": []string{"sp", "s"}})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The rename is visible in the resolved command list.
	resp, err := client.Get(ts.URL + "/api/plugin/music/commands")
	require.NoError(t, err)
	body := decode(t, resp)
	commands := body["data"].(map[string]any)["commands"].([]any)
	play := commands[0].(map[string]any)
	require.Equal(t, "spin", play["name"])
	require.Equal(t, "play", play["original_name"])
	require.Equal(t, "admin", play["permission"])

	resp = postJSON(t, client, ts.URL+"/api/command/music/missing/set-permission",
		map[string]any{"permission": "admin"})
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = postJSON(t, client, ts.URL+"/api/command/music/play/set-name",
		map[string]any{"name": "  "})
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRootRedirectsToLogin(t *testing.T) {
	ts, client := newTestAPI(t)

	resp, err := client.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, strings.HasSuffix(resp.Request.URL.Path, "/login"))
}
