package plugin

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cuemby/zocker/pkg/volume"
	"github.com/cuemby/zocker/pkg/zfs/zfstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer() (*Server, *httptest.Server) {
	mgr := volume.NewManager(zfstest.New("tank/zocker", "/mnt/tank/zocker"))
	s := NewServer(mgr)
	return s, httptest.NewServer(s)
}

func post(t *testing.T, srv *httptest.Server, path string, body interface{}) map[string]interface{} {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))

	resp, err := http.Post(srv.URL+path, contentType, &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestActivate_AdvertisesVolumeDriver(t *testing.T) {
	_, srv := newTestServer()
	defer srv.Close()

	resp, err := http.Get(srv.URL + activatePath)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out activateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, []string{"VolumeDriver"}, out.Implements)
}

func TestScenario_CreateThenGet(t *testing.T) {
	_, srv := newTestServer()
	defer srv.Close()

	out := post(t, srv, createPath, createRequest{Name: "foo"})
	assert.Empty(t, out["Err"])

	out = post(t, srv, getPath, getRequest{Name: "foo"})
	vol := out["Volume"].(map[string]interface{})
	assert.Equal(t, "foo", vol["Name"])
	assert.Nil(t, vol["Mountpoint"])
}

func TestScenario_MountRefCounting(t *testing.T) {
	_, srv := newTestServer()
	defer srv.Close()

	post(t, srv, createPath, createRequest{Name: "foo"})

	out1 := post(t, srv, mountPath, mountRequest{Name: "foo", ID: "c1"})
	mp1 := out1["Mountpoint"].(string)
	require.NotEmpty(t, mp1)

	out2 := post(t, srv, mountPath, mountRequest{Name: "foo", ID: "c2"})
	assert.Equal(t, mp1, out2["Mountpoint"])

	unmountOut := post(t, srv, unmountPath, unmountRequest{Name: "foo", ID: "c1"})
	assert.Empty(t, unmountOut["Err"])

	pathOut := post(t, srv, pathPath, pathRequest{Name: "foo"})
	assert.Equal(t, mp1, pathOut["Mountpoint"])

	post(t, srv, unmountPath, unmountRequest{Name: "foo", ID: "c2"})
	pathOut = post(t, srv, pathPath, pathRequest{Name: "foo"})
	assert.Equal(t, "No mountpoint for foo", pathOut["Err"])
}

func TestScenario_RemoveRejectedWhileMounted(t *testing.T) {
	_, srv := newTestServer()
	defer srv.Close()

	post(t, srv, createPath, createRequest{Name: "foo"})
	post(t, srv, mountPath, mountRequest{Name: "foo", ID: "c1"})

	out := post(t, srv, removePath, removeRequest{Name: "foo"})
	assert.Contains(t, out["Err"], "in use by: c1")
}

func TestScenario_NameSanitisedOnTheWire(t *testing.T) {
	_, srv := newTestServer()
	defer srv.Close()

	post(t, srv, createPath, createRequest{Name: "libstd++11"})
	out := post(t, srv, listPath, struct{}{})
	vols := out["Volumes"].([]interface{})
	require.Len(t, vols, 1)
	assert.Equal(t, "libstd__11", vols[0].(map[string]interface{})["Name"])
}

func TestScenario_EmptyPoolListsEmpty(t *testing.T) {
	_, srv := newTestServer()
	defer srv.Close()

	out := post(t, srv, listPath, struct{}{})
	assert.Empty(t, out["Volumes"])
}

func TestCapabilities_ReportsLocalScope(t *testing.T) {
	_, srv := newTestServer()
	defer srv.Close()

	resp, err := http.Post(srv.URL+capabilitiesPath, contentType, strings.NewReader("{}"))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out capabilitiesResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "local", out.Capabilities.Scope)
}

func TestOversizedBodyRejected(t *testing.T) {
	_, srv := newTestServer()
	defer srv.Close()

	huge := strings.Repeat("a", maxBodyBytes+1)
	body := `{"Name":"` + huge + `"}`
	resp, err := http.Post(srv.URL+createPath, contentType, strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
