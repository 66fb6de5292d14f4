package main

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uc-cdis/nf-rangeland/params"
)

func testServer(t *testing.T) (*httptest.Server, *bytes.Buffer) {
	reg, err := params.Rangeland()
	require.NoError(t, err)
	access := &bytes.Buffer{}
	srv := httptest.NewServer(newServer(reg).makeRouter(access))
	t.Cleanup(srv.Close)
	return srv, access
}

func TestHandleParameters(t *testing.T) {
	srv, access := testServer(t)

	resp, err := http.Get(srv.URL + "/parameters")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	views := []ParameterView{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&views))
	require.Len(t, views, 21)

	assert.Equal(t, "input", views[0].Name)
	assert.Equal(t, "string", views[0].Type)
	assert.True(t, views[0].Required)
	assert.Equal(t, "Input/output options", views[0].Section)

	byName := map[string]ParameterView{}
	for _, v := range views {
		byName[v.Name] = v
	}
	assert.Equal(t, "Input/output options", byName["outdir"].Section)
	assert.True(t, byName["outdir"].Required)
	assert.Equal(t, "Remote sensing image options", byName["resolution"].Section)
	assert.Equal(t, float64(30), byName["resolution"].Default)
	assert.False(t, byName["resolution"].Required)
	assert.Equal(t, "LT04,LT05,LE07,S2A", byName["sensors_level1"].Default)
	assert.Equal(t, "multiqc_methods_description", views[20].Name)

	assert.Contains(t, access.String(), "GET /parameters")
}

func TestHandleFlags(t *testing.T) {
	srv, _ := testServer(t)

	body := `{
		"input": "s3://bucket/imgs", "dem": "s3://bucket/dem", "wvdb": "s3://bucket/wvdb",
		"data_cube": "s3://bucket/cube.prj", "aoi": "s3://bucket/aoi.gpkg",
		"endmember": "s3://bucket/endmember.txt", "outdir": "/out",
		"only_tile": true, "resolution": 10
	}`
	resp, err := http.Post(srv.URL+"/flags", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := &FlagsResponse{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	assert.Equal(t, []string{"--input", "s3://bucket/imgs"}, out.Flags[:2])
	assert.Contains(t, out.Command, "--outdir /out")
	assert.Contains(t, out.Command, "--resolution 10 --group_size 100 --only_tile --force_threads 2")
	assert.NotContains(t, out.Command, "--input_tar")
}

func TestHandleFlagsRejectsBadValues(t *testing.T) {
	srv, _ := testServer(t)

	for name, body := range map[string]string{
		"not json":         "{",
		"missing required": `{"input": "s3://bucket/imgs"}`,
		"unknown name":     `{"input": "a", "dem": "b", "wvdb": "c", "data_cube": "d", "aoi": "e", "endmember": "f", "outdir": "/o", "colour": "red"}`,
	} {
		t.Run(name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/flags", "application/json", strings.NewReader(body))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestHandleFlagsBodyLimit(t *testing.T) {
	srv, _ := testServer(t)

	body := `{"input": "` + strings.Repeat("x", maxFlagsBody) + `"}`
	resp, err := http.Post(srv.URL+"/flags", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestHealthcheck(t *testing.T) {
	srv, _ := testServer(t)

	resp, err := http.Get(srv.URL + "/_status")
	require.NoError(t, err)
	defer resp.Body.Close()
	b, _ := ioutil.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Healthy", string(b))

	resp, err = http.Post(srv.URL+"/_status", "text/plain", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
