package http

import (
	"net/http"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperationName(t *testing.T) {
	t.Parallel()
	cases := []struct {
		method, pattern, want string
	}{
		{http.MethodPost, "/api/apps", "deploy"},
		{http.MethodDelete, "/api/apps/{appID}/", "destroy"},
		{http.MethodGet, "/api/apps/{appID}/", "get_app"},
		{http.MethodPost, "/api/apps/{appID}/resolve", "resolve"},
		{http.MethodGet, "/api/jndi", "jndi_list"},
		{http.MethodPut, "/api/apps", "other"},
		{http.MethodGet, "", "unmatched"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, operationName(tc.method, tc.pattern), "%s %s", tc.method, tc.pattern)
	}
}

func TestMetricsLabelOperationAndApplication(t *testing.T) {
	t.Parallel()
	ts, _ := newTestServer(t)
	body := strings.Replace(shopJSON, `"appId": "shop"`, `"appId": "metered"`, 1)

	resp := do(t, http.MethodPost, ts.URL+"/api/apps", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "metered", resp.Header.Get(headerAppID))
	assert.Equal(t, 1.0, testutil.ToFloat64(adminOperations.WithLabelValues("deploy", "metered", "201")))

	resp = do(t, http.MethodPost, ts.URL+"/api/apps", body)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, 1.0, testutil.ToFloat64(adminOperations.WithLabelValues("deploy", "metered", "201")))

	resp = do(t, http.MethodDelete, ts.URL+"/api/apps/metered", "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 1.0, testutil.ToFloat64(adminOperations.WithLabelValues("destroy", "metered", "204")))

	resp = do(t, http.MethodGet, ts.URL+"/api/apps/metered", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Zero(t, testutil.ToFloat64(adminOperations.WithLabelValues("get_app", "metered", "404")))
}
