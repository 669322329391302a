package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strogmv/assembler/assembler"
	"github.com/strogmv/assembler/assembler/descriptor"
	"github.com/strogmv/assembler/internal/pkg/auth"
)

const shopJSON = `{
  "appId": "shop",
  "ejbJars": [{
    "moduleName": "orders",
    "classes": [
      {"name": "org.acme.OrderLocal", "interface": true, "methods": [{"name": "place", "params": ["java.lang.String"]}]},
      {"name": "org.acme.OrderBean", "interfaces": ["org.acme.OrderLocal"], "methods": [{"name": "place", "params": ["java.lang.String"]}]},
      {"name": "org.acme.CustomerBean"}
    ],
    "enterpriseBeans": [
      {"kind": "STATELESS", "ejbName": "Order", "ejbClass": "org.acme.OrderBean", "businessLocal": ["org.acme.OrderLocal"]},
      {"kind": "SINGLETON", "ejbName": "Customer", "ejbClass": "org.acme.CustomerBean", "localbean": true}
    ],
    "methodTransactions": [{"methods": [{"ejbName": "Order", "methodName": "*"}], "transAttribute": "Mandatory"}]
  }]
}`

const brokenJSON = `{
  "appId": "broken",
  "ejbJars": [{
    "moduleName": "broken",
    "classes": [{"name": "org.acme.BrokenBean"}],
    "enterpriseBeans": [{
      "kind": "STATELESS", "ejbName": "Broken", "ejbClass": "org.acme.BrokenBean",
      "ejbRefs": [{"referenceName": "ejb/Nowhere", "link": "Nowhere"}]
    }]
  }]
}`

type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStorage() *memStorage { return &memStorage{objects: map[string][]byte{}} }

func (m *memStorage) Upload(_ context.Context, key string, r io.Reader, _ string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return "mem://" + key, nil
}

func (m *memStorage) Download(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, errors.New("no such key: " + key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memStorage) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *memStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memStorage) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://example.invalid/" + key, nil
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newTestServer(t *testing.T, opts ...Option) (*httptest.Server, *Server) {
	t.Helper()
	asm := assembler.New(assembler.WithLogger(quiet()))
	opts = append([]Option{WithLogger(quiet()), WithGatherer(prometheus.NewRegistry())}, opts...)
	s := NewServer(asm, descriptor.New(), opts...)
	ts := httptest.NewServer(s.Router())
	t.Cleanup(func() {
		s.Hub().Close()
		ts.Close()
	})
	return ts, s
}

func do(t *testing.T, method, url, body string, header ...string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestDeployInspectDestroy(t *testing.T) {
	t.Parallel()
	ts, _ := newTestServer(t)

	resp := do(t, http.MethodPost, ts.URL+"/api/apps", shopJSON, "Content-Type", "application/json")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[map[string]any](t, resp)
	assert.Equal(t, "shop", created["appId"])
	assert.EqualValues(t, 2, created["beanCount"])

	resp = do(t, http.MethodGet, ts.URL+"/api/apps", "")
	apps := decode[[]appSummary](t, resp)
	require.Len(t, apps, 1)
	assert.Equal(t, "shop", apps[0].AppID)

	resp = do(t, http.MethodGet, ts.URL+"/api/apps/shop/beans/Order", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	bean := decode[beanView](t, resp)
	assert.Equal(t, "STATELESS", bean.Kind)
	assert.Equal(t, "orders", bean.Module)
	require.Len(t, bean.Methods, 1)
	assert.Equal(t, "place(java.lang.String)", bean.Methods[0].Method)
	assert.Equal(t, "Mandatory", bean.Methods[0].Transaction)

	resp = do(t, http.MethodGet, ts.URL+"/api/jndi?prefix=openejb/local", "")
	names := decode[[]string](t, resp)
	assert.Contains(t, names, "openejb/local/OrderLocal")

	resp = do(t, http.MethodGet, ts.URL+"/api/jndi/lookup?name=openejb/local/OrderLocal", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	looked := decode[map[string]any](t, resp)
	assert.Equal(t, "Order", looked["value"].(map[string]any)["deploymentId"])

	resp = do(t, http.MethodGet, ts.URL+"/api/jndi/lookup?scope=global&name=global/shop/orders/Order!org.acme.OrderLocal", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/api/jndi/lookup?name=openejb/local/Nothing", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, http.MethodPost, ts.URL+"/api/apps/shop/resolve?module=orders", `{"referenceName": "ejb/Order", "interface": "org.acme.OrderLocal"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Order", decode[map[string]string](t, resp)["deploymentId"])

	resp = do(t, http.MethodPost, ts.URL+"/api/apps/shop/resolve", `{"link": "Order"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "referenceName is required")

	resp = do(t, http.MethodGet, ts.URL+"/api/containers", "")
	containers := decode[[]containerView](t, resp)
	require.Len(t, containers, 2)

	resp = do(t, http.MethodDelete, ts.URL+"/api/apps/shop", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = do(t, http.MethodGet, ts.URL+"/api/apps/shop", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = do(t, http.MethodDelete, ts.URL+"/api/apps/shop", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, assembler.ErrCodeAppNotFound, decode[Problem](t, resp).Code)
}

func TestDeployErrors(t *testing.T) {
	t.Parallel()
	ts, _ := newTestServer(t)

	resp := do(t, http.MethodPost, ts.URL+"/api/apps", `{"appId": ""}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"))
	assert.Equal(t, assembler.ErrCodeAppInvalid, decode[Problem](t, resp).Code)

	resp = do(t, http.MethodPost, ts.URL+"/api/apps", shopJSON)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = do(t, http.MethodPost, ts.URL+"/api/apps", shopJSON)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, assembler.ErrCodeDuplicateApplication, decode[Problem](t, resp).Code)

	resp = do(t, http.MethodPost, ts.URL+"/api/apps", brokenJSON)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	p := decode[Problem](t, resp)
	assert.Equal(t, assembler.ErrCodeReferenceResolve, p.Code)
	assert.Equal(t, string(assembler.StageReferences), p.Stage)

	resp = do(t, http.MethodGet, ts.URL+"/api/failures?app=broken", "")
	failures := decode[[]failureView](t, resp)
	require.Len(t, failures, 1)
	assert.Equal(t, assembler.ErrCodeReferenceResolve, failures[0].Code)
	assert.Contains(t, failures[0].Message, "Nowhere")

	resp = do(t, http.MethodGet, ts.URL+"/api/failures?limit=zero", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCUEDescriptor(t *testing.T) {
	t.Parallel()
	ts, _ := newTestServer(t)

	body := `
appId: "portal"
standaloneModule: true
ejbJars: [{
	moduleName: "portal"
	classes: [{name: "org.acme.PortalBean"}]
	enterpriseBeans: [{kind: "SINGLETON", ejbName: "Portal", ejbClass: "org.acme.PortalBean", localbean: true}]
}]
`
	resp := do(t, http.MethodPost, ts.URL+"/api/apps?format=cue", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestAdminToken(t *testing.T) {
	t.Parallel()
	hash, err := auth.HashToken("letmein")
	require.NoError(t, err)
	ts, _ := newTestServer(t, WithAdminTokenHash(hash))

	resp := do(t, http.MethodGet, ts.URL+"/api/apps", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp = do(t, http.MethodGet, ts.URL+"/api/apps", "", "Authorization", "Bearer letmein")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = do(t, http.MethodGet, ts.URL+"/metrics", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStoredDescriptors(t *testing.T) {
	t.Parallel()
	store := newMemStorage()
	ts, _ := newTestServer(t, WithDescriptorStorage(store))

	resp := do(t, http.MethodPost, ts.URL+"/api/apps", shopJSON)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/api/descriptors?prefix=apps/", "")
	entries := decode[[]map[string]string](t, resp)
	require.Len(t, entries, 1)
	assert.Equal(t, "apps/shop.json", entries[0]["key"])
	assert.NotEmpty(t, entries[0]["url"])

	resp = do(t, http.MethodDelete, ts.URL+"/api/apps/shop", "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, http.MethodPost, ts.URL+"/api/descriptors/deploy?key=apps/shop.json", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = do(t, http.MethodPost, ts.URL+"/api/descriptors/deploy?key=apps/none.json", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, http.MethodDelete, ts.URL+"/api/descriptors?key=apps/shop.json", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = do(t, http.MethodGet, ts.URL+"/api/descriptors", "")
	assert.Empty(t, decode[[]map[string]string](t, resp))
}

func TestDescriptorsWithoutStorage(t *testing.T) {
	t.Parallel()
	ts, _ := newTestServer(t)
	resp := do(t, http.MethodGet, ts.URL+"/api/descriptors", "")
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
}

func TestReport(t *testing.T) {
	t.Parallel()
	ts, _ := newTestServer(t)
	require.Equal(t, http.StatusCreated, do(t, http.MethodPost, ts.URL+"/api/apps", shopJSON).StatusCode)

	resp := do(t, http.MethodGet, ts.URL+"/api/apps/shop/report", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestEventStream(t *testing.T) {
	t.Parallel()
	ts, s := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return s.Hub().Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.Equal(t, http.StatusCreated, do(t, http.MethodPost, ts.URL+"/api/apps", shopJSON).StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var e assembler.Event
	require.NoError(t, conn.ReadJSON(&e))
	assert.Equal(t, assembler.EventAppCreated, e.Type)
	assert.Equal(t, "shop", e.AppID)
	assert.ElementsMatch(t, []string{"Order", "Customer"}, e.Deployments)
}
