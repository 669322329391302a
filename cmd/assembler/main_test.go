package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strogmv/assembler/assembler"
)

const shopJSON = `{
  "appId": "shop",
  "ejbJars": [{
    "moduleName": "orders",
    "classes": [
      {"name": "org.acme.OrderLocal", "interface": true, "methods": [{"name": "place", "params": ["java.lang.String"]}]},
      {"name": "org.acme.OrderBean", "interfaces": ["org.acme.OrderLocal"], "methods": [{"name": "place", "params": ["java.lang.String"]}]}
    ],
    "enterpriseBeans": [
      {"kind": "STATELESS", "ejbName": "Order", "ejbClass": "org.acme.OrderBean", "businessLocal": ["org.acme.OrderLocal"]}
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

// Commands share package-level flag variables, so these tests run serially.

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func writeDescriptor(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "assembler dev\n", out)
}

func TestExplain(t *testing.T) {
	out, _, err := run(t, "explain", "reference_resolve_error")
	require.NoError(t, err)
	assert.Contains(t, out, assembler.ErrCodeReferenceResolve)
	assert.Contains(t, out, assembler.Hint(assembler.ErrCodeReferenceResolve))

	out, _, err = run(t, "explain")
	require.NoError(t, err)
	assert.Len(t, strings.Fields(out), len(assembler.StableErrorCodes))

	_, _, err = run(t, "explain", "NOT_A_CODE")
	require.Error(t, err)
}

func TestDeploy(t *testing.T) {
	shop := writeDescriptor(t, "shop.json", shopJSON)

	out, _, err := run(t, "deploy", "--json", shop)
	require.NoError(t, err)
	var apps []appOutput
	require.NoError(t, json.Unmarshal([]byte(out), &apps))
	require.Len(t, apps, 1)
	assert.Equal(t, "shop", apps[0].AppID)
	require.Len(t, apps[0].Beans, 1)
	assert.Equal(t, "Order", apps[0].Beans[0].DeploymentID)
	assert.NotEmpty(t, apps[0].Beans[0].Names)
}

func TestDeployReportsFailures(t *testing.T) {
	shop := writeDescriptor(t, "shop.json", shopJSON)
	broken := writeDescriptor(t, "broken.json", brokenJSON)

	out, stderr, err := run(t, "deploy", shop, broken)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2")
	assert.Contains(t, stderr, "FAILED "+broken)
	assert.Contains(t, stderr, "hint: ")
	assert.Contains(t, out, "Application shop")
}

func TestInspect(t *testing.T) {
	shop := writeDescriptor(t, "shop.json", shopJSON)

	out, _, err := run(t, "inspect", "--json", "--bean", "Order", shop)
	require.NoError(t, err)
	var got map[string][]assembler.MethodPolicy
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	policies := got["Order"]
	require.NotEmpty(t, policies)
	for _, p := range policies {
		assert.Equal(t, "Mandatory", p.Transaction, p.Method)
	}

	_, _, err = run(t, "inspect", "--bean", "Missing", shop)
	require.Error(t, err)
}

func TestJndi(t *testing.T) {
	shop := writeDescriptor(t, "shop.json", shopJSON)

	out, _, err := run(t, "jndi", "--prefix", "openejb/local", shop)
	require.NoError(t, err)
	assert.Contains(t, out, "OrderLocal")

	_, _, err = run(t, "jndi", "--scope", "bogus", shop)
	require.Error(t, err)
}

func TestResolve(t *testing.T) {
	shop := writeDescriptor(t, "shop.json", shopJSON)

	out, _, err := run(t, "resolve", "--app", "shop", "--module", "orders", "--link", "Order", shop)
	require.NoError(t, err)
	assert.Equal(t, "Order\n", out)

	_, _, err = run(t, "resolve", "--app", "shop", "--link", "Nowhere", shop)
	require.Error(t, err)
}

func TestReport(t *testing.T) {
	shop := writeDescriptor(t, "shop.json", shopJSON)
	dest := filepath.Join(t.TempDir(), "shop.pdf")

	_, _, err := run(t, "report", "--app", "shop", "-o", dest, shop)
	require.NoError(t, err)
	pdf, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
}

func TestPrintEvent(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	var buf bytes.Buffer
	printEvent(&buf, assembler.Event{Type: assembler.EventAppFailed, AppID: "broken", Code: assembler.ErrCodeReferenceResolve, Error: "no match", At: at})
	assert.Equal(t, "2026-01-02T03:04:05Z application.failed       broken [REFERENCE_RESOLVE_ERROR] no match\n", buf.String())

	buf.Reset()
	printEvent(&buf, assembler.Event{Type: assembler.EventAppCreated, AppID: "shop", Deployments: []string{"Order", "Customer"}, At: at})
	assert.Contains(t, buf.String(), "shop Order,Customer")
}

func TestWatchNeedsNATS(t *testing.T) {
	t.Setenv("NATS_URL", "")
	_, _, err := run(t, "watch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NATS_URL")
}

func TestHashToken(t *testing.T) {
	out, _, err := run(t, "hash-token", "s3cret")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "$2"), out)
}
