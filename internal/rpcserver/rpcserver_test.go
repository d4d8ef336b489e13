package rpcserver

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eric8810/authy/internal/client"
	"github.com/eric8810/authy/internal/vaultstore"
)

func newTestClient(t *testing.T) *client.Client {
	t.Helper()
	t.Setenv("AUTHY_HOME", t.TempDir())
	paths, err := vaultstore.DiscoverPaths()
	require.NoError(t, err)
	require.NoError(t, paths.EnsureDir())
	key := vaultstore.PassphraseKey("test-passphrase")
	c, err := client.New(paths, key, "test(rpc)")
	require.NoError(t, err)
	require.NoError(t, c.InitVault())
	require.NoError(t, c.Store("db-password", "hunter2", false))
	return c
}

func TestServeSecretsGet(t *testing.T) {
	c := newTestClient(t)
	s := New(c)

	in := strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"secrets.get","params":{"name":"db-password"}}` + "\n")
	var out bytes.Buffer
	require.NoError(t, s.Serve(in, &out))

	var resp response
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(out.Bytes()), &resp))
	result := resp.Result.(map[string]interface{})
	assert.Equal(t, true, result["found"])
	assert.Equal(t, "hunter2", result["value"])
}

func TestServeSecretsGetNotFound(t *testing.T) {
	c := newTestClient(t)
	s := New(c)

	in := strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"secrets.get","params":{"name":"missing"}}` + "\n")
	var out bytes.Buffer
	require.NoError(t, s.Serve(in, &out))

	var resp response
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(out.Bytes()), &resp))
	result := resp.Result.(map[string]interface{})
	assert.Equal(t, false, result["found"])
}

func TestServeUnknownMethod(t *testing.T) {
	c := newTestClient(t)
	s := New(c)

	in := strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"secrets.delete","params":{}}` + "\n")
	var out bytes.Buffer
	require.NoError(t, s.Serve(in, &out))

	var resp response
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(out.Bytes()), &resp))
	require.NotNil(t, resp.Error, "expected an error for an unknown method")
}

func TestServeMultipleLines(t *testing.T) {
	c := newTestClient(t)
	s := New(c)

	in := strings.NewReader(
		`{"jsonrpc":"2.0","id":1,"method":"secrets.list","params":{}}` + "\n" +
			`{"jsonrpc":"2.0","id":2,"method":"secrets.get","params":{"name":"db-password"}}` + "\n",
	)
	var out bytes.Buffer
	require.NoError(t, s.Serve(in, &out))

	scanner := bufio.NewScanner(&out)
	count := 0
	for scanner.Scan() {
		count++
	}
	assert.Equal(t, 2, count)
}
