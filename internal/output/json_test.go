package output

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestEncodeJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeJSON(&buf, sampleSummary()))

	doc := buf.String()
	require.True(t, gjson.Valid(doc))

	assert.Equal(t, "configurations", gjson.Get(doc, "name").String())
	assert.Equal(t, int64(50), gjson.Get(doc, "vus").Int())
	assert.Equal(t, int64(1500), gjson.Get(doc, "iterations").Int())
	assert.Equal(t, int64(1400), gjson.Get(doc, `checks.#(name=="status 200").passes`).Int())
	assert.Equal(t, int64(100), gjson.Get(doc, `checks.#(name=="status 200").fails`).Int())
	assert.False(t, gjson.Get(doc, "interrupted").Bool())
	assert.True(t, gjson.Get(doc, "latency.p95").Exists())
}

func TestWriteJSON_CreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "nested", "summary.json")
	require.NoError(t, WriteJSON(sampleSummary(), path, io.Discard))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "4b1c1e1e-6e4a-4d5c-9a3e-0c2f1a9b7d11", gjson.GetBytes(data, "runId").String())
}

func TestWriteJSON_NilSummary(t *testing.T) {
	err := WriteJSON(nil, filepath.Join(t.TempDir(), "x.json"), io.Discard)
	assert.Error(t, err)
}

func TestWriteJSON_DashWritesToStdout(t *testing.T) {
	var stdout bytes.Buffer
	require.NoError(t, WriteJSON(sampleSummary(), "-", &stdout))

	assert.True(t, gjson.Valid(stdout.String()))
	assert.Equal(t, "configurations", gjson.Get(stdout.String(), "name").String())

	_, err := os.Stat("-")
	assert.True(t, os.IsNotExist(err), "no file named - is created")
}
