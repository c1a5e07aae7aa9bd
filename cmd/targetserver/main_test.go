package main

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poleepo/loaddriver/internal/targetserver"
)

func TestServerOptions_Defaults(t *testing.T) {
	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags(nil))

	addr, opts, err := serverOptions(cmd)
	require.NoError(t, err)
	assert.Equal(t, ":8000", addr)
	assert.Equal(t, targetserver.DefaultPath, opts.Path)
	assert.Zero(t, opts.Latency)
	assert.Zero(t, opts.FailEvery)
}

func TestServerOptions_Flags(t *testing.T) {
	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{
		"--addr", "127.0.0.1:9100",
		"--path", "/api/load",
		"--latency", "20ms",
		"--fail-every", "3",
	}))

	addr, opts, err := serverOptions(cmd)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9100", addr)
	assert.Equal(t, "/api/load", opts.Path)
	assert.Equal(t, 20*time.Millisecond, opts.Latency)
	assert.Equal(t, int64(3), opts.FailEvery)
}

func TestServerOptions_Invalid(t *testing.T) {
	tests := map[string][]string{
		"relative path":       {"--path", "configurations"},
		"negative latency":    {"--latency", "-1s"},
		"negative fail-every": {"--fail-every", "-2"},
	}

	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			cmd := newRootCmd()
			require.NoError(t, cmd.ParseFlags(args))
			_, _, err := serverOptions(cmd)
			assert.Error(t, err)
		})
	}
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestServe_ServesUntilCancelled(t *testing.T) {
	addr := freeAddr(t)

	cmd := newRootCmd()
	var stderr bytes.Buffer
	cmd.SetErr(&stderr)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--addr", addr, "--fail-every", "2", "--latency", "10ms"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- cmd.ExecuteContext(ctx) }()

	url := "http://" + addr + targetserver.DefaultPath
	post := func() (int, error) {
		resp, err := http.Post(url, "application/json", strings.NewReader(""))
		if err != nil {
			return 0, err
		}
		resp.Body.Close()
		return resp.StatusCode, nil
	}

	var status int
	require.Eventually(t, func() bool {
		var err error
		status, err = post()
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, http.StatusOK, status)

	status, err := post()
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, status, "every second request fails")

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down after cancellation")
	}

	logs := stderr.String()
	assert.Contains(t, logs, "listening")
	assert.Contains(t, logs, "requests=2")
	assert.Contains(t, logs, "failures=1")
}
