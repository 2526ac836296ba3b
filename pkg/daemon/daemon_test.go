package daemon

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webgridhq/webgrid/pkg/capability"
	"github.com/webgridhq/webgrid/pkg/config"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.PidFile = filepath.Join(t.TempDir(), "webgridd.pid")
	cfg.LogLevel = "error"
	return cfg
}

func TestNewDaemon_Defaults(t *testing.T) {
	// Given a nil config
	d, err := NewDaemon(nil)

	// Then the daemon comes up on defaults
	require.NoError(t, err)
	require.NotNil(t, d)
	defer d.Stop()

	assert.NotNil(t, d.queue)
	assert.NotNil(t, d.journal)
	assert.NotNil(t, d.server)
}

func TestNewDaemon_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.BatchSize = -1

	_, err := NewDaemon(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch_size")
}

func TestDaemon_PidFileLifecycle(t *testing.T) {
	// Given a daemon with a pid file
	cfg := testConfig(t)
	d, err := NewDaemon(cfg)
	require.NoError(t, err)

	require.NoError(t, d.writePidFile())

	// Then the file holds our pid and IsRunning agrees
	data, err := os.ReadFile(cfg.PidFile)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("%d\n", os.Getpid()), string(data))

	running, pid, err := IsRunning(cfg.PidFile)
	require.NoError(t, err)
	assert.True(t, running)
	assert.Equal(t, os.Getpid(), pid)

	// And removal cleans up
	d.removePidFile()
	_, err = os.Stat(cfg.PidFile)
	assert.True(t, os.IsNotExist(err))

	d.Stop()
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestDaemon_StopDrainsBlockedWaiters(t *testing.T) {
	// Given a running daemon holding one blocked enqueue with a long budget
	cfg := testConfig(t)
	cfg.Port = freePort(t)
	cfg.RequestTimeout = 30 * time.Second

	d, err := NewDaemon(cfg)
	require.NoError(t, err)
	require.NoError(t, d.Start())

	client := NewQueueClient(fmt.Sprintf("http://127.0.0.1:%d", cfg.Port))
	require.Eventually(t, func() bool {
		_, err := client.Health(context.Background())
		return err == nil
	}, 2*time.Second, 20*time.Millisecond, "daemon never came up")

	waiter := make(chan error, 1)
	go func() {
		_, err := client.NewSession(context.Background(), NewSessionPayload{
			Capabilities: []capability.Capabilities{{"browserName": "chrome"}},
		})
		waiter <- err
	}()
	require.Eventually(t, func() bool {
		return d.queue.Len() == 1
	}, 2*time.Second, 10*time.Millisecond, "request never reached the queue")

	// When stopping the daemon
	started := time.Now()
	require.NoError(t, d.Stop())

	// Then shutdown returns promptly instead of riding out the request
	// budget, and the waiter is failed with the queue-cleared outcome
	assert.Less(t, time.Since(started), 5*time.Second)
	select {
	case err := <-waiter:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cleared")
	case <-time.After(2 * time.Second):
		t.Fatal("waiter never resolved after shutdown")
	}
}

func TestIsRunning_NoPidFile(t *testing.T) {
	running, pid, err := IsRunning(filepath.Join(t.TempDir(), "missing.pid"))
	require.NoError(t, err)
	assert.False(t, running)
	assert.Equal(t, 0, pid)
}

func TestIsRunning_GarbagePidFile(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "garbage.pid")
	require.NoError(t, os.WriteFile(pidFile, []byte("not-a-pid"), 0644))

	_, _, err := IsRunning(pidFile)
	assert.Error(t, err)
}

func TestIsRunning_DeadProcess(t *testing.T) {
	// A pid this large is above pid_max and cannot be alive
	pidFile := filepath.Join(t.TempDir(), "dead.pid")
	require.NoError(t, os.WriteFile(pidFile, []byte("999999\n"), 0644))

	running, pid, err := IsRunning(pidFile)
	require.NoError(t, err)
	assert.False(t, running)
	assert.Equal(t, 999999, pid)
}
