package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubDaemon(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"status": "healthy", "timestamp": 0, "version": "test", "queue_depth": 2,
		})
	})
	mux.HandleFunc("/api/stats", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"queue_depth": 2,
			"journal": map[string]any{
				"total_records": 5,
				"by_outcome":    map[string]int{"completed": 4, "timed_out": 1},
				"average_wait":  1500000000,
			},
			"persisted_count": 5,
			"uptime_seconds":  42.0,
		})
	})
	mux.HandleFunc("/se/grid/newsessionqueue/queue", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(map[string]any{"value": []any{}})
		case http.MethodDelete:
			json.NewEncoder(w).Encode(map[string]any{"value": 3})
		}
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func runCommand(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}

	assert.True(t, names["status"])
	assert.True(t, names["contents"])
	assert.True(t, names["clear"])
	assert.True(t, names["stats"])
}

func TestStatusCommand(t *testing.T) {
	ts := stubDaemon(t)

	err := runCommand(t, "--url", ts.URL, "status")
	assert.NoError(t, err)
}

func TestStatusCommand_DaemonUnreachable(t *testing.T) {
	err := runCommand(t, "--url", "http://127.0.0.1:1", "status")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "daemon unreachable")
}

func TestContentsCommand(t *testing.T) {
	ts := stubDaemon(t)

	err := runCommand(t, "--url", ts.URL, "contents")
	assert.NoError(t, err)
}

func TestClearCommand_RequiresForce(t *testing.T) {
	ts := stubDaemon(t)

	err := runCommand(t, "--url", ts.URL, "clear")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")
}

func TestClearCommand_WithForce(t *testing.T) {
	ts := stubDaemon(t)

	err := runCommand(t, "--url", ts.URL, "clear", "--force")
	assert.NoError(t, err)
}

func TestStatsCommand(t *testing.T) {
	ts := stubDaemon(t)

	err := runCommand(t, "--url", ts.URL, "stats")
	assert.NoError(t, err)
}
