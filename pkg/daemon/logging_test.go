package daemon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name  string
		level LogLevel
	}{
		{"debug level", LogLevelDebug},
		{"info level", LogLevelInfo},
		{"warn level", LogLevelWarn},
		{"error level", LogLevelError},
		{"unknown level falls back to info", LogLevel("verbose")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewLogger("test", tt.level)
			require.NotNil(t, logger)
			assert.Equal(t, "test", logger.component)
		})
	}
}

func TestLogger_WithComponent(t *testing.T) {
	logger := NewLogger("daemon", LogLevelError)

	child := logger.WithComponent("server")

	require.NotNil(t, child)
	assert.Equal(t, "server", child.component)
	assert.Equal(t, "daemon", logger.component)
}

func TestLogger_WithRequest(t *testing.T) {
	logger := NewLogger("daemon", LogLevelError)

	child := logger.WithRequest("req-123")

	require.NotNil(t, child)
	assert.Equal(t, "daemon", child.component)
}
