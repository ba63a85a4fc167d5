package logging

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		wantLevel log.Level
		wantErr   bool
	}{
		{name: "default level", level: "", wantLevel: log.InfoLevel},
		{name: "debug", level: "debug", wantLevel: log.DebugLevel},
		{name: "warn", level: "warn", wantLevel: log.WarnLevel},
		{name: "unknown level", level: "chatty", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(&bytes.Buffer{}, tt.level)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLevel, logger.GetLevel())
		})
	}
}

func TestNew_WritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "info")
	require.NoError(t, err)

	logger.Info("refreshed trending", "count", 20)
	logger.Debug("hidden")

	out := buf.String()
	assert.Contains(t, out, "refreshed trending")
	assert.Contains(t, out, "count=20")
	assert.NotContains(t, out, "hidden")
}
