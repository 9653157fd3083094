package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-bookstore-client/internal/logging"
)

func TestNewWithWriter_LevelAndComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.Component(logging.NewWithWriter(&buf, "warn", false), "persist")

	logger.Info().Msg("hidden")
	require.Zero(t, buf.Len())

	logger.Warn().Str("key", "persist:root").Msg("shown")
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "warn", entry["level"])
	require.Equal(t, "persist", entry["component"])
	require.Equal(t, "shown", entry["message"])
	require.Contains(t, entry, "time")
}

func TestNewWithWriter_UnknownLevelIsInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, "chatty", false)

	logger.Debug().Msg("hidden")
	require.Zero(t, buf.Len())
	logger.Info().Msg("shown")
	require.NotZero(t, buf.Len())
}
