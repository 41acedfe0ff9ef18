package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogger_WritesJSONAtLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := InitLogger(&buf, "warn")

	logger.Info("dropped")
	logger.Warn("kept", "product_id", "p-1")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "p-1", entry["product_id"])
	assert.Equal(t, slog.LevelWarn.String(), entry["level"])
}

func TestInitTracer_NoExporterIsNoop(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), TracerOptions{ServiceName: "test"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
