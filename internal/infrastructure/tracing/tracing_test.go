package tracing

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInit_Disabled(t *testing.T) {
	shutdown, err := Init(Config{})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInit_ExportsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spans.json")

	shutdown, err := Init(Config{Enabled: true, File: path})
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "TradingLoop.Tick")
	span.End()
	require.NoError(t, shutdown(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "TradingLoop.Tick")
}
