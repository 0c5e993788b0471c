package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInitDisabledInstallsPropagator(t *testing.T) {
	cfg := DefaultConfig("assist-api")
	p, err := Init(context.Background(), cfg)
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	assert.Contains(t, otel.GetTextMapPropagator().Fields(), "traceparent")
	assert.NoError(t, p.Shutdown(context.Background()))
}
