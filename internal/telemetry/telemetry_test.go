package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lexilabs/lexid/internal/config"
)

func TestSetup_Disabled(t *testing.T) {
	tel, err := Setup(context.Background(), config.TelemetryConfig{Enabled: false}, "test", zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, tel)

	// No providers were installed, so there is nothing to flush.
	assert.Nil(t, tel.tracerProvider)
	assert.Nil(t, tel.meterProvider)
	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestSetup_ConstructsProviders(t *testing.T) {
	// Exporter construction is lazy: no collector needs to be listening.
	for _, protocol := range []string{"grpc", "http/protobuf"} {
		t.Run(protocol, func(t *testing.T) {
			cfg := config.TelemetryConfig{
				Enabled:         true,
				Endpoint:        "localhost:4317",
				Protocol:        protocol,
				Insecure:        true,
				SamplingRate:    0.5,
				MetricsInterval: config.Duration(15 * time.Second),
			}

			tel, err := Setup(context.Background(), cfg, "test", zap.NewNop())
			require.NoError(t, err)
			require.NotNil(t, tel.tracerProvider)
			require.NotNil(t, tel.meterProvider)

			// Shutdown against the unreachable endpoint must return, not hang.
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			assert.NotPanics(t, func() {
				_ = tel.Shutdown(ctx)
			})
		})
	}
}

func TestStripScheme(t *testing.T) {
	tests := []struct {
		endpoint string
		want     string
	}{
		{"localhost:4317", "localhost:4317"},
		{"http://localhost:4318", "localhost:4318"},
		{"https://otel.example.com:443", "otel.example.com:443"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stripScheme(tt.endpoint), tt.endpoint)
	}
}
