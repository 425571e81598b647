package trace

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type cfgWithMap struct {
	M StringMap `yaml:"m"`
}

func TestStringMapUnmarshalYAML_VariousFormats(t *testing.T) {
	t.Run("empty string", func(t *testing.T) {
		var c cfgWithMap
		require.NoError(t, yaml.Unmarshal([]byte("m: ''\n"), &c))
		require.NotNil(t, c.M)
		require.Len(t, c.M, 0)
	})

	t.Run("json string", func(t *testing.T) {
		var c cfgWithMap
		require.NoError(t, yaml.Unmarshal([]byte("m: '{\"k1\":\"v1\",\"k2\":\"v2\"}'\n"), &c))
		require.Equal(t, StringMap{"k1": "v1", "k2": "v2"}, c.M)
	})

	t.Run("csv string", func(t *testing.T) {
		var c cfgWithMap
		require.NoError(t, yaml.Unmarshal([]byte("m: 'a=1, b=2, c = 3'\n"), &c))
		require.Equal(t, StringMap{"a": "1", "b": "2", "c": "3"}, c.M)
	})

	t.Run("yaml map", func(t *testing.T) {
		var c cfgWithMap
		require.NoError(t, yaml.Unmarshal([]byte("m:\n  x: 10\n  y: true\n  z: val\n"), &c))
		require.Equal(t, StringMap{"x": "10", "y": "true", "z": "val"}, c.M)
	})

	t.Run("bad pair", func(t *testing.T) {
		var c cfgWithMap
		require.Error(t, yaml.Unmarshal([]byte("m: 'novalue'\n"), &c))
	})
}

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), &Config{}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestInitTracing_HTTP_NoopUsage(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	cfg := &Config{
		Enabled:     true,
		ServiceName: "siogate-test",
		Protocol:    "http",
		Insecure:    true,
		SamplerRate: 2.5,
		Environment: "dev",
		Headers:     StringMap{"x-test": "1"},
	}

	shutdown, err := InitTracing(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	require.NoError(t, shutdown(context.Background()))
}

func TestInitTracing_UnsupportedProtocol(t *testing.T) {
	_, err := InitTracing(context.Background(), &Config{Enabled: true, Protocol: "carrier"}, zap.NewNop())
	assert.Error(t, err)
}

func TestInitTracing_ConstructorErrors(t *testing.T) {
	origRes, origGRPC := newResource, newOTLPTraceGRPC
	t.Cleanup(func() { newResource, newOTLPTraceGRPC = origRes, origGRPC })

	newResource = func(context.Context, ...resource.Option) (*resource.Resource, error) {
		return nil, errors.New("boom")
	}
	_, err := InitTracing(context.Background(), &Config{Enabled: true}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create resource")

	newResource = origRes
	newOTLPTraceGRPC = func(context.Context, ...otlptracegrpc.Option) (*otlptrace.Exporter, error) {
		return nil, errors.New("dial failed")
	}
	_, err = InitTracing(context.Background(), &Config{Enabled: true}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create exporter")
}

func TestBuilder_Start_WithAttrs_Fail_End(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sr),
		sdktrace.WithResource(resource.Empty()),
	)
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	scope := Tracer("trace-test").Start(context.Background(), "op")
	require.NotNil(t, scope)
	scope.WithAttrs(attribute.String("k", "v")).Fail(errors.New("bad")).End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "op", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)

	found := false
	for _, a := range spans[0].Attributes() {
		if a.Key == "k" && a.Value.AsString() == "v" {
			found = true
		}
	}
	assert.True(t, found, "expected attribute k=v to be set on span")
}

func TestSpanScope_NilSafe(t *testing.T) {
	var s *SpanScope
	assert.Nil(t, s.WithAttrs(attribute.Int("n", 1)))
	assert.Nil(t, s.Fail(errors.New("x")))
	s.End()
}
