package tracing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	shutdown, err := InitWithExporter("rtsched-test", "0", exporter)
	require.NoError(t, err)
	defer func() { assert.NoError(t, shutdown(context.Background())) }()

	_, span := StartSpan(context.Background(), "migrate", attribute.Int("cpu", 2))
	EndSpan(span, errors.New("cpu offline"))
	_, span = StartSpan(context.Background(), "migrate")
	EndSpan(span, nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "migrate", spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Contains(t, spans[0].Attributes, attribute.Int("cpu", 2))
	assert.Equal(t, codes.Ok, spans[1].Status.Code)
}

func TestEndSpan_Nil(t *testing.T) {
	EndSpan(nil, errors.New("ignored"))
}

func TestInit_FileIsFlushedOnShutdown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spans.json")
	shutdown, err := Init("rtsched-test", "0", path)
	require.NoError(t, err)

	_, span := StartSpan(context.Background(), "migrate", attribute.Int("task", 3))
	EndSpan(span, nil)
	require.NoError(t, shutdown(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"migrate"`)

	again, err := Init("rtsched-test", "0", "")
	require.NoError(t, err, "a provider can be installed again after shutdown")
	assert.NoError(t, again(context.Background()))
}
