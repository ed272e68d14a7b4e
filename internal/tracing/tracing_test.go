package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/mocktracer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therealutkarshpriyadarshi/autocaptions/internal/config"
)

func TestInitTracerDisabled(t *testing.T) {
	tracer, closer, err := InitTracer(config.TracingConfig{Enabled: false})
	require.NoError(t, err)
	assert.IsType(t, opentracing.NoopTracer{}, tracer)
	assert.NoError(t, closer.Close())
}

func TestSpanHelpers(t *testing.T) {
	tracer := mocktracer.New()
	prev := opentracing.GlobalTracer()
	opentracing.SetGlobalTracer(tracer)
	defer opentracing.SetGlobalTracer(prev)

	span, ctx := StartSpan(context.Background(), "captions.extract")
	require.NotNil(t, ctx)

	SetTag(span, "language", "en")
	LogError(span, errors.New("boom"))
	FinishSpan(span)

	finished := tracer.FinishedSpans()
	require.Len(t, finished, 1)
	assert.Equal(t, "captions.extract", finished[0].OperationName)
	assert.Equal(t, "en", finished[0].Tag("language"))
	assert.Equal(t, true, finished[0].Tag("error"))
}

func TestNilSpanHelpers(t *testing.T) {
	FinishSpan(nil)
	LogError(nil, errors.New("ignored"))
	SetTag(nil, "k", "v")
	// Should not panic
}
