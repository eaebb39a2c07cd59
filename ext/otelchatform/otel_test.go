package otelchatform

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/skosovsky/chatform"
)

func newRecorded(t *testing.T) (*Translator, *tracetest.SpanRecorder) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { require.NoError(t, tp.Shutdown(context.Background())) })
	inner, err := chatform.New()
	require.NoError(t, err)
	return Wrap(inner, WithTracerProvider(tp)), sr
}

func TestTranslate_RecordsSpan(t *testing.T) {
	t.Parallel()
	tr, sr := newRecorded(t)

	out, err := tr.Translate(context.Background(), "hello",
		chatform.Options{From: chatform.ProviderCanonical, To: chatform.ProviderCanonical})
	require.NoError(t, err)
	require.NotNil(t, out)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "chatform.Translate", span.Name())
	assert.Equal(t, codes.Ok, span.Status().Code)
	assert.Contains(t, span.Attributes(),
		attribute.String("chatform.from", chatform.ProviderCanonical))
	assert.Contains(t, span.Attributes(),
		attribute.String("chatform.to", chatform.ProviderCanonical))
}

func TestTranslate_RecordsError(t *testing.T) {
	t.Parallel()
	tr, sr := newRecorded(t)

	_, err := tr.Translate(context.Background(), "hello",
		chatform.Options{From: "nope", To: chatform.ProviderCanonical})
	require.Error(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, codes.Error, span.Status().Code)
	require.Len(t, span.Events(), 1)
	assert.Equal(t, "exception", span.Events()[0].Name)
}

func TestToCanonical_RecordsMessageCount(t *testing.T) {
	t.Parallel()
	tr, sr := newRecorded(t)

	msgs, err := tr.ToCanonical(context.Background(), "hello",
		chatform.Options{From: chatform.ProviderCanonical})
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "chatform.ToCanonical", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.Int("chatform.messages", 1))
}

func TestInfer_RecordsProvider(t *testing.T) {
	t.Parallel()
	tr, sr := newRecorded(t)

	provider, err := tr.Infer(context.Background(), "hello", nil, chatform.DirectionInput)
	require.NoError(t, err)
	assert.NotEmpty(t, provider)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "chatform.Infer", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.String("chatform.provider", provider))
}

func TestUnwrap(t *testing.T) {
	t.Parallel()
	inner, err := chatform.New()
	require.NoError(t, err)
	assert.Same(t, inner, Wrap(inner).Unwrap())
}
