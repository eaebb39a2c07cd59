// Package otelchatform adds OpenTelemetry tracing around translation calls.
// Wrap a Translator and use the context-taking methods; each call produces
// one span carrying the resolved dialects, direction, and metadata mode.
package otelchatform

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/skosovsky/chatform"
)

const tracerName = "github.com/skosovsky/chatform/ext/otelchatform"

// Translator traces calls to an underlying chatform.Translator.
type Translator struct {
	inner  *chatform.Translator
	tracer trace.Tracer
}

// Option configures a traced Translator.
type Option func(*Translator)

// WithTracerProvider sets the TracerProvider. Defaults to the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(t *Translator) { t.tracer = tp.Tracer(tracerName) }
}

// Wrap returns a traced view of t.
func Wrap(t *chatform.Translator, opts ...Option) *Translator {
	out := &Translator{inner: t, tracer: otel.Tracer(tracerName)}
	for _, opt := range opts {
		opt(out)
	}
	return out
}

// Translate converts input between dialects, recording one span.
func (t *Translator) Translate(ctx context.Context, input any, opts chatform.Options) (*chatform.Output, error) {
	_, span := t.tracer.Start(ctx, "chatform.Translate",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(optionAttrs(opts)...))
	defer span.End()
	out, err := t.inner.Translate(input, opts)
	if err != nil {
		recordErr(span, err)
		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	return out, nil
}

// ToCanonical converts input to canonical messages, recording one span.
func (t *Translator) ToCanonical(ctx context.Context, input any, opts chatform.Options) ([]chatform.Message, error) {
	_, span := t.tracer.Start(ctx, "chatform.ToCanonical",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(optionAttrs(opts)...))
	defer span.End()
	msgs, err := t.inner.ToCanonical(input, opts)
	if err != nil {
		recordErr(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("chatform.messages", len(msgs)))
	span.SetStatus(codes.Ok, "")
	return msgs, nil
}

// Infer identifies the source dialect, recording one span with the result.
func (t *Translator) Infer(ctx context.Context, input, system any, dir chatform.Direction) (string, error) {
	_, span := t.tracer.Start(ctx, "chatform.Infer",
		trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()
	provider, err := t.inner.Infer(input, system, dir)
	if err != nil {
		recordErr(span, err)
		return "", err
	}
	span.SetAttributes(attribute.String("chatform.provider", provider))
	span.SetStatus(codes.Ok, "")
	return provider, nil
}

// Unwrap returns the underlying Translator.
func (t *Translator) Unwrap() *chatform.Translator { return t.inner }

func optionAttrs(opts chatform.Options) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 4)
	if opts.From != "" {
		attrs = append(attrs, attribute.String("chatform.from", opts.From))
	}
	if opts.To != "" {
		attrs = append(attrs, attribute.String("chatform.to", opts.To))
	}
	if opts.Direction != "" {
		attrs = append(attrs, attribute.String("chatform.direction", string(opts.Direction)))
	}
	if opts.Mode != "" {
		attrs = append(attrs, attribute.String("chatform.mode", string(opts.Mode)))
	}
	return attrs
}

func recordErr(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
