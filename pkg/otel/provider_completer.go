package otel

import (
	"context"
	"iter"
	"time"

	"github.com/unblurai/unblur/pkg/provider"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type Completer interface {
	Observable
	provider.Completer
}

type observableCompleter struct {
	model    string
	provider string

	completer provider.Completer

	durationMetric metric.Float64Histogram
	tokenMetric    metric.Int64Counter
}

func NewCompleter(provider, model string, p provider.Completer) Completer {
	meter := otel.Meter(instrumentationName)

	durationMetric, _ := meter.Float64Histogram("gen_ai.client.operation.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Duration of recognition model calls"),
	)

	tokenMetric, _ := meter.Int64Counter("gen_ai.client.token.usage",
		metric.WithUnit("{token}"),
		metric.WithDescription("Tokens consumed by recognition model calls"),
	)

	return &observableCompleter{
		completer: p,

		model:    model,
		provider: provider,

		durationMetric: durationMetric,
		tokenMetric:    tokenMetric,
	}
}

func (p *observableCompleter) otelSetup() {
}

func (p *observableCompleter) Complete(ctx context.Context, messages []provider.Message, options *provider.CompleteOptions) iter.Seq2[*provider.Completion, error] {
	return func(yield func(*provider.Completion, error) bool) {
		ctx, span := otel.Tracer(instrumentationName).Start(ctx, "chat "+p.model, trace.WithSpanKind(trace.SpanKindClient))
		defer span.End()

		attrs := KeyValues([]KeyValue{
			String("gen_ai.operation.name", "chat"),
			String("gen_ai.provider.name", p.provider),
			String("gen_ai.request.model", p.model),
		}, EndUserAttrs(ctx))

		span.SetAttributes(attrs...)

		timestamp := time.Now()

		var lastResult *provider.Completion

		for completion, err := range p.completer.Complete(ctx, messages, options) {
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())

				yield(nil, err)
				return
			}

			lastResult = completion

			if !yield(completion, nil) {
				return
			}
		}

		if lastResult == nil {
			return
		}

		p.durationMetric.Record(ctx, time.Since(timestamp).Seconds(), metric.WithAttributes(attrs...))

		if lastResult.Usage != nil {
			p.tokenMetric.Add(ctx, int64(lastResult.Usage.InputTokens), metric.WithAttributes(append(attrs, String("gen_ai.token.type", "input"))...))
			p.tokenMetric.Add(ctx, int64(lastResult.Usage.OutputTokens), metric.WithAttributes(append(attrs, String("gen_ai.token.type", "output"))...))
		}
	}
}
