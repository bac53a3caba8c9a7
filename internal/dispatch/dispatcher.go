// Package dispatch wraps every processor call in a circuit breaker so a
// degraded processor fails fast instead of tying up request handlers.
package dispatch

import (
	"context"
	"log"

	"github.com/dunamismax/artshield/internal/domain"
	"github.com/dunamismax/artshield/internal/processor"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Submitter is the slice of the processor client the dispatcher consumes.
type Submitter interface {
	Submit(ctx context.Context, req processor.SubmitRequest) error
	SubmitFile(ctx context.Context, req processor.SubmitRequest, filename string, image []byte) error
	Health(ctx context.Context) error
}

type Dispatcher struct {
	logger    *log.Logger
	processor Submitter
	breaker   *CircuitBreaker
	tracer    trace.Tracer
}

func New(logger *log.Logger, submitter Submitter, breaker *CircuitBreaker) *Dispatcher {
	return &Dispatcher{
		logger:    logger,
		processor: submitter,
		breaker:   breaker,
		tracer:    otel.Tracer("artshield/dispatch"),
	}
}

// SubmitJSON dispatches a job that references a remote image.
func (d *Dispatcher) SubmitJSON(ctx context.Context, req processor.SubmitRequest) error {
	return d.guarded(ctx, req.JobID, "json", func(ctx context.Context) error {
		return d.processor.Submit(ctx, req)
	})
}

// SubmitFile dispatches a job carrying an embedded image buffer. Both
// submission shapes share the same breaker state.
func (d *Dispatcher) SubmitFile(ctx context.Context, req processor.SubmitRequest, filename string, image []byte) error {
	return d.guarded(ctx, req.JobID, "multipart", func(ctx context.Context) error {
		return d.processor.SubmitFile(ctx, req, filename, image)
	})
}

// Health probes the processor without touching breaker state; a probe
// failure here says nothing about submissions that have not been attempted.
func (d *Dispatcher) Health(ctx context.Context) error {
	return d.processor.Health(ctx)
}

// BreakerOpen exposes the breaker state for health reporting.
func (d *Dispatcher) BreakerOpen() bool {
	return d.breaker.Open()
}

func (d *Dispatcher) guarded(ctx context.Context, jobID, shape string, call func(context.Context) error) error {
	if !d.breaker.Allow() {
		d.logger.Printf("dispatch rejected, circuit open job_id=%s shape=%s", jobID, shape)
		return domain.ErrCircuitOpen
	}

	ctx, span := d.tracer.Start(ctx, "dispatch.submit", trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("job.id", jobID),
		attribute.String("dispatch.shape", shape),
	)
	defer span.End()

	if err := call(ctx); err != nil {
		d.breaker.Failure()
		span.RecordError(err)
		span.SetStatus(codes.Error, "processor submission failed")
		d.logger.Printf("dispatch failed job_id=%s shape=%s err=%v", jobID, shape, err)
		return err
	}

	d.breaker.Success()
	span.SetStatus(codes.Ok, "submitted")
	return nil
}
