package site

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"git.home.luguber.info/inful/noise/internal/eventstore"
	"git.home.luguber.info/inful/noise/internal/logfields"
	"git.home.luguber.info/inful/noise/internal/metrics"
)

// StageName is a strongly-typed identifier for a build phase.
type StageName string

// Canonical phase names, in execution order.
const (
	StagePrepareOutput StageName = "prepare_output"
	StageTouchDeclared StageName = "touch_declared"
	StagePrerender     StageName = "prerender"
	StageRender        StageName = "render"
	StageTouchRendered StageName = "touch_rendered"
	StagePostrender    StageName = "postrender"
	StageComplete      StageName = "complete"
)

// StageErrorKind classifies the outcome of a stage.
type StageErrorKind string

const (
	StageErrorFatal    StageErrorKind = "fatal"    // Build must abort.
	StageErrorCanceled StageErrorKind = "canceled" // Context cancellation.
)

// StageError is the error returned by Build when a phase aborts it.
type StageError struct {
	Kind  StageErrorKind
	Stage StageName
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s stage %s: %v", e.Kind, e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// Stage is a discrete unit of work in the build.
type Stage func(ctx context.Context, b *Build) error

type stageDef struct {
	name StageName
	fn   Stage
}

// runStages executes stages in order, recording timing and stopping on the
// first error. Cancellation is checked before each stage only.
func runStages(ctx context.Context, b *Build, stages []stageDef) error {
	rep := b.Report
	rec := b.recorder()
	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			se := &StageError{Kind: StageErrorCanceled, Stage: st.name, Err: err}
			rep.recordFailure(se)
			rec.IncPhaseResult(string(st.name), metrics.ResultCanceled)
			return se
		}

		b.phase = st.name
		sctx, span := b.app.tracer.Start(ctx, "noise."+string(st.name),
			trace.WithAttributes(attribute.String("noise.build_id", b.ID)))

		t0 := time.Now()
		err := st.fn(sctx, b)
		dur := time.Since(t0)

		rep.StageDurations[string(st.name)] = dur
		rec.ObservePhaseDuration(string(st.name), dur)

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.End()
			se := &StageError{Kind: StageErrorFatal, Stage: st.name, Err: err}
			rep.recordFailure(se)
			rec.IncPhaseResult(string(st.name), metrics.ResultFatal)
			return se
		}
		span.End()

		rec.IncPhaseResult(string(st.name), metrics.ResultSuccess)
		slog.Debug("Phase complete",
			logfields.BuildID(b.ID),
			logfields.Phase(string(st.name)),
			logfields.DurationMS(float64(dur.Microseconds())/1000))
		if ev, evErr := eventstore.NewPhaseCompleted(b.ID, string(st.name), dur); evErr == nil {
			b.app.appendEvent(ctx, ev)
		}
	}
	return nil
}
