// Package pipeline runs one graph construction: entity resolution,
// relationship discovery, community detection, optional summarization,
// analytics and persistence, in that order.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/OFFIS-RIT/lexgraph/pkg/ai"
	"github.com/OFFIS-RIT/lexgraph/pkg/analytics"
	"github.com/OFFIS-RIT/lexgraph/pkg/community"
	"github.com/OFFIS-RIT/lexgraph/pkg/config"
	"github.com/OFFIS-RIT/lexgraph/pkg/discover"
	"github.com/OFFIS-RIT/lexgraph/pkg/graph"
	"github.com/OFFIS-RIT/lexgraph/pkg/logger"
	"github.com/OFFIS-RIT/lexgraph/pkg/resolve"
	"github.com/OFFIS-RIT/lexgraph/pkg/store"
)

const tracerName = "github.com/OFFIS-RIT/lexgraph/pkg/pipeline"

// Options carries the collaborators of a pipeline. All of them are
// optional: without Storage the persist stage is skipped, without
// Generator summarization is skipped and a nil Provider selects
// graph.Native.
type Options struct {
	Storage   store.GraphStorage
	Generator ai.TextGenerator
	Provider  graph.GraphAlgorithmProvider
}

type Pipeline struct {
	cfg        config.Config
	storage    store.GraphStorage
	resolver   *resolve.Resolver
	discoverer *discover.Discoverer
	passive    *discover.Discoverer
	detector   *community.Detector
	summarizer *community.Summarizer
	analyzer   *analytics.Analyzer
	tracer     trace.Tracer
}

// New validates cfg and wires the stage components. A Pipeline is safe for
// concurrent runs as long as its collaborators are.
func New(cfg config.Config, opts Options) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	provider := opts.Provider
	if provider == nil {
		provider = graph.Native{}
	}

	passive := cfg.Discovery
	passive.EnableCitation = false
	passive.EnableCrossDocument = false
	passive.EnableContextual = false
	passive.EnableCooccurrence = false
	passive.MinConfidence = 0

	p := &Pipeline{
		cfg:        cfg,
		storage:    opts.Storage,
		resolver:   resolve.NewResolver(cfg.Resolution),
		discoverer: discover.NewDiscoverer(cfg.Discovery),
		passive:    discover.NewDiscoverer(passive),
		detector:   community.NewDetector(cfg.Community, provider),
		analyzer: analytics.NewAnalyzer(cfg.Analytics, graph.WeightOptions{
			OwnershipBoost: cfg.Community.OwnershipBoost,
			CitationBoost:  cfg.Community.CitationBoost,
		}, provider),
		tracer: otel.Tracer(tracerName),
	}
	if opts.Generator != nil {
		p.summarizer = community.NewSummarizer(cfg.Summary, opts.Generator)
	}
	return p, nil
}

// stageError carries the failure of a stage out of run.
type stageError struct {
	stage     Stage
	err       error
	retryable bool
}

func (e *stageError) Error() string { return e.err.Error() }

func (e *stageError) Unwrap() error { return e.err }

// Run executes one construction run. It never returns an error: failures
// are reported through Result.Failure with State ERROR.
func (p *Pipeline) Run(ctx context.Context, in Input) Result {
	start := time.Now()
	if in.RunID == "" {
		id, err := gonanoid.New()
		if err != nil {
			id = fmt.Sprintf("run-%d", start.UnixNano())
		}
		in.RunID = id
	}

	ctx, span := p.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("lexgraph.run_id", in.RunID),
		attribute.String("lexgraph.document_id", in.DocumentID),
		attribute.Int("lexgraph.raw_entities", len(in.Entities)),
	))
	defer span.End()

	logger.Info("[Pipeline] Starting run", "run_id", in.RunID, "document_id", in.DocumentID, "entities", len(in.Entities), "relationships", len(in.Relationships))

	r := &run{
		p:   p,
		in:  in,
		res: Result{State: StageInit},
	}
	r.res.Summary.RunID = in.RunID
	r.res.Summary.DocumentID = in.DocumentID
	r.res.Summary.RawEntities = len(in.Entities)

	err := r.execute(ctx)
	elapsed := time.Since(start).Milliseconds()
	r.res.Summary.ElapsedMs = elapsed

	if err != nil {
		var se *stageError
		if !errors.As(err, &se) {
			se = &stageError{stage: r.res.State, err: err}
		}
		r.res.Success = false
		r.res.Failure = &Failure{
			Stage:     se.stage,
			Message:   se.err.Error(),
			RunID:     in.RunID,
			ElapsedMs: elapsed,
			Retryable: se.retryable,
		}
		r.res.State = StageError
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("[Pipeline] Run failed", "run_id", in.RunID, "stage", se.stage, "retryable", se.retryable, "err", se.err, "elapsed_ms", elapsed)
		return r.res
	}

	r.res.Success = true
	r.res.State = StageDone
	span.SetAttributes(
		attribute.Int("lexgraph.canonical_entities", r.res.Summary.CanonicalEntities),
		attribute.Int("lexgraph.relationships", r.res.Summary.Relationships),
		attribute.Int("lexgraph.communities", r.res.Summary.Communities),
	)
	logger.Info("[Pipeline] Run finished",
		"run_id", in.RunID,
		"entities", r.res.Summary.CanonicalEntities,
		"merges", r.res.Summary.Merges,
		"relationships", r.res.Summary.Relationships,
		"communities", r.res.Summary.Communities,
		"grade", r.res.Quality.Grade,
		"elapsed_ms", elapsed,
	)
	return r.res
}

// step runs one stage inside its own span. Cancellation is checked before
// the stage starts and a panic is turned into a non-retryable stage error.
func (r *run) step(ctx context.Context, stage Stage, enabled bool, fn func(ctx context.Context, rec *StageRecord) error) (err error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &stageError{stage: stage, err: fmt.Errorf("cancelled before %s: %w", stage, ctxErr), retryable: true}
	}
	r.res.State = stage

	ctx, span := r.p.tracer.Start(ctx, "pipeline."+string(stage), trace.WithAttributes(
		attribute.Bool("lexgraph.stage.enabled", enabled),
	))
	rec := StageRecord{Stage: stage, Enabled: enabled}
	started := time.Now()

	defer func() {
		if p := recover(); p != nil {
			logger.Error("[Pipeline] Stage panicked", "run_id", r.in.RunID, "stage", stage, "panic", p, "stack", string(debug.Stack()))
			err = &stageError{stage: stage, err: fmt.Errorf("panic in %s: %v", stage, p)}
		}
		rec.ElapsedMs = time.Since(started).Milliseconds()
		r.res.Stages = append(r.res.Stages, rec)

		span.SetAttributes(
			attribute.Bool("lexgraph.stage.skipped", rec.Skipped),
			attribute.Int("lexgraph.stage.input", rec.Input),
			attribute.Int("lexgraph.stage.output", rec.Output),
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			logger.Debug("[Pipeline] Stage finished", "run_id", r.in.RunID, "stage", stage, "skipped", rec.Skipped, "input", rec.Input, "output", rec.Output, "elapsed_ms", rec.ElapsedMs)
		}
		span.End()
	}()

	if err := fn(ctx, &rec); err != nil {
		var se *stageError
		if errors.As(err, &se) {
			return se
		}
		return &stageError{
			stage:     stage,
			err:       err,
			retryable: errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded),
		}
	}
	return nil
}
