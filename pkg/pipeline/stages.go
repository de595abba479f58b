package pipeline

import (
	"context"
	"fmt"

	"github.com/OFFIS-RIT/lexgraph/internal/util"
	"github.com/OFFIS-RIT/lexgraph/pkg/common"
	"github.com/OFFIS-RIT/lexgraph/pkg/community"
	"github.com/OFFIS-RIT/lexgraph/pkg/config"
	"github.com/OFFIS-RIT/lexgraph/pkg/graph"
	"github.com/OFFIS-RIT/lexgraph/pkg/logger"
	"github.com/OFFIS-RIT/lexgraph/pkg/resolve"
	"github.com/OFFIS-RIT/lexgraph/pkg/store"
)

// run is the mutable state of one Run call.
type run struct {
	p   *Pipeline
	in  Input
	res Result

	citations []common.Citation
	chunks    []common.Chunk
}

func (r *run) execute(ctx context.Context) error {
	stages := []struct {
		stage Stage
		key   string
		fn    func(context.Context, *StageRecord, bool) error
	}{
		{StageResolve, config.StageResolve, r.resolve},
		{StageDiscover, config.StageDiscover, r.discover},
		{StageDetect, config.StageDetect, r.detect},
		{StageSummarize, config.StageSummarize, r.summarize},
		{StageAnalytics, config.StageAnalytics, r.analyze},
		{StagePersist, config.StagePersist, r.persist},
	}
	for _, s := range stages {
		enabled := r.p.cfg.Pipeline.Enabled(s.key)
		err := r.step(ctx, s.stage, enabled, func(ctx context.Context, rec *StageRecord) error {
			return s.fn(ctx, rec, enabled)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func skip(rec *StageRecord, reason string) {
	rec.Skipped = true
	rec.Reason = reason
}

func (r *run) warn(format string, args ...any) {
	r.res.Warnings = append(r.res.Warnings, fmt.Sprintf(format, args...))
}

func (r *run) resolve(ctx context.Context, rec *StageRecord, enabled bool) error {
	rec.Input = len(r.in.Entities)

	var (
		entities []common.CanonicalEntity
		report   resolve.Report
	)
	if enabled {
		var err error
		entities, report, err = r.p.resolver.Resolve(ctx, r.in.Entities, r.in.DocumentID)
		if err != nil {
			return fmt.Errorf("failed to resolve entities: %w", err)
		}
	} else {
		skip(rec, "disabled")
		entities, report = resolve.PassThrough(r.in.Entities, r.in.DocumentID)
	}

	rels, dropped := report.Mapping.RemapRelationships(r.in.Relationships)
	for _, d := range dropped {
		r.warn("relationship %s (%s -> %s, %s) dropped: unknown endpoint or self loop", d.ID, d.SourceID, d.TargetID, d.Type)
	}
	r.citations = report.Mapping.RemapCitations(r.in.Citations)
	r.chunks = report.Mapping.RemapChunks(r.in.Chunks)
	r.res.Warnings = append(r.res.Warnings, report.Warnings...)

	r.res.Entities = entities
	r.res.Relationships = rels
	r.res.Provenance = report.Merges
	r.res.Reports.Resolution = report
	r.res.Summary.CanonicalEntities = len(entities)
	r.res.Summary.Merges = report.MergeCount
	r.res.Summary.DedupRate = report.DedupRate
	rec.Output = len(entities)
	return nil
}

func (r *run) discover(ctx context.Context, rec *StageRecord, enabled bool) error {
	rec.Input = len(r.res.Relationships)

	d := r.p.discoverer
	if !enabled {
		skip(rec, "disabled")
		d = r.p.passive
	}
	rels, report, err := d.Discover(ctx, r.res.Entities, r.res.Relationships, r.citations, r.chunks)
	if err != nil {
		return fmt.Errorf("failed to discover relationships: %w", err)
	}
	r.res.Warnings = append(r.res.Warnings, report.Warnings...)

	r.res.Relationships = rels
	r.res.Reports.Discovery = report
	r.res.Summary.Relationships = len(rels)
	rec.Output = len(rels)
	return nil
}

func (r *run) detect(ctx context.Context, rec *StageRecord, enabled bool) error {
	cfg := r.p.cfg.Community
	rec.Input = len(r.res.Entities)
	r.res.Communities = []common.Community{}
	r.res.Memberships = []common.Membership{}

	switch {
	case !enabled:
		skip(rec, "disabled")
		return nil
	case len(r.res.Entities) < cfg.MinSize:
		skip(rec, fmt.Sprintf("%d entities below minimum community size %d", len(r.res.Entities), cfg.MinSize))
		return nil
	}

	if cfg.Hierarchical {
		levels, err := r.p.detector.DetectHierarchical(ctx, r.res.Entities, r.res.Relationships, r.citations)
		if err != nil {
			return fmt.Errorf("failed to detect community hierarchy: %w", err)
		}
		r.res.Levels = levels
		for _, l := range levels {
			r.res.Communities = append(r.res.Communities, l.Communities...)
			r.res.Reports.Detection = append(r.res.Reports.Detection, l.Report)
		}
	} else {
		communities, report, err := r.p.detector.Detect(ctx, r.res.Entities, r.res.Relationships, r.citations)
		if err != nil {
			return fmt.Errorf("failed to detect communities: %w", err)
		}
		r.res.Communities = append(r.res.Communities, communities...)
		r.res.Reports.Detection = []community.Report{report}
	}

	r.res.Memberships = community.Memberships(r.res.Communities)
	r.res.Summary.Communities = len(r.res.Communities)
	rec.Output = len(r.res.Communities)
	return nil
}

func (r *run) summarize(ctx context.Context, rec *StageRecord, enabled bool) error {
	rec.Input = len(r.res.Communities)
	rec.Output = len(r.res.Communities)

	switch {
	case !enabled:
		skip(rec, "disabled")
		return nil
	case r.p.summarizer == nil:
		skip(rec, "no text generator configured")
		return nil
	case len(r.res.Communities) == 0:
		skip(rec, "no communities")
		return nil
	}

	communities, report, err := r.p.summarizer.Summarize(ctx, r.res.Communities, r.res.Entities, r.res.Relationships)
	if err != nil {
		return fmt.Errorf("failed to summarize communities: %w", err)
	}
	r.res.Communities = communities
	r.res.Reports.Summaries = report
	if len(r.res.Levels) > 0 {
		r.syncLevels()
	}
	return nil
}

// syncLevels copies summarized communities back into the hierarchy view.
func (r *run) syncLevels() {
	byID := make(map[string]common.Community, len(r.res.Communities))
	for _, c := range r.res.Communities {
		byID[c.ID] = c
	}
	for i := range r.res.Levels {
		for j, c := range r.res.Levels[i].Communities {
			if updated, ok := byID[c.ID]; ok {
				r.res.Levels[i].Communities[j] = updated
			}
		}
	}
}

func (r *run) analyze(ctx context.Context, rec *StageRecord, enabled bool) error {
	rec.Input = len(r.res.Entities)
	r.res.Highlights = []string{}

	if !enabled {
		skip(rec, "disabled")
		g := graph.Build(r.res.Entities, r.res.Relationships, graph.WeightOptions{
			OwnershipBoost: r.p.cfg.Community.OwnershipBoost,
			CitationBoost:  r.p.cfg.Community.CitationBoost,
		})
		r.res.Summary.Density = g.Density()
		return nil
	}

	bundle, err := r.p.analyzer.Analyze(ctx, r.res.Entities, r.res.Relationships, r.res.Communities)
	if err != nil {
		return fmt.Errorf("failed to compute analytics: %w", err)
	}
	r.res.Analytics = bundle
	r.res.Quality = bundle.Quality
	r.res.Highlights = bundle.Highlights()
	r.res.Summary.Density = bundle.Basic.Density
	rec.Output = len(r.res.Highlights)
	return nil
}

func (r *run) persist(ctx context.Context, rec *StageRecord, enabled bool) error {
	ws := store.WriteSet{
		RunID:         r.in.RunID,
		DocumentID:    r.in.DocumentID,
		Tags:          r.in.Tags,
		Entities:      r.res.Entities,
		Relationships: r.res.Relationships,
		Communities:   r.res.Communities,
		Memberships:   r.res.Memberships,
	}
	rec.Input = len(ws.Entities) + len(ws.Relationships) + len(ws.Communities) + len(ws.Memberships)

	switch {
	case !enabled:
		skip(rec, "disabled")
		return nil
	case r.p.storage == nil:
		skip(rec, "no storage configured")
		return nil
	}
	if err := ws.Validate(); err != nil {
		return &stageError{stage: StagePersist, err: fmt.Errorf("failed to validate write set: %w", err)}
	}

	cfg := r.p.cfg.Pipeline
	var receipt store.Receipt
	attempt := 0
	err := util.RetryErrWithContext(ctx, cfg.PersistRetries, cfg.PersistBackoff.Duration, func(ctx context.Context) error {
		attempt++
		saveCtx := ctx
		if cfg.PersistTimeout.Duration > 0 {
			var cancel context.CancelFunc
			saveCtx, cancel = context.WithTimeout(ctx, cfg.PersistTimeout.Duration)
			defer cancel()
		}
		var err error
		receipt, err = r.p.storage.SaveWriteSet(saveCtx, ws)
		if err != nil {
			logger.Warn("[Pipeline] Persist attempt failed", "run_id", r.in.RunID, "attempt", attempt, "err", err)
			if ctx.Err() == nil && saveCtx.Err() != nil {
				return fmt.Errorf("save timed out after %s: %v", cfg.PersistTimeout.Duration, err)
			}
		}
		return err
	})
	if err != nil {
		return &stageError{stage: StagePersist, err: fmt.Errorf("failed to persist graph: %w", err), retryable: true}
	}

	r.res.Receipt = &receipt
	rec.Output = receipt.Nodes + receipt.Edges + receipt.Communities + receipt.Memberships
	return nil
}
