package community

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/OFFIS-RIT/lexgraph/pkg/ai"
	"github.com/OFFIS-RIT/lexgraph/pkg/common"
	"github.com/OFFIS-RIT/lexgraph/pkg/config"
	"github.com/OFFIS-RIT/lexgraph/pkg/logger"
)

// summaryResponse is the structured answer expected from the generator.
type summaryResponse struct {
	Title   string `json:"title" jsonschema:"description=Short title naming what holds the community together"`
	Summary string `json:"summary" jsonschema:"description=Summary of at most 80 words"`
}

// Summarizer enriches communities with a generated title and summary.
type Summarizer struct {
	cfg       config.SummaryConfig
	generator ai.TextGenerator
}

// SummaryReport counts the outcome of a summarization pass.
type SummaryReport struct {
	Requested int      `json:"requested"`
	Generated int      `json:"generated"`
	Fallback  int      `json:"fallback"`
	Errors    []string `json:"errors,omitempty"`
}

func NewSummarizer(cfg config.SummaryConfig, generator ai.TextGenerator) *Summarizer {
	return &Summarizer{cfg: cfg, generator: generator}
}

// Summarize calls the generator at most once per community, with at most
// cfg.Concurrency calls in flight, each bounded by cfg.Timeout. A failed
// call keeps the heuristic description and marks the community as
// fallback. Communities are returned in their input order; the only error
// returned is ctx's.
func (s *Summarizer) Summarize(
	ctx context.Context,
	communities []common.Community,
	entities []common.CanonicalEntity,
	relationships []common.Relationship,
) ([]common.Community, SummaryReport, error) {
	out := slices.Clone(communities)
	report := SummaryReport{Requested: len(out)}
	if len(out) == 0 {
		return out, report, nil
	}

	schema, err := ai.GenerateSchema(&summaryResponse{})
	if err != nil {
		return nil, report, fmt.Errorf("failed to generate summary schema: %w", err)
	}
	schemaText, _ := json.MarshalIndent(schema, "", "  ")

	byID := make(map[string]*common.CanonicalEntity, len(entities))
	for i := range entities {
		byID[entities[i].ID] = &entities[i]
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.cfg.Concurrency, 1))
	for i := range out {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			prompt := s.prompt(out[i], byID, relationships, string(schemaText))
			title, summary, err := s.generate(gctx, prompt, schema)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Warn("[Summarize] Falling back to heuristic description", "community", out[i].ID, "err", err)
				out[i].SummaryStatus = common.SummaryFallback
				out[i].Summary = out[i].Description
				report.Fallback++
				report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", out[i].ID, err))
				return nil
			}
			out[i].Title = title
			out[i].Summary = summary
			out[i].SummaryStatus = common.SummaryGenerated
			report.Generated++
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, report, err
	}
	slices.Sort(report.Errors)

	logger.Info("[Summarize] Summarized communities", "requested", report.Requested, "generated", report.Generated, "fallback", report.Fallback)
	return out, report, nil
}

func (s *Summarizer) generate(ctx context.Context, prompt string, schema map[string]any) (string, string, error) {
	timeout := s.cfg.Timeout.Duration
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := []ai.GenerateOption{
		ai.WithSystemPrompts(ai.CommunitySummarySystemPrompt),
		ai.WithTemperature(s.cfg.Temperature),
		ai.WithSchema("community_summary", schema),
	}
	if s.cfg.Model != "" {
		opts = append(opts, ai.WithModel(s.cfg.Model))
	}
	text, err := s.generator.GenerateCompletion(callCtx, prompt, opts...)
	if err != nil {
		return "", "", err
	}

	var resp summaryResponse
	if err := ai.UnmarshalFlexible(text, &resp); err != nil {
		return "", "", err
	}
	resp.Title = strings.TrimSpace(resp.Title)
	resp.Summary = strings.TrimSpace(resp.Summary)
	if resp.Summary == "" {
		return "", "", ai.ErrEmptyResponse
	}
	return resp.Title, resp.Summary, nil
}

// prompt renders the summary request for c. The member and relationship
// listings are cut to the configured token budget.
func (s *Summarizer) prompt(
	c common.Community,
	byID map[string]*common.CanonicalEntity,
	relationships []common.Relationship,
	schema string,
) string {
	members := make(map[string]struct{}, len(c.Members))
	var lines []string
	for _, id := range c.Members {
		members[id] = struct{}{}
		if e, ok := byID[id]; ok {
			lines = append(lines, fmt.Sprintf("- %s (%s)", e.Text, e.Type))
		}
	}
	var rels []string
	for _, r := range relationships {
		_, okS := members[r.SourceID]
		_, okT := members[r.TargetID]
		if !okS || !okT {
			continue
		}
		source, target := r.SourceText, r.TargetText
		if e, ok := byID[r.SourceID]; ok && source == "" {
			source = e.Text
		}
		if e, ok := byID[r.TargetID]; ok && target == "" {
			target = e.Text
		}
		rels = append(rels, fmt.Sprintf("- %s -[%s]-> %s", source, r.Type, target))
	}

	memberText := s.budget(strings.Join(lines, "\n"), s.cfg.MaxPromptTokens/2)
	relText := s.budget(strings.Join(rels, "\n"), s.cfg.MaxPromptTokens/2)
	return fmt.Sprintf(ai.CommunitySummaryPrompt, c.Classification, c.Size(), c.Description, memberText, relText, schema)
}

func (s *Summarizer) budget(text string, tokens int) string {
	if tokens <= 0 {
		return text
	}
	cut, err := ai.TruncateToTokens(text, tokens)
	if err != nil {
		// Rough fallback of four characters per token.
		if limit := tokens * 4; len(text) > limit {
			return strings.ToValidUTF8(text[:limit], "")
		}
		return text
	}
	return cut
}
