package community

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OFFIS-RIT/lexgraph/pkg/ai"
	"github.com/OFFIS-RIT/lexgraph/pkg/common"
	"github.com/OFFIS-RIT/lexgraph/pkg/config"
)

type fakeGenerator struct {
	mu       sync.Mutex
	prompts  []string
	inFlight atomic.Int32
	peak     atomic.Int32
	respond  func(prompt string) (string, error)
	delay    time.Duration
}

func (f *fakeGenerator) GenerateCompletion(ctx context.Context, prompt string, _ ...ai.GenerateOption) (string, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.peak.Load()
		if n <= peak || f.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.respond(prompt)
}

func summaryFixture(n int) ([]common.Community, []common.CanonicalEntity) {
	entities := makeEntities("Party", 3*n, common.EntityParty)
	communities := make([]common.Community, n)
	for i := range communities {
		members := []string{entities[3*i].ID, entities[3*i+1].ID, entities[3*i+2].ID}
		communities[i] = common.Community{
			ID:             common.CommunityID(1, members),
			Members:        members,
			Classification: ClassLegalParties,
			Description:    "legal parties community of 3 entities",
		}
	}
	return communities, entities
}

func summaryConfig() config.SummaryConfig {
	cfg := config.Default().Summary
	cfg.Concurrency = 2
	cfg.Timeout = config.Duration{Duration: time.Second}
	return cfg
}

func TestSummarizeGeneratesTitles(t *testing.T) {
	communities, entities := summaryFixture(5)
	gen := &fakeGenerator{
		delay: 5 * time.Millisecond,
		respond: func(string) (string, error) {
			return "```json\n{\"title\": \"Acme dispute\", \"summary\": \"Parties to the dispute.\"}\n```", nil
		},
	}

	out, report, err := NewSummarizer(summaryConfig(), gen).Summarize(context.Background(), communities, entities, nil)
	require.NoError(t, err)

	require.Len(t, out, 5)
	for i, c := range out {
		assert.Equal(t, communities[i].ID, c.ID)
		assert.Equal(t, "Acme dispute", c.Title)
		assert.Equal(t, "Parties to the dispute.", c.Summary)
		assert.Equal(t, common.SummaryGenerated, c.SummaryStatus)
		assert.Equal(t, communities[i].Description, c.Description)
	}
	assert.Equal(t, 5, report.Generated)
	assert.Len(t, gen.prompts, 5)
	assert.LessOrEqual(t, gen.peak.Load(), int32(2))

	for _, c := range communities {
		assert.Empty(t, c.SummaryStatus, "input must not be modified")
	}
}

func TestSummarizeFallsBackOnFailure(t *testing.T) {
	communities, entities := summaryFixture(3)
	failing := entities[0].Text
	gen := &fakeGenerator{
		respond: func(prompt string) (string, error) {
			if strings.Contains(prompt, failing) {
				return "", errors.New("model unavailable")
			}
			return "not json at all", nil
		},
	}

	out, report, err := NewSummarizer(summaryConfig(), gen).Summarize(context.Background(), communities, entities, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Fallback)
	assert.Zero(t, report.Generated)
	assert.Len(t, report.Errors, 3)
	for _, c := range out {
		assert.Equal(t, common.SummaryFallback, c.SummaryStatus)
		assert.Equal(t, c.Description, c.Summary)
	}
}

func TestSummarizeTimeout(t *testing.T) {
	communities, entities := summaryFixture(1)
	gen := &fakeGenerator{
		delay:   time.Second,
		respond: func(string) (string, error) { return `{"title":"t","summary":"s"}`, nil },
	}
	cfg := summaryConfig()
	cfg.Timeout = config.Duration{Duration: 10 * time.Millisecond}

	out, report, err := NewSummarizer(cfg, gen).Summarize(context.Background(), communities, entities, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Fallback)
	assert.Equal(t, common.SummaryFallback, out[0].SummaryStatus)
}

func TestSummarizePromptListsMembersAndRelationships(t *testing.T) {
	communities, entities := summaryFixture(1)
	rels := []common.Relationship{{
		SourceID: entities[0].ID, TargetID: entities[1].ID, Type: common.RelSued, Confidence: 0.8,
	}}
	gen := &fakeGenerator{respond: func(string) (string, error) { return `{"title":"t","summary":"s"}`, nil }}

	_, _, err := NewSummarizer(summaryConfig(), gen).Summarize(context.Background(), communities, entities, rels)
	require.NoError(t, err)

	require.Len(t, gen.prompts, 1)
	prompt := gen.prompts[0]
	assert.Contains(t, prompt, "- Party 00 (PARTY)")
	assert.Contains(t, prompt, "Party 00 -[SUED]-> Party 01")
	assert.Contains(t, prompt, `"summary"`)
}

func TestSummarizeEmpty(t *testing.T) {
	gen := &fakeGenerator{respond: func(string) (string, error) { return "", nil }}
	out, report, err := NewSummarizer(summaryConfig(), gen).Summarize(context.Background(), nil, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Zero(t, report.Requested)
}
