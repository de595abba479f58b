package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oai "github.com/OFFIS-RIT/lexgraph/pkg/ai/ollama"
	gai "github.com/OFFIS-RIT/lexgraph/pkg/ai/openai"
	"github.com/OFFIS-RIT/lexgraph/pkg/config"
)

func TestNew(t *testing.T) {
	t.Setenv("AI_CHAT_URL", "http://localhost:11434")
	t.Setenv("AI_CHAT_KEY", "key")

	g, err := New(config.SummaryConfig{Adapter: "none"})
	require.NoError(t, err)
	assert.Nil(t, g)

	g, err = New(config.SummaryConfig{Adapter: "openai", Model: "gpt-4o-mini"})
	require.NoError(t, err)
	assert.IsType(t, &gai.Client{}, g)

	g, err = New(config.SummaryConfig{Adapter: "ollama", Model: "llama3", Concurrency: 2})
	require.NoError(t, err)
	assert.IsType(t, &oai.Client{}, g)

	_, err = New(config.SummaryConfig{Adapter: "bard"})
	assert.Error(t, err)
}
