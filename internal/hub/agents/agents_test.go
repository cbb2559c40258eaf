package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fialabdata/agenthub/internal/hub/agent"
	"github.com/fialabdata/agenthub/internal/hub/agents/externo"
	"github.com/fialabdata/agenthub/internal/hub/agents/rag"
	"github.com/fialabdata/agenthub/internal/hub/config"
	"github.com/fialabdata/agenthub/internal/hub/dispatcher"
	"github.com/fialabdata/agenthub/internal/hub/memory"
)

func TestCatalog(t *testing.T) {
	descs, err := Catalog()
	require.NoError(t, err)

	var types []agent.Type
	for _, d := range descs {
		types = append(types, d.Type)
		assert.NotEmpty(t, d.Name)
		assert.NotEmpty(t, d.Description)
		assert.NotEmpty(t, d.Features)
		assert.NotEmpty(t, d.RequiredCredentials)
	}
	assert.Equal(t, []agent.Type{"mcp", "workflow", "rag", "externo", "mermaid", "imagem"}, types)
}

func TestParseCatalogErrors(t *testing.T) {
	_, err := parseCatalog([]byte("agents:\n  - type: x\n    nme: typo\n"))
	assert.Error(t, err)

	_, err = parseCatalog([]byte("agents:\n  - type: x\n"))
	assert.ErrorIs(t, err, agent.ErrInvalidInput)
}

func TestBuild(t *testing.T) {
	creds := config.Credentials{config.OpenAIAPIKey: "sk-test"}
	d, err := Build(config.Default(), creds, memory.NewStore(10), "1.3.0")
	require.NoError(t, err)

	avail := map[agent.Type]bool{}
	for _, info := range d.ListAgents() {
		avail[info.Type] = info.Available
	}
	assert.Equal(t, map[agent.Type]bool{
		"mcp":      false,
		"workflow": false,
		"rag":      false,
		"externo":  false,
		"mermaid":  true,
		"imagem":   true,
	}, avail)
	assert.Equal(t, dispatcher.Degraded, d.Health().Overall)

	res := d.Dispatch(context.Background(), "rag", "hello", "", nil)
	assert.Equal(t, agent.CodeAgentUnavailable, res.ErrorCode)
	assert.Contains(t, res.Error, "PINECONE_API_KEY")
}

func TestBuildAllAvailable(t *testing.T) {
	creds := config.Credentials{
		config.OpenAIAPIKey:    "sk-test",
		config.FirecrawlAPIKey: "fc-test",
		config.PineconeAPIKey:  "pc-test",
		config.ExternoAgentURL: "http://flowise.local/api/v1/prediction/abc",
	}
	d, err := Build(config.Default(), creds, memory.NewStore(10), "1.3.0")
	require.NoError(t, err)
	assert.Equal(t, dispatcher.Healthy, d.Health().Overall)

	a, err := d.Lookup(externo.Type)
	require.NoError(t, err)
	require.IsType(t, &externo.Agent{}, a)

	a, err = d.Lookup(rag.Type)
	require.NoError(t, err)
	require.IsType(t, &rag.Agent{}, a)
}
