package workflow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fialabdata/agenthub/internal/hub/agent"
	"github.com/fialabdata/agenthub/internal/hub/backends/firecrawl"
	"github.com/fialabdata/agenthub/internal/hub/backends/llm"
	"github.com/fialabdata/agenthub/internal/hub/backends/llm/llmfake"
	"github.com/fialabdata/agenthub/internal/hub/config"
)

type fakeWeb struct {
	mu       sync.Mutex
	searches map[string][]firecrawl.Document
	pages    map[string]string
	limits   map[string]int
}

func (f *fakeWeb) Search(ctx context.Context, query string, limit int, scrape bool) ([]firecrawl.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.limits == nil {
		f.limits = map[string]int{}
	}
	f.limits[query] = limit
	return f.searches[query], nil
}

func (f *fakeWeb) Scrape(ctx context.Context, url string) (*firecrawl.Document, error) {
	page, ok := f.pages[url]
	if !ok {
		return nil, firecrawl.ErrNoContent.New("no content extracted from " + url)
	}
	return &firecrawl.Document{URL: url, Markdown: page}, nil
}

// chatBy answers by system prompt.
func chatBy(extraction, analysis, recommendation func() (string, error)) func(req llm.ChatRequest) (*llm.ChatResponse, error) {
	return func(req llm.ChatRequest) (*llm.ChatResponse, error) {
		fn := recommendation
		switch req.Messages[0].Content {
		case extractionSystem:
			fn = extraction
		case analysisSystem:
			fn = analysis
		}
		text, err := fn()
		if err != nil {
			return nil, err
		}
		return &llm.ChatResponse{Content: text}, nil
	}
}

func reply(s string) func() (string, error) {
	return func() (string, error) { return s, nil }
}

func failure() (string, error) {
	return "", errors.New("model exploded")
}

func newAgent(fake *llmfake.Fake, web *fakeWeb) *Agent {
	cfg := config.Default().Agents.Workflow
	cfg.Timeout = config.Duration{Duration: 2 * time.Second}
	a := New(cfg, fake, web)
	a.policy.Delay = time.Millisecond
	return a
}

const supabaseAnalysis = `{
  "pricing_model": "Freemium",
  "is_open_source": true,
  "tech_stack": ["Postgres", "Elixir", "Go", "Deno"],
  "description": "Alternativa open source ao Firebase",
  "api_available": true,
  "language_support": ["JavaScript", "Dart"],
  "integration_capabilities": ["Vercel"]
}`

func TestResearch(t *testing.T) {
	web := &fakeWeb{
		searches: map[string][]firecrawl.Document{
			"backend as a service comparação de melhores alternativas": {{URL: "https://blog.example/baas"}},
			"Supabase site oficial": {{URL: "https://supabase.com", Description: "The Postgres development platform"}},
		},
		pages: map[string]string{
			"https://blog.example/baas": "Supabase and Firebase are the leading " + strings.Repeat("x", 3000),
			"https://supabase.com":      "Build in a weekend",
		},
	}
	fake := &llmfake.Fake{ChatFunc: chatBy(
		reply("1. Supabase\n- Firebase\n"),
		reply(supabaseAnalysis),
		reply("Supabase é a melhor escolha."),
	)}
	a := newAgent(fake, web)

	res := a.Handle(context.Background(), agent.Request{Message: "backend as a service"})
	require.True(t, res.IsSuccess(), res.Error)

	r, ok := res.Payload.(*agent.Research)
	require.True(t, ok)
	assert.Equal(t, "backend as a service", r.Query)
	assert.Equal(t, "Supabase é a melhor escolha.", r.Recommendation)
	require.Len(t, r.Tools, 1)
	tool := r.Tools[0]
	assert.Equal(t, "Supabase", tool.Name)
	assert.Equal(t, "https://supabase.com", tool.WebsiteURL)
	assert.Equal(t, "Freemium", tool.PricingModel)
	assert.Equal(t, "Alternativa open source ao Firebase", tool.Description)
	require.NotNil(t, tool.IsOpenSource)
	assert.True(t, *tool.IsOpenSource)
	require.NotNil(t, tool.APIAvailable)
	assert.True(t, *tool.APIAvailable)
	assert.Equal(t, []string{"Vercel"}, tool.IntegrationCapabilities)

	assert.Equal(t, 3, web.limits["backend as a service comparação de melhores alternativas"])
	assert.Equal(t, 1, web.limits["Firebase site oficial"])

	extraction := fake.Requests[0].Messages[1].Content
	assert.Contains(t, extraction, "Supabase and Firebase are the leading")
	assert.NotContains(t, extraction, strings.Repeat("x", 1500))

	for _, want := range []string{
		"📋 **Resultados para: backend as a service**",
		"🏢 **Empresas/Ferramentas Encontradas:**",
		"**1. Supabase**",
		"🌐 Website: https://supabase.com",
		"💰 Preços: Freemium",
		"📖 Open Source: Sim",
		"🛠️ Tecnologias: Postgres, Elixir, Go\n",
		"💻 Linguagens: JavaScript, Dart",
		"🔌 API: ✅ Disponível",
		"📝 Descrição: Alternativa open source ao Firebase",
		"💡 **Recomendações:**\nSupabase é a melhor escolha.",
	} {
		assert.Contains(t, res.Response, want)
	}
	assert.NotContains(t, res.Response, "Deno")
}

func TestResearchFallsBackToSearch(t *testing.T) {
	web := &fakeWeb{searches: map[string][]firecrawl.Document{
		"editores de vídeo":     {{Title: "Kdenlive", URL: "https://kdenlive.org"}, {URL: "https://example.com"}},
		"Kdenlive site oficial": {{URL: "https://kdenlive.org"}},
	}}
	fake := &llmfake.Fake{ChatFunc: chatBy(reply(""), failure, reply("Use Kdenlive."))}
	a := newAgent(fake, web)

	res := a.Handle(context.Background(), agent.Request{Message: "editores de vídeo"})
	require.True(t, res.IsSuccess(), res.Error)

	r := res.Payload.(*agent.Research)
	require.Len(t, r.Tools, 1)
	assert.Equal(t, "Kdenlive", r.Tools[0].Name)
	// the site could not be scraped, so only the search data is known
	assert.Empty(t, r.Tools[0].PricingModel)
	assert.Nil(t, r.Tools[0].IsOpenSource)
	assert.Equal(t, 4, web.limits["editores de vídeo"])
	_, searched := web.limits["Unknown site oficial"]
	assert.True(t, searched)
	assert.Contains(t, res.Response, "💰 Preços: N/A")
	assert.Contains(t, res.Response, "📖 Open Source: N/A")
	assert.NotContains(t, res.Response, "🔌 API")
}

func TestResearchAnalysisFailure(t *testing.T) {
	web := &fakeWeb{
		searches: map[string][]firecrawl.Document{
			"Tool site oficial": {{URL: "https://tool.example"}},
		},
		pages: map[string]string{"https://tool.example": "landing page"},
	}
	fake := &llmfake.Fake{ChatFunc: chatBy(reply("Tool"), reply("not json"), failure)}
	a := newAgent(fake, web)

	res := a.Handle(context.Background(), agent.Request{Message: "tools"})
	require.True(t, res.IsSuccess(), res.Error)

	r := res.Payload.(*agent.Research)
	require.Len(t, r.Tools, 1)
	assert.Equal(t, unknownPricing, r.Tools[0].PricingModel)
	assert.Equal(t, failedDescription, r.Tools[0].Description)
	assert.Equal(t, noRecommendation, r.Recommendation)
	assert.Contains(t, res.Response, "💰 Preços: Desconhecido")
	assert.NotContains(t, res.Response, "📝 Descrição")
}

func TestResearchFailsWithoutResults(t *testing.T) {
	fake := &llmfake.Fake{ChatFunc: chatBy(failure, failure, failure)}
	a := newAgent(fake, &fakeWeb{})

	res := a.Handle(context.Background(), agent.Request{Message: "anything"})
	require.False(t, res.IsSuccess())
	assert.Equal(t, agent.CodeBackendError, res.ErrorCode)
	assert.Contains(t, res.Error, "model exploded")
}

func TestResearchCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fake := &llmfake.Fake{ChatFunc: func(req llm.ChatRequest) (*llm.ChatResponse, error) {
		cancel()
		return nil, context.Canceled
	}}
	a := newAgent(fake, &fakeWeb{})

	res := a.Handle(ctx, agent.Request{Message: "anything"})
	require.False(t, res.IsSuccess())
	assert.Equal(t, 1, fake.Calls())
}

func TestToolNames(t *testing.T) {
	got := toolNames("1. Amazon\n2) MercadoLivre\n- **Picpay**\n\n* Nubank\n• Microsoft\nGoogle")
	assert.Equal(t, []string{"Amazon", "MercadoLivre", "Picpay", "Nubank", "Microsoft"}, got)
	assert.Empty(t, toolNames("  \n "))
}
