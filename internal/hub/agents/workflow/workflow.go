// Package workflow researches products and tools on the web: it finds comparison
// articles, extracts the tools they mention, profiles each one from its official
// site and asks the model for a recommendation.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/fialabdata/agenthub/internal/hub/agent"
	"github.com/fialabdata/agenthub/internal/hub/backends/firecrawl"
	"github.com/fialabdata/agenthub/internal/hub/backends/llm"
	"github.com/fialabdata/agenthub/internal/hub/config"
	"github.com/fialabdata/agenthub/internal/hub/orchestrator"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const Type agent.Type = "workflow"

const (
	maxExtracted      = 5
	analysisChars     = 2500
	unknownPricing    = "Desconhecido"
	failedDescription = "Análise falhou"
	noRecommendation  = "Não foi possível gerar recomendações no momento."
)

// Scraper is the part of the Firecrawl client the agent uses.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*firecrawl.Document, error)
	Search(ctx context.Context, query string, limit int, scrape bool) ([]firecrawl.Document, error)
}

type Agent struct {
	cfg     config.WorkflowConfig
	llm     llm.Client
	scraper Scraper
	policy  orchestrator.Policy
	handler agent.Agent
}

func New(cfg config.WorkflowConfig, client llm.Client, scraper Scraper) *Agent {
	a := &Agent{
		cfg:     cfg,
		llm:     client,
		scraper: scraper,
		policy:  orchestrator.NewPolicy(cfg.Timeout.Duration),
	}
	a.handler = agent.Bind(Type, a.research)
	return a
}

func (a *Agent) Handle(ctx context.Context, req agent.Request) agent.Result {
	return a.handler.Handle(ctx, req)
}

// fatal reports whether err ends the whole workflow. Other step failures degrade
// the research instead.
func fatal(err error) bool {
	return errors.Is(err, agent.ErrTimeout) || errors.Is(err, agent.ErrCanceled)
}

func (a *Agent) research(ctx context.Context, req agent.Request) (*agent.Reply, error) {
	ctx, cancel := a.policy.Bound(ctx)
	defer cancel()
	query := strings.TrimSpace(req.Message)

	names, err := a.extractTools(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		if names, err = a.searchTools(ctx, query); err != nil {
			return nil, err
		}
	}
	if len(names) > a.cfg.MaxTools {
		names = names[:a.cfg.MaxTools]
	}
	log.Ctx(ctx).Info().Strs("tools", names).Msg("researching tools")

	var tools []agent.ToolProfile
	for _, name := range names {
		p, err := a.profile(ctx, name)
		if err != nil {
			return nil, err
		}
		if p != nil {
			tools = append(tools, *p)
		}
	}

	recommendation, err := a.recommend(ctx, query, tools)
	if err != nil {
		return nil, err
	}
	r := &agent.Research{Query: query, Tools: tools, Recommendation: recommendation}
	return &agent.Reply{Text: format(r), Payload: r}, nil
}

func (a *Agent) search(ctx context.Context, query string, limit int) ([]firecrawl.Document, error) {
	return orchestrator.Do(ctx, a.policy, "firecrawl", func(ctx context.Context) ([]firecrawl.Document, error) {
		return a.scraper.Search(ctx, query, limit, false)
	})
}

func (a *Agent) scrape(ctx context.Context, url string) (*firecrawl.Document, error) {
	return orchestrator.Do(ctx, a.policy, "firecrawl", func(ctx context.Context) (*firecrawl.Document, error) {
		return a.scraper.Scrape(ctx, url)
	})
}

func (a *Agent) chat(ctx context.Context, req llm.ChatRequest) (string, error) {
	req.Model = a.cfg.Model
	req.Temperature = llm.Temperature(0.1)
	rsp, err := orchestrator.Do(ctx, a.policy, "openai", func(ctx context.Context) (*llm.ChatResponse, error) {
		return a.llm.Chat(ctx, req)
	})
	if err != nil {
		return "", err
	}
	return rsp.Content, nil
}

// extractTools reads comparison articles about query and asks the model for the
// tools they mention.
func (a *Agent) extractTools(ctx context.Context, query string) ([]string, error) {
	logger := log.Ctx(ctx)
	articles, err := a.search(ctx, query+" comparação de melhores alternativas", a.cfg.ArticleResults)
	if fatal(err) {
		return nil, err
	}
	if err != nil {
		logger.Warn().Err(err).Msg("article search failed")
	}

	var content strings.Builder
	for _, art := range articles {
		if art.URL == "" {
			continue
		}
		doc, err := a.scrape(ctx, art.URL)
		if fatal(err) {
			return nil, err
		}
		if err != nil {
			logger.Warn().Err(err).Str("url", art.URL).Msg("article scrape failed")
			continue
		}
		content.WriteString(truncate(doc.Markdown, a.cfg.ScrapeChars))
		content.WriteString("\n\n")
	}

	reply, err := a.chat(ctx, llm.ChatRequest{Messages: []llm.Message{
		llm.System(extractionSystem),
		llm.User(extractionUser(query, content.String())),
	}})
	if fatal(err) {
		return nil, err
	}
	if err != nil {
		logger.Warn().Err(err).Msg("tool extraction failed")
		return nil, nil
	}
	return toolNames(reply), nil
}

// searchTools names tools after the titles of a direct search, for when no tool
// could be extracted from articles.
func (a *Agent) searchTools(ctx context.Context, query string) ([]string, error) {
	hits, err := a.search(ctx, query, a.cfg.MaxTools)
	if fatal(err) {
		return nil, err
	}
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("direct search failed")
		return nil, nil
	}
	names := make([]string, 0, len(hits))
	for _, h := range hits {
		name := strings.TrimSpace(h.Title)
		if name == "" {
			name = "Unknown"
		}
		names = append(names, name)
	}
	return names, nil
}

// toolNames parses one name per line, dropping list markers.
func toolNames(reply string) []string {
	var names []string
	for _, line := range strings.Split(reply, "\n") {
		name := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*•0123456789.) "))
		name = strings.Trim(name, "*")
		if name == "" {
			continue
		}
		names = append(names, name)
		if len(names) == maxExtracted {
			break
		}
	}
	return names
}

// profile finds the official site of the tool and analyzes it. It returns nil
// when the tool has no site.
func (a *Agent) profile(ctx context.Context, name string) (*agent.ToolProfile, error) {
	logger := log.Ctx(ctx).With().Str("tool", name).Logger()
	hits, err := a.search(ctx, name+" site oficial", 1)
	if fatal(err) {
		return nil, err
	}
	if err != nil || len(hits) == 0 {
		logger.Warn().Err(err).Msg("official site not found")
		return nil, nil
	}
	p := &agent.ToolProfile{Name: name, WebsiteURL: hits[0].URL, Description: hits[0].Description}

	doc, err := a.scrape(ctx, p.WebsiteURL)
	if fatal(err) {
		return nil, err
	}
	if err != nil {
		logger.Warn().Err(err).Msg("official site scrape failed")
		return p, nil
	}
	reply, err := a.chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			llm.System(analysisSystem),
			llm.User(analysisUser(name, truncate(doc.Markdown, analysisChars))),
		},
		JSONResponse: true,
	})
	if fatal(err) {
		return nil, err
	}
	if err != nil || !gjson.Valid(reply) {
		logger.Warn().Err(err).Msg("tool analysis failed")
		p.PricingModel = unknownPricing
		p.Description = failedDescription
		return p, nil
	}
	applyAnalysis(p, gjson.Parse(reply))
	return p, nil
}

func applyAnalysis(p *agent.ToolProfile, r gjson.Result) {
	p.PricingModel = r.Get("pricing_model").String()
	if p.PricingModel == "" {
		p.PricingModel = unknownPricing
	}
	if d := r.Get("description").String(); d != "" {
		p.Description = d
	}
	if v := r.Get("is_open_source"); v.IsBool() {
		p.IsOpenSource = agent.Ptr(v.Bool())
	}
	if v := r.Get("api_available"); v.IsBool() {
		p.APIAvailable = agent.Ptr(v.Bool())
	}
	p.TechStack = stringList(r.Get("tech_stack"))
	p.LanguageSupport = stringList(r.Get("language_support"))
	p.IntegrationCapabilities = stringList(r.Get("integration_capabilities"))
}

func stringList(r gjson.Result) []string {
	out := []string{}
	for _, v := range r.Array() {
		if s := strings.TrimSpace(v.String()); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (a *Agent) recommend(ctx context.Context, query string, tools []agent.ToolProfile) (string, error) {
	data, err := json.Marshal(tools)
	if err != nil {
		return "", agent.ErrAgent.MsgErr("failed to encode tool profiles", err)
	}
	reply, err := a.chat(ctx, llm.ChatRequest{Messages: []llm.Message{
		llm.System(recommendationSystem),
		llm.User(recommendationUser(query, string(data))),
	}})
	switch {
	case err == nil:
		return reply, nil
	case fatal(err) || len(tools) == 0:
		return "", err
	default:
		log.Ctx(ctx).Warn().Err(err).Msg("recommendation failed")
		return noRecommendation, nil
	}
}

func format(r *agent.Research) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 **Resultados para: %s**\n", r.Query)
	if len(r.Tools) > 0 {
		b.WriteString("\n🏢 **Empresas/Ferramentas Encontradas:**\n")
		for i, t := range r.Tools {
			lines := []string{
				fmt.Sprintf("**%d. %s**", i+1, t.Name),
				"🌐 Website: " + t.WebsiteURL,
				"💰 Preços: " + orNA(t.PricingModel),
				"📖 Open Source: " + yesNo(t.IsOpenSource, "Sim", "Não"),
			}
			if len(t.TechStack) > 0 {
				lines = append(lines, "🛠️ Tecnologias: "+strings.Join(first(t.TechStack, 3), ", "))
			}
			if len(t.LanguageSupport) > 0 {
				lines = append(lines, "💻 Linguagens: "+strings.Join(first(t.LanguageSupport, 3), ", "))
			}
			if t.APIAvailable != nil {
				lines = append(lines, "🔌 API: "+yesNo(t.APIAvailable, "✅ Disponível", "❌ Não disponível"))
			}
			if t.Description != "" && t.Description != failedDescription {
				lines = append(lines, "📝 Descrição: "+t.Description)
			}
			b.WriteString("\n" + strings.Join(lines, "\n") + "\n")
		}
	}
	if r.Recommendation != "" {
		fmt.Fprintf(&b, "\n💡 **Recomendações:**\n%s", r.Recommendation)
	}
	return b.String()
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func yesNo(v *bool, yes, no string) string {
	switch {
	case v == nil:
		return "N/A"
	case *v:
		return yes
	default:
		return no
	}
}

func first(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n])
}
