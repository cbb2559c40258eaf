// Package vision classifies images referenced by URL with a vision model and
// returns a structured marketing and design analysis.
package vision

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/h2non/filetype"
	"github.com/rs/zerolog/log"

	"github.com/fialabdata/agenthub/internal/common/httpclient"
	"github.com/fialabdata/agenthub/internal/hub/agent"
	"github.com/fialabdata/agenthub/internal/hub/backends/llm"
	"github.com/fialabdata/agenthub/internal/hub/config"
	"github.com/fialabdata/agenthub/internal/hub/orchestrator"
)

const Type agent.Type = "imagem"

// Analysis types. Complete is accepted as a synonym of full.
const (
	AnalysisFull      = "full"
	AnalysisComplete  = "complete"
	AnalysisObjects   = "objects"
	AnalysisColors    = "colors"
	AnalysisMarketing = "marketing"
)

const maxTokens = 4000

var (
	ErrNoImageURL = agent.ErrInvalidInput.New("Por favor, forneça uma URL válida de imagem para análise. " +
		"Exemplo: 'Analise esta imagem: https://exemplo.com/imagem.jpg'")
	ErrNotAnImage = agent.ErrInvalidInput.New("URL não contém imagem válida")
)

var (
	urlPattern     = regexp.MustCompile(`https?://[^\s<>"'` + "`" + `]+`)
	objectsWords   = regexp.MustCompile(`(?i)\bobjetos?\b`)
	colorsWords    = regexp.MustCompile(`(?i)\bcor(es)?\b`)
	marketingWords = regexp.MustCompile(`(?i)\bmarketing\b`)
)

const basePrompt = `Você é um especialista em análise visual, design e marketing digital. Analise esta imagem em detalhes e forneça insights profissionais.

Sua análise deve incluir:
1. DESCRIÇÃO GERAL: o que você vê, o contexto, o ambiente e a situação.
2. OBJETOS DETECTADOS: nome, nível de confiança (0-1), descrição detalhada e posição aproximada de cada objeto principal.
3. ANÁLISE DE CORES: cores dominantes (códigos hex aproximados), tipo de harmonia, humor transmitido e acessibilidade.
4. INSIGHTS DE MARKETING: público-alvo, posicionamento de marca, apelo emocional, call-to-action e canais de marketing.
5. MENSAGEM PRINCIPAL que a imagem transmite.
6. ANÁLISE DE COMPOSIÇÃO: regra dos terços, simetria, enquadramento, iluminação, contraste e profundidade.
7. SUGESTÕES DE MELHORIA: pelo menos 3 sugestões concretas.
8. SCORE DE CONFIANÇA: um score geral (0-1) da sua confiança na análise.

IMPORTANTE: Responda APENAS com um JSON válido seguindo exatamente a estrutura abaixo.`

var focusPrompts = map[string]string{
	AnalysisObjects: "Foque especificamente na detecção e análise de objetos nesta imagem. " +
		"Identifique todos os elementos visuais relevantes e forneça informações detalhadas sobre cada um.",
	AnalysisColors: "Concentre-se na análise de cores desta imagem. " +
		"Forneça uma análise detalhada da paleta de cores, harmonia e impacto psicológico.",
	AnalysisMarketing: "Analise esta imagem do ponto de vista de marketing e comunicação visual. " +
		"Foque em insights estratégicos, público-alvo e oportunidades de marketing.",
}

// Options select the focus of the analysis. When unset the focus is inferred
// from the message.
type Options struct {
	AnalysisType string `json:"analysis_type" validate:"omitempty,oneof=full complete objects colors marketing"`
}

type Agent struct {
	cfg     config.ImageConfig
	llm     llm.Client
	http    *http.Client
	policy  orchestrator.Policy
	handler agent.Agent
}

// New creates the agent. hc downloads the images; nil selects a client bounded
// by the configured download timeout.
func New(cfg config.ImageConfig, client llm.Client, hc *http.Client) *Agent {
	if hc == nil {
		hc = &http.Client{Timeout: cfg.DownloadTimeout.Duration}
	}
	a := &Agent{
		cfg:    cfg,
		llm:    client,
		http:   hc,
		policy: orchestrator.NewPolicy(cfg.Timeout.Duration),
	}
	a.handler = agent.Bind(Type, a.classify)
	return a
}

func (a *Agent) Handle(ctx context.Context, req agent.Request) agent.Result {
	return a.handler.Handle(ctx, req)
}

func (a *Agent) classify(ctx context.Context, req agent.Request) (*agent.Reply, error) {
	var opts Options
	if err := agent.DecodeOptions(req.Options, &opts); err != nil {
		return nil, err
	}
	imageURL := FindImageURL(req.Message)
	if imageURL == "" {
		return nil, ErrNoImageURL
	}
	analysisType := opts.AnalysisType
	if analysisType == "" {
		analysisType = InferAnalysisType(req.Message)
	}
	if analysisType == AnalysisComplete {
		analysisType = AnalysisFull
	}

	ctx, cancel := a.policy.Bound(ctx)
	defer cancel()

	dataURL, err := orchestrator.Do(ctx, a.policy, "image-download", func(ctx context.Context) (string, error) {
		return a.download(ctx, imageURL)
	})
	if err != nil {
		return nil, err
	}

	rsp, err := orchestrator.Do(ctx, a.policy, "openai", func(ctx context.Context) (*llm.ChatResponse, error) {
		return a.llm.Chat(ctx, llm.ChatRequest{
			Model: a.cfg.Model,
			Messages: []llm.Message{{
				Role:    llm.RoleUser,
				Content: buildPrompt(analysisType, req.Message),
				Images:  []string{dataURL},
			}},
			Temperature:  llm.Temperature(0.1),
			MaxTokens:    maxTokens,
			JSONResponse: true,
		})
	})
	if err != nil {
		return nil, err
	}

	analysis, structured := parseAnalysis(rsp.Content)
	if !structured {
		log.Ctx(ctx).Warn().Str("image_url", imageURL).Msg("vision reply is not a valid analysis, returning it unstructured")
	}
	c := &agent.Classification{ImageURL: imageURL, AnalysisType: analysisType, Analysis: analysis}
	return &agent.Reply{Text: format(c), Payload: c}, nil
}

// download fetches the image and returns it as a data URL. The reported content
// type must be an image and the bytes must sniff as one.
func (a *Agent) download(ctx context.Context, url string) (string, error) {
	data, contentType, err := httpclient.Download(ctx, a.http, url, a.cfg.MaxImageBytes)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		return "", ErrNotAnImage.New(fmt.Sprintf("URL não contém imagem válida. Content-Type: %s", contentType))
	}
	kind, err := filetype.Match(data)
	if err != nil || !filetype.IsImage(data) {
		return "", ErrNotAnImage.New("o conteúdo baixado não é uma imagem reconhecida")
	}
	return "data:" + kind.MIME.Value + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// FindImageURL returns the first http(s) URL in msg, without trailing
// punctuation.
func FindImageURL(msg string) string {
	return strings.TrimRight(urlPattern.FindString(msg), ".,;:!?)]}")
}

// InferAnalysisType picks the focus from keywords in msg.
func InferAnalysisType(msg string) string {
	switch {
	case objectsWords.MatchString(msg):
		return AnalysisObjects
	case colorsWords.MatchString(msg):
		return AnalysisColors
	case marketingWords.MatchString(msg):
		return AnalysisMarketing
	default:
		return AnalysisFull
	}
}

func buildPrompt(analysisType, message string) string {
	var b strings.Builder
	b.WriteString(basePrompt)
	if focus, ok := focusPrompts[analysisType]; ok {
		b.WriteString("\n\n")
		b.WriteString(focus)
	}
	b.WriteString("\n\nPROMPT ADICIONAL: ")
	b.WriteString(message)
	b.WriteString("\n\nESTRUTURA JSON ESPERADA:\n")
	b.WriteString(replyShape)
	return b.String()
}

func format(c *agent.Classification) string {
	r := c.Analysis
	var b strings.Builder
	fmt.Fprintf(&b, "🖼️ **Análise de Imagem Completa**\n\n📸 **URL:** %s\n\n", c.ImageURL)
	fmt.Fprintf(&b, "📝 **Descrição Geral:**\n%s\n\n", r.GeneralDescription)
	fmt.Fprintf(&b, "🎯 **Mensagem Principal:**\n%s\n\n", r.KeyMessage)
	fmt.Fprintf(&b, "🔍 **Objetos Detectados (%d):**", len(r.ObjectsDetected))
	for i, o := range r.ObjectsDetected {
		fmt.Fprintf(&b, "\n%d. **%s** (Confiança: %.0f%%)\n   - %s", i+1, o.Name, o.Confidence*100, o.Description)
		if o.Position != "" {
			fmt.Fprintf(&b, "\n   - Posição: %s", o.Position)
		}
	}
	fmt.Fprintf(&b, "\n\n🎨 **Paleta de Cores:**\n- **Cores Dominantes:** %s\n- **Harmonia:** %s\n- **Humor:** %s\n- **Acessibilidade:** %s\n\n",
		strings.Join(r.ColorPalette.DominantColors, ", "), r.ColorPalette.ColorHarmony, r.ColorPalette.Mood, r.ColorPalette.Accessibility)
	m := r.MarketingInsights
	fmt.Fprintf(&b, "📈 **Insights de Marketing:**\n- **Público-Alvo:** %s\n- **Posicionamento:** %s\n- **Apelo Emocional:** %s\n- **Call-to-Action:** %s\n- **Canais Recomendados:** %s\n\n",
		m.TargetAudience, m.BrandPositioning, m.EmotionalAppeal, m.CallToAction, strings.Join(m.MarketingChannels, ", "))
	fmt.Fprintf(&b, "🎨 **Análise de Composição:**\n%s\n\n💡 **Sugestões de Melhoria:**", r.CompositionAnalysis)
	for i, s := range r.ImprovementSuggestions {
		fmt.Fprintf(&b, "\n%d. %s", i+1, s)
	}
	fmt.Fprintf(&b, "\n\n📊 **Score de Confiança:** %.0f%%", r.ConfidenceScore*100)
	return b.String()
}
