// Package rag answers questions from a Pinecone knowledge base and ingests
// documents into it.
package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fialabdata/agenthub/internal/hub/agent"
	"github.com/fialabdata/agenthub/internal/hub/backends/firecrawl"
	"github.com/fialabdata/agenthub/internal/hub/backends/llm"
	"github.com/fialabdata/agenthub/internal/hub/backends/pinecone"
	"github.com/fialabdata/agenthub/internal/hub/config"
	"github.com/fialabdata/agenthub/internal/hub/orchestrator"
)

const Type agent.Type = "rag"

const (
	noMatchAnswer = "Não encontrei informações relevantes na base de conhecimento para responder sua pergunta. " +
		"Tente reformular ou adicionar mais contexto."
	sourcePreview   = 200
	metadataContent = 512
	upsertBatch     = 100
)

const systemPrompt = `Você é um assistente especializado em RAG (Retrieval-Augmented Generation).
Sua função é:
1. Analisar a pergunta do usuário
2. Usar os documentos fornecidos como contexto
3. Gerar respostas precisas e bem fundamentadas
4. Citar as fontes utilizadas

Diretrizes:
- Base suas respostas APENAS nos documentos fornecidos
- Se não tiver informação suficiente, seja honesto sobre isso
- Cite especificamente as fontes relevantes
- Mantenha respostas claras e objetivas
- Use formatação markdown quando apropriado

Sempre inclua uma seção "Fontes:" no final da resposta.`

// VectorIndex is the part of the Pinecone client the agent uses.
type VectorIndex interface {
	Upsert(ctx context.Context, vectors []pinecone.Vector, namespace string) (int, error)
	Query(ctx context.Context, vector []float64, topK int, namespace string) ([]pinecone.Match, error)
	Stats(ctx context.Context) (*pinecone.IndexStats, error)
}

// Scraper is the part of the Firecrawl client the agent uses.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*firecrawl.Document, error)
	Search(ctx context.Context, query string, limit int, scrape bool) ([]firecrawl.Document, error)
}

// Options tune retrieval per request.
type Options struct {
	TopK      int     `json:"top_k" validate:"min=1,max=20"`
	Threshold float64 `json:"threshold" validate:"min=0,max=1"`
}

type Agent struct {
	cfg     config.RAGConfig
	llm     llm.Client
	index   VectorIndex
	scraper Scraper // optional, needed for URL ingestion and source suggestions
	split   *Splitter
	policy  orchestrator.Policy
	handler agent.Agent
}

func New(cfg config.RAGConfig, client llm.Client, index VectorIndex, scraper Scraper) *Agent {
	a := &Agent{
		cfg:     cfg,
		llm:     client,
		index:   index,
		scraper: scraper,
		split:   NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		policy:  orchestrator.NewPolicy(cfg.Timeout.Duration),
	}
	a.handler = agent.Bind(Type, a.answer)
	return a
}

func (a *Agent) Handle(ctx context.Context, req agent.Request) agent.Result {
	return a.handler.Handle(ctx, req)
}

type document struct {
	id       string
	content  string
	score    float64
	metadata map[string]any
}

func (a *Agent) answer(ctx context.Context, req agent.Request) (*agent.Reply, error) {
	opts := Options{TopK: a.cfg.TopK, Threshold: a.cfg.Threshold}
	if err := agent.DecodeOptions(req.Options, &opts); err != nil {
		return nil, err
	}
	ctx, cancel := a.policy.Bound(ctx)
	defer cancel()

	docs, err := a.search(ctx, req.Message, opts)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return &agent.Reply{
			Text:    noMatchAnswer,
			Payload: &agent.Citations{Sources: []agent.Source{}, Confidence: agent.Ptr(0.0)},
		}, nil
	}

	messages := []llm.Message{llm.System(systemPrompt)}
	messages = append(messages, llm.FromHistory(req.History)...)
	messages = append(messages, llm.User(fmt.Sprintf("Contexto dos documentos:\n%s\n\nPergunta do usuário: %s\n\n"+
		"Por favor, responda baseando-se apenas nas informações fornecidas no contexto.", buildContext(docs), req.Message)))

	rsp, err := orchestrator.Do(ctx, a.policy, "openai", func(ctx context.Context) (*llm.ChatResponse, error) {
		return a.llm.Chat(ctx, llm.ChatRequest{
			Model:       a.cfg.Model,
			Messages:    messages,
			Temperature: llm.Temperature(0),
		})
	})
	if err != nil {
		return nil, err
	}

	sources := make([]agent.Source, 0, len(docs))
	for _, d := range docs {
		content := d.content
		if size(content) > sourcePreview {
			content = truncate(content, sourcePreview) + "..."
		}
		sources = append(sources, agent.Source{
			ID:       d.id,
			Content:  content,
			Score:    agent.Ptr(d.score),
			Metadata: d.metadata,
		})
	}
	return &agent.Reply{
		Text:    rsp.Content,
		Payload: &agent.Citations{Sources: sources, Confidence: agent.Ptr(confidence(docs))},
	}, nil
}

func (a *Agent) embed(ctx context.Context, text string) ([]float64, error) {
	return orchestrator.Do(ctx, a.policy, "openai", func(ctx context.Context) ([]float64, error) {
		return a.llm.Embed(ctx, a.cfg.EmbeddingModel, text)
	})
}

// search returns the matches scoring at least the threshold, best first.
func (a *Agent) search(ctx context.Context, query string, opts Options) ([]document, error) {
	vec, err := a.embed(ctx, query)
	if err != nil {
		return nil, err
	}
	matches, err := orchestrator.Do(ctx, a.policy, "pinecone", func(ctx context.Context) ([]pinecone.Match, error) {
		return a.index.Query(ctx, vec, opts.TopK, "")
	})
	if err != nil {
		return nil, err
	}
	var docs []document
	for _, m := range matches {
		if m.Score < opts.Threshold {
			continue
		}
		content, _ := m.Metadata["content"].(string)
		docs = append(docs, document{id: m.ID, content: content, score: m.Score, metadata: m.Metadata})
	}
	log.Ctx(ctx).Debug().Int("matches", len(matches)).Int("relevant", len(docs)).Msg("knowledge base searched")
	return docs, nil
}

func buildContext(docs []document) string {
	parts := make([]string, 0, len(docs))
	for i, d := range docs {
		parts = append(parts, fmt.Sprintf("--- Documento %d (Score: %.3f) ---\nFonte: %s\nConteúdo: %s\n",
			i+1, d.score, sourceName(d.metadata), d.content))
	}
	return strings.Join(parts, "\n\n")
}

func sourceName(md map[string]any) string {
	for _, k := range []string{"source_url", "source_id"} {
		if v, ok := md[k].(string); ok && v != "" {
			return v
		}
	}
	return "Desconhecido"
}

// confidence is the rank weighted mean of the scores: the best match weighs n,
// the last one 1. Matches without a score are ignored; with none left it is 0.5.
func confidence(docs []document) float64 {
	var scores []float64
	for _, d := range docs {
		if d.score != 0 {
			scores = append(scores, d.score)
		}
	}
	if len(docs) == 0 {
		return 0
	}
	if len(scores) == 0 {
		return 0.5
	}
	n := len(scores)
	var sum float64
	for i, s := range scores {
		sum += s * float64(n-i)
	}
	c := sum / float64(n*(n+1)/2)
	if c > 1 {
		return 1
	}
	return c
}

// KnowledgeRequest adds either a web page or a text to the knowledge base.
type KnowledgeRequest struct {
	URL      string `json:"url,omitempty" validate:"omitempty,url"`
	Text     string `json:"text,omitempty"`
	SourceID string `json:"source_id,omitempty"`
}

// IngestResult reports an ingestion.
type IngestResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Chunks  int    `json:"chunks"`
}

// Ingest splits the document into chunks, embeds them and stores them in the
// index. Chunk ids are "<source>#<index>", so ingesting a source again
// overwrites its chunks.
func (a *Agent) Ingest(ctx context.Context, kr KnowledgeRequest) (*IngestResult, error) {
	if err := agent.Validate(kr); err != nil {
		return nil, agent.ErrInvalidInput.MsgErr("invalid knowledge request", err)
	}
	ctx, cancel := a.policy.Bound(ctx)
	defer cancel()

	var text, source, sourceKey, stampKey string
	switch {
	case kr.URL != "":
		if a.scraper == nil {
			return nil, agent.ErrAgentUnavailable.New("URL ingestion requires FIRECRAWL_API_KEY")
		}
		doc, err := orchestrator.Do(ctx, a.policy, "firecrawl", func(ctx context.Context) (*firecrawl.Document, error) {
			return a.scraper.Scrape(ctx, kr.URL)
		})
		if err != nil {
			return nil, err
		}
		text, source, sourceKey, stampKey = doc.Markdown, kr.URL, "source_url", "scraped_at"
	case strings.TrimSpace(kr.Text) != "" && kr.SourceID != "":
		text, source, sourceKey, stampKey = kr.Text, kr.SourceID, "source_id", "added_at"
	default:
		return nil, agent.ErrInvalidInput.New("URL ou (texto + source_id) são obrigatórios")
	}

	chunks := a.split.Split(text)
	if len(chunks) == 0 {
		return nil, agent.ErrInvalidInput.New("document has no content")
	}
	stamp := time.Now().UTC().Format(time.RFC3339)
	vectors := make([]pinecone.Vector, 0, len(chunks))
	for i, c := range chunks {
		vec, err := a.embed(ctx, c)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, pinecone.Vector{
			ID:     fmt.Sprintf("%s#%d", source, i),
			Values: vec,
			Metadata: map[string]any{
				sourceKey:      source,
				"chunk_index":  i,
				"total_chunks": len(chunks),
				stampKey:       stamp,
				"content":      truncate(c, metadataContent),
			},
		})
	}
	for start := 0; start < len(vectors); start += upsertBatch {
		batch := vectors[start:min(start+upsertBatch, len(vectors))]
		if err := a.policy.Call(ctx, "pinecone", func(ctx context.Context) error {
			_, err := a.index.Upsert(ctx, batch, "")
			return err
		}); err != nil {
			return nil, err
		}
	}

	log.Ctx(ctx).Info().Str("source", source).Int("chunks", len(chunks)).Msg("knowledge ingested")
	msg := "Conhecimento adicionado do texto: "
	if kr.URL != "" {
		msg = "Conhecimento adicionado da URL: "
	}
	return &IngestResult{
		Status:  "success",
		Message: msg + source,
		Chunks:  len(chunks),
	}, nil
}

// IndexStatus describes the knowledge base. Status is "active" or "error".
type IndexStatus struct {
	Status        string  `json:"status"`
	TotalVectors  int64   `json:"total_vectors"`
	Dimension     int     `json:"dimension"`
	IndexFullness float64 `json:"index_fullness"`
	Namespaces    int     `json:"namespaces"`
	Error         string  `json:"error,omitempty"`
}

type AgentStatus struct {
	Status         string `json:"status"`
	Model          string `json:"model"`
	EmbeddingModel string `json:"embedding_model"`
}

type KnowledgeStats struct {
	Agent         AgentStatus `json:"rag_agent"`
	KnowledgeBase IndexStatus `json:"knowledge_base"`
	Capabilities  []string    `json:"capabilities"`
}

// Stats reports the agent settings and the index statistics. An index failure is
// reported inside the stats, not as an error.
func (a *Agent) Stats(ctx context.Context) *KnowledgeStats {
	out := &KnowledgeStats{
		Agent:        AgentStatus{Status: "active", Model: a.cfg.Model, EmbeddingModel: a.cfg.EmbeddingModel},
		Capabilities: []string{"Semantic search", "Document chunking", "Source citation", "Confidence scoring"},
	}
	st, err := orchestrator.Do(ctx, a.policy, "pinecone", func(ctx context.Context) (*pinecone.IndexStats, error) {
		return a.index.Stats(ctx)
	})
	if err != nil {
		out.KnowledgeBase = IndexStatus{Status: "error", Error: err.Error()}
		return out
	}
	out.KnowledgeBase = IndexStatus{
		Status:        "active",
		TotalVectors:  st.TotalVectors,
		Dimension:     st.Dimension,
		IndexFullness: st.IndexFullness,
		Namespaces:    len(st.Namespaces),
	}
	return out
}

// SuggestSources searches the web for documentation about domain and returns the
// URLs found.
func (a *Agent) SuggestSources(ctx context.Context, domain string) ([]string, error) {
	if strings.TrimSpace(domain) == "" {
		return nil, agent.ErrInvalidInput.New("domain must not be empty")
	}
	if a.scraper == nil {
		return nil, agent.ErrAgentUnavailable.New("source suggestions require FIRECRAWL_API_KEY")
	}
	docs, err := orchestrator.Do(ctx, a.policy, "firecrawl", func(ctx context.Context) ([]firecrawl.Document, error) {
		return a.scraper.Search(ctx, domain+" documentation tutorial guide", 4, false)
	})
	if err != nil {
		return nil, err
	}
	urls := []string{}
	for _, d := range docs {
		if d.URL != "" {
			urls = append(urls, d.URL)
		}
	}
	return urls, nil
}
