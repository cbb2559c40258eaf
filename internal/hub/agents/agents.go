// Package agents builds the agent registry: it reads the embedded descriptor
// catalog, constructs the backend clients from the configuration and registers
// every agent variant with a dispatcher.
package agents

import (
	"bytes"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/fialabdata/agenthub/internal/hub/agent"
	"github.com/fialabdata/agenthub/internal/hub/agents/externo"
	"github.com/fialabdata/agenthub/internal/hub/agents/mcp"
	"github.com/fialabdata/agenthub/internal/hub/agents/mermaid"
	"github.com/fialabdata/agenthub/internal/hub/agents/rag"
	"github.com/fialabdata/agenthub/internal/hub/agents/vision"
	"github.com/fialabdata/agenthub/internal/hub/agents/workflow"
	"github.com/fialabdata/agenthub/internal/hub/backends/firecrawl"
	"github.com/fialabdata/agenthub/internal/hub/backends/flowise"
	"github.com/fialabdata/agenthub/internal/hub/backends/llm"
	"github.com/fialabdata/agenthub/internal/hub/backends/mcptools"
	"github.com/fialabdata/agenthub/internal/hub/backends/pinecone"
	"github.com/fialabdata/agenthub/internal/hub/config"
	"github.com/fialabdata/agenthub/internal/hub/dispatcher"
	"github.com/fialabdata/agenthub/internal/hub/memory"
)

//go:embed catalog.yaml
var catalogYAML []byte

type catalog struct {
	Agents []agent.Descriptor `yaml:"agents"`
}

// Catalog returns the descriptors of every agent variant, in registration order.
func Catalog() ([]agent.Descriptor, error) {
	return parseCatalog(catalogYAML)
}

func parseCatalog(data []byte) ([]agent.Descriptor, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var c catalog
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("parsing agent catalog: %w", err)
	}
	for _, d := range c.Agents {
		if err := d.Validate(); err != nil {
			return nil, err
		}
	}
	return c.Agents, nil
}

// Build returns a dispatcher with every agent of the catalog registered over
// store. Agents whose credentials are missing are still registered, as
// unavailable. No backend is contacted.
func Build(cfg *config.ConfigParam, creds config.Credentials, store *memory.Store, version string) (*dispatcher.Dispatcher, error) {
	descs, err := Catalog()
	if err != nil {
		return nil, err
	}
	impls := construct(cfg, creds, version)

	d := dispatcher.New(store, creds)
	for _, desc := range descs {
		a, ok := impls[desc.Type]
		if !ok {
			return nil, fmt.Errorf("no implementation for agent type %q", desc.Type)
		}
		if err := d.Register(desc, a); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func construct(cfg *config.ConfigParam, creds config.Credentials, version string) map[agent.Type]agent.Agent {
	ac := cfg.Agents
	openai := llm.NewOpenAI(creds.Get(config.OpenAIAPIKey), cfg.Backends.OpenAIBaseURL)
	fc := firecrawl.New(creds.Get(config.FirecrawlAPIKey), cfg.Backends.FirecrawlURL)
	index := pinecone.New(creds.Get(config.PineconeAPIKey), pinecone.Options{
		ControlURL: cfg.Backends.PineconeControlURL,
		IndexName:  ac.RAG.IndexName,
		IndexHost:  ac.RAG.IndexHost,
		Dimension:  ac.RAG.Dimension,
		Cloud:      ac.RAG.Cloud,
		Region:     ac.RAG.Region,
	})

	// ingestion by URL needs Firecrawl; answering does not
	var ragScraper rag.Scraper
	if creds.Has(config.FirecrawlAPIKey) {
		ragScraper = fc
	}

	launcher := mcptools.StdioLauncher{
		Command: ac.MCP.Command,
		Args:    ac.MCP.Args,
		Env:     map[string]string{config.FirecrawlAPIKey: creds.Get(config.FirecrawlAPIKey)},
		Version: version,
	}

	return map[agent.Type]agent.Agent{
		mcp.Type:      mcp.New(ac.MCP, openai, launcher),
		workflow.Type: workflow.New(ac.Workflow, openai, fc),
		rag.Type:      rag.New(ac.RAG, openai, index, ragScraper),
		externo.Type:  externo.New(ac.Externo, flowise.New(creds.Get(config.ExternoAgentURL))),
		mermaid.Type:  mermaid.New(ac.Mermaid, openai),
		vision.Type:   vision.New(ac.Image, openai, nil),
	}
}
