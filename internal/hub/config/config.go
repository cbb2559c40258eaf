// Package config loads the gateway configuration from a TOML file and the backend
// credentials from the environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/Masterminds/semver/v3"
)

// ConfigFormatVersion is the current version of the configuration file format.
const ConfigFormatVersion = "0.1.0"

// Files with the same major and minor format version are accepted.
var formatConstraint *semver.Constraints

func init() {
	var err error
	formatConstraint, err = semver.NewConstraint("~" + ConfigFormatVersion)
	if err != nil {
		panic(err)
	}
}

// Duration is a time.Duration written as a string ("45s", "2m") in the file.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// AgentConfig holds the settings shared by all agents.
type AgentConfig struct {
	Timeout Duration `toml:"timeout"` // bound on the agent's backend calls
	Model   string   `toml:"model"`   // LLM model, where the agent uses one
}

type RAGConfig struct {
	AgentConfig
	EmbeddingModel string  `toml:"embedding_model"`
	IndexName      string  `toml:"index_name"`
	IndexHost      string  `toml:"index_host"` // data plane host; resolved from the control plane when empty
	Dimension      int     `toml:"dimension"`
	Cloud          string  `toml:"cloud"`
	Region         string  `toml:"region"`
	TopK           int     `toml:"top_k"`
	Threshold      float64 `toml:"threshold"`
	ChunkSize      int     `toml:"chunk_size"`
	ChunkOverlap   int     `toml:"chunk_overlap"`
}

type ExternoConfig struct {
	AgentConfig
	HistoryLimit int `toml:"history_limit"` // turns forwarded to the prediction endpoint; memory.capacity when unset
}

type MermaidConfig struct {
	AgentConfig
}

type ImageConfig struct {
	AgentConfig
	DownloadTimeout Duration `toml:"download_timeout"`
	MaxImageBytes   int64    `toml:"max_image_bytes"`
}

type WorkflowConfig struct {
	AgentConfig
	ArticleResults int `toml:"article_results"`
	MaxTools       int `toml:"max_tools"`
	ScrapeChars    int `toml:"scrape_chars"`
}

type MCPConfig struct {
	AgentConfig
	Command   string   `toml:"command"`
	Args      []string `toml:"args"`
	MaxRounds int      `toml:"max_rounds"`
	MaxInput  int      `toml:"max_input"` // characters of the user message sent to the model
}

type AgentsConfig struct {
	RAG      RAGConfig      `toml:"rag"`
	Externo  ExternoConfig  `toml:"externo"`
	Mermaid  MermaidConfig  `toml:"mermaid"`
	Image    ImageConfig    `toml:"imagem"`
	Workflow WorkflowConfig `toml:"workflow"`
	MCP      MCPConfig      `toml:"mcp"`
}

// BackendsConfig holds backend endpoints. Credentials are never read from here.
type BackendsConfig struct {
	OpenAIBaseURL      string `toml:"openai_base_url"`
	FirecrawlURL       string `toml:"firecrawl_url"`
	PineconeControlURL string `toml:"pinecone_control_url"`
}

type MemoryConfig struct {
	Capacity int `toml:"capacity"`
}

// ConfigParam holds all configuration parameters of the gateway.
type ConfigParam struct {
	FormatVersion string `toml:"format_version"`

	ServerPort     string   `toml:"server_port"`
	HandleCORS     bool     `toml:"handle_cors"`
	AllowedOrigins []string `toml:"allowed_origins"`
	RequestTimeout Duration `toml:"request_timeout"`
	LogLevel       string   `toml:"log_level"`
	EnvFile        string   `toml:"env_file"`

	Memory   MemoryConfig   `toml:"memory"`
	Backends BackendsConfig `toml:"backends"`
	Agents   AgentsConfig   `toml:"agents"`
}

// Default returns the configuration used when no file is given. Values in a file
// override these field by field.
func Default() *ConfigParam {
	return &ConfigParam{
		FormatVersion:  ConfigFormatVersion,
		ServerPort:     "8000",
		HandleCORS:     true,
		AllowedOrigins: []string{"*"},
		RequestTimeout: Duration{180 * time.Second},
		LogLevel:       "info",
		EnvFile:        ".env",
		Memory:         MemoryConfig{Capacity: 10},
		Backends: BackendsConfig{
			FirecrawlURL:       "https://api.firecrawl.dev",
			PineconeControlURL: "https://api.pinecone.io",
		},
		Agents: AgentsConfig{
			RAG: RAGConfig{
				AgentConfig:    AgentConfig{Timeout: Duration{45 * time.Second}, Model: "gpt-4.1-mini"},
				EmbeddingModel: "text-embedding-3-small",
				IndexName:      "fia-agente-ia",
				Dimension:      1536,
				Cloud:          "aws",
				Region:         "us-east-1",
				TopK:           4,
				Threshold:      0.1,
				ChunkSize:      512,
				ChunkOverlap:   128,
			},
			Externo: ExternoConfig{
				AgentConfig: AgentConfig{Timeout: Duration{30 * time.Second}},
			},
			Mermaid: MermaidConfig{
				AgentConfig: AgentConfig{Timeout: Duration{30 * time.Second}, Model: "gpt-4o-mini"},
			},
			Image: ImageConfig{
				AgentConfig:     AgentConfig{Timeout: Duration{45 * time.Second}, Model: "gpt-4o-mini"},
				DownloadTimeout: Duration{30 * time.Second},
				MaxImageBytes:   20 << 20,
			},
			Workflow: WorkflowConfig{
				AgentConfig:    AgentConfig{Timeout: Duration{120 * time.Second}, Model: "gpt-4.1-mini"},
				ArticleResults: 3,
				MaxTools:       4,
				ScrapeChars:    1500,
			},
			MCP: MCPConfig{
				AgentConfig: AgentConfig{Timeout: Duration{120 * time.Second}, Model: "gpt-4.1-mini"},
				Command:     "npx",
				Args:        []string{"-y", "firecrawl-mcp"},
				MaxRounds:   8,
				MaxInput:    175000,
			},
		},
	}
}

var cfg *ConfigParam

// Config returns the loaded configuration, or the defaults if LoadConfig was
// never called.
func Config() *ConfigParam {
	if cfg == nil {
		return Default()
	}
	return cfg
}

// ValidateConfig checks the configuration and fills in values that must not be
// empty.
func ValidateConfig(cfg *ConfigParam) error {
	v, err := semver.NewVersion(cfg.FormatVersion)
	if err != nil {
		return fmt.Errorf("invalid config file format version %q: %v", cfg.FormatVersion, err)
	}
	if !formatConstraint.Check(v) {
		return fmt.Errorf("unsupported config file format version: %s", cfg.FormatVersion)
	}
	if cfg.ServerPort == "" {
		return fmt.Errorf("server_port is required")
	}
	if cfg.Memory.Capacity <= 0 {
		return fmt.Errorf("memory.capacity must be positive")
	}
	if cfg.RequestTimeout.Duration <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}

	timeouts := map[string]time.Duration{
		"agents.rag.timeout":      cfg.Agents.RAG.Timeout.Duration,
		"agents.externo.timeout":  cfg.Agents.Externo.Timeout.Duration,
		"agents.mermaid.timeout":  cfg.Agents.Mermaid.Timeout.Duration,
		"agents.imagem.timeout":   cfg.Agents.Image.Timeout.Duration,
		"agents.workflow.timeout": cfg.Agents.Workflow.Timeout.Duration,
		"agents.mcp.timeout":      cfg.Agents.MCP.Timeout.Duration,
	}
	for name, d := range timeouts {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	rag := cfg.Agents.RAG
	if rag.IndexName == "" && rag.IndexHost == "" {
		return fmt.Errorf("agents.rag.index_name or agents.rag.index_host is required")
	}
	if rag.TopK < 1 || rag.Threshold < 0 || rag.Threshold > 1 {
		return fmt.Errorf("agents.rag.top_k must be positive and agents.rag.threshold within [0, 1]")
	}
	if rag.ChunkSize <= 0 || rag.ChunkOverlap < 0 || rag.ChunkOverlap >= rag.ChunkSize {
		return fmt.Errorf("agents.rag.chunk_overlap must be smaller than agents.rag.chunk_size")
	}
	if cfg.Agents.MCP.Command == "" {
		return fmt.Errorf("agents.mcp.command is required")
	}
	if cfg.Agents.MCP.MaxRounds <= 0 {
		cfg.Agents.MCP.MaxRounds = 8
	}
	if cfg.Agents.Externo.HistoryLimit <= 0 {
		cfg.Agents.Externo.HistoryLimit = cfg.Memory.Capacity
	}
	if cfg.Agents.Image.MaxImageBytes <= 0 {
		cfg.Agents.Image.MaxImageBytes = 20 << 20
	}
	return nil
}

// Parse decodes a TOML document over the defaults and validates the result.
func Parse(content string) (*ConfigParam, error) {
	c := Default()
	if _, err := toml.Decode(content, c); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}
	if err := ValidateConfig(c); err != nil {
		return nil, fmt.Errorf("invalid configuration: %v", err)
	}
	return c, nil
}

// LoadConfig loads the configuration file into the package configuration. An
// empty filename selects the defaults.
func LoadConfig(filename string) error {
	if filename == "" {
		c := Default()
		if err := ValidateConfig(c); err != nil {
			return fmt.Errorf("invalid configuration: %v", err)
		}
		cfg = c
		return nil
	}
	content, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}
	c, err := Parse(string(content))
	if err != nil {
		return err
	}
	cfg = c
	return nil
}
