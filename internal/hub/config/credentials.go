package config

import (
	"errors"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
)

// Credential keys read from the environment.
const (
	OpenAIAPIKey    = "OPENAI_API_KEY"
	FirecrawlAPIKey = "FIRECRAWL_API_KEY"
	PineconeAPIKey  = "PINECONE_API_KEY"
	ExternoAgentURL = "API_EXTERNO_AGENT"
)

var credentialKeys = []string{OpenAIAPIKey, FirecrawlAPIKey, PineconeAPIKey, ExternoAgentURL}

// Credentials are the backend secrets known at startup. They are read once and
// never refreshed.
type Credentials map[string]string

// LoadCredentials loads envFile into the process environment when it exists and
// then captures the credential keys. Variables already set in the environment win
// over the file.
func LoadCredentials(envFile string) (Credentials, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	creds := Credentials{}
	for _, k := range credentialKeys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			creds[k] = v
		}
	}
	return creds, nil
}

// Has reports whether key is present and non-empty.
func (c Credentials) Has(key string) bool {
	return c[key] != ""
}

func (c Credentials) Get(key string) string {
	return c[key]
}

// Present returns the presence of every known credential key, without values.
func (c Credentials) Present() map[string]bool {
	out := make(map[string]bool, len(credentialKeys))
	for _, k := range credentialKeys {
		out[k] = c.Has(k)
	}
	return out
}

// Keys lists the known credential keys.
func Keys() []string {
	keys := append([]string(nil), credentialKeys...)
	sort.Strings(keys)
	return keys
}
