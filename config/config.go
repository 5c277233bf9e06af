package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"

	BackendChromem  = "chromem"
	BackendPostgres = "postgres"
)

type EmbeddingsConfig struct {
	Provider  string
	Model     string
	Dimension int
}

type LLMConfig struct {
	Provider string
	Model    string
}

type StoreConfig struct {
	Backend string
	// IndexPath is the chromem persistence directory. Empty keeps the index
	// in memory only.
	IndexPath string
	// ResolveMinSimilarity rejects catalog matches below this cosine
	// similarity. Zero disables the cutoff and the closest match always wins.
	ResolveMinSimilarity float64
}

type Config struct {
	PostgresDSN string
	Neo4jURI    string
	Neo4jUser   string
	Neo4jPass   string

	OllamaHost    string
	OpenAIAPIKey  string
	OpenAIBaseURL string

	Embeddings EmbeddingsConfig
	LLM        LLMConfig
	Store      StoreConfig

	DocsDir  string
	HTTPAddr string

	ChunkSize    int
	ChunkOverlap int
	MaxResults   int
	MaxHistory   int
}

func Load() Config {
	// A missing .env is fine; the process environment alone is enough.
	_ = godotenv.Load()

	return Config{
		PostgresDSN: getEnv("POSTGRES_DSN", "postgres://localhost:5432/coursechat?sslmode=disable"),
		Neo4jURI:    getEnv("NEO4J_URI", ""),
		Neo4jUser:   getEnv("NEO4J_USERNAME", "neo4j"),
		Neo4jPass:   getEnv("NEO4J_PASSWORD", "password"),

		OllamaHost:    getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),

		Embeddings: EmbeddingsConfig{
			Provider:  getEnv("EMBEDDINGS_PROVIDER", ProviderOpenAI),
			Model:     getEnv("EMBEDDINGS_MODEL", "text-embedding-3-small"),
			Dimension: getEnvInt("EMBEDDINGS_DIMENSION", 1536),
		},
		LLM: LLMConfig{
			Provider: getEnv("LLM_PROVIDER", ProviderOpenAI),
			Model:    getEnv("LLM_MODEL", "gpt-4o-mini"),
		},
		Store: StoreConfig{
			Backend:              getEnv("VECTOR_BACKEND", BackendChromem),
			IndexPath:            getEnv("INDEX_PATH", "./course_index"),
			ResolveMinSimilarity: getEnvFloat("RESOLVE_MIN_SIMILARITY", 0),
		},

		DocsDir:  getEnv("DOCS_DIR", "./docs"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8000"),

		ChunkSize:    getEnvInt("CHUNK_SIZE", 800),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 100),
		MaxResults:   getEnvInt("MAX_RESULTS", 5),
		MaxHistory:   getEnvInt("MAX_HISTORY", 2),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
