package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// Qdrant vector store
	QdrantHost       string `envconfig:"QDRANT_HOST" default:"localhost"`
	QdrantPort       int    `envconfig:"QDRANT_PORT" default:"6333"`
	QdrantAPIKey     string `envconfig:"QDRANT_API_KEY"`
	QdrantCollection string `envconfig:"QDRANT_COLLECTION" default:"paperbase_vectors"`
	QdrantTimeoutSec int    `envconfig:"QDRANT_TIMEOUT" default:"30"`

	// Embedding providers. Ollama is tried first when configured; the
	// OpenAI-compatible API (DeepSeek et al.) is the fallback.
	EmbeddingModel     string `envconfig:"EMBEDDING_MODEL" default:"bge-m3"`
	EmbeddingDimension int    `envconfig:"EMBEDDING_DIMENSION" default:"768"`
	OllamaURL          string `envconfig:"OLLAMA_URL"`
	OpenAIAPIKey       string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL      string `envconfig:"OPENAI_BASE_URL"`
	OpenAIEmbedModel   string `envconfig:"OPENAI_EMBED_MODEL" default:"text-embedding-3-small"`
	ChatModel          string `envconfig:"CHAT_MODEL" default:"deepseek-chat"`

	// Chunking
	ChunkSize    int `envconfig:"CHUNK_SIZE" default:"1000"`
	ChunkOverlap int `envconfig:"CHUNK_OVERLAP" default:"200"`
	MinChunkLen  int `envconfig:"MIN_CHUNK_LEN" default:"10"`

	// Indexing and search
	UpsertBatchSize int     `envconfig:"UPSERT_BATCH_SIZE" default:"50"`
	ScoreFloor      float32 `envconfig:"SCORE_FLOOR" default:"0.5"`
	SearchOverfetch int     `envconfig:"SEARCH_OVERFETCH" default:"2"`

	// Object storage for uploaded PDFs
	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"paperbase-files"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	// External text extraction service (PDF parse + OCR fallback)
	ExtractorURL string `envconfig:"EXTRACTOR_URL"`

	MaxUploadBytes int64 `envconfig:"MAX_UPLOAD_BYTES" default:"10485760"`
	SessionTTLHrs  int   `envconfig:"SESSION_TTL_HOURS" default:"24"`

	// Telemetry
	SentryDSN        string  `envconfig:"SENTRY_DSN"`
	SentryEnv        string  `envconfig:"SENTRY_ENVIRONMENT" default:"development"`
	SentrySampleRate float64 `envconfig:"SENTRY_SAMPLE_RATE" default:"1.0"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("PAPERBASE", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) QdrantURL() string {
	return fmt.Sprintf("http://%s:%d", c.QdrantHost, c.QdrantPort)
}

func (c *Config) QdrantTimeout() time.Duration {
	return time.Duration(c.QdrantTimeoutSec) * time.Second
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHrs) * time.Hour
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasOllama() bool {
	return c.OllamaURL != ""
}
