package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	GigaChat   GigaChatConfig
	Classifier ClassifierConfig
	Embedding  EmbeddingConfig
	Vector     VectorStoreConfig
	RAG        RAGConfig
	Sync       SyncConfig
	Logger     LoggerConfig
}

type LoggerConfig struct {
	Level string
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type GigaChatConfig struct {
	APIKey             string
	Scope              string
	Model              string
	OAuthURL           string
	BaseURL            string
	InsecureSkipVerify bool
}

type ClassifierConfig struct {
	Timeout     time.Duration
	Temperature float64
}

// EmbeddingConfig selects the embedding provider. Provider is one of
// "hashing", "openai" or "gigachat".
type EmbeddingConfig struct {
	Provider  string
	BaseURL   string
	APIKey    string
	Model     string
	Dimension int
	Timeout   time.Duration
}

// VectorStoreConfig selects the vector index backend. Backend is one of
// "local", "qdrant" or "pgvector".
type VectorStoreConfig struct {
	Backend          string
	Path             string
	QdrantURL        string
	QdrantAPIKey     string
	QdrantCollection string
	PGVectorTable    string
}

type RAGConfig struct {
	TopK int
	// Timeout bounds embedding plus search for one query; zero disables it.
	Timeout time.Duration
}

type SyncConfig struct {
	RowLimit       int
	BatchSize      int
	BatchDelay     time.Duration
	FailureBackoff time.Duration
}

// loader resolves a key from the process environment first, then from the
// optional YAML file, then from the supplied default.
type loader struct {
	file map[string]string
	errs []error
}

func Load() (*Config, error) {
	// .env is optional, plain environment variables work too (Docker/K8s)
	for _, envFile := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	l := &loader{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		values, err := readFile(path)
		if err != nil {
			return nil, err
		}
		l.file = values
	}

	return l.build()
}

func readFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	values := make(map[string]string, len(raw))
	for key, value := range raw {
		if value == nil {
			continue
		}
		values[key] = fmt.Sprint(value)
	}
	return values, nil
}

func (l *loader) build() (*Config, error) {
	provider := l.str("EMBEDDING_PROVIDER", "hashing")
	embeddingModel := "text-embedding-3-small"
	if provider == "gigachat" {
		embeddingModel = "Embeddings"
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         l.str("SERVER_PORT", "8080"),
			ReadTimeout:  l.seconds("SERVER_READ_TIMEOUT", 30),
			WriteTimeout: l.seconds("SERVER_WRITE_TIMEOUT", 30),
		},
		Database: DatabaseConfig{
			Host:     l.str("DB_HOST", "localhost"),
			Port:     l.str("DB_PORT", "5432"),
			User:     l.str("DB_USER", "postgres"),
			Password: l.str("DB_PASSWORD", "postgres"),
			DBName:   l.str("DB_NAME", "smishing"),
			SSLMode:  l.str("DB_SSLMODE", "disable"),
		},
		GigaChat: GigaChatConfig{
			APIKey:             l.str("GIGACHAT_API_KEY", ""),
			Scope:              l.str("GIGACHAT_SCOPE", "GIGACHAT_API_PERS"),
			Model:              l.str("GIGACHAT_MODEL", "GigaChat"),
			OAuthURL:           l.str("GIGACHAT_OAUTH_URL", "https://ngw.devices.sberbank.ru:9443/api/v2/oauth"),
			BaseURL:            l.str("GIGACHAT_BASE_URL", "https://gigachat.devices.sberbank.ru/api/v1"),
			InsecureSkipVerify: l.str("GIGACHAT_INSECURE_SKIP_VERIFY", "true") == "true",
		},
		Classifier: ClassifierConfig{
			Timeout:     l.seconds("CLASSIFIER_TIMEOUT", 30),
			Temperature: l.decimal("CLASSIFIER_TEMPERATURE", 0.2),
		},
		Embedding: EmbeddingConfig{
			Provider:  provider,
			BaseURL:   l.str("EMBEDDING_BASE_URL", "https://api.openai.com/v1"),
			APIKey:    l.str("EMBEDDING_API_KEY", ""),
			Model:     l.str("EMBEDDING_MODEL", embeddingModel),
			Dimension: l.positive("EMBEDDING_DIMENSION", 256),
			Timeout:   l.seconds("EMBEDDING_TIMEOUT", 30),
		},
		Vector: VectorStoreConfig{
			Backend:          l.str("VECTOR_STORE", "local"),
			Path:             l.str("VECTOR_STORE_PATH", "./data/fraud_index.jsonl"),
			QdrantURL:        l.str("QDRANT_URL", "http://localhost:6333"),
			QdrantAPIKey:     l.str("QDRANT_API_KEY", ""),
			QdrantCollection: l.str("QDRANT_COLLECTION", "smishing_examples"),
			PGVectorTable:    l.str("PGVECTOR_TABLE", "fraud_vectors"),
		},
		RAG: RAGConfig{
			TopK:    l.positive("RAG_TOP_K", 3),
			Timeout: l.millis("RAG_TIMEOUT_MS", 5000),
		},
		Sync: SyncConfig{
			RowLimit:       l.positive("SYNC_ROW_LIMIT", 1000),
			BatchSize:      l.positive("SYNC_BATCH_SIZE", 10),
			BatchDelay:     l.millis("SYNC_BATCH_DELAY_MS", 500),
			FailureBackoff: l.millis("SYNC_FAILURE_BACKOFF_MS", 5000),
		},
		Logger: LoggerConfig{
			Level: l.str("LOG_LEVEL", "info"),
		},
	}

	if len(l.errs) > 0 {
		return nil, errors.Join(l.errs...)
	}
	return cfg, nil
}

func (l *loader) str(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	if value, ok := l.file[key]; ok && value != "" {
		return value
	}
	return defaultValue
}

func (l *loader) integer(key string, defaultValue int) int {
	raw := l.str(key, "")
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("invalid %s: %w", key, err))
		return defaultValue
	}
	return v
}

// positive falls back to the default for zero or negative values.
func (l *loader) positive(key string, defaultValue int) int {
	if v := l.integer(key, defaultValue); v > 0 {
		return v
	}
	return defaultValue
}

func (l *loader) decimal(key string, defaultValue float64) float64 {
	raw := l.str(key, "")
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("invalid %s: %w", key, err))
		return defaultValue
	}
	return v
}

func (l *loader) seconds(key string, defaultValue int) time.Duration {
	return time.Duration(l.positive(key, defaultValue)) * time.Second
}

// millis accepts zero, which disables the delay.
func (l *loader) millis(key string, defaultValue int) time.Duration {
	v := l.integer(key, defaultValue)
	if v < 0 {
		v = defaultValue
	}
	return time.Duration(v) * time.Millisecond
}
