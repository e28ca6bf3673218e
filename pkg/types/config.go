// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings for collaborators reached over HTTP.
type HTTPConfig struct {
	// Timeout bounds each outbound request.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is sent with outbound requests (e.g. "matsearch/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// ServerConfig holds settings for the HTTP surface.
type ServerConfig struct {
	// Addr is the listen address (default ":8080").
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`

	// ReadTimeout and WriteTimeout bound a single HTTP exchange.
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout" mapstructure:"write_timeout"`

	// AllowedOrigin is echoed in Access-Control-Allow-Origin (default "*").
	AllowedOrigin string `json:"allowed_origin" yaml:"allowed_origin" mapstructure:"allowed_origin"`
}

// ElasticConfig holds settings for the search index.
type ElasticConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Addresses lists Elasticsearch node URLs.
	Addresses []string `json:"addresses" yaml:"addresses" mapstructure:"addresses"`

	// Index is the paper index searched by POST /api/papers.
	Index string `json:"index" yaml:"index" mapstructure:"index"`

	// PaperIndex serves single-paper lookups. Empty means Index.
	PaperIndex string `json:"paper_index,omitempty" yaml:"paper_index,omitempty" mapstructure:"paper_index"`

	// APIKey is the base64 Elasticsearch API key.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// CACertPath points at a PEM bundle for self-signed clusters.
	CACertPath string `json:"ca_cert_path,omitempty" yaml:"ca_cert_path,omitempty" mapstructure:"ca_cert_path"`

	// MaxRetries is the transport retry budget for 429/5xx (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// LookupIndex returns the index used for single-paper lookups.
func (c ElasticConfig) LookupIndex() string {
	if c.PaperIndex != "" {
		return c.PaperIndex
	}
	return c.Index
}

// EmbeddingProvider selects the embedding service implementation.
type EmbeddingProvider string

const (
	EmbeddingTEI    EmbeddingProvider = "tei"
	EmbeddingOpenAI EmbeddingProvider = "openai"
)

// EmbeddingConfig holds settings for the query embedding service.
type EmbeddingConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Provider is "tei" (text-embeddings-inference) or "openai"
	// (any OpenAI-compatible /v1/embeddings endpoint).
	Provider EmbeddingProvider `json:"provider" yaml:"provider" mapstructure:"provider"`

	// Host is the service base URL.
	Host string `json:"host" yaml:"host" mapstructure:"host"`

	// Model is the embedding model identifier (default "all-MiniLM-L6-v2").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is sent as a bearer token when set.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// CacheSize is the number of query vectors kept in memory (default 1024).
	CacheSize int `json:"cache_size" yaml:"cache_size" mapstructure:"cache_size"`
}

// CacheBackend selects the result cache store.
type CacheBackend string

const (
	CacheRedis  CacheBackend = "redis"
	CacheBadger CacheBackend = "badger"
	CacheNone   CacheBackend = "none"
)

// CacheConfig holds settings for the result cache.
type CacheConfig struct {
	// Backend is "redis", "badger", or "none".
	Backend CacheBackend `json:"backend" yaml:"backend" mapstructure:"backend"`

	// TTL is the entry lifetime (default 1h).
	TTL time.Duration `json:"ttl" yaml:"ttl" mapstructure:"ttl"`

	// RedisAddr is host:port of the Redis server (default "localhost:6379").
	RedisAddr string `json:"redis_addr" yaml:"redis_addr" mapstructure:"redis_addr"`

	// RedisPassword authenticates to Redis when set.
	RedisPassword string `json:"redis_password,omitempty" yaml:"redis_password,omitempty" mapstructure:"redis_password"`

	// RedisDB selects the Redis logical database.
	RedisDB int `json:"redis_db" yaml:"redis_db" mapstructure:"redis_db"`

	// BadgerDir is the on-disk directory for the badger store.
	BadgerDir string `json:"badger_dir" yaml:"badger_dir" mapstructure:"badger_dir"`
}

// AuditConfig holds settings for the query audit log.
type AuditConfig struct {
	// Enabled turns on recording of served searches.
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// Dir contains the audit database (audit.db) and exports.
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`

	// MaxResults is the default listing size (default 20).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`
}

// HighlightConfig holds settings for fuzzy term highlighting.
type HighlightConfig struct {
	// Threshold is the minimum window similarity, 0-100 (default 80).
	Threshold int `json:"threshold" yaml:"threshold" mapstructure:"threshold"`

	// Workers sizes the highlighting worker pool (default GOMAXPROCS).
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`
}

// Config groups all service configuration.
type Config struct {
	Server    ServerConfig    `json:"server" yaml:"server" mapstructure:"server"`
	Elastic   ElasticConfig   `json:"elasticsearch" yaml:"elasticsearch" mapstructure:"elasticsearch"`
	Embedding EmbeddingConfig `json:"embedding" yaml:"embedding" mapstructure:"embedding"`
	Cache     CacheConfig     `json:"cache" yaml:"cache" mapstructure:"cache"`
	Audit     AuditConfig     `json:"audit" yaml:"audit" mapstructure:"audit"`
	Highlight HighlightConfig `json:"highlight" yaml:"highlight" mapstructure:"highlight"`
}
