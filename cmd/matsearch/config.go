// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/matsearch/internal/cache"
	"github.com/pdiddy/matsearch/internal/embed"
	"github.com/pdiddy/matsearch/internal/highlight"
	"github.com/pdiddy/matsearch/internal/server"
	"github.com/pdiddy/matsearch/pkg/types"
)

// setDefaults registers every config key so that environment variables
// are honored by Unmarshal even when the config file omits the key.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("server.addr", server.DefaultAddr)
	v.SetDefault("server.read_timeout", server.DefaultReadTimeout)
	v.SetDefault("server.write_timeout", server.DefaultWriteTimeout)
	v.SetDefault("server.allowed_origin", server.DefaultAllowedOrigin)

	v.SetDefault("elasticsearch.addresses", []string{"http://localhost:9200"})
	v.SetDefault("elasticsearch.index", "papers")
	v.SetDefault("elasticsearch.paper_index", "")
	v.SetDefault("elasticsearch.api_key", "")
	v.SetDefault("elasticsearch.ca_cert_path", "")
	v.SetDefault("elasticsearch.max_retries", 3)
	v.SetDefault("elasticsearch.timeout", 30*time.Second)
	v.SetDefault("elasticsearch.user_agent", "matsearch/"+version)

	v.SetDefault("embedding.provider", string(types.EmbeddingTEI))
	v.SetDefault("embedding.host", "")
	v.SetDefault("embedding.model", embed.DefaultModel)
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.cache_size", embed.DefaultCacheSize)
	v.SetDefault("embedding.timeout", 30*time.Second)
	v.SetDefault("embedding.user_agent", "matsearch/"+version)

	v.SetDefault("cache.backend", string(types.CacheRedis))
	v.SetDefault("cache.ttl", cache.DefaultTTL)
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.badger_dir", "")

	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.dir", "audit")
	v.SetDefault("audit.max_results", 20)

	v.SetDefault("highlight.threshold", highlight.DefaultThreshold)
	v.SetDefault("highlight.workers", 0)
}

// loadConfig decodes the global viper instance.
func loadConfig() (types.Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (types.Config, error) {
	var c types.Config
	if err := v.Unmarshal(&c); err != nil {
		return types.Config{}, fmt.Errorf("decoding config: %w", err)
	}
	return c, nil
}

// setupLogging installs the default slog handler.
func setupLogging(level, format string, w io.Writer) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q: use debug, info, warn or error", level)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var h slog.Handler
	switch strings.ToLower(format) {
	case "text", "":
		h = slog.NewTextHandler(w, opts)
	case "json":
		h = slog.NewJSONHandler(w, opts)
	default:
		return fmt.Errorf("invalid log format %q: use text or json", format)
	}
	slog.SetDefault(slog.New(h))
	return nil
}
