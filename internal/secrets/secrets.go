// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets fills service credentials from a directory of plain-text
// files, one credential per file named after its key. Credentials set in
// the config file or environment take precedence.
package secrets

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdiddy/matsearch/pkg/types"
)

// Recognized secret file names.
const (
	ElasticsearchAPIKey = "elasticsearch-api-key"
	EmbeddingAPIKey     = "embedding-api-key"
	RedisPassword       = "redis-password"
)

// DefaultDir is the directory read at startup.
const DefaultDir = ".secrets"

// targets maps each recognized key to the config field it fills.
func targets(cfg *types.Config) map[string]*string {
	return map[string]*string{
		ElasticsearchAPIKey: &cfg.Elastic.APIKey,
		EmbeddingAPIKey:     &cfg.Embedding.APIKey,
		RedisPassword:       &cfg.Cache.RedisPassword,
	}
}

// Keys returns the recognized key names, sorted.
func Keys() []string {
	keys := make([]string, 0, 3)
	for k := range targets(&types.Config{}) {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Load reads the recognized key files in dir and returns their trimmed
// contents. A missing directory yields an empty map. Dotfiles,
// subdirectories, empty files and unrecognized names are skipped, as are
// unreadable files, which are logged.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	known := targets(&types.Config{})
	out := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if _, ok := known[name]; !ok {
			slog.Debug("ignoring unrecognized secret file", "name", name)
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			slog.Warn("could not read secret", "name", name, "err", err)
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			out[name] = value
		}
	}
	return out, nil
}

// Apply fills credentials that cfg leaves empty from s and returns the
// keys applied, sorted.
func Apply(cfg *types.Config, s map[string]string) []string {
	var applied []string
	for key, dst := range targets(cfg) {
		if v, ok := s[key]; ok && *dst == "" {
			*dst = v
			applied = append(applied, key)
		}
	}
	sort.Strings(applied)
	return applied
}

// Resolve loads dir and applies it to cfg.
func Resolve(dir string, cfg *types.Config) ([]string, error) {
	s, err := Load(dir)
	if err != nil {
		return nil, err
	}
	return Apply(cfg, s), nil
}
