// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAI embeds through an OpenAI-compatible embeddings API.
type OpenAI struct {
	embedder embeddings.Embedder
	logger   *slog.Logger
}

var _ Embedder = (*OpenAI)(nil)

// NewOpenAI creates an embedder for host and model. Local services that do
// not check credentials accept the placeholder token "none".
func NewOpenAI(host, model, apiKey string, logger *slog.Logger) (*OpenAI, error) {
	token := apiKey
	if token == "" {
		token = "none"
	}

	client, err := openai.New(
		openai.WithBaseURL(host),
		openai.WithToken(token),
		openai.WithEmbeddingModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("creating openai client: %w", err)
	}

	e, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	return &OpenAI{
		embedder: e,
		logger:   logger.With("component", "openai-embedder"),
	}, nil
}

// Embed implements Embedder.
func (o *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	o.logger.Debug("generating query embedding", "length", len(text))

	vectors, err := o.embedder.EmbedDocuments(ctx, []string{text})
	if err != nil {
		o.logger.Error("failed to generate embedding", "err", err)
		return nil, fmt.Errorf("embedding request: %w", err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("embedding service returned no vectors")
	}
	return vectors[0], nil
}
