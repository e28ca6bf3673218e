// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embed_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/matsearch/internal/embed"
	"github.com/pdiddy/matsearch/internal/embed/mock"
)

func TestCached_HitsAvoidInnerCall(t *testing.T) {
	inner := &mock.Embedder{}
	c := embed.NewCached(inner, 4)
	ctx := context.Background()

	v1, err := c.Embed(ctx, "spin")
	require.NoError(t, err)
	v2, err := c.Embed(ctx, "spin")
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Equal(t, 1, inner.Calls())
	assert.Equal(t, 1, c.Len())
}

func TestCached_ReturnsCopies(t *testing.T) {
	c := embed.NewCached(&mock.Embedder{}, 4)
	ctx := context.Background()

	v1, err := c.Embed(ctx, "spin")
	require.NoError(t, err)
	orig := v1[0]
	v1[0] = 99

	v2, err := c.Embed(ctx, "spin")
	require.NoError(t, err)
	assert.Equal(t, orig, v2[0])
}

func TestCached_Evicts(t *testing.T) {
	inner := &mock.Embedder{}
	c := embed.NewCached(inner, 2)
	ctx := context.Background()

	for _, s := range []string{"a", "b", "c", "a"} {
		_, err := c.Embed(ctx, s)
		require.NoError(t, err)
	}
	assert.Equal(t, 4, inner.Calls())
	assert.Equal(t, 2, c.Len())
}

func TestCached_ErrorsNotCached(t *testing.T) {
	inner := &mock.Embedder{Err: errors.New("down")}
	c := embed.NewCached(inner, 2)

	_, err := c.Embed(context.Background(), "spin")
	assert.Error(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestMockEmbedder_Deterministic(t *testing.T) {
	m := &mock.Embedder{}
	a, err := m.Embed(context.Background(), "x")
	require.NoError(t, err)
	b, err := m.Embed(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, mock.Dimension)
}
