package cache

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmbeddingKey(t *testing.T) {
	key := EmbeddingKey("text-embedding-ada-002", "riskiest prs")
	assert.True(t, strings.HasPrefix(key, "wtr:embed:text-embedding-ada-002:"))

	// Same inputs, same key; any change breaks the match.
	assert.Equal(t, key, EmbeddingKey("text-embedding-ada-002", "riskiest prs"))
	assert.NotEqual(t, key, EmbeddingKey("text-embedding-ada-002", "largest prs"))
	assert.NotEqual(t, key, EmbeddingKey("text-embedding-3-small", "riskiest prs"))
}

func TestNilClientIsAllMisses(t *testing.T) {
	var c *Client
	ctx := context.Background()

	var out []float32
	found, err := c.Get(ctx, "wtr:embed:m:k", &out)
	assert.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, c.Set(ctx, "wtr:embed:m:k", []float32{1, 2}))
	assert.NoError(t, c.SetWithTTL(ctx, "wtr:embed:m:k", []float32{1, 2}, 0))
	assert.NoError(t, c.Close())
}
