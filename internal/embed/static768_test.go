package embed

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vectorNorm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func TestStaticEmbedder_Dimensions(t *testing.T) {
	e := NewStaticEmbedder()
	assert.Equal(t, Dimensions, e.Dimensions())
	assert.Equal(t, 768, Dimensions)
}

func TestStaticEmbedder_EmbedIsUnitNorm(t *testing.T) {
	e := NewStaticEmbedder()
	vec, err := e.Embed(context.Background(), "investigated the auth jwt bug in the deploy pipeline")
	require.NoError(t, err)
	assert.Len(t, vec, Dimensions)
	assert.InDelta(t, 1.0, vectorNorm(vec), 1e-6)
}

func TestStaticEmbedder_EmptyTextYieldsZeroVector(t *testing.T) {
	e := NewStaticEmbedder()
	vec, err := e.Embed(context.Background(), "   ")
	require.NoError(t, err)
	assert.Len(t, vec, Dimensions)
	assert.Equal(t, 0.0, vectorNorm(vec))
}

func TestStaticEmbedder_Deterministic(t *testing.T) {
	e := NewStaticEmbedder()
	v1, err := e.Embed(context.Background(), "same text twice")
	require.NoError(t, err)
	v2, err := e.Embed(context.Background(), "same text twice")
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
}

func TestStaticEmbedder_EmbedBatch(t *testing.T) {
	e := NewStaticEmbedder()
	vecs, err := e.EmbedBatch(context.Background(), []string{"auth bug", "deploy ci", ""})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	for _, v := range vecs {
		assert.Len(t, v, Dimensions)
	}
}

func TestStaticEmbedder_ModelName(t *testing.T) {
	e := NewStaticEmbedder()
	assert.Equal(t, "static-hash-v1", e.ModelName())
}

func TestStaticEmbedder_AvailableUntilClosed(t *testing.T) {
	e := NewStaticEmbedder()
	assert.True(t, e.Available(context.Background()))
	require.NoError(t, e.Close())
	assert.False(t, e.Available(context.Background()))
}

func TestStaticEmbedder_EmbedAfterCloseErrors(t *testing.T) {
	e := NewStaticEmbedder()
	require.NoError(t, e.Close())

	_, err := e.Embed(context.Background(), "text")
	assert.Error(t, err)
}

func TestSplitCamelCase(t *testing.T) {
	assert.Equal(t, []string{"get", "User", "By", "Id"}, splitCamelCase("getUserById"))
	assert.Equal(t, []string{"HTTP", "Handler"}, splitCamelCase("HTTPHandler"))
	assert.Equal(t, []string{}, splitCamelCase(""))
}

func TestExtractNgrams(t *testing.T) {
	assert.Equal(t, []string{"abc", "bcd"}, extractNgrams("abcd", 3))
	assert.Equal(t, []string{}, extractNgrams("ab", 3))
}
