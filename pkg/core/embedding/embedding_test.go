package embedding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineIdentical(t *testing.T) {
	v := []float64{1, 2, 3}
	assert.InDelta(t, 1.0, Cosine(v, v), 1e-9)
}

func TestCosineOrthogonal(t *testing.T) {
	assert.InDelta(t, 0.0, Cosine([]float64{1, 0}, []float64{0, 1}), 1e-9)
}

func TestCosineZeroVectorIsZero(t *testing.T) {
	zero := []float64{0, 0, 0}
	nonZero := []float64{1, 2, 3}
	assert.Equal(t, 0.0, Cosine(zero, nonZero))
	assert.Equal(t, 0.0, Cosine(zero, zero))
}

func TestLocalEmbedDeterministicAndFixedDimension(t *testing.T) {
	vecs := localEmbed([]string{"revenue growth", "revenue growth", "unrelated footnote"})
	require.Len(t, vecs, 3)
	for _, v := range vecs {
		assert.Len(t, v, localDimension)
	}
	assert.Equal(t, vecs[0], vecs[1])
	assert.Greater(t, Cosine(vecs[0], vecs[1]), Cosine(vecs[0], vecs[2]))
}

func TestEmbedFallsBackWithoutAPIKey(t *testing.T) {
	svc := &Service{}
	vecs, err := svc.Embed(nil, []string{"segment information", "segment information"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, vecs[0], vecs[1])
}

func TestEmbedEmptyInput(t *testing.T) {
	svc := New()
	vecs, err := svc.Embed(nil, nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)
}
