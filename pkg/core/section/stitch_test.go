package section

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuseAdjacentContiguousRangesMerge(t *testing.T) {
	claims := []sectionClaim{
		{name: "risks", start: 1, end: 10, confidence: 0.9},
		{name: "risks", start: 11, end: 15, confidence: 0.6},
	}
	fused := fuseAdjacent(claims)
	require.Len(t, fused, 1)
	assert.Equal(t, 1, fused[0].start)
	assert.Equal(t, 15, fused[0].end)
	assert.Equal(t, 0.6, fused[0].confidence)
}

func TestFuseAdjacentOrderIndependent(t *testing.T) {
	a := []sectionClaim{
		{name: "risks", start: 11, end: 15, confidence: 0.6},
		{name: "risks", start: 1, end: 10, confidence: 0.9},
	}
	b := []sectionClaim{
		{name: "risks", start: 1, end: 10, confidence: 0.9},
		{name: "risks", start: 11, end: 15, confidence: 0.6},
	}
	assert.Equal(t, fuseAdjacent(a), fuseAdjacent(b))
}

func TestResolveOverlapsEarlierStartWins(t *testing.T) {
	claims := []sectionClaim{
		{name: "risks", start: 1, end: 10, confidence: 0.9},
		{name: "governance", start: 8, end: 20, confidence: 0.8},
	}
	out := resolveOverlaps(claims)
	require.Len(t, out, 2)
	assert.Equal(t, "risks", out[0].name)
	assert.Equal(t, 1, out[0].start)
	assert.Equal(t, 10, out[0].end)
	assert.Equal(t, "governance", out[1].name)
	assert.Equal(t, 11, out[1].start)
	assert.Equal(t, 20, out[1].end)
}

func TestResolveOverlapsFullyConsumedIsDropped(t *testing.T) {
	claims := []sectionClaim{
		{name: "risks", start: 1, end: 20, confidence: 0.9},
		{name: "governance", start: 5, end: 10, confidence: 0.8},
	}
	out := resolveOverlaps(claims)
	require.Len(t, out, 1)
	assert.Equal(t, "risks", out[0].name)
}
