package graph

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// CHUNK SIZE & NON-EMPTINESS
// ============================================================================

func TestChunk_InteriorChunksRespectSize(t *testing.T) {
	text := strings.Repeat("abcdefghij ", 50) // 550 chars
	chunks := Chunk(text, 100, 20)

	require.NotEmpty(t, chunks)
	for i, c := range chunks[:len(chunks)-1] {
		assert.LessOrEqualf(t, len([]rune(c)), 100, "chunk %d exceeds size", i)
	}
	for _, c := range chunks {
		assert.NotEmpty(t, c)
	}
}

func TestChunk_SentenceBoundaryPreferred(t *testing.T) {
	// Terminator sits well past 0.3*chunkSize into the window.
	text := "This is a reasonably long opening sentence that ends here. " +
		"And this continues on with more words to fill the window out nicely."
	chunks := Chunk(text, 70, 10)

	require.NotEmpty(t, chunks)
	assert.True(t, strings.HasSuffix(chunks[0], "."), "expected first chunk to end on a sentence boundary, got %q", chunks[0])
}

func TestChunk_NoTextYieldsNoChunks(t *testing.T) {
	assert.Nil(t, Chunk("", 100, 10))
	assert.Nil(t, Chunk("hello", 0, 10))
}

func TestChunk_OverlapClampedBelowSize(t *testing.T) {
	// overlap >= chunkSize must not loop forever or panic.
	chunks := Chunk(strings.Repeat("x", 500), 50, 50)
	assert.NotEmpty(t, chunks)
}

// ============================================================================
// COVERAGE
// ============================================================================

func TestChunk_FirstChunkStartsAtTextStartLastEndsAtTextEnd(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 20)
	trimmed := strings.TrimSpace(text)
	const size, overlap = 200, 30
	chunks := Chunk(text, size, overlap)
	require.NotEmpty(t, chunks)

	assert.True(t, strings.HasPrefix(trimmed, chunks[0][:min(len(chunks[0]), 20)]))
	assert.True(t, strings.HasSuffix(trimmed, chunks[len(chunks)-1][max(0, len(chunks[len(chunks)-1])-20):]))
}

func TestChunk_ConsecutiveChunksOverlap(t *testing.T) {
	text := strings.Repeat("abcdefghij", 40) // 400 chars, no sentence terminators
	const size, overlap = 100, 20
	chunks := Chunk(text, size, overlap)
	require.Greater(t, len(chunks), 1)

	for i := 0; i < len(chunks)-1; i++ {
		tail := chunks[i][max(0, len(chunks[i])-overlap):]
		assert.Contains(t, chunks[i+1], tail[:min(len(tail), 5)],
			"chunk %d and %d should share overlapping content", i, i+1)
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func TestChunk_SingleChunkWhenTextSmallerThanSize(t *testing.T) {
	chunks := Chunk("short text", 1000, 100)
	require.Len(t, chunks, 1)
	assert.Equal(t, "short text", chunks[0])
}
