package text

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseChunk(t *testing.T) {
	chunk := ParseChunk("ab  cd")
	assert.Equal(t, Chunk{Word("ab"), Space(), Word("cd")}, chunk)

	assert.Equal(t, Chunk{}, ParseChunk("   "))
	assert.Equal(t, Chunk{Word("hi")}, ParseChunk("hi"))
}

func TestExpectedChar(t *testing.T) {
	col := Collection{ParseChunk("ab cd")}

	assert.Equal(t, "a", col.ExpectedChar(Cursor{Chunk: 0, Element: 0, Letter: 0}))
	assert.Equal(t, "b", col.ExpectedChar(Cursor{Chunk: 0, Element: 0, Letter: 1}))
	assert.Equal(t, " ", col.ExpectedChar(Cursor{Chunk: 0, Element: 1}))
	assert.Equal(t, "d", col.ExpectedChar(Cursor{Chunk: 0, Element: 2, Letter: 1}))
}

func TestAdvance(t *testing.T) {
	col := Collection{ParseChunk("ab cd"), ParseChunk("x")}

	// within a word
	cur := Cursor{}
	cur = col.Advance(cur)
	assert.Equal(t, Cursor{Chunk: 0, Element: 0, Letter: 1}, cur)

	// last letter of a word moves to the next element
	cur = col.Advance(cur)
	assert.Equal(t, Cursor{Chunk: 0, Element: 1, Letter: 0}, cur)

	// a space always moves on
	cur = col.Advance(cur)
	assert.Equal(t, Cursor{Chunk: 0, Element: 2, Letter: 0}, cur)

	// finishing the chunk's last word moves to the next chunk
	cur = col.Advance(cur)
	cur = col.Advance(cur)
	assert.Equal(t, Cursor{Chunk: 1, Element: 0, Letter: 0}, cur)

	// the last chunk wraps back to the first, the text is cyclic
	cur = col.Advance(cur)
	assert.Equal(t, Cursor{Chunk: 0, Element: 0, Letter: 0}, cur)
}

func TestAdvanceStaysInBounds(t *testing.T) {
	col := Collection{ParseChunk("The quick brown fox"), ParseChunk("jumps over"), ParseChunk("a b")}
	cur := Cursor{}
	for i := 0; i < 500; i++ {
		assert.NotEmpty(t, col.ExpectedChar(cur))
		cur = col.Advance(cur)
		assert.Less(t, cur.Chunk, len(col))
		assert.Less(t, cur.Element, len(col[cur.Chunk]))
	}
}

func TestCorpusSelect(t *testing.T) {
	corpus := NewCorpus()
	assert.Greater(t, corpus.Size(), 0)

	rnd := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		col := corpus.Select(rnd, 5, 7)
		assert.GreaterOrEqual(t, len(col), 5)
		assert.LessOrEqual(t, len(col), 7)
		for _, chunk := range col {
			assert.NotEmpty(t, chunk)
		}
	}

	// identical seeds draw identical collections
	a := NewCorpus().Select(rand.New(rand.NewSource(42)), 5, 7)
	b := NewCorpus().Select(rand.New(rand.NewSource(42)), 5, 7)
	assert.Equal(t, a, b)
}
