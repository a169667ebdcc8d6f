package text

import "strings"

const (
	ElementTypeWord  = "word"
	ElementTypeSpace = "space"
)

// Element is one atomic unit of race text: either a word (an ordered list of
// single-character letters) or a space.
type Element struct {
	Type    string   `json:"type"`
	Letters []string `json:"letters,omitempty"`
}

// Chunk is one contiguous unit of race text selected at race start.
type Chunk []Element

// Collection is the fixed set of chunks of one game.
type Collection []Chunk

// Cursor addresses a single character within a Collection.
type Cursor struct {
	Chunk   int `json:"chunk"`
	Element int `json:"element"`
	Letter  int `json:"letter"`
}

func Word(w string) Element {
	letters := make([]string, 0, len(w))
	for _, r := range w {
		letters = append(letters, string(r))
	}
	return Element{Type: ElementTypeWord, Letters: letters}
}

func Space() Element {
	return Element{Type: ElementTypeSpace}
}

// ParseChunk splits a plain sentence into word and space elements. Consecutive
// whitespace is treated as a single space.
func ParseChunk(s string) Chunk {
	fields := strings.Fields(s)
	chunk := make(Chunk, 0, 2*len(fields))
	for i, f := range fields {
		if i > 0 {
			chunk = append(chunk, Space())
		}
		chunk = append(chunk, Word(f))
	}
	return chunk
}

// ExpectedChar returns the character the player has to type at the given
// cursor position.
func (c Collection) ExpectedChar(cur Cursor) string {
	el := c[cur.Chunk][cur.Element]
	if el.Type == ElementTypeSpace {
		return " "
	}
	return el.Letters[cur.Letter]
}

// Advance returns the cursor that results from accepting one correct
// character. When the element index runs past the end of the current chunk,
// the cursor wraps to the next chunk modulo the collection length, so the
// text is an endless cyclic stream.
func (c Collection) Advance(cur Cursor) Cursor {
	chunk := c[cur.Chunk]
	el := chunk[cur.Element]

	next := cur
	if el.Type == ElementTypeSpace {
		next.Element++
		next.Letter = 0
	} else if cur.Letter+1 >= len(el.Letters) {
		next.Element++
		next.Letter = 0
	} else {
		next.Letter++
	}

	if next.Element >= len(chunk) {
		next.Chunk = (next.Chunk + 1) % len(c)
		next.Element = 0
		next.Letter = 0
	}
	return next
}
