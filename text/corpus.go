package text

import (
	"fmt"
	"math/rand"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// builtinChunks is the default race text corpus, used when no corpus file is
// configured.
var builtinChunks = []string{
	"The quick brown fox jumps over the lazy dog",
	"Pack my box with five dozen liquor jugs",
	"How vexingly quick daft zebras jump",
	"Sphinx of black quartz judge my vow",
	"The five boxing wizards jump quickly",
	"Bright vixens jump while dozy fowl quack",
	"Jackdaws love my big sphinx of quartz",
	"We promptly judged antique ivory buckles for the next prize",
	"A wizard's job is to vex chumps quickly in fog",
	"Amazingly few discotheques provide jukeboxes",
	"Heavy boxes perform quick waltzes and jigs",
	"The jay pig fox zebra and my wolves quack",
}

type chunkDef struct {
	Text string `mapstructure:"text"`
}

// Corpus holds the parsed chunks a game can draw its text collection from.
type Corpus struct {
	chunks []Chunk
}

// NewCorpus builds a corpus from the built-in chunk texts.
func NewCorpus() *Corpus {
	return corpusFromTexts(builtinChunks)
}

// LoadCorpus reads a TOML corpus file of the form
//
//	[[chunks]]
//	text = "..."
//
// falling back to the built-in corpus if path is empty.
func LoadCorpus(path string) (*Corpus, error) {
	if path == "" {
		return NewCorpus(), nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	defs := make([]chunkDef, 0)
	if err := mapstructure.WeakDecode(v.Get("chunks"), &defs); err != nil {
		return nil, err
	}
	texts := make([]string, 0, len(defs))
	for _, d := range defs {
		if d.Text != "" {
			texts = append(texts, d.Text)
		}
	}
	if len(texts) == 0 {
		return nil, fmt.Errorf("corpus file %s contains no chunks", path)
	}
	return corpusFromTexts(texts), nil
}

func corpusFromTexts(texts []string) *Corpus {
	chunks := make([]Chunk, 0, len(texts))
	for _, t := range texts {
		if c := ParseChunk(t); len(c) > 0 {
			chunks = append(chunks, c)
		}
	}
	return &Corpus{chunks: chunks}
}

func (c *Corpus) Size() int { return len(c.chunks) }

// Select draws between min and max chunks (inclusive), uniformly with
// replacement.
func (c *Corpus) Select(rnd *rand.Rand, min, max int) Collection {
	if max < min {
		max = min
	}
	count := min + rnd.Intn(max-min+1)
	col := make(Collection, 0, count)
	for i := 0; i < count; i++ {
		col = append(col, c.chunks[rnd.Intn(len(c.chunks))])
	}
	return col
}
