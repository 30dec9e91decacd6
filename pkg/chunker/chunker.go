package chunker

import (
	"strings"

	"github.com/xhad/recall/internal/models"
)

type ChunkerConfig struct {
	WindowSize int // maximum words per chunk
	Overlap    int // words shared between adjacent chunks
}

type Chunker struct {
	config ChunkerConfig
}

func NewWithConfig(config ChunkerConfig) Chunker {
	if config.WindowSize == 0 {
		config.WindowSize = 800
	}
	if config.Overlap == 0 {
		config.Overlap = 200
	}

	return Chunker{
		config: config,
	}
}

// Chunk splits text into overlapping word windows. The text is split on
// whitespace; windows hold up to WindowSize words and advance by
// max(1, WindowSize-Overlap) words, so the last window may be shorter.
// Words are rejoined with single spaces; the original whitespace
// structure is not preserved.
func (c *Chunker) Chunk(text string) []models.Chunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	step := c.config.WindowSize - c.config.Overlap
	if step < 1 {
		step = 1
	}

	var chunks []models.Chunk
	for i := 0; i < len(words); i += step {
		end := i + c.config.WindowSize
		if end > len(words) {
			end = len(words)
		}

		chunks = append(chunks, models.Chunk{
			Text:          strings.Join(words[i:end], " "),
			SequenceIndex: len(chunks),
		})
	}

	return chunks
}
