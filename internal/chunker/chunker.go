// Package chunker splits cleaned document text into overlapping,
// sentence-aligned segments for embedding and retrieval.
package chunker

import (
	"regexp"
	"strings"
)

// Default chunking configuration, in characters.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Chunk is one bounded span of document text. PageNumber is always nil:
// sentence splitting discards page boundaries from the source extraction,
// so page attribution is left unknown at this stage.
type Chunk struct {
	Content    string
	PageNumber *int
	WordCount  int
}

// Chunker accumulates sentences into chunks of roughly Size characters,
// seeding each new chunk with the tail words of the previous one so that
// consecutive chunks overlap by roughly Overlap characters.
type Chunker struct {
	size    int
	overlap int
}

// sentenceEnd matches end-of-sentence punctuation followed by whitespace.
var sentenceEnd = regexp.MustCompile(`[.!?]\s+`)

// New creates a Chunker with the given target chunk size and overlap,
// falling back to the defaults for non-positive values.
func New(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultChunkOverlap
	}
	// Overlap must stay below the chunk size or the overlap seed would
	// consume entire chunks.
	if overlap >= size {
		overlap = size - 1
	}
	return &Chunker{size: size, overlap: overlap}
}

// Split breaks text into an ordered sequence of overlapping chunks.
// A single sentence longer than the chunk size is emitted as its own
// oversized chunk rather than split mid-sentence.
func (c *Chunker) Split(text string) []Chunk {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []Chunk
	var current strings.Builder

	for _, sentence := range sentences {
		if current.Len() > 0 && current.Len()+len(sentence) > c.size {
			content := strings.TrimSpace(current.String())
			chunks = append(chunks, newChunk(content))

			// Seed the next chunk with the tail words of the one just
			// closed, sized by the overlap/size ratio of its word count.
			words := strings.Fields(content)
			overlapWords := (c.overlap * len(words)) / c.size
			current.Reset()
			if overlapWords > 0 {
				current.WriteString(strings.Join(words[len(words)-overlapWords:], " "))
				current.WriteString(" ")
			}
		}
		current.WriteString(sentence)
		current.WriteString(" ")
	}

	if remainder := strings.TrimSpace(current.String()); remainder != "" {
		chunks = append(chunks, newChunk(remainder))
	}

	return chunks
}

func newChunk(content string) Chunk {
	return Chunk{
		Content:   content,
		WordCount: len(strings.Fields(content)),
	}
}

// splitSentences splits text at end-of-sentence punctuation followed by
// whitespace, keeping the punctuation with its sentence. Text without a
// final terminator still yields its trailing run as a sentence.
func splitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var sentences []string
	start := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		// loc[0] is the punctuation, loc[1] the first byte after the
		// whitespace run; the sentence keeps its punctuation.
		sentence := strings.TrimSpace(text[start : loc[0]+1])
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		start = loc[1]
	}
	if tail := strings.TrimSpace(text[start:]); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}
