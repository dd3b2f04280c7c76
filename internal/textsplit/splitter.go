package textsplit

import (
	"strings"
)

// Default splitting parameters used by the ingestion pipeline
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// DefaultSeparators are tried coarsest first: paragraph, line, word. The
// trailing empty separator performs no further splitting and exists so the
// fallback to a single oversized chunk is explicit in the separator order.
func DefaultSeparators() []string {
	return []string{"\n\n", "\n", " ", ""}
}

// Splitter splits raw text into bounded-size chunks with overlap. It is a
// pure function of its inputs: the same text always yields the same chunks.
type Splitter struct {
	ChunkSize    int
	ChunkOverlap int
	Separators   []string
}

// NewSplitter creates a splitter with defaults applied for zero values
func NewSplitter(chunkSize, chunkOverlap int, separators []string) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = DefaultChunkOverlap
	}
	if len(separators) == 0 {
		separators = DefaultSeparators()
	}
	return &Splitter{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
		Separators:   separators,
	}
}

// Split breaks text into chunks of at most ChunkSize characters, trying each
// separator in priority order and keeping the first separator whose chunks
// all fit the budget. Consecutive chunks share the trailing ChunkOverlap
// characters of the previous chunk.
//
// If no separator yields chunks within budget the whole text is returned as
// one oversized chunk -- the size bound is accepted as violated rather than
// silently enforced by truncation.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if len(text) <= s.ChunkSize {
		return []string{strings.TrimSpace(text)}
	}

	for _, sep := range s.Separators {
		pieces := splitWithSeparator(text, sep)
		if len(pieces) < 2 {
			continue
		}
		chunks := s.merge(pieces, sep)
		if allWithinBudget(chunks, s.ChunkSize) {
			return chunks
		}
	}

	return []string{strings.TrimSpace(text)}
}

// merge greedily accumulates pieces into chunks, accounting for one joining
// separator character per added piece. A closing chunk seeds the next chunk
// with its trailing ChunkOverlap characters.
func (s *Splitter) merge(pieces []string, sep string) []string {
	var chunks []string
	current := ""
	hasNewContent := false

	for _, piece := range pieces {
		if len(current)+len(piece)+1 > s.ChunkSize {
			if hasNewContent {
				if trimmed := strings.TrimSpace(current); trimmed != "" {
					chunks = append(chunks, trimmed)
				}
			}
			current = s.overlapSeed(chunks, sep)
			hasNewContent = false
		}
		if current == "" {
			current = piece
		} else {
			current += sep + piece
		}
		hasNewContent = true
	}

	if hasNewContent {
		if trimmed := strings.TrimSpace(current); trimmed != "" {
			chunks = append(chunks, trimmed)
		}
	}

	return chunks
}

// overlapSeed returns the trailing ChunkOverlap characters of the last
// emitted chunk, or empty when there is nothing to carry over
func (s *Splitter) overlapSeed(chunks []string, sep string) string {
	if s.ChunkOverlap <= 0 || len(chunks) == 0 {
		return ""
	}
	last := chunks[len(chunks)-1]
	if len(last) <= s.ChunkOverlap {
		return last
	}
	return last[len(last)-s.ChunkOverlap:]
}

// splitWithSeparator splits text on the separator. The empty separator does
// not split at all, matching the final fall-through behavior.
func splitWithSeparator(text, sep string) []string {
	if sep == "" {
		return []string{text}
	}
	return strings.Split(text, sep)
}

func allWithinBudget(chunks []string, budget int) bool {
	for _, chunk := range chunks {
		if len(chunk) > budget {
			return false
		}
	}
	return true
}
