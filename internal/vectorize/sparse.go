package vectorize

import (
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/jdkato/prose/v2"

	"rag-chatbot/internal/models"
)

// MaxVocabularySize caps the sparse term-index space
const MaxVocabularySize = 10000

// SparseEncoder builds a TF-IDF weighted sparse vector over a corpus of text
// units. Terms are case-folded, English stop words are removed, and the
// vocabulary is capped at MaxVocabularySize.
//
// Term indices are the FNV-1a hash of the token modulo the vocabulary cap, so
// identical terms occupy identical indices across independent Encode calls.
// This keeps ingestion-time and query-time vectors in one shared term-index
// space even though IDF weights are fit per call over the given corpus only.
// Distinct terms may collide onto one index; the collision rate is bounded by
// the vocabulary cap and accepted.
type SparseEncoder struct {
	maxFeatures int
	stopWords   map[string]bool
	minLength   int
}

// NewSparseEncoder creates a sparse encoder with the default vocabulary cap
func NewSparseEncoder() *SparseEncoder {
	return &SparseEncoder{
		maxFeatures: MaxVocabularySize,
		stopWords:   englishStopWords(),
		minLength:   2,
	}
}

// Encode computes a single TF-IDF vector over the corpus: term frequencies
// are counted across all corpus entries, inverse document frequencies are
// smoothed over the entries, and the resulting weights are L2-normalized.
// Indices are returned in ascending order with parallel values.
func (e *SparseEncoder) Encode(corpus []string) (*models.SparseVector, error) {
	docTokens := make([][]string, 0, len(corpus))
	for _, text := range corpus {
		tokens, err := e.tokenize(text)
		if err != nil {
			return nil, fmt.Errorf("failed to tokenize corpus entry: %w", err)
		}
		if len(tokens) > 0 {
			docTokens = append(docTokens, tokens)
		}
	}
	if len(docTokens) == 0 {
		return nil, fmt.Errorf("corpus contains no indexable terms")
	}

	// Term frequency across the whole corpus, document frequency per entry
	termFreq := make(map[string]int)
	docFreq := make(map[string]int)
	for _, tokens := range docTokens {
		seen := make(map[string]bool, len(tokens))
		for _, tok := range tokens {
			termFreq[tok]++
			if !seen[tok] {
				docFreq[tok]++
				seen[tok] = true
			}
		}
	}

	// Smoothed IDF: ln((1+n)/(1+df)) + 1
	n := float64(len(docTokens))
	weights := make(map[uint32]float64, len(termFreq))
	for term, tf := range termFreq {
		idf := math.Log((1+n)/(1+float64(docFreq[term]))) + 1
		idx := e.termIndex(term)
		// Hash collisions accumulate onto the shared index
		weights[idx] += float64(tf) * idf
	}

	// L2 normalization
	var norm float64
	for _, w := range weights {
		norm += w * w
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return nil, fmt.Errorf("corpus produced a zero-weight vector")
	}

	indices := make([]uint32, 0, len(weights))
	for idx := range weights {
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	values := make([]float32, len(indices))
	for i, idx := range indices {
		values[i] = float32(weights[idx] / norm)
	}

	return &models.SparseVector{Indices: indices, Values: values}, nil
}

// termIndex maps a term to its stable slot in the capped vocabulary
func (e *SparseEncoder) termIndex(term string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(term))
	return h.Sum32() % uint32(e.maxFeatures)
}

// tokenize splits text into lowercased terms, dropping stop words, numbers
// and punctuation
func (e *SparseEncoder) tokenize(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	doc, err := prose.NewDocument(text,
		prose.WithSegmentation(false),
		prose.WithTagging(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return nil, err
	}

	var tokens []string
	for _, tok := range doc.Tokens() {
		term := strings.ToLower(tok.Text)
		if len(term) < e.minLength {
			continue
		}
		if e.stopWords[term] {
			continue
		}
		if !containsLetter(term) {
			continue
		}
		tokens = append(tokens, term)
	}
	return tokens, nil
}

func containsLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
