package pdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsPDF(t *testing.T) {
	assert.True(t, IsPDF([]byte("%PDF-1.4\n...")))
	assert.True(t, IsPDF([]byte("%PDF-2.0")))
	assert.False(t, IsPDF([]byte("plain text")))
	assert.False(t, IsPDF([]byte("")))
	assert.False(t, IsPDF(nil))
	// Header must be at the very start
	assert.False(t, IsPDF([]byte("\n%PDF-1.4")))
}

func TestExtractPagesRejectsGarbage(t *testing.T) {
	extractor := NewExtractor()

	_, err := extractor.ExtractPages([]byte("%PDF-1.4 but not really a pdf"))
	assert.Error(t, err)
}
