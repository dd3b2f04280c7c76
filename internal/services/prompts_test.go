package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRenderSystemPrompt(t *testing.T) {
	now := time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC)

	prompt := renderSystemPrompt("Alex", now)

	assert.Contains(t, prompt, "User_name: Alex")
	assert.Contains(t, prompt, "Current date: 2025-03-14")
	assert.Contains(t, prompt, "Knowledge_cutoff: 2023-10-01")
	// The context header closes the prompt so passages append under it
	assert.True(t, len(prompt) > 0)
	assert.Contains(t, prompt[len(prompt)-40:], "`knowledge-base` Context:")
}

func TestRenderContextLine(t *testing.T) {
	t.Run("formats title and content", func(t *testing.T) {
		line := renderContextLine(1, "policy.pdf", "Deductible applies to specialists.")
		assert.Equal(t, "[1] title: policy.pdf content: Deductible applies to specialists.", line)
	})

	t.Run("fills placeholders for missing fields", func(t *testing.T) {
		line := renderContextLine(2, "", "")
		assert.Equal(t, "[2] title: No title content: No content", line)
	})
}
