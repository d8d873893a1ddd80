package routes

import (
	"strings"
	"testing"

	"pages-chatbot-platform/internal/rag"
)

func TestBuildUserPromptWithContext(t *testing.T) {
	chunks := []rag.RetrievedChunk{
		{Text: "We ship worldwide.", ChunkIndex: 3},
		{Text: "Returns accepted within 30 days.", ChunkIndex: 0},
	}

	prompt := buildUserPrompt("Do you ship to Japan?", chunks)

	if !strings.Contains(prompt, "[1] We ship worldwide.") {
		t.Errorf("first chunk not numbered in prompt:\n%s", prompt)
	}
	if !strings.Contains(prompt, "[2] Returns accepted within 30 days.") {
		t.Errorf("second chunk not numbered in prompt:\n%s", prompt)
	}
	if !strings.HasSuffix(prompt, "Question: Do you ship to Japan?") {
		t.Errorf("question must come last:\n%s", prompt)
	}
}

func TestBuildUserPromptWithoutContext(t *testing.T) {
	prompt := buildUserPrompt("Anything?", nil)

	if !strings.Contains(prompt, "No context is available") {
		t.Errorf("empty retrieval should be stated explicitly:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Question: Anything?") {
		t.Errorf("question missing:\n%s", prompt)
	}
}
