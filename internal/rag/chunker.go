package rag

import (
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"pages-chatbot-platform/internal/logger"
)

// cl100k_base is the vocabulary of text-embedding-ada-002 and the
// text-embedding-3* family; close enough for Gemini token budgeting too.
const encodingName = "cl100k_base"

// approxCharsPerToken drives the character fallback when the BPE vocabulary
// cannot be loaded (e.g. no network access to fetch the encoding file).
const approxCharsPerToken = 4

// Chunker splits raw text into overlapping token-bounded windows. Output is
// deterministic for fixed input and parameters, which keeps re-ingestion
// reproducible.
type Chunker struct {
	sizeTokens    int
	overlapTokens int
	enc           *tiktoken.Tiktoken
}

// NewChunker builds a chunker with the given window size and overlap, both in
// tokens. When the tokenizer is unavailable it degrades to character windows
// at approxCharsPerToken.
func NewChunker(sizeTokens, overlapTokens int) *Chunker {
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		logger.Warn("tokenizer unavailable, falling back to character chunking", "error", err)
		enc = nil
	}

	return &Chunker{
		sizeTokens:    sizeTokens,
		overlapTokens: overlapTokens,
		enc:           enc,
	}
}

// Chunk splits text into windows of up to sizeTokens tokens, a new window
// starting every step tokens until the text is exhausted. Trailing windows
// are clipped to the end of the text, so the last windows overlap the final
// region rather than being dropped. Empty input yields no chunks.
func (c *Chunker) Chunk(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	// Step of at least one token guarantees forward progress even when the
	// overlap meets or exceeds the window size.
	step := c.sizeTokens - c.overlapTokens
	if step < 1 {
		step = 1
	}

	if c.enc == nil {
		return c.chunkByChars(text, step)
	}

	toks := c.enc.Encode(text, nil, nil)
	n := len(toks)

	var chunks []string
	for i := 0; i < n; i += step {
		end := i + c.sizeTokens
		if end > n {
			end = n
		}
		chunks = append(chunks, c.enc.Decode(toks[i:end]))
	}
	return chunks
}

// chunkByChars applies the same sliding-window logic over runes, scaled by the
// chars-per-token approximation. Boundaries differ from true token boundaries
// but the chunk-count growth pattern matches the token path.
func (c *Chunker) chunkByChars(text string, stepTokens int) []string {
	runes := []rune(text)
	n := len(runes)

	size := c.sizeTokens * approxCharsPerToken
	step := stepTokens * approxCharsPerToken
	if step < 1 {
		step = 1
	}

	var chunks []string
	for i := 0; i < n; i += step {
		end := i + size
		if end > n {
			end = n
		}
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}

// CountTokens reports the token length of text, approximating when the
// tokenizer is unavailable.
func (c *Chunker) CountTokens(text string) int {
	if c.enc == nil {
		return (len([]rune(text)) + approxCharsPerToken - 1) / approxCharsPerToken
	}
	return len(c.enc.Encode(text, nil, nil))
}

// TruncateTokens clips text to at most maxTokens tokens. Used to cap question
// length before retrieval and prompting.
func (c *Chunker) TruncateTokens(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}

	if c.enc == nil {
		runes := []rune(text)
		limit := maxTokens * approxCharsPerToken
		if len(runes) <= limit {
			return text
		}
		return string(runes[:limit])
	}

	toks := c.enc.Encode(text, nil, nil)
	if len(toks) <= maxTokens {
		return text
	}
	return c.enc.Decode(toks[:maxTokens])
}
