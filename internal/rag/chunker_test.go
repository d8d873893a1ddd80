package rag

import (
	"strings"
	"testing"
)

// charChunker forces the character fallback so results do not depend on the
// BPE vocabulary being fetchable in the test environment.
func charChunker(size, overlap int) *Chunker {
	return &Chunker{sizeTokens: size, overlapTokens: overlap}
}

func TestChunkEmptyInput(t *testing.T) {
	c := charChunker(400, 100)

	for _, in := range []string{"", "   ", "\n\t  \n"} {
		if got := c.Chunk(in); len(got) != 0 {
			t.Fatalf("expected no chunks for %q, got %d", in, len(got))
		}
	}
}

func TestChunkWindowScenario(t *testing.T) {
	// 1000 "tokens" of input with size=400 overlap=100 must produce windows
	// starting at 0, 300, 600, 900 (step 300): 4 chunks, the last one the
	// clipped overlap tail, not dropped.
	c := charChunker(400, 100)

	var sb strings.Builder
	for i := 0; i < 1000*approxCharsPerToken; i++ {
		sb.WriteByte(byte('a' + i%17))
	}
	text := sb.String()

	chunks := c.Chunk(text)
	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks, got %d", len(chunks))
	}

	step := 300 * approxCharsPerToken
	size := 400 * approxCharsPerToken
	for i, ch := range chunks {
		start := i * step
		end := start + size
		if end > len(text) {
			end = len(text)
		}
		if ch != text[start:end] {
			t.Errorf("chunk %d is not the window [%d,%d)", i, start, end)
		}
	}
	if last := len(chunks[3]); last != 100*approxCharsPerToken {
		t.Errorf("final chunk: expected %d chars, got %d", 100*approxCharsPerToken, last)
	}
}

func TestChunkCoversInputWithOverlap(t *testing.T) {
	c := charChunker(50, 10)
	text := strings.Repeat("abcdefghij", 173) // arbitrary non-multiple length

	chunks := c.Chunk(text)
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}

	// Reconstruct the input by dropping each chunk's leading overlap region;
	// any gap would mean the windows skipped input.
	step := (50 - 10) * approxCharsPerToken
	var rebuilt strings.Builder
	for i, ch := range chunks {
		if i == 0 {
			rebuilt.WriteString(ch)
			continue
		}
		start := i * step
		already := rebuilt.Len()
		if start > already {
			t.Fatalf("gap before chunk %d: window starts at %d but only %d chars covered", i, start, already)
		}
		if skip := already - start; skip < len(ch) {
			rebuilt.WriteString(ch[skip:])
		}
	}
	if rebuilt.String() != text {
		t.Fatal("chunks do not cover the input exactly")
	}
}

func TestChunkForwardProgressWhenOverlapExceedsSize(t *testing.T) {
	// overlap >= size degenerates to step 1; must still terminate and cover.
	c := charChunker(2, 5)
	text := strings.Repeat("x", 40)

	chunks := c.Chunk(text)
	// step 1 token = 4 chars per advance, 8-char windows over 40 chars:
	// starts at 0,4,...,36 -> 10 windows, the last clipped to [36,40).
	if len(chunks) != 10 {
		t.Fatalf("expected 10 chunks, got %d", len(chunks))
	}
	if last := chunks[len(chunks)-1]; !strings.HasSuffix(text, last) || len(last) != 4 {
		t.Fatalf("unexpected final window %q", last)
	}
}

func TestChunkDeterministic(t *testing.T) {
	c := charChunker(30, 5)
	text := strings.Repeat("the quick brown fox ", 60)

	a := c.Chunk(text)
	b := c.Chunk(text)
	if len(a) != len(b) {
		t.Fatalf("chunk counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("chunk %d differs between runs", i)
		}
	}
}

func TestChunkShortInputSingleChunk(t *testing.T) {
	c := charChunker(400, 100)

	chunks := c.Chunk("  hello world  ")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "hello world" {
		t.Fatalf("expected trimmed text, got %q", chunks[0])
	}
}

func TestTokenPathScenario(t *testing.T) {
	c := NewChunker(400, 100)
	if c.enc == nil {
		t.Skip("tokenizer unavailable")
	}

	// Build an input of exactly 1000 tokens and verify the 400/100 window
	// pattern: starts at 0, 300, 600, 900.
	word := "hello "
	perWord := len(c.enc.Encode(word, nil, nil))
	text := strings.Repeat(word, 1000/perWord)
	total := c.CountTokens(text)

	chunks := c.Chunk(text)
	// One window starts every 300 tokens while a start position remains.
	step := 300
	want := (total + step - 1) / step
	if len(chunks) != want {
		t.Fatalf("expected %d chunks for %d tokens, got %d", want, total, len(chunks))
	}
}

func TestCountTokensFallback(t *testing.T) {
	c := charChunker(400, 100)

	if got := c.CountTokens(""); got != 0 {
		t.Fatalf("expected 0 tokens for empty input, got %d", got)
	}
	if got := c.CountTokens("abcd"); got != 1 {
		t.Fatalf("expected 1 token for 4 chars, got %d", got)
	}
	if got := c.CountTokens("abcde"); got != 2 {
		t.Fatalf("expected 2 tokens for 5 chars, got %d", got)
	}
}

func TestTruncateTokensFallback(t *testing.T) {
	c := charChunker(400, 100)

	short := "hi"
	if got := c.TruncateTokens(short, 10); got != short {
		t.Fatalf("short input must pass through, got %q", got)
	}

	long := strings.Repeat("z", 100)
	got := c.TruncateTokens(long, 10)
	if len(got) != 10*approxCharsPerToken {
		t.Fatalf("expected %d chars after truncation, got %d", 10*approxCharsPerToken, len(got))
	}

	if got := c.TruncateTokens(long, 0); got != "" {
		t.Fatalf("expected empty string for zero budget, got %q", got)
	}
}
