package chunker

import (
	"strings"
	"testing"
)

func TestFixedChunkProducesOverlap(t *testing.T) {
	text := strings.Repeat("word ", 300)
	chunks, err := SimpleChunker{}.Chunk("src-1", text, Options{Strategy: StrategyFixed, ChunkSize: 200, ChunkOverlap: 40})
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.SourceID != "src-1" || c.ChunkIndex != i || c.TotalChunks != len(chunks) {
			t.Fatalf("chunk %d metadata mismatch: %+v", i, c)
		}
	}
}

func TestSentenceChunkNeverSplitsASentence(t *testing.T) {
	text := "First sentence here. Second sentence follows. Third one closes it out."
	chunks, err := SimpleChunker{}.Chunk("src-2", text, Options{Strategy: StrategySentence, ChunkSize: 30})
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	for _, c := range chunks {
		if !strings.HasSuffix(strings.TrimSpace(c.Content), ".") {
			t.Fatalf("chunk does not end on a sentence boundary: %q", c.Content)
		}
	}
}

func TestMarkdownChunkSplitsOnHeadings(t *testing.T) {
	text := "# Intro\nSome intro text.\n\n## Details\nMore detail text that follows the second heading."
	chunks, err := SimpleChunker{}.Chunk("src-3", text, Options{Strategy: StrategyMarkdown, ChunkSize: 512})
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 sections, got %d: %+v", len(chunks), chunks)
	}
	if !strings.HasPrefix(chunks[0].Content, "# Intro") {
		t.Fatalf("expected first chunk to retain heading, got %q", chunks[0].Content)
	}
}

func TestRecursiveChunkRespectsSizeBudget(t *testing.T) {
	text := strings.Repeat("paragraph one sentence.\n\n", 40)
	chunks, err := SimpleChunker{}.Chunk("src-4", text, Options{Strategy: StrategyRecursive, ChunkSize: 100, ChunkOverlap: 10})
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if len(chunks) == 0 {
		t.Fatal("expected at least one chunk")
	}
	for _, c := range chunks {
		if len(c.Content) > 100+10 {
			t.Fatalf("chunk exceeds size+overlap budget: %d chars", len(c.Content))
		}
	}
}

func TestEmptyTextProducesNoChunks(t *testing.T) {
	chunks, err := SimpleChunker{}.Chunk("src-5", "", Options{})
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if len(chunks) != 0 {
		t.Fatalf("expected no chunks for empty text, got %d", len(chunks))
	}
}

func TestChunkSizeClampedToValidRange(t *testing.T) {
	opt := Options{ChunkSize: 10}.normalized()
	if opt.ChunkSize != 100 {
		t.Fatalf("expected chunk size clamped to 100, got %d", opt.ChunkSize)
	}
	opt = Options{ChunkSize: 10000}.normalized()
	if opt.ChunkSize != 4000 {
		t.Fatalf("expected chunk size clamped to 4000, got %d", opt.ChunkSize)
	}
}
