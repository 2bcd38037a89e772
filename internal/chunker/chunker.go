// Package chunker splits document content into retrieval-sized, overlapping
// chunks, by character count, using one of four selectable strategies.
package chunker

import (
	"strings"
	"time"

	"university-query-engine/internal/domain"
)

// Strategy selects a splitting heuristic.
type Strategy string

const (
	StrategyFixed     Strategy = "fixed"
	StrategySentence  Strategy = "sentence"
	StrategyMarkdown  Strategy = "markdown"
	StrategyRecursive Strategy = "recursive"
)

// DefaultSeparators is the ordered separator list the recursive strategy
// tries, most-semantic first.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Options tunes a chunking call. Sizes are in characters, matching how a
// content editor or ingestion job would reason about a document.
type Options struct {
	Strategy      Strategy
	ChunkSize     int // default 512, valid range [100, 4000]
	ChunkOverlap  int // default 50, must be < ChunkSize
	MinChunkSize  int
	Separators    []string // only used by StrategyRecursive; defaults to DefaultSeparators
	Category      string
	Tags          []string
	SourceURL     string
	SourceTitle   string
}

func (o Options) normalized() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = 512
	}
	if o.ChunkSize < 100 {
		o.ChunkSize = 100
	}
	if o.ChunkSize > 4000 {
		o.ChunkSize = 4000
	}
	if o.ChunkOverlap < 0 || o.ChunkOverlap >= o.ChunkSize {
		o.ChunkOverlap = 50
		if o.ChunkOverlap >= o.ChunkSize {
			o.ChunkOverlap = o.ChunkSize / 10
		}
	}
	if len(o.Separators) == 0 {
		o.Separators = DefaultSeparators
	}
	return o
}

// Chunker splits raw text into domain.Chunk records tied to sourceID.
type Chunker interface {
	Chunk(sourceID, text string, opt Options) ([]domain.Chunk, error)
}

// SimpleChunker implements all four strategies with no external
// dependency — chunking is pure text processing with no I/O.
type SimpleChunker struct{}

func (SimpleChunker) Chunk(sourceID, text string, opt Options) ([]domain.Chunk, error) {
	opt = opt.normalized()
	strategy := opt.Strategy
	if strategy == "" {
		strategy = StrategyFixed
	}

	var raw []rawChunk
	switch strategy {
	case StrategySentence:
		raw = sentenceChunk(text, opt)
	case StrategyMarkdown:
		raw = markdownChunk(text, opt)
	case StrategyRecursive:
		raw = recursiveChunk(text, opt)
	default:
		raw = fixedChunk(text, opt)
	}

	raw = filterMin(raw, opt.MinChunkSize)

	now := time.Now()
	out := make([]domain.Chunk, 0, len(raw))
	for i, r := range raw {
		out = append(out, domain.Chunk{
			Content:     r.text,
			SourceID:    sourceID,
			ChunkIndex:  i,
			TotalChunks: len(raw),
			StartOffset: r.start,
			EndOffset:   r.end,
			Category:    opt.Category,
			Tags:        opt.Tags,
			CreatedAt:   now,
			SourceURL:   opt.SourceURL,
			SourceTitle: opt.SourceTitle,
		})
	}
	return out, nil
}

type rawChunk struct {
	text       string
	start, end int
}

func filterMin(chunks []rawChunk, minSize int) []rawChunk {
	if minSize <= 0 {
		return chunks
	}
	out := chunks[:0]
	for _, c := range chunks {
		if len(c.text) >= minSize {
			out = append(out, c)
		}
	}
	return out
}

// fixedChunk is a window of ChunkSize advancing by ChunkSize-ChunkOverlap.
func fixedChunk(text string, opt Options) []rawChunk {
	var out []rawChunk
	start := 0
	for start < len(text) {
		end := start + opt.ChunkSize
		if end > len(text) {
			end = len(text)
		}
		trimmed := strings.TrimSpace(text[start:end])
		if trimmed != "" {
			out = append(out, rawChunk{text: trimmed, start: start, end: end})
		}
		if end == len(text) {
			break
		}
		next := end - opt.ChunkOverlap
		if next <= start {
			next = end
		}
		start = next
	}
	return out
}

var sentenceEnd = []byte{'.', '!', '?'}

func isSentenceBoundary(text string, i int) bool {
	if i >= len(text) {
		return false
	}
	c := text[i]
	for _, e := range sentenceEnd {
		if c == e {
			return i+1 < len(text) && (text[i+1] == ' ' || text[i+1] == '\n')
		}
	}
	return false
}

// sentenceChunk greedily packs whole sentences until ChunkSize, never
// splitting a sentence across chunks.
func sentenceChunk(text string, opt Options) []rawChunk {
	var sentences []rawChunk
	start := 0
	for i := range text {
		if isSentenceBoundary(text, i) {
			sentences = append(sentences, rawChunk{text: text[start : i+1], start: start, end: i + 1})
			start = i + 1
		}
	}
	if start < len(text) {
		sentences = append(sentences, rawChunk{text: text[start:], start: start, end: len(text)})
	}

	var out []rawChunk
	var buf strings.Builder
	bufStart := -1
	bufEnd := 0
	flush := func() {
		if s := strings.TrimSpace(buf.String()); s != "" {
			out = append(out, rawChunk{text: s, start: bufStart, end: bufEnd})
		}
		buf.Reset()
		bufStart = -1
	}
	for _, s := range sentences {
		if buf.Len() > 0 && buf.Len()+len(s.text) > opt.ChunkSize {
			flush()
		}
		if bufStart == -1 {
			bufStart = s.start
		}
		buf.WriteString(s.text)
		bufEnd = s.end
	}
	flush()
	return out
}

// markdownChunk treats headings (levels 1-6) as hard section boundaries;
// a section exceeding ChunkSize is re-split by the fixed strategy, with the
// heading line prepended to the first resulting piece.
func markdownChunk(text string, opt Options) []rawChunk {
	lines := strings.Split(text, "\n")
	type section struct {
		heading    string
		body       strings.Builder
		start, end int
	}
	var sections []*section
	cur := &section{start: 0}
	pos := 0
	for _, ln := range lines {
		if strings.HasPrefix(ln, "#") {
			if cur.body.Len() > 0 || cur.heading != "" {
				cur.end = pos
				sections = append(sections, cur)
			}
			cur = &section{heading: ln, start: pos}
		} else {
			if cur.body.Len() > 0 {
				cur.body.WriteString("\n")
			}
			cur.body.WriteString(ln)
		}
		pos += len(ln) + 1
	}
	cur.end = pos
	sections = append(sections, cur)

	var out []rawChunk
	for _, s := range sections {
		full := s.heading
		if s.body.Len() > 0 {
			if full != "" {
				full += "\n"
			}
			full += s.body.String()
		}
		full = strings.TrimSpace(full)
		if full == "" {
			continue
		}
		if len(full) <= opt.ChunkSize {
			out = append(out, rawChunk{text: full, start: s.start, end: s.end})
			continue
		}
		pieces := fixedChunk(full, opt)
		for i := range pieces {
			pieces[i].start += s.start
			pieces[i].end += s.start
		}
		out = append(out, pieces...)
	}
	return out
}

// recursiveChunk tries separators in order; a piece still exceeding
// ChunkSize recurses with the next separator, and adjacent final pieces get
// ChunkOverlap characters of overlap folded in.
func recursiveChunk(text string, opt Options) []rawChunk {
	pieces := splitRecursive(text, opt.Separators, opt.ChunkSize)

	var out []rawChunk
	pos := 0
	for i, p := range pieces {
		start := pos
		end := pos + len(p)
		chunkText := p
		if i > 0 && opt.ChunkOverlap > 0 {
			prevEnd := out[len(out)-1].text
			ovLen := opt.ChunkOverlap
			if ovLen > len(prevEnd) {
				ovLen = len(prevEnd)
			}
			chunkText = prevEnd[len(prevEnd)-ovLen:] + p
		}
		if trimmed := strings.TrimSpace(chunkText); trimmed != "" {
			out = append(out, rawChunk{text: trimmed, start: start, end: end})
		}
		pos = end
	}
	return out
}

func splitRecursive(text string, seps []string, size int) []string {
	if len(text) <= size || len(seps) == 0 {
		return []string{text}
	}
	sep := seps[0]
	rest := seps[1:]

	var parts []string
	if sep == "" {
		for i := 0; i < len(text); i += size {
			end := i + size
			if end > len(text) {
				end = len(text)
			}
			parts = append(parts, text[i:end])
		}
		return parts
	}

	raw := strings.Split(text, sep)
	var pieces []string
	for i, r := range raw {
		if i < len(raw)-1 {
			r += sep
		}
		if r != "" {
			pieces = append(pieces, r)
		}
	}

	var out []string
	var buf strings.Builder
	flush := func() {
		if buf.Len() > 0 {
			out = append(out, buf.String())
			buf.Reset()
		}
	}
	for _, p := range pieces {
		if len(p) > size {
			flush()
			out = append(out, splitRecursive(p, rest, size)...)
			continue
		}
		if buf.Len()+len(p) > size {
			flush()
		}
		buf.WriteString(p)
	}
	flush()
	return out
}
