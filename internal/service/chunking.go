package service

import (
	"regexp"
	"strings"
)

// ChunkConfig controls how document text is split for embedding.
type ChunkConfig struct {
	MaxChars int // upper bound per chunk, in runes
	Overlap  int // overlap for the sliding-window fallback
	MinChars int // chunks shorter than this are dropped (except the last)
}

// DefaultChunkConfig provides sane defaults for chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxChars: 1000,
		Overlap:  200,
		MinChars: 10,
	}
}

var (
	// Blank lines in any common line-ending convention separate paragraphs.
	paragraphSep = regexp.MustCompile(`\r?\n[ \t]*\r?\n`)
	// CJK terminators end a sentence on their own; Latin ones only when
	// followed by whitespace, so decimals and abbreviations survive.
	sentenceEnd = regexp.MustCompile(`[。！？\n]|[.!?]\s+`)
)

// Soft punctuation marks where an oversized sentence may be cut, in
// preference order.
var softPunctuation = []rune{'，', ',', '；', ';', '、', '：', ':'}

// SplitText splits document text into embedding-sized chunks. Paragraphs
// that fit the budget are emitted verbatim; longer paragraphs are packed
// sentence by sentence, and a single sentence over the budget is force-split
// at soft punctuation or, failing that, at the raw rune boundary. Text with
// no paragraph boundaries at all falls back to a fixed sliding window with
// overlap.
func SplitText(text string, cfg ChunkConfig) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if cfg.MaxChars <= 0 {
		cfg = DefaultChunkConfig()
	}

	var chunks []string
	for _, para := range paragraphSep.Split(text, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if len([]rune(para)) <= cfg.MaxChars {
			chunks = append(chunks, para)
			continue
		}
		chunks = append(chunks, packSentences(para, cfg.MaxChars)...)
	}

	if len(chunks) == 0 {
		chunks = slideWindow(text, cfg.MaxChars, cfg.Overlap)
	}

	return filterChunks(chunks, cfg.MinChars)
}

// packSentences greedily packs a paragraph's sentences into chunks of at
// most maxChars runes.
func packSentences(para string, maxChars int) []string {
	var chunks []string
	var current strings.Builder
	currentLen := 0

	for _, sentence := range sentenceEnd.Split(para, -1) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		sentenceLen := len([]rune(sentence))

		if currentLen+sentenceLen+1 <= maxChars {
			if currentLen > 0 {
				current.WriteByte(' ')
				currentLen++
			}
			current.WriteString(sentence)
			currentLen += sentenceLen
			continue
		}

		if currentLen > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen = 0
		}

		if sentenceLen > maxChars {
			chunks = append(chunks, forceSplit(sentence, maxChars)...)
			continue
		}

		current.WriteString(sentence)
		currentLen = sentenceLen
	}

	if currentLen > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// forceSplit cuts a sentence that alone exceeds maxChars, preferring the
// last soft punctuation mark inside each window over a raw rune boundary.
func forceSplit(sentence string, maxChars int) []string {
	runes := []rune(sentence)
	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + maxChars
		if end >= len(runes) {
			if chunk := string(runes[start:]); chunk != "" {
				chunks = append(chunks, chunk)
			}
			break
		}

		split := end
		for _, punct := range softPunctuation {
			if idx := lastIndexRune(runes, punct, start, end); idx > start {
				split = idx + 1
				break
			}
		}

		if chunk := string(runes[start:split]); chunk != "" {
			chunks = append(chunks, chunk)
		}
		start = split
	}
	return chunks
}

func lastIndexRune(runes []rune, r rune, start, end int) int {
	for i := end - 1; i >= start; i-- {
		if runes[i] == r {
			return i
		}
	}
	return -1
}

// slideWindow emits fixed windows of maxChars runes, advancing by
// maxChars-overlap so adjacent windows share context.
func slideWindow(text string, maxChars, overlap int) []string {
	runes := []rune(text)
	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + maxChars
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end >= len(runes) {
			break
		}
		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// filterChunks drops empty and too-short chunks. The final chunk is always
// kept so trailing content is never lost.
func filterChunks(chunks []string, minChars int) []string {
	filtered := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		if len([]rune(chunk)) >= minChars || i == len(chunks)-1 {
			filtered = append(filtered, chunk)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	return filtered
}
