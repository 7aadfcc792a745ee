// Package textnorm cleans and chunks raw article text before annotation and
// extraction. Every function is deterministic and total: no input, including
// the empty string, makes them fail.
package textnorm

import (
	"regexp"
	"strings"
)

const (
	// DefaultChunkSize and DefaultOverlap shape the sliding windows used for
	// long articles.
	DefaultChunkSize = 512
	DefaultOverlap   = 50

	// chunkThreshold is the cleaned-text length above which Pipeline chunks.
	chunkThreshold = 1024
)

var (
	urlRE     = regexp.MustCompile(`http\S+|www\S+`)
	emailRE   = regexp.MustCompile(`\S+@\S+`)
	htmlEntRE = regexp.MustCompile(`&\w+;`)
	spaceRE   = regexp.MustCompile(`\s+`)

	// Denoise keeps word characters, whitespace and the currency/percent
	// symbols so monetary and percentage tokens survive cleanup.
	noiseRE = regexp.MustCompile(`[^\w\p{L}\p{N}\s$€£¥%\-.]`)
)

// Normalize lowercases text and strips URLs, email addresses and HTML
// entities, collapsing the remaining whitespace. Idempotent.
func Normalize(text string) string {
	text = strings.ToLower(text)
	text = urlRE.ReplaceAllString(text, "")
	text = emailRE.ReplaceAllString(text, "")
	text = htmlEntRE.ReplaceAllString(text, "")
	return strings.TrimSpace(spaceRE.ReplaceAllString(text, " "))
}

// Denoise replaces punctuation and symbols outside the preserved set with
// spaces, then collapses whitespace.
func Denoise(text string) string {
	text = noiseRE.ReplaceAllString(text, " ")
	return strings.TrimSpace(spaceRE.ReplaceAllString(text, " "))
}

// Chunk splits text into overlapping windows of size characters, each
// overlapping the previous by overlap characters. Always returns at least one
// chunk, and every character of the input appears in at least one chunk.
// overlap >= size would stall the window, so it is coerced to zero.
func Chunk(text string, size, overlap int) []string {
	if size <= 0 {
		return []string{text}
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}
		chunks = append(chunks, string(runes[start:end]))
		start = end - overlap
	}
	return chunks
}

// Sentences splits text on sentence-ending punctuation followed by
// whitespace, dropping empty results.
func Sentences(text string) []string {
	var out []string
	start := 0
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		if (c == '.' || c == '!' || c == '?') && i+1 < len(runes) && isSpace(runes[i+1]) {
			if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
				out = append(out, s)
			}
			start = i + 1
		}
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// Pipeline normalizes and denoises text, then chunks it only when the cleaned
// result exceeds the chunking threshold. Short input comes back as a
// single-element slice. Callers that only want the most information-dense
// portion take the first chunk.
func Pipeline(text string) []string {
	cleaned := Denoise(Normalize(text))
	if len([]rune(cleaned)) > chunkThreshold {
		return Chunk(cleaned, DefaultChunkSize, DefaultOverlap)
	}
	return []string{cleaned}
}
