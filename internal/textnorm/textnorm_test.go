package textnorm

import (
	"strings"
	"testing"
)

func TestNormalizeBasics(t *testing.T) {
	in := "Apple Reports   RECORD Earnings!  Visit https://apple.com or email ir@apple.com &amp; more"
	got := Normalize(in)

	if strings.Contains(got, "https://") || strings.Contains(got, "apple.com") {
		t.Errorf("expected URLs and emails stripped, got %q", got)
	}
	if strings.Contains(got, "&amp;") {
		t.Errorf("expected HTML entities stripped, got %q", got)
	}
	if got != strings.ToLower(got) {
		t.Errorf("expected lowercased output, got %q", got)
	}
	if strings.Contains(got, "  ") {
		t.Errorf("expected collapsed whitespace, got %q", got)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"plain text",
		"Apple Inc. posted $1.2B revenue, up 5.3%! See www.example.com",
		"   spaced \t out \n text   ",
		"contact: someone@example.org &nbsp; trailing",
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestNormalizeNeverFails(t *testing.T) {
	// Total function: odd inputs still come back as strings.
	for _, in := range []string{"", " ", "\x00", "héllo wörld", "🚀 to the moon"} {
		_ = Normalize(in)
	}
}

func TestDenoisePreservesFinancialTokens(t *testing.T) {
	in := "revenue hit $1.2 billion (up 5.3%); loss of €40m, margin -2.1%."
	got := Denoise(in)

	for _, want := range []string{"$1.2", "5.3%", "€40m", "-2.1%."} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q preserved in %q", want, got)
		}
	}
	for _, gone := range []string{"(", ")", ";", ","} {
		if strings.Contains(got, gone) {
			t.Errorf("expected %q removed from %q", gone, got)
		}
	}
}

func TestChunkCoversAllInput(t *testing.T) {
	text := strings.Repeat("abcdefghij", 200) // 2000 chars
	size, overlap := 512, 50

	chunks := Chunk(text, size, overlap)
	if len(chunks) == 0 {
		t.Fatal("expected at least one chunk")
	}

	// Consecutive chunks overlap by exactly `overlap` characters, so the
	// original text is chunk 0 plus the non-overlapping tail of each rest.
	rebuilt := chunks[0]
	for _, c := range chunks[1:] {
		if len(c) < overlap {
			t.Fatalf("chunk shorter than overlap: %d < %d", len(c), overlap)
		}
		rebuilt += c[overlap:]
	}
	if rebuilt != text {
		t.Errorf("chunks do not cover input: rebuilt %d chars, want %d", len(rebuilt), len(text))
	}

	for _, c := range chunks[:len(chunks)-1] {
		if len(c) != size {
			t.Errorf("expected full chunk of %d chars, got %d", size, len(c))
		}
	}
}

func TestChunkShortAndEmptyInput(t *testing.T) {
	if got := Chunk("", 512, 50); len(got) != 1 || got[0] != "" {
		t.Errorf("expected single empty chunk for empty input, got %v", got)
	}
	if got := Chunk("short", 512, 50); len(got) != 1 || got[0] != "short" {
		t.Errorf("expected input returned whole, got %v", got)
	}
}

func TestChunkTerminatesWithBadOverlap(t *testing.T) {
	text := strings.Repeat("x", 1000)

	// overlap >= size must not loop forever; the guard drops the overlap.
	chunks := Chunk(text, 100, 100)
	if len(chunks) != 10 {
		t.Errorf("expected 10 non-overlapping chunks, got %d", len(chunks))
	}

	joined := strings.Join(chunks, "")
	if joined != text {
		t.Errorf("expected full coverage with coerced overlap")
	}
}

func TestSentences(t *testing.T) {
	got := Sentences("First sentence. Second one! Third? trailing bit")
	want := []string{"First sentence.", "Second one!", "Third?", "trailing bit"}
	if len(got) != len(want) {
		t.Fatalf("expected %d sentences, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sentence %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestPipelineShortText(t *testing.T) {
	got := Pipeline("Apple (AAPL) reported STRONG earnings, up 12%!")
	if len(got) != 1 {
		t.Fatalf("expected single chunk for short text, got %d", len(got))
	}
	if got[0] != strings.ToLower(got[0]) {
		t.Errorf("expected normalized chunk, got %q", got[0])
	}
}

func TestPipelineChunksLongText(t *testing.T) {
	long := strings.Repeat("markets rallied on strong earnings reports today. ", 50)
	got := Pipeline(long)
	if len(got) < 2 {
		t.Fatalf("expected multiple chunks for long text, got %d", len(got))
	}
	if len([]rune(got[0])) != DefaultChunkSize {
		t.Errorf("expected lead chunk of %d chars, got %d", DefaultChunkSize, len([]rune(got[0])))
	}
}

func TestPipelineEmptyInput(t *testing.T) {
	got := Pipeline("")
	if len(got) != 1 || got[0] != "" {
		t.Errorf("expected single empty chunk, got %v", got)
	}
}
