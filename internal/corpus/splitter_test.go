package corpus

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitter_ShortText(t *testing.T) {
	t.Parallel()

	s := NewSplitter(300, 100)
	chunks := s.Split("doc", "a short document")

	if len(chunks) != 1 {
		t.Fatalf("Split() returned %d chunks, want 1", len(chunks))
	}
	if chunks[0].Content != "a short document" {
		t.Errorf("chunk content = %q, want full text", chunks[0].Content)
	}
	if chunks[0].StartOffset != 0 {
		t.Errorf("StartOffset = %d, want 0", chunks[0].StartOffset)
	}
	if chunks[0].DocumentID != "doc" {
		t.Errorf("DocumentID = %q, want %q", chunks[0].DocumentID, "doc")
	}
}

func TestSplitter_EmptyAndWhitespace(t *testing.T) {
	t.Parallel()

	s := NewSplitter(300, 100)

	if got := s.Split("doc", ""); len(got) != 0 {
		t.Errorf("Split(empty) returned %d chunks, want 0", len(got))
	}
	if got := s.Split("doc", "   \n\n  \t "); len(got) != 0 {
		t.Errorf("Split(whitespace) returned %d chunks, want 0", len(got))
	}
}

func TestSplitter_OverlapAndOffsets(t *testing.T) {
	t.Parallel()

	// Ten sentences, long enough to force several chunks at size 100.
	var sb strings.Builder
	for range 10 {
		sb.WriteString("The quick brown fox jumps over the lazy dog near the river bank. ")
	}
	text := sb.String()

	s := NewSplitter(100, 30)
	chunks := s.Split("doc", text)

	if len(chunks) < 2 {
		t.Fatalf("Split() returned %d chunks, want several", len(chunks))
	}

	for i, c := range chunks {
		// Offsets must index the original text exactly.
		if text[c.StartOffset:c.StartOffset+len(c.Content)] != c.Content {
			t.Errorf("chunk %d: StartOffset %d does not match content", i, c.StartOffset)
		}
		if len(c.Content) > 100 {
			t.Errorf("chunk %d: length %d exceeds chunk size", i, len(c.Content))
		}
		if i > 0 && c.StartOffset <= chunks[i-1].StartOffset {
			t.Errorf("chunk %d: offset %d not after previous %d", i, c.StartOffset, chunks[i-1].StartOffset)
		}
	}

	// Adjacent chunks overlap: each chunk starts before the previous ends.
	for i := 1; i < len(chunks); i++ {
		prevEnd := chunks[i-1].StartOffset + len(chunks[i-1].Content)
		if chunks[i].StartOffset >= prevEnd {
			t.Errorf("chunks %d and %d do not overlap (prev end %d, next start %d)",
				i-1, i, prevEnd, chunks[i].StartOffset)
		}
	}
}

func TestSplitter_PrefersParagraphBreaks(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("x", 50) + "\n\n" + strings.Repeat("y", 200)
	s := NewSplitter(100, 10)
	chunks := s.Split("doc", text)

	if len(chunks) < 2 {
		t.Fatalf("Split() returned %d chunks, want at least 2", len(chunks))
	}
	if !strings.HasSuffix(chunks[0].Content, "\n\n") {
		t.Errorf("first chunk does not end at paragraph break: %q", chunks[0].Content)
	}
}

func TestSplitter_NoSeparatorHardCut(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("a", 250)
	s := NewSplitter(100, 20)
	chunks := s.Split("doc", text)

	if len(chunks) < 3 {
		t.Fatalf("Split() returned %d chunks, want at least 3", len(chunks))
	}
	for i, c := range chunks {
		if len(c.Content) > 100 {
			t.Errorf("chunk %d: length %d exceeds chunk size on hard cut", i, len(c.Content))
		}
	}
}

func TestSplitter_MultiByteHardCut(t *testing.T) {
	t.Parallel()

	// Unbroken CJK prose: no separator anywhere, every rune is 3 bytes and
	// 100 is not a multiple of 3, so a byte-offset cut would land mid-rune.
	text := strings.Repeat("語", 200)
	s := NewSplitter(100, 20)
	chunks := s.Split("doc", text)

	if len(chunks) < 3 {
		t.Fatalf("Split() returned %d chunks, want at least 3", len(chunks))
	}
	for i, c := range chunks {
		if !utf8.ValidString(c.Content) {
			t.Errorf("chunk %d content is not valid UTF-8", i)
		}
		if got := text[c.StartOffset : c.StartOffset+len(c.Content)]; got != c.Content {
			t.Errorf("chunk %d does not match its recorded offset", i)
		}
	}
}

func TestChunkID_Stable(t *testing.T) {
	t.Parallel()

	s := NewSplitter(300, 100)
	a := s.Split("doc", "same text every time")
	b := s.Split("doc", "same text every time")

	if a[0].ID != b[0].ID {
		t.Errorf("chunk IDs differ across runs: %q vs %q", a[0].ID, b[0].ID)
	}

	other := s.Split("other-doc", "same text every time")
	if a[0].ID == other[0].ID {
		t.Error("chunk IDs collide across documents")
	}
}
