package corpus

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Splitter cuts document text into overlapping chunks. It prefers to break
// on paragraph, then line, then sentence, then word boundaries, falling back
// to a hard cut when a span has no separator at all.
type Splitter struct {
	chunkSize int // target chunk length in bytes
	overlap   int // bytes carried over between adjacent chunks
}

// separators are tried in order; the first one present in the window wins.
var separators = []string{"\n\n", "\n", ". ", " "}

// NewSplitter creates a splitter. overlap must be smaller than chunkSize;
// callers validate via config.
func NewSplitter(chunkSize, overlap int) *Splitter {
	return &Splitter{chunkSize: chunkSize, overlap: overlap}
}

// Split cuts text into chunks, recording each chunk's start offset within
// the document. Whitespace-only spans are dropped.
func (s *Splitter) Split(documentID, text string) []Chunk {
	var chunks []Chunk
	now := time.Now()

	pos := 0
	for pos < len(text) {
		end := pos + s.chunkSize
		if end >= len(text) {
			end = len(text)
		} else {
			end = s.breakAt(text, pos, end)
		}

		piece := text[pos:end]
		if strings.TrimSpace(piece) != "" {
			chunks = append(chunks, Chunk{
				ID:          chunkID(documentID, pos),
				DocumentID:  documentID,
				Content:     piece,
				StartOffset: pos,
				CreatedAt:   now,
			})
		}

		if end == len(text) {
			break
		}
		next := runeFloor(text, end-s.overlap)
		if next <= pos {
			// Always make progress, landing on the next rune start.
			next = pos + 1
			for next < len(text) && !utf8.RuneStart(text[next]) {
				next++
			}
		}
		pos = next
	}

	return chunks
}

// breakAt finds the best cut point in text[pos:limit], scanning backwards
// from the limit for the highest-priority separator.
func (s *Splitter) breakAt(text string, pos, limit int) int {
	window := text[pos:limit]
	for _, sep := range separators {
		if idx := strings.LastIndex(window, sep); idx > 0 {
			return pos + idx + len(sep)
		}
	}

	// Hard cut: never split a multi-byte rune.
	if cut := runeFloor(text, limit); cut > pos {
		return cut
	}
	return limit
}

// runeFloor returns the largest rune boundary at or below i.
func runeFloor(text string, i int) int {
	for i > 0 && !utf8.RuneStart(text[i]) {
		i--
	}
	return i
}

// chunkID derives a stable identifier from the document and offset so
// re-ingesting the same corpus upserts rather than duplicates.
func chunkID(documentID string, offset int) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s:%d", documentID, offset))
	return hex.EncodeToString(sum[:16])
}
