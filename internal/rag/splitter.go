package rag

import (
	"strings"
	"unicode/utf8"
)

// Chunking defaults, in bytes of UTF-8 text.
const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 200
)

// defaultSeparators is the split hierarchy, largest structural boundary
// first. The empty separator is the hard-cut last resort.
var defaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Splitter breaks text into overlapping chunks, preferring paragraph
// and sentence boundaries over hard cuts at the size limit.
type Splitter struct {
	chunkSize  int
	overlap    int
	separators []string
}

// NewSplitter creates a splitter. Non-positive arguments fall back to
// the defaults; overlap is clamped below the chunk size.
func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultOverlap
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 5
	}
	return &Splitter{
		chunkSize:  chunkSize,
		overlap:    overlap,
		separators: defaultSeparators,
	}
}

// Split returns the chunks of text, each at most the chunk size, with
// consecutive chunks sharing up to the configured overlap.
func (s *Splitter) Split(text string) []string {
	return s.split(text, s.separators)
}

func (s *Splitter) split(text string, seps []string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if len(text) <= s.chunkSize {
		return []string{trimmed}
	}

	sep, rest := pickSeparator(text, seps)
	if sep == "" {
		return s.hardCut(text)
	}
	pieces := strings.SplitAfter(text, sep)

	var chunks []string
	var current strings.Builder
	flush := func() {
		if c := strings.TrimSpace(current.String()); c != "" {
			chunks = append(chunks, c)
		}
		current.Reset()
	}

	for _, piece := range pieces {
		if len(piece) > s.chunkSize {
			// A single piece larger than the budget: recurse with the
			// finer separators.
			flush()
			chunks = append(chunks, s.split(piece, rest)...)
			continue
		}
		if current.Len() > 0 && current.Len()+len(piece) > s.chunkSize {
			tail := overlapTail(current.String(), s.overlap)
			flush()
			// Carry the overlap only when it still fits the budget.
			if len(tail)+len(piece) <= s.chunkSize {
				current.WriteString(tail)
			}
		}
		current.WriteString(piece)
	}
	flush()
	return chunks
}

// hardCut slices text into fixed windows stepping by chunkSize-overlap.
// Window edges are snapped back to rune boundaries so multibyte text is
// never bisected.
func (s *Splitter) hardCut(text string) []string {
	step := s.chunkSize - s.overlap
	var chunks []string
	for start := 0; start < len(text); {
		end := start + s.chunkSize
		if end >= len(text) {
			if c := strings.TrimSpace(text[start:]); c != "" {
				chunks = append(chunks, c)
			}
			break
		}
		end = runeStart(text, end)
		if c := strings.TrimSpace(text[start:end]); c != "" {
			chunks = append(chunks, c)
		}
		next := runeStart(text, start+step)
		if next <= start {
			// Budget smaller than a rune: advance anyway.
			_, size := utf8.DecodeRuneInString(text[start:])
			next = start + size
		}
		start = next
	}
	return chunks
}

// runeStart walks i back to the nearest rune boundary at or before it.
func runeStart(s string, i int) int {
	for i > 0 && i < len(s) && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}

// pickSeparator returns the first separator present in text and the
// remaining finer separators.
func pickSeparator(text string, seps []string) (string, []string) {
	for i, sep := range seps {
		if sep == "" {
			return "", nil
		}
		if strings.Contains(text, sep) {
			return sep, seps[i+1:]
		}
	}
	return "", nil
}

// overlapTail returns the trailing overlap bytes of text, snapped back
// to a space so chunks do not start mid-word. The cut point advances to
// the next rune boundary, so the tail is valid UTF-8 and never exceeds
// the overlap budget.
func overlapTail(text string, overlap int) string {
	if overlap <= 0 || len(text) == 0 {
		return ""
	}
	if len(text) <= overlap {
		return text
	}
	cut := len(text) - overlap
	for cut < len(text) && !utf8.RuneStart(text[cut]) {
		cut++
	}
	tail := text[cut:]
	if i := strings.IndexByte(tail, ' '); i > 0 && i < len(tail)-1 {
		tail = tail[i+1:]
	}
	return tail
}
