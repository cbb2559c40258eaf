package rag

import (
	"strings"
	"unicode/utf8"
)

var defaultSeparators = []string{"\n\n", "\n", ".", "!", "?", ",", " ", ""}

// Splitter cuts text into chunks of at most Size characters, preferring to break
// on the earliest separator in Separators that occurs in the text. Consecutive
// chunks share up to Overlap characters.
type Splitter struct {
	Size       int
	Overlap    int
	Separators []string
}

// NewSplitter returns a splitter breaking on paragraphs, lines, sentences and
// words, in that order.
func NewSplitter(size, overlap int) *Splitter {
	if overlap >= size {
		overlap = size / 4
	}
	return &Splitter{Size: size, Overlap: overlap, Separators: defaultSeparators}
}

// Split returns the chunks of text with surrounding whitespace removed. Empty
// chunks are dropped.
func (s *Splitter) Split(text string) []string {
	return s.split(text, s.Separators)
}

func (s *Splitter) split(text string, separators []string) []string {
	sep := ""
	var rest []string
	for i, candidate := range separators {
		if candidate == "" || strings.Contains(text, candidate) {
			sep = candidate
			rest = separators[i+1:]
			break
		}
	}

	var chunks, pending []string
	for _, piece := range splitKeep(text, sep) {
		if size(piece) < s.Size {
			pending = append(pending, piece)
			continue
		}
		if len(pending) > 0 {
			chunks = append(chunks, s.merge(pending)...)
			pending = nil
		}
		if len(rest) == 0 {
			chunks = appendTrimmed(chunks, piece)
		} else {
			chunks = append(chunks, s.split(piece, rest)...)
		}
	}
	if len(pending) > 0 {
		chunks = append(chunks, s.merge(pending)...)
	}
	return chunks
}

// merge packs small pieces into chunks, carrying the tail of each chunk into the
// next one as overlap.
func (s *Splitter) merge(pieces []string) []string {
	var chunks, window []string
	total := 0
	for _, p := range pieces {
		n := size(p)
		if total+n > s.Size && len(window) > 0 {
			chunks = appendTrimmed(chunks, strings.Join(window, ""))
			for total > s.Overlap || (total+n > s.Size && total > 0) {
				total -= size(window[0])
				window = window[1:]
			}
		}
		window = append(window, p)
		total += n
	}
	if len(window) > 0 {
		chunks = appendTrimmed(chunks, strings.Join(window, ""))
	}
	return chunks
}

// splitKeep splits text on sep, keeping the separator at the start of the piece
// that follows it. An empty separator splits into characters.
func splitKeep(text, sep string) []string {
	if sep == "" {
		out := make([]string, 0, len(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}
	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	for i, p := range parts {
		if i > 0 {
			p = sep + p
		}
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func appendTrimmed(chunks []string, c string) []string {
	if c = strings.TrimSpace(c); c != "" {
		chunks = append(chunks, c)
	}
	return chunks
}

func size(s string) int {
	return utf8.RuneCountInString(s)
}

// truncate cuts s to at most n characters.
func truncate(s string, n int) string {
	if size(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
