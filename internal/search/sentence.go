package search

import (
	"strings"
	"unicode"
)

const maxSnippetRunes = 160

// SentencedResult is one match shown inside the sentence that contains it.
// MatchStart and MatchEnd are rune offsets into Sentence.
type SentencedResult struct {
	RecordID   int64
	Page       int
	Index      int
	Sentence   string
	MatchStart int
	MatchEnd   int
}

// RecordID packs a page and an in-page match index into one identifier.
func RecordID(page, index int) int64 {
	return int64(page)<<32 | int64(uint32(index))
}

// SplitRecordID is the inverse of RecordID.
func SplitRecordID(id int64) (page, index int) {
	return int(id >> 32), int(uint32(id))
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '?', '!', '\n':
		return true
	}
	return false
}

// SentencedResults returns the matches of page with their sentences.
func (c *Controller) SentencedResults(page int) []SentencedResult {
	matches := c.MatchesOnPage(page)
	if len(matches) == 0 {
		return nil
	}
	text, err := c.src.Text(page)
	if err != nil {
		return nil
	}
	runes := []rune(text.Content)
	out := make([]SentencedResult, 0, len(matches))
	for i, m := range matches {
		sentence, ms, me := sentenceAround(runes, m.Start, m.End)
		out = append(out, SentencedResult{
			RecordID:   RecordID(page, i),
			Page:       page,
			Index:      i,
			Sentence:   sentence,
			MatchStart: ms,
			MatchEnd:   me,
		})
	}
	return out
}

// sentenceAround cuts the sentence holding [start, end) out of runes. The
// terminating punctuation is kept; a newline is not.
func sentenceAround(runes []rune, start, end int) (string, int, int) {
	if start < 0 {
		start = 0
	}
	if end > len(runes) {
		end = len(runes)
	}
	from := start
	for from > 0 && !isSentenceEnd(runes[from-1]) {
		from--
	}
	to := end
	for to < len(runes) && !isSentenceEnd(runes[to]) {
		to++
	}
	if to < len(runes) && runes[to] != '\n' {
		to++
	}

	for from < start && unicode.IsSpace(runes[from]) {
		from++
	}
	for to > end && unicode.IsSpace(runes[to-1]) {
		to--
	}

	if to-from > maxSnippetRunes {
		pad := (maxSnippetRunes - (end - start)) / 2
		if pad < 0 {
			pad = 0
		}
		if start-pad > from {
			from = start - pad
		}
		if end+pad < to {
			to = end + pad
		}
	}

	sentence := string(runes[from:to])
	trimmed := strings.TrimLeftFunc(sentence, unicode.IsSpace)
	shift := len([]rune(sentence)) - len([]rune(trimmed))
	return strings.TrimRightFunc(trimmed, unicode.IsSpace), start - from - shift, end - from - shift
}
