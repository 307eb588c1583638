package extract

import (
	"strings"

	"github.com/clindx/clindx/internal/engine/lexicon"
)

// normalized is the expanded, lowercased working copy of one note. Pattern
// matching runs against text; the start and end slices map every byte of
// the working copy back to the half-open byte range of the original input
// it came from, so findings report spans over what was actually typed.
// Normalization never deletes text, it only rewrites the working copy.
type normalized struct {
	text  string
	start []int
	end   []int
}

// span maps a working-copy byte range back to original offsets.
func (n *normalized) span(s, e int) (int, int) {
	if s < 0 || e <= s || e > len(n.start) {
		return 0, 0
	}
	return n.start[s], n.end[e-1]
}

// normalize lowercases the input, collapses whitespace runs (so phrases
// match across line breaks) and rewrites abbreviations and vernacular to
// canonical wording, longest match first. Ambiguous entries are resolved by
// the words around them. Expansions are validated never to re-trigger, so
// normalizing already-normalized text is a no-op.
func normalize(lex *lexicon.Lexicon, input string) *normalized {
	lower := lowerASCII(input)
	n := &normalized{
		start: make([]int, 0, len(input)+32),
		end:   make([]int, 0, len(input)+32),
	}
	var b strings.Builder
	b.Grow(len(input) + 32)

	appendRun := func(s string, origStart, origEnd int) {
		b.WriteString(s)
		for k := 0; k < len(s); k++ {
			n.start = append(n.start, origStart)
			n.end = append(n.end, origEnd)
		}
	}

	i := 0
	for i < len(lower) {
		if isSpace(lower[i]) {
			j := i
			for j < len(lower) && isSpace(lower[j]) {
				j++
			}
			appendRun(" ", i, j)
			i = j
			continue
		}
		if exp, matched := expandAt(lex, lower, i); matched > 0 {
			appendRun(exp, i, i+matched)
			i += matched
			continue
		}
		b.WriteByte(lower[i])
		n.start = append(n.start, i)
		n.end = append(n.end, i+1)
		i++
	}

	n.text = b.String()
	return n
}

// expandAt tries every expansion at pos, longest first, honoring word
// boundaries on both sides. It returns the replacement text and the number
// of input bytes consumed, or 0 when nothing matches.
func expandAt(lex *lexicon.Lexicon, lower string, pos int) (string, int) {
	if pos > 0 && isWordByte(lower[pos-1]) {
		return "", 0
	}
	for i := range lex.Expansions {
		e := &lex.Expansions[i]
		m := e.Match
		end := pos + len(m)
		if m == "" || end > len(lower) {
			continue
		}
		if lower[pos:end] != m {
			continue
		}
		if end < len(lower) && isWordByte(lower[end]) {
			continue
		}
		return resolveExpansion(e, lower, pos, end), len(m)
	}
	return "", 0
}

// resolveExpansion picks the replacement for a matched abbreviation. Rules
// are tried in order against the surrounding words; the first one whose
// context condition holds wins, and the entry default applies otherwise.
func resolveExpansion(e *lexicon.Expansion, lower string, s, end int) string {
	if len(e.Rules) == 0 {
		return e.Default
	}
	for i := range e.Rules {
		r := &e.Rules[i]
		window := r.Window
		if window <= 0 {
			window = lexicon.DefaultDisambiguationWindow
		}
		if disambiguationHolds(r, surroundingWords(lower, s, end, window)) {
			return r.Expansion
		}
	}
	return e.Default
}

func disambiguationHolds(r *lexicon.Disambiguation, words []string) bool {
	for _, w := range words {
		if r.NearNumber && isNumericWord(w) {
			return true
		}
		for _, near := range r.Near {
			if w == near {
				return true
			}
		}
	}
	return false
}

// surroundingWords collects up to window words on each side of [s,end).
func surroundingWords(lower string, s, end, window int) []string {
	words := make([]string, 0, 2*window)

	i := s
	for count := 0; count < window && i > 0; count++ {
		for i > 0 && !isWordByte(lower[i-1]) {
			i--
		}
		j := i
		for j > 0 && isWordByte(lower[j-1]) {
			j--
		}
		if j == i {
			break
		}
		words = append(words, lower[j:i])
		i = j
	}

	k := end
	for count := 0; count < window && k < len(lower); count++ {
		for k < len(lower) && !isWordByte(lower[k]) {
			k++
		}
		j := k
		for j < len(lower) && isWordByte(lower[j]) {
			j++
		}
		if j == k {
			break
		}
		words = append(words, lower[k:j])
		k = j
	}
	return words
}

// lowerASCII lowercases A-Z only, leaving byte offsets stable for any
// multi-byte runes in the input.
func lowerASCII(s string) string {
	upper := false
	for i := 0; i < len(s); i++ {
		if s[i] >= 'A' && s[i] <= 'Z' {
			upper = true
			break
		}
	}
	if !upper {
		return s
	}
	b := []byte(s)
	for i := 0; i < len(b); i++ {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	}
	return false
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func isNumericWord(w string) bool {
	if w == "" {
		return false
	}
	for i := 0; i < len(w); i++ {
		if w[i] < '0' || w[i] > '9' {
			return false
		}
	}
	return true
}
