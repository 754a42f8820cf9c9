package textfit

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

type token struct {
	text      string
	protected bool
}

func (t token) width() int { return utf8.RuneCountInString(t.text) }

// fold returns the case-folded form used for all lexical comparisons.
func fold(s string) string {
	return cases.Fold().String(s)
}

// bare strips surrounding punctuation and folds case.
func bare(s string) string {
	return fold(strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r)
	}))
}

// tokenize flattens text into words and merges protected terms into single
// unbreakable tokens.
func tokenize(text string, protected []string) []token {
	words := strings.Fields(text)
	toks := make([]token, len(words))
	for i, w := range words {
		toks[i] = token{text: w}
	}
	for _, term := range protected {
		termWords := strings.Fields(term)
		if len(termWords) == 0 {
			continue
		}
		toks = mergeTerm(toks, termWords)
	}
	return toks
}

func mergeTerm(toks []token, termWords []string) []token {
	out := make([]token, 0, len(toks))
	for i := 0; i < len(toks); {
		if matchesAt(toks, i, termWords) {
			parts := make([]string, len(termWords))
			for j := range termWords {
				parts[j] = toks[i+j].text
			}
			out = append(out, token{text: strings.Join(parts, " "), protected: true})
			i += len(termWords)
			continue
		}
		out = append(out, toks[i])
		i++
	}
	return out
}

func matchesAt(toks []token, at int, termWords []string) bool {
	if at+len(termWords) > len(toks) {
		return false
	}
	for j, w := range termWords {
		tok := toks[at+j]
		if tok.protected {
			return false
		}
		if j == len(termWords)-1 {
			if bare(tok.text) != bare(w) {
				return false
			}
			continue
		}
		if fold(tok.text) != fold(w) {
			return false
		}
	}
	return true
}

func joinTokens(toks []token) string {
	parts := make([]string, len(toks))
	for i, t := range toks {
		parts[i] = t.text
	}
	return strings.Join(parts, " ")
}

func tokensWidth(toks []token) int {
	if len(toks) == 0 {
		return 0
	}
	n := len(toks) - 1
	for _, t := range toks {
		n += t.width()
	}
	return n
}

func lastRune(s string) rune {
	r, _ := utf8.DecodeLastRuneInString(s)
	return r
}

func endsSentence(s string) bool {
	s = strings.TrimRight(s, "\"'”’»)")
	switch lastRune(s) {
	case '.', '?', '!', '…', '。', '？', '！':
		return true
	}
	return false
}

func endsClause(s string) bool {
	switch lastRune(s) {
	case ',', ';', ':', '-', '–', '—', '،':
		return true
	}
	return false
}

// ContainsTerm reports whether text contains term, ignoring case.
func ContainsTerm(text, term string) bool {
	term = strings.TrimSpace(term)
	if term == "" {
		return true
	}
	return strings.Contains(fold(strings.Join(strings.Fields(text), " ")), fold(strings.Join(strings.Fields(term), " ")))
}

// PreservesTerms reports whether every protected term present in before is
// still present in after.
func PreservesTerms(before, after string, protected []string) bool {
	for _, term := range protected {
		if ContainsTerm(before, term) && !ContainsTerm(after, term) {
			return false
		}
	}
	return true
}
