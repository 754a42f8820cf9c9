package textfit

import (
	"math"
	"strings"
)

// Break penalties, added to the squared deviation from the balanced line length.
const (
	penaltySentence    = 0
	penaltyClause      = 10
	penaltyConjunction = 20
	penaltyPlain       = 50
)

// Wrap lays text out on the fewest lines of at most maxChars characters,
// preferring balanced lines and breaks after punctuation or before a
// conjunction. Only inter-word spaces change; it reports false when no layout
// fits within maxLines.
func Wrap(text string, maxChars, maxLines int, protected []string) (string, bool) {
	return WrapLanguage(text, maxChars, maxLines, protected, "")
}

// WrapLanguage is Wrap with language-aware conjunction detection.
func WrapLanguage(text string, maxChars, maxLines int, protected []string, lang string) (string, bool) {
	toks := tokenize(text, protected)
	if len(toks) == 0 {
		return "", true
	}
	if maxChars <= 0 || maxLines <= 0 {
		return "", false
	}
	for _, t := range toks {
		if t.width() > maxChars {
			return "", false
		}
	}
	conj := conjunctions(lang)
	for lines := 1; lines <= maxLines && lines <= len(toks); lines++ {
		if breaks, ok := bestLayout(toks, lines, maxChars, conj); ok {
			return render(toks, breaks), true
		}
	}
	return "", false
}

// NeedsWrap reports whether text violates the line limits as laid out.
func NeedsWrap(text string, maxChars, maxLines int) bool {
	lines := strings.Split(text, "\n")
	if len(lines) > maxLines {
		return true
	}
	for _, line := range lines {
		if len([]rune(strings.TrimSpace(line))) > maxChars {
			return true
		}
	}
	return false
}

// bestLayout finds break positions for exactly k lines. breaks[j] is the
// token index that starts line j+1.
func bestLayout(toks []token, k, maxChars int, conj map[string]bool) ([]int, bool) {
	n := len(toks)
	target := float64(tokensWidth(toks)) / float64(k)
	inf := math.Inf(1)

	cost := make([][]float64, k+1)
	from := make([][]int, k+1)
	for j := range cost {
		cost[j] = make([]float64, n+1)
		from[j] = make([]int, n+1)
		for i := range cost[j] {
			cost[j][i] = inf
		}
	}
	cost[0][0] = 0

	for j := 1; j <= k; j++ {
		for i := j; i <= n; i++ {
			width := -1
			for m := i - 1; m >= j-1; m-- {
				width += toks[m].width() + 1
				if width > maxChars {
					break
				}
				if math.IsInf(cost[j-1][m], 1) {
					continue
				}
				dev := float64(width) - target
				c := cost[j-1][m] + dev*dev
				if i < n {
					c += float64(breakPenalty(toks, i, conj))
				}
				if c < cost[j][i] {
					cost[j][i] = c
					from[j][i] = m
				}
			}
		}
	}
	if math.IsInf(cost[k][n], 1) {
		return nil, false
	}
	breaks := make([]int, k-1)
	i := n
	for j := k; j > 1; j-- {
		i = from[j][i]
		breaks[j-2] = i
	}
	return breaks, true
}

// breakPenalty scores a line break placed before token i.
func breakPenalty(toks []token, i int, conj map[string]bool) int {
	prev := toks[i-1].text
	switch {
	case endsSentence(prev):
		return penaltySentence
	case endsClause(prev):
		return penaltyClause
	case conj[bare(toks[i].text)]:
		return penaltyConjunction
	default:
		return penaltyPlain
	}
}

func render(toks []token, breaks []int) string {
	var b strings.Builder
	next := 0
	for i, t := range toks {
		if i > 0 {
			if next < len(breaks) && breaks[next] == i {
				b.WriteString("\n")
				next++
			} else {
				b.WriteByte(' ')
			}
		}
		b.WriteString(t.text)
	}
	return b.String()
}
