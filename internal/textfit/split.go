package textfit

// Boundary classes, best first.
const (
	boundarySentence = iota
	boundaryClause
	boundaryConjunction
	boundarySpace
)

// splitWindow bounds how far from the middle a preferred boundary may sit,
// as a fraction of the total width on either side.
const splitWindow = 0.2

// SplitPoint divides text into two parts at the most natural boundary near
// the middle: a sentence end, then a clause break, then before a conjunction,
// then any space. Protected terms are never divided.
func SplitPoint(text string, protected []string, lang string) (first, second string, ok bool) {
	toks := tokenize(text, protected)
	if len(toks) < 2 {
		return "", "", false
	}
	conj := conjunctions(lang)
	total := tokensWidth(toks)
	mid := float64(total) / 2
	window := float64(total) * splitWindow

	best, bestClass, bestDist := -1, boundarySpace+1, 0.0
	pos := 0
	for b := 1; b < len(toks); b++ {
		pos += toks[b-1].width()
		if b > 1 {
			pos++
		}
		dist := abs(float64(pos) - mid)
		class := boundaryClass(toks, b, conj)
		if dist > window {
			class = boundarySpace
		}
		if class < bestClass || (class == bestClass && dist < bestDist) {
			best, bestClass, bestDist = b, class, dist
		}
	}
	if best < 0 {
		return "", "", false
	}
	return joinTokens(toks[:best]), joinTokens(toks[best:]), true
}

// WordCount counts words, treating a protected term as one word.
func WordCount(text string, protected []string) int {
	return len(tokenize(text, protected))
}

func boundaryClass(toks []token, b int, conj map[string]bool) int {
	prev := toks[b-1].text
	switch {
	case endsSentence(prev):
		return boundarySentence
	case endsClause(prev):
		return boundaryClause
	case conj[bare(toks[b].text)]:
		return boundaryConjunction
	default:
		return boundarySpace
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
