package textfit

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Condense shortens text to at most target characters (spaces included, line
// breaks flattened) by applying meaning-preserving edits one at a time, in
// increasing order of aggressiveness, and stopping as soon as the text fits.
// The result is a single line; callers re-wrap it. It reports false when the
// heuristics run out before the target is met.
func Condense(text string, target int, protected []string, lang string) (string, bool) {
	c := condenser{
		toks:   tokenize(text, protected),
		target: target,
		lang:   baseLanguage(lang),
	}
	if c.fits() {
		return joinTokens(c.toks), true
	}
	steps := []func() bool{
		c.tightenPunctuation,
		c.contract,
		c.dropRepetition,
		c.dropFiller,
		c.dropInterjection,
		c.dropParenthetical,
	}
	for _, step := range steps {
		for step() {
			if c.fits() {
				return joinTokens(c.toks), true
			}
		}
	}
	return joinTokens(c.toks), c.fits()
}

type condenser struct {
	toks   []token
	target int
	lang   string
}

func (c *condenser) fits() bool { return tokensWidth(c.toks) <= c.target }

var (
	ellipsisRun = regexp.MustCompile(`\.{3,}`)
	bangRun     = regexp.MustCompile(`!{2,}`)
	queryRun    = regexp.MustCompile(`\?{2,}`)
)

// tightenPunctuation rewrites one token's punctuation runs.
func (c *condenser) tightenPunctuation() bool {
	for i, t := range c.toks {
		if t.protected {
			continue
		}
		next := ellipsisRun.ReplaceAllString(t.text, "…")
		next = bangRun.ReplaceAllString(next, "!")
		next = queryRun.ReplaceAllString(next, "?")
		if next != t.text {
			c.toks[i].text = next
			return true
		}
	}
	return false
}

// contract replaces one English phrase with its contraction.
func (c *condenser) contract() bool {
	if c.lang != "en" && c.lang != "" {
		return false
	}
	for i := range c.toks {
		for _, pair := range contractions {
			words := strings.Fields(pair[0])
			if !c.phraseAt(i, words) {
				continue
			}
			last := c.toks[i+len(words)-1].text
			replacement := pair[1] + trailingPunct(last)
			if startsUpper(c.toks[i].text) {
				replacement = capitalize(replacement)
			}
			c.replace(i, len(words), token{text: replacement})
			return true
		}
	}
	return false
}

// dropRepetition removes the first of two identical adjacent words.
func (c *condenser) dropRepetition() bool {
	for i := 1; i < len(c.toks); i++ {
		prev, cur := c.toks[i-1], c.toks[i]
		if prev.protected || cur.protected {
			continue
		}
		if b := bare(prev.text); b != "" && b == bare(cur.text) {
			c.remove(i-1, 1)
			return true
		}
	}
	return false
}

// dropFiller removes one filler word or phrase.
func (c *condenser) dropFiller() bool {
	phrases := phraseList(fillerPhrases, c.lang)
	for i := range c.toks {
		for _, words := range phrases {
			if c.phraseAt(i, words) {
				c.remove(i, len(words))
				return true
			}
		}
	}
	return false
}

// dropInterjection removes a leading interjection followed by punctuation.
func (c *condenser) dropInterjection() bool {
	if len(c.toks) < 2 || c.toks[0].protected {
		return false
	}
	first := c.toks[0].text
	if trailingPunct(first) == "" {
		return false
	}
	for _, words := range phraseList(interjections, c.lang) {
		if len(words) == 1 && bare(first) == words[0] {
			c.remove(0, 1)
			return true
		}
	}
	return false
}

// dropParenthetical removes one (...) or [...] aside.
func (c *condenser) dropParenthetical() bool {
	for i, t := range c.toks {
		if !strings.HasPrefix(t.text, "(") && !strings.HasPrefix(t.text, "[") {
			continue
		}
		closer := ")"
		if strings.HasPrefix(t.text, "[") {
			closer = "]"
		}
		for j := i; j < len(c.toks); j++ {
			if c.toks[j].protected {
				break
			}
			if strings.Contains(strings.TrimRight(c.toks[j].text, ".,!?;:"), closer) {
				if j-i+1 == len(c.toks) {
					return false
				}
				c.remove(i, j-i+1)
				return true
			}
		}
	}
	return false
}

// phraseAt matches unprotected tokens at i against folded words, ignoring
// surrounding punctuation.
func (c *condenser) phraseAt(i int, words []string) bool {
	if i+len(words) > len(c.toks) {
		return false
	}
	for j, w := range words {
		t := c.toks[i+j]
		if t.protected || bare(t.text) != w {
			return false
		}
		// Punctuation inside a phrase means the words belong to different clauses.
		if j < len(words)-1 && trailingPunct(t.text) != "" {
			return false
		}
	}
	return true
}

// remove deletes n tokens at i, moving sentence punctuation to the previous
// word and restoring capitalisation at the start of the cue.
func (c *condenser) remove(i, n int) {
	removedFirst := c.toks[i].text
	punct := trailingPunct(c.toks[i+n-1].text)
	c.toks = append(c.toks[:i], c.toks[i+n:]...)
	if i > 0 && endsSentence(punct) {
		prev := &c.toks[i-1]
		if !prev.protected {
			prev.text = strings.TrimRightFunc(prev.text, isTrailingPunct) + punct
		}
	}
	if i == 0 && len(c.toks) > 0 && startsUpper(removedFirst) && !c.toks[0].protected {
		c.toks[0].text = capitalize(c.toks[0].text)
	}
}

func (c *condenser) replace(i, n int, t token) {
	rest := append([]token{t}, c.toks[i+n:]...)
	c.toks = append(c.toks[:i], rest...)
}

func isTrailingPunct(r rune) bool {
	return unicode.IsPunct(r) && r != '\'' && r != '’' && r != ')' && r != ']' && r != '"'
}

func trailingPunct(s string) string {
	trimmed := strings.TrimRightFunc(s, isTrailingPunct)
	return s[len(trimmed):]
}

func startsUpper(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(r)
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
