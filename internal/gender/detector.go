package gender

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"

	"subconform/internal/subtitles"
)

// Confidence levels assigned to the best guess.
const (
	confidenceEvidence = 0.9
	confidenceGuess    = 0.5
)

// Options tunes detection.
type Options struct {
	// AmbiguityThreshold is the confidence below which a cue is shown as ambiguous.
	AmbiguityThreshold float64
	// IncludeNeutral adds a neutral alternative when every marked word has one.
	IncludeNeutral bool
}

// DefaultOptions returns the stock detection options.
func DefaultOptions() Options {
	return Options{AmbiguityThreshold: 0.7}
}

// Result is the outcome of detection for one text.
type Result struct {
	Alternatives []subtitles.GenderAlternative
	Active       subtitles.Gender
	Confidence   float64
	// Evidence is set when the source text fixed the gender.
	Evidence bool
}

// Text returns the active alternative's text, or "" when there is no choice.
func (r Result) Text() string {
	for _, alt := range r.Alternatives {
		if alt.Gender == r.Active {
			return alt.Text
		}
	}
	return ""
}

// Detector produces gender alternatives.
type Detector struct {
	opts Options
}

// NewDetector returns a detector using opts.
func NewDetector(opts Options) *Detector {
	return &Detector{opts: opts}
}

// Supported reports whether lang has a gender lexicon.
func Supported(lang string) bool {
	return len(lexicon[baseLanguage(lang)]) > 0
}

// Ambiguous reports whether confidence falls below the display threshold.
func (d *Detector) Ambiguous(confidence float64) bool {
	return confidence < d.opts.AmbiguityThreshold
}

// Threshold returns the ambiguity display threshold.
func (d *Detector) Threshold() float64 {
	return d.opts.AmbiguityThreshold
}

// Detect inspects translated text in lang and, when it contains
// gender-marked words, returns one alternative per gender form. source is the
// untranslated text used as evidence for the best guess.
func (d *Detector) Detect(source, translated, lang string) Result {
	none := Result{Active: subtitles.GenderUnknown, Confidence: 1}
	forms := lexicon[baseLanguage(lang)]
	if len(forms) == 0 || strings.TrimSpace(translated) == "" {
		return none
	}
	r := rewrite(translated, forms)
	if r.hits() == 0 || r.masculine == r.feminine {
		return none
	}

	genders := []subtitles.Gender{subtitles.GenderMasculine, subtitles.GenderFeminine}
	texts := map[subtitles.Gender]string{
		subtitles.GenderMasculine: r.masculine,
		subtitles.GenderFeminine:  r.feminine,
	}
	if (d.opts.IncludeNeutral || r.neutralHits > 0) && r.neutralComplete {
		genders = append(genders, subtitles.GenderNeutral)
		texts[subtitles.GenderNeutral] = r.neutral
	}

	out := Result{Active: r.written(), Confidence: confidenceGuess}
	if g, ok := sourceGender(source); ok {
		out.Active, out.Confidence, out.Evidence = g, confidenceEvidence, true
	}
	if out.Active == subtitles.GenderUnknown {
		out.Confidence = round2(1 / float64(len(genders)))
	}
	other := round2((1 - out.Confidence) / float64(len(genders)-1))
	for _, g := range genders {
		c := other
		if g == out.Active || out.Active == subtitles.GenderUnknown {
			c = out.Confidence
		}
		out.Alternatives = append(out.Alternatives, subtitles.GenderAlternative{Gender: g, Text: texts[g], Confidence: c})
	}
	return out
}

// Annotate runs detection on a translated cue and stores the result. The
// translation is only rewritten when the source text fixes the gender;
// otherwise the provider's wording stays active. It reports whether the cue
// now offers a gender choice.
func (d *Detector) Annotate(cue *subtitles.Cue, lang string) bool {
	if cue.TranslatedText == nil {
		return false
	}
	res := d.Detect(cue.SourceText, *cue.TranslatedText, lang)
	if len(res.Alternatives) < 2 {
		cue.GenderAlternatives = nil
		cue.ActiveGender = subtitles.GenderUnknown
		cue.GenderConfidence = 1
		return false
	}
	cue.GenderAlternatives = res.Alternatives
	cue.ActiveGender = res.Active
	cue.GenderConfidence = res.Confidence
	if res.Evidence {
		cue.SetText(res.Text())
	}
	return true
}

type rewritten struct {
	masculine, feminine, neutral             string
	masculineHits, feminineHits, neutralHits int
	neutralComplete                          bool
}

func (r rewritten) hits() int { return r.masculineHits + r.feminineHits + r.neutralHits }

// written returns the form every marked word is already in, or unknown when
// the text mixes forms.
func (r rewritten) written() subtitles.Gender {
	switch r.hits() {
	case r.masculineHits:
		return subtitles.GenderMasculine
	case r.feminineHits:
		return subtitles.GenderFeminine
	case r.neutralHits:
		return subtitles.GenderNeutral
	default:
		return subtitles.GenderUnknown
	}
}

// rewrite produces every gendered rendering of text, keeping spacing, line
// breaks, punctuation and capitalisation.
func rewrite(text string, forms []form) rewritten {
	r := rewritten{neutralComplete: true}
	var masc, fem, neu []string
	for _, line := range strings.Split(text, "\n") {
		var ml, fl, nl []string
		for _, word := range strings.Split(line, " ") {
			lead, core, trail := splitWord(word)
			f, g, ok := lookup(core, forms)
			if !ok {
				ml, fl, nl = append(ml, word), append(fl, word), append(nl, word)
				continue
			}
			switch g {
			case subtitles.GenderFeminine:
				r.feminineHits++
			case subtitles.GenderNeutral:
				r.neutralHits++
			default:
				r.masculineHits++
			}
			ml = append(ml, lead+matchCase(core, f.masculine)+trail)
			fl = append(fl, lead+matchCase(core, f.feminine)+trail)
			if f.neutral == "" {
				r.neutralComplete = false
				nl = append(nl, word)
			} else {
				nl = append(nl, lead+matchCase(core, f.neutral)+trail)
			}
		}
		masc = append(masc, strings.Join(ml, " "))
		fem = append(fem, strings.Join(fl, " "))
		neu = append(neu, strings.Join(nl, " "))
	}
	r.masculine = strings.Join(masc, "\n")
	r.feminine = strings.Join(fem, "\n")
	r.neutral = strings.Join(neu, "\n")
	return r
}

func lookup(core string, forms []form) (form, subtitles.Gender, bool) {
	if core == "" {
		return form{}, "", false
	}
	key := fold(core)
	for _, f := range forms {
		switch key {
		case fold(f.masculine):
			return f, subtitles.GenderMasculine, true
		case fold(f.feminine):
			return f, subtitles.GenderFeminine, true
		case fold(f.neutral):
			if f.neutral != "" {
				return f, subtitles.GenderNeutral, true
			}
		}
	}
	return form{}, "", false
}

// sourceGender scans source text for pronouns or nouns that fix the gender.
// Mixed evidence counts as none.
func sourceGender(source string) (subtitles.Gender, bool) {
	var masculine, feminine bool
	for _, word := range strings.Fields(source) {
		_, core, _ := splitWord(word)
		key := fold(strings.TrimSuffix(strings.TrimSuffix(core, "'s"), "."))
		masculine = masculine || contains(masculineCues, key)
		feminine = feminine || contains(feminineCues, key)
	}
	switch {
	case masculine && !feminine:
		return subtitles.GenderMasculine, true
	case feminine && !masculine:
		return subtitles.GenderFeminine, true
	default:
		return subtitles.GenderUnknown, false
	}
}

func contains(list []string, key string) bool {
	for _, v := range list {
		if v == key {
			return true
		}
	}
	return false
}

func isEdge(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}

// splitWord separates leading and trailing punctuation from a word. An
// apostrophe inside the word stays with it.
func splitWord(word string) (lead, core, trail string) {
	core = strings.TrimLeftFunc(word, isEdge)
	lead = word[:len(word)-len(core)]
	trimmed := strings.TrimRightFunc(core, isEdge)
	trail = core[len(trimmed):]
	return lead, trimmed, trail
}

func matchCase(original, replacement string) string {
	if original == "" || replacement == "" {
		return replacement
	}
	if utf8.RuneCountInString(original) > 1 && strings.ToUpper(original) == original && strings.ToLower(original) != original {
		return strings.ToUpper(replacement)
	}
	first, _ := utf8.DecodeRuneInString(original)
	if unicode.IsUpper(first) {
		r, size := utf8.DecodeRuneInString(replacement)
		return string(unicode.ToUpper(r)) + replacement[size:]
	}
	return replacement
}

func fold(s string) string {
	return cases.Fold().String(s)
}

func baseLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	return lang
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
