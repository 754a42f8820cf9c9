package textfit

import "strings"

// baseLanguage reduces a tag such as "es-MX" to "es".
func baseLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	return lang
}

var conjunctionWords = map[string][]string{
	"en": {"and", "but", "or", "so", "because", "which", "that", "when", "while", "if", "although", "until", "unless"},
	"es": {"y", "pero", "o", "porque", "que", "cuando", "si", "aunque", "mientras", "hasta"},
	"fr": {"et", "mais", "ou", "parce", "que", "quand", "si", "bien", "pendant", "lorsque"},
	"de": {"und", "aber", "oder", "weil", "dass", "wenn", "als", "obwohl", "während"},
	"it": {"e", "ma", "o", "perché", "che", "quando", "se", "mentre", "anche"},
	"pt": {"e", "mas", "ou", "porque", "que", "quando", "se", "embora", "enquanto"},
	"he": {"אבל", "או", "כי", "כאשר", "אם", "למרות", "בזמן", "ש"},
}

// conjunctions merges English with the target language so mixed or
// untranslated text still breaks naturally.
func conjunctions(lang string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range conjunctionWords["en"] {
		out[w] = true
	}
	for _, w := range conjunctionWords[baseLanguage(lang)] {
		out[fold(w)] = true
	}
	return out
}

// fillerPhrases may be dropped anywhere without changing meaning.
var fillerPhrases = map[string][]string{
	"en": {"um", "uh", "er", "erm", "you know", "i mean", "actually", "basically", "literally", "really", "just", "very", "totally", "kind of", "sort of"},
	"es": {"eh", "este", "o sea", "bueno", "pues", "realmente", "básicamente", "literalmente", "muy", "sabes"},
	"fr": {"euh", "ben", "en fait", "tu sais", "vraiment", "juste", "très", "franchement", "genre"},
	"de": {"äh", "ähm", "halt", "eigentlich", "wirklich", "sehr", "also", "weißt du"},
	"it": {"ehm", "cioè", "tipo", "davvero", "proprio", "molto", "sai"},
	"pt": {"hum", "tipo", "né", "realmente", "muito", "sabe", "basicamente"},
	"he": {"אה", "כאילו", "בעצם", "ממש", "פשוט", "מאוד"},
}

// interjections are dropped only at the start of a cue.
var interjections = map[string][]string{
	"en": {"oh", "ah", "well", "hey", "so", "look", "listen", "okay", "ok", "now"},
	"es": {"oh", "ah", "bueno", "oye", "mira", "vale", "vaya", "pues"},
	"fr": {"oh", "ah", "bon", "eh", "alors", "écoute", "bah", "tiens"},
	"de": {"oh", "ah", "na", "also", "hey", "schau", "hör", "nun"},
	"it": {"oh", "ah", "beh", "allora", "senti", "ecco", "guarda"},
	"pt": {"oh", "ah", "bem", "olha", "ei", "então", "pois"},
	"he": {"אה", "טוב", "תקשיב", "תראה", "נו"},
}

// contractions shorten common English phrases.
var contractions = [][2]string{
	{"do not", "don't"},
	{"does not", "doesn't"},
	{"did not", "didn't"},
	{"is not", "isn't"},
	{"are not", "aren't"},
	{"was not", "wasn't"},
	{"were not", "weren't"},
	{"have not", "haven't"},
	{"has not", "hasn't"},
	{"will not", "won't"},
	{"would not", "wouldn't"},
	{"could not", "couldn't"},
	{"should not", "shouldn't"},
	{"cannot", "can't"},
	{"can not", "can't"},
	{"i am", "I'm"},
	{"you are", "you're"},
	{"we are", "we're"},
	{"they are", "they're"},
	{"it is", "it's"},
	{"that is", "that's"},
	{"there is", "there's"},
	{"what is", "what's"},
	{"i will", "I'll"},
	{"you will", "you'll"},
	{"we will", "we'll"},
	{"i have", "I've"},
	{"we have", "we've"},
	{"i would", "I'd"},
	{"let us", "let's"},
}

func phraseList(table map[string][]string, lang string) [][]string {
	seen := make(map[string]bool)
	var out [][]string
	add := func(values []string) {
		for _, v := range values {
			key := fold(v)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, strings.Fields(key))
		}
	}
	add(table[baseLanguage(lang)])
	add(table["en"])
	// Longer phrases first so "you know" wins over a single-word match.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && len(out[j]) > len(out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
