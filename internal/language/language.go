package language

import "strings"

type entry struct {
	code2    string   // ISO 639-1
	code3    string   // ISO 639-2 primary
	alt3     string   // ISO 639-2 bibliographic alternate
	display  string   // English name, used in prompts
	words    []string // full word forms
	gendered bool     // adjectives and participles agree with the speaker
}

var languages = []entry{
	{"en", "eng", "", "English", []string{"english"}, false},
	{"es", "spa", "", "Spanish", []string{"spanish", "castellano"}, true},
	{"fr", "fra", "fre", "French", []string{"french"}, true},
	{"de", "deu", "ger", "German", []string{"german"}, true},
	{"it", "ita", "", "Italian", []string{"italian"}, true},
	{"pt", "por", "", "Portuguese", []string{"portuguese"}, true},
	{"he", "heb", "", "Hebrew", []string{"hebrew"}, true},
	{"ar", "ara", "", "Arabic", []string{"arabic"}, true},
	{"ru", "rus", "", "Russian", []string{"russian"}, true},
	{"pl", "pol", "", "Polish", []string{"polish"}, true},
	{"hi", "hin", "", "Hindi", []string{"hindi"}, true},
	{"ja", "jpn", "", "Japanese", []string{"japanese"}, false},
	{"ko", "kor", "", "Korean", []string{"korean"}, false},
	{"zh", "zho", "chi", "Chinese", []string{"chinese"}, false},
	{"tr", "tur", "", "Turkish", []string{"turkish"}, false},
	{"nl", "nld", "dut", "Dutch", []string{"dutch"}, false},
	{"sv", "swe", "", "Swedish", []string{"swedish"}, false},
	{"da", "dan", "", "Danish", []string{"danish"}, false},
	{"no", "nor", "", "Norwegian", []string{"norwegian"}, false},
	{"fi", "fin", "", "Finnish", []string{"finnish"}, false},
}

var (
	byCode2 map[string]*entry
	byCode3 map[string]*entry
	byWord  map[string]*entry
)

func init() {
	byCode2 = make(map[string]*entry, len(languages))
	byCode3 = make(map[string]*entry, len(languages)*2)
	byWord = make(map[string]*entry, len(languages))
	for i := range languages {
		e := &languages[i]
		byCode2[e.code2] = e
		byCode3[e.code3] = e
		if e.alt3 != "" {
			byCode3[e.alt3] = e
		}
		for _, w := range e.words {
			byWord[w] = e
		}
	}
}

// base lowercases code and strips a BCP 47 region or script suffix.
func base(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	return code
}

func lookup(code string) *entry {
	code = base(code)
	if code == "" {
		return nil
	}
	if e, ok := byCode2[code]; ok {
		return e
	}
	if e, ok := byCode3[code]; ok {
		return e
	}
	if e, ok := byWord[code]; ok {
		return e
	}
	return nil
}

// Normalize converts any recognized code, tag or word to ISO 639-1.
// Unknown two-letter codes pass through; other unknown input returns "".
func Normalize(code string) string {
	if e := lookup(code); e != nil {
		return e.code2
	}
	if b := base(code); len(b) == 2 {
		return b
	}
	return ""
}

// Known reports whether code maps to a language in the table.
func Known(code string) bool {
	return lookup(code) != nil
}

// DisplayName returns the English language name for any recognized code.
// Returns "Unknown" for empty input, or the uppercased code for unrecognized input.
func DisplayName(code string) string {
	if strings.TrimSpace(code) == "" {
		return "Unknown"
	}
	if e := lookup(code); e != nil {
		return e.display
	}
	return strings.ToUpper(strings.TrimSpace(code))
}

// Gendered reports whether translations into code must agree with the
// speaker's grammatical gender.
func Gendered(code string) bool {
	e := lookup(code)
	return e != nil && e.gendered
}
