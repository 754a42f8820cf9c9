package textutil

import "strings"

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
	"\n", " ",
	"\r", "",
)

// SanitizeFileName replaces filesystem-unsafe characters in a filename.
// Path separators, colons, and asterisks become dashes; other unsafe
// characters are removed. The result is trimmed of surrounding whitespace.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return strings.TrimSpace(fileNameReplacer.Replace(name))
}

// SanitizeLanguageTag keeps letters, digits, and hyphens from a language tag
// so it can be embedded in a file name. Underscores become hyphens.
func SanitizeLanguageTag(tag string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(tag) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		case r == '_':
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
