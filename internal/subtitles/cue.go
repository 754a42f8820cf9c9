package subtitles

import (
	"errors"
	"fmt"
	"strings"
)

// LineBreak separates the visual lines of a cue.
const LineBreak = "\n"

// ErrInvalidRange reports cue timing where end_ms does not follow start_ms.
var ErrInvalidRange = errors.New("invalid cue range")

// Gender identifies a grammatical gender form of translated text.
type Gender string

const (
	GenderMasculine Gender = "masculine"
	GenderFeminine  Gender = "feminine"
	GenderNeutral   Gender = "neutral"
	GenderUnknown   Gender = "unknown"
)

// ParseGender converts user input into a Gender value.
func ParseGender(value string) (Gender, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "masculine", "m", "male":
		return GenderMasculine, nil
	case "feminine", "f", "female":
		return GenderFeminine, nil
	case "neutral", "n":
		return GenderNeutral, nil
	case "unknown", "":
		return GenderUnknown, nil
	default:
		return GenderUnknown, fmt.Errorf("unknown gender %q", value)
	}
}

// GenderAlternative is one gender-agreed rendering of a cue's translation.
type GenderAlternative struct {
	Gender     Gender  `json:"gender"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Cue is a single timed subtitle entry.
type Cue struct {
	Index              int                 `json:"index"`
	StartMS            int64               `json:"start_ms"`
	EndMS              int64               `json:"end_ms"`
	SourceText         string              `json:"source_text"`
	TranslatedText     *string             `json:"translated_text"`
	Flags              []string            `json:"qc_flags"`
	GenderAlternatives []GenderAlternative `json:"gender_alternatives"`
	ActiveGender       Gender              `json:"active_gender"`
	GenderConfidence   float64             `json:"gender_confidence"`
	// ProtectedTerms are glossary substitutions that fixes must keep verbatim.
	ProtectedTerms []string `json:"protected_terms,omitempty"`
}

// Text returns the text QC and repairs operate on: the translation once one
// exists, otherwise the source.
func (c Cue) Text() string {
	if c.TranslatedText != nil {
		return *c.TranslatedText
	}
	return c.SourceText
}

// SetText replaces the displayed text. Source-only cues gain a translation so
// the original source stays untouched.
func (c *Cue) SetText(text string) {
	c.TranslatedText = &text
}

// DurationMS returns end minus start; it may be zero or negative for malformed input.
func (c Cue) DurationMS() int64 {
	return c.EndMS - c.StartMS
}

// Clone returns a deep copy safe to mutate independently.
func (c Cue) Clone() Cue {
	out := c
	if c.TranslatedText != nil {
		text := *c.TranslatedText
		out.TranslatedText = &text
	}
	if c.Flags != nil {
		out.Flags = append([]string(nil), c.Flags...)
	}
	if c.GenderAlternatives != nil {
		out.GenderAlternatives = append([]GenderAlternative(nil), c.GenderAlternatives...)
	}
	if c.ProtectedTerms != nil {
		out.ProtectedTerms = append([]string(nil), c.ProtectedTerms...)
	}
	return out
}

// Alternative returns the generated alternative for the requested gender.
func (c Cue) Alternative(g Gender) (GenderAlternative, bool) {
	for _, alt := range c.GenderAlternatives {
		if alt.Gender == g {
			return alt, true
		}
	}
	return GenderAlternative{}, false
}

// HasGenderChoice reports whether the cue carries at least two alternatives.
func (c Cue) HasGenderChoice() bool {
	return len(c.GenderAlternatives) >= 2
}

// Lines splits text on the line break marker.
func Lines(text string) []string {
	return strings.Split(text, LineBreak)
}

// NormalizeText converts CRLF and CR line endings to the line break marker and
// trims surrounding blank space.
func NormalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", LineBreak)
	text = strings.ReplaceAll(text, "\r", LineBreak)
	lines := Lines(strings.TrimSpace(text))
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.Join(lines, LineBreak)
}
