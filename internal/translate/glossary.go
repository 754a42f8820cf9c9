package translate

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"subconform/internal/textfit"
)

// Term is one glossary pair.
type Term struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Glossary maps source terms to fixed translations. The zero value is empty.
type Glossary struct {
	terms []Term
}

// NewGlossary builds a glossary from a source-to-target map. Blank entries
// are ignored.
func NewGlossary(entries map[string]string) Glossary {
	var g Glossary
	for source, target := range entries {
		source, target = strings.TrimSpace(source), strings.TrimSpace(target)
		if source == "" || target == "" {
			continue
		}
		g.terms = append(g.terms, Term{Source: source, Target: target})
	}
	g.sort()
	return g
}

// LoadGlossary reads a YAML file of "term: translation" pairs.
func LoadGlossary(path string) (Glossary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Glossary{}, fmt.Errorf("read glossary: %w", err)
	}
	var entries map[string]string
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return Glossary{}, fmt.Errorf("parse glossary %s: %w", path, err)
	}
	return NewGlossary(entries), nil
}

// Merge returns a glossary holding both sets of terms; other wins on conflicts.
func (g Glossary) Merge(other Glossary) Glossary {
	if other.Len() == 0 {
		return g
	}
	entries := g.Map()
	for _, t := range other.terms {
		for source := range entries {
			if strings.EqualFold(source, t.Source) {
				delete(entries, source)
			}
		}
		entries[t.Source] = t.Target
	}
	return NewGlossary(entries)
}

// Len returns the number of terms.
func (g Glossary) Len() int { return len(g.terms) }

// Terms returns the pairs, longest source first.
func (g Glossary) Terms() []Term {
	return append([]Term(nil), g.terms...)
}

// Map returns the glossary as a source-to-target map.
func (g Glossary) Map() map[string]string {
	out := make(map[string]string, len(g.terms))
	for _, t := range g.terms {
		out[t.Source] = t.Target
	}
	return out
}

// Apply enforces the glossary on one translated line. A source term left
// untranslated is replaced by its target. Targets present in the result are
// returned as protected terms.
func (g Glossary) Apply(source, translated string) (string, []string) {
	var protected []string
	for _, t := range g.terms {
		if !termPattern(t.Source).MatchString(source) {
			continue
		}
		if !textfit.ContainsTerm(translated, t.Target) {
			translated = termPattern(t.Source).ReplaceAllString(translated, "${1}"+escapeReplacement(t.Target)+"${2}")
		}
		if textfit.ContainsTerm(translated, t.Target) {
			protected = append(protected, t.Target)
		}
	}
	return translated, protected
}

func (g *Glossary) sort() {
	sort.Slice(g.terms, func(i, j int) bool {
		a, b := g.terms[i].Source, g.terms[j].Source
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return a < b
	})
}

// termPattern matches term case-insensitively on word boundaries, with any
// run of whitespace between its words.
func termPattern(term string) *regexp.Regexp {
	words := strings.Fields(term)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)(^|[^\p{L}\p{N}])` + strings.Join(words, `\s+`) + `($|[^\p{L}\p{N}])`)
}

func escapeReplacement(s string) string {
	return strings.ReplaceAll(s, "$", "$$")
}
