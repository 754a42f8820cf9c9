package gender_test

import (
	"testing"

	"subconform/internal/gender"
	"subconform/internal/subtitles"
)

func TestDetectSpanishAdjective(t *testing.T) {
	d := gender.NewDetector(gender.DefaultOptions())
	res := d.Detect("I'm tired", "Estoy cansado", "es")
	if len(res.Alternatives) != 2 {
		t.Fatalf("expected two alternatives, got %+v", res.Alternatives)
	}
	masc, fem := res.Alternatives[0], res.Alternatives[1]
	if masc.Gender != subtitles.GenderMasculine || masc.Text != "Estoy cansado" {
		t.Fatalf("unexpected masculine alternative %+v", masc)
	}
	if fem.Gender != subtitles.GenderFeminine || fem.Text != "Estoy cansada" {
		t.Fatalf("unexpected feminine alternative %+v", fem)
	}
	if res.Active != subtitles.GenderMasculine || res.Confidence != 0.5 {
		t.Fatalf("expected low-confidence masculine guess, got %s %.2f", res.Active, res.Confidence)
	}
	if !d.Ambiguous(res.Confidence) {
		t.Fatal("0.5 should be below the display threshold")
	}
}

func TestDetectUsesSourceEvidence(t *testing.T) {
	d := gender.NewDetector(gender.DefaultOptions())
	res := d.Detect("She said she is ready.", "Dijo que está listo.", "es-MX")
	if res.Active != subtitles.GenderFeminine || res.Confidence != 0.9 {
		t.Fatalf("expected confident feminine guess, got %s %.2f", res.Active, res.Confidence)
	}
	if res.Text() != "Dijo que está lista." {
		t.Fatalf("unexpected active text %q", res.Text())
	}
	if d.Ambiguous(res.Confidence) {
		t.Fatal("0.9 should not be flagged ambiguous")
	}
}

func TestDetectKeepsCaseAndPunctuation(t *testing.T) {
	d := gender.NewDetector(gender.DefaultOptions())
	res := d.Detect("", "¿Cansado?\nSí, muy CANSADO.", "es")
	if got := res.Alternatives[1].Text; got != "¿Cansada?\nSí, muy CANSADA." {
		t.Fatalf("unexpected feminine text %q", got)
	}
}

func TestDetectWithoutMarkedWords(t *testing.T) {
	d := gender.NewDetector(gender.DefaultOptions())
	res := d.Detect("Good morning", "Buenos días", "es")
	if len(res.Alternatives) != 0 || res.Active != subtitles.GenderUnknown || res.Confidence != 1 {
		t.Fatalf("expected no choice, got %+v", res)
	}
	if res := d.Detect("I'm tired", "I'm tired", "en"); len(res.Alternatives) != 0 {
		t.Fatalf("english has no lexicon, got %+v", res)
	}
}

func TestDetectNeutralWhenEnabled(t *testing.T) {
	d := gender.NewDetector(gender.Options{AmbiguityThreshold: 0.7, IncludeNeutral: true})
	res := d.Detect("", "Bienvenido, querido", "es")
	if len(res.Alternatives) != 3 || res.Alternatives[2].Text != "Bienvenide, queride" {
		t.Fatalf("expected neutral alternative, got %+v", res.Alternatives)
	}
	res = d.Detect("", "Estoy seguro", "es")
	if len(res.Alternatives) != 2 {
		t.Fatalf("no neutral form exists for seguro, got %+v", res.Alternatives)
	}
}

func TestAnnotateSwitchesToBestGuess(t *testing.T) {
	translated := "Estoy cansado"
	c := subtitles.Cue{Index: 1, SourceText: "Her? She is tired", TranslatedText: &translated}
	d := gender.NewDetector(gender.DefaultOptions())
	if !d.Annotate(&c, "es") {
		t.Fatal("expected a gender choice")
	}
	if c.Text() != "Estoy cansada" || c.ActiveGender != subtitles.GenderFeminine {
		t.Fatalf("unexpected cue state %q %s", c.Text(), c.ActiveGender)
	}
	if !gender.Supported("he") || gender.Supported("ja") {
		t.Fatal("unexpected language support")
	}
}

func TestAnnotateKeepsNeutralTranslation(t *testing.T) {
	for _, opts := range []gender.Options{
		{AmbiguityThreshold: 0.7, IncludeNeutral: true},
		gender.DefaultOptions(),
	} {
		translated := "Estoy cansade"
		c := subtitles.Cue{Index: 1, SourceText: "I am tired", TranslatedText: &translated}
		d := gender.NewDetector(opts)
		if !d.Annotate(&c, "es") {
			t.Fatalf("expected a gender choice with %+v", opts)
		}
		if c.Text() != "Estoy cansade" || c.ActiveGender != subtitles.GenderNeutral {
			t.Fatalf("neutral wording replaced: %q %s", c.Text(), c.ActiveGender)
		}
		if len(c.GenderAlternatives) != 3 {
			t.Fatalf("expected masculine, feminine and neutral, got %+v", c.GenderAlternatives)
		}
		if neu, _ := c.Alternative(subtitles.GenderNeutral); neu.Confidence != 0.5 {
			t.Fatalf("neutral alternative should carry the guess, got %.2f", neu.Confidence)
		}
	}
}

func TestAnnotateKeepsFeminineTranslationWithoutEvidence(t *testing.T) {
	translated := "Estoy cansada"
	c := subtitles.Cue{Index: 1, SourceText: "I am tired", TranslatedText: &translated}
	d := gender.NewDetector(gender.DefaultOptions())
	if !d.Annotate(&c, "es") {
		t.Fatal("expected a gender choice")
	}
	if c.Text() != "Estoy cansada" || c.ActiveGender != subtitles.GenderFeminine || c.GenderConfidence != 0.5 {
		t.Fatalf("unexpected cue state %q %s %.2f", c.Text(), c.ActiveGender, c.GenderConfidence)
	}
}

func TestDetectMixedFormsWithoutEvidence(t *testing.T) {
	d := gender.NewDetector(gender.DefaultOptions())
	res := d.Detect("Are you ready? I am tired", "¿Lista? Estoy cansado", "es")
	if res.Active != subtitles.GenderUnknown || res.Evidence || res.Text() != "" {
		t.Fatalf("mixed text has no single active form, got %+v", res)
	}
	if len(res.Alternatives) != 2 || res.Alternatives[0].Confidence != 0.5 || res.Alternatives[1].Confidence != 0.5 {
		t.Fatalf("alternatives should share confidence, got %+v", res.Alternatives)
	}

	translated := "¿Lista? Estoy cansado"
	c := subtitles.Cue{Index: 1, SourceText: "Are you ready? I am tired", TranslatedText: &translated}
	d.Annotate(&c, "es")
	if c.Text() != translated {
		t.Fatalf("translation rewritten without evidence: %q", c.Text())
	}
}
