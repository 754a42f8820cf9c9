package subtitles_test

import (
	"errors"
	"testing"

	"subconform/internal/subtitles"
)

func TestCueTextPrefersTranslation(t *testing.T) {
	cue := subtitles.Cue{SourceText: "Hello"}
	if cue.Text() != "Hello" {
		t.Fatalf("expected source text, got %q", cue.Text())
	}
	empty := ""
	cue.TranslatedText = &empty
	if cue.Text() != "" {
		t.Fatalf("expected empty translation to win over source, got %q", cue.Text())
	}
	cue.SetText("Hola")
	if cue.Text() != "Hola" || cue.SourceText != "Hello" {
		t.Fatalf("SetText should only touch the translation: %+v", cue)
	}
}

func TestCueCloneIsDeep(t *testing.T) {
	text := "uno"
	cue := subtitles.Cue{
		TranslatedText:     &text,
		Flags:              []string{"cps_exceeded"},
		GenderAlternatives: []subtitles.GenderAlternative{{Gender: subtitles.GenderMasculine, Text: "a"}},
	}
	clone := cue.Clone()
	clone.SetText("dos")
	clone.Flags[0] = "changed"
	clone.GenderAlternatives[0].Text = "b"
	if *cue.TranslatedText != "uno" || cue.Flags[0] != "cps_exceeded" || cue.GenderAlternatives[0].Text != "a" {
		t.Fatalf("clone mutated original: %+v", cue)
	}
}

func TestFlagsKeepHistoryAndReplaceIssueLabels(t *testing.T) {
	cue := subtitles.Cue{}
	cue.SetIssueLabels([]string{"cps_exceeded", "line_too_long"})
	cue.AddFlag(subtitles.ConformedFlag("reflow"))
	cue.AddFlag(subtitles.ConformedFlag("reflow"))
	cue.AddFlag(subtitles.FlagUnfixable)
	cue.SetIssueLabels([]string{"cps_exceeded"})

	want := []string{"CONFORMED:reflow", "UNFIXABLE", "cps_exceeded"}
	if len(cue.Flags) != len(want) {
		t.Fatalf("unexpected flags %v", cue.Flags)
	}
	for i := range want {
		if cue.Flags[i] != want[i] {
			t.Fatalf("unexpected flags %v, want %v", cue.Flags, want)
		}
	}
	cue.RemoveFlag(subtitles.FlagUnfixable)
	if cue.HasFlag(subtitles.FlagUnfixable) {
		t.Fatal("expected UNFIXABLE removed")
	}
	if subtitles.IsIssueLabel(subtitles.FixedFlag("manual")) {
		t.Fatal("fix flags are not issue labels")
	}
}

func TestParseGender(t *testing.T) {
	g, err := subtitles.ParseGender(" Feminine ")
	if err != nil || g != subtitles.GenderFeminine {
		t.Fatalf("ParseGender feminine = %q, %v", g, err)
	}
	if _, err := subtitles.ParseGender("plural"); err == nil {
		t.Fatal("expected error for unknown gender")
	}
}

func TestConstraintsValidate(t *testing.T) {
	if err := subtitles.DefaultConstraints().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	bad := []subtitles.Constraints{
		{MaxLines: 5, MaxCharsPerLine: 42, MaxCPS: 17, MinDurationMS: 500},
		{MaxLines: 2, MaxCharsPerLine: 19, MaxCPS: 17, MinDurationMS: 500},
		{MaxLines: 2, MaxCharsPerLine: 42, MaxCPS: 30.5, MinDurationMS: 500},
		{MaxLines: 2, MaxCharsPerLine: 42, MaxCPS: 17, MinDurationMS: 99},
	}
	for _, c := range bad {
		if err := c.Validate(); !errors.Is(err, subtitles.ErrInvalidConstraints) {
			t.Fatalf("expected ErrInvalidConstraints for %+v, got %v", c, err)
		}
	}
}

func TestDocumentAllocatesFreshIndexes(t *testing.T) {
	doc := subtitles.NewDocument([]subtitles.Cue{{Index: 1}, {Index: 2}, {Index: 3}}, subtitles.DefaultConstraints())
	pos := doc.Position(2)
	if pos != 1 {
		t.Fatalf("expected position 1, got %d", pos)
	}
	index := doc.AllocateIndex()
	if index != 4 {
		t.Fatalf("expected fresh index 4, got %d", index)
	}
	doc.InsertAfter(pos, subtitles.Cue{Index: index})
	order := []int{1, 2, 4, 3}
	for i, want := range order {
		if doc.Cues[i].Index != want {
			t.Fatalf("unexpected order at %d: got %d want %d", i, doc.Cues[i].Index, want)
		}
	}
	prev, next := doc.Neighbours(2)
	if prev == nil || prev.Index != 2 || next == nil || next.Index != 3 {
		t.Fatalf("unexpected neighbours %v %v", prev, next)
	}
	if doc.AllocateIndex() != 5 {
		t.Fatal("indexes must never be reused")
	}
	clone := doc.Clone()
	clone.Cues[0].SourceText = "changed"
	if doc.Cues[0].SourceText == "changed" {
		t.Fatal("clone shares cue storage")
	}
}
