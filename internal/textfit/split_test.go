package textfit_test

import (
	"testing"

	"subconform/internal/textfit"
)

func TestSplitPointPrefersSentenceBoundary(t *testing.T) {
	first, second, ok := textfit.SplitPoint("We have to go now. The train leaves in five minutes", nil, "en")
	if !ok {
		t.Fatal("expected a split point")
	}
	if first != "We have to go now." || second != "The train leaves in five minutes" {
		t.Fatalf("unexpected split %q | %q", first, second)
	}
}

func TestSplitPointFallsBackToConjunction(t *testing.T) {
	first, second, ok := textfit.SplitPoint("I wanted to call you yesterday but my phone was dead", nil, "en")
	if !ok {
		t.Fatal("expected a split point")
	}
	if first != "I wanted to call you yesterday" || second != "but my phone was dead" {
		t.Fatalf("unexpected split %q | %q", first, second)
	}
}

func TestSplitPointIgnoresDistantPunctuation(t *testing.T) {
	first, _, ok := textfit.SplitPoint("Yes. I am going to the market with my brother and sister today", nil, "en")
	if !ok {
		t.Fatal("expected a split point")
	}
	if first == "Yes." {
		t.Fatal("sentence boundary far from the middle should not win")
	}
}

func TestSplitPointNeverDividesProtectedTerm(t *testing.T) {
	first, second, ok := textfit.SplitPoint("Meet me at New York Central", []string{"New York Central"}, "en")
	if !ok {
		t.Fatal("expected a split point")
	}
	if !textfit.ContainsTerm(first, "New York Central") && !textfit.ContainsTerm(second, "New York Central") {
		t.Fatalf("protected term divided: %q | %q", first, second)
	}
	if textfit.WordCount("Meet me at New York Central", []string{"New York Central"}) != 4 {
		t.Fatal("protected term should count as one word")
	}
}

func TestSplitPointNeedsTwoWords(t *testing.T) {
	if _, _, ok := textfit.SplitPoint("Hello", nil, "en"); ok {
		t.Fatal("single word cannot be split")
	}
}
