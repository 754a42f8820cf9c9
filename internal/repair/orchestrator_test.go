package repair_test

import (
	"context"
	"errors"
	"testing"
	"unicode/utf8"

	"subconform/internal/fixes"
	"subconform/internal/logging"
	"subconform/internal/qc"
	"subconform/internal/repair"
	"subconform/internal/subtitles"
)

const longLine = "This is a very long line of subtitle text that exceeds forty two characters"

func newOrchestrator() *repair.Orchestrator {
	return repair.New(nil, nil, logging.NewNop())
}

func document(cues ...subtitles.Cue) *subtitles.Document {
	return subtitles.NewDocument(cues, subtitles.DefaultConstraints())
}

func cue(index int, start, end int64, text string) subtitles.Cue {
	return subtitles.Cue{Index: index, StartMS: start, EndMS: end, SourceText: text}
}

func ptr[T any](v T) *T { return &v }

func TestApplyReflowSplitsLongLine(t *testing.T) {
	doc := document(cue(1, 0, 2000, longLine))
	o := newOrchestrator()

	res, err := o.ApplyFix(context.Background(), doc, 1, fixes.FixReflow, repair.Params{})
	if err != nil {
		t.Fatalf("apply reflow: %v", err)
	}
	if res.Metrics.LineCount != 2 {
		t.Fatalf("expected two lines, got %d", res.Metrics.LineCount)
	}
	for _, line := range subtitles.Lines(res.Cue.Text()) {
		if n := utf8.RuneCountInString(line); n > 42 {
			t.Fatalf("line %q has %d chars", line, n)
		}
	}
	if !res.Cue.HasFlag("CONFORMED:reflow") {
		t.Fatalf("missing conformed flag: %v", res.Cue.Flags)
	}
	if res.Cue.HasFlag(string(qc.IssueLineTooLong)) {
		t.Fatalf("resolved issue label still present: %v", res.Cue.Flags)
	}
	if !res.Cue.HasFlag(string(qc.IssueCPSExceeded)) || res.Summary.Passed {
		t.Fatalf("reading speed issue must remain: %v %+v", res.Cue.Flags, res.Summary)
	}
	if res.Cue.SourceText != longLine {
		t.Fatalf("source text must stay untouched, got %q", res.Cue.SourceText)
	}
}

func TestUserSelectedFixRecordsFixedFlag(t *testing.T) {
	doc := document(cue(1, 0, 2000, longLine))
	o := newOrchestrator()

	res, err := o.ApplyFix(context.Background(), doc, 1, fixes.FixReflow, repair.Params{Origin: repair.OriginUser})
	if err != nil {
		t.Fatalf("apply reflow: %v", err)
	}
	if !res.Cue.HasFlag("FIXED:reflow") || res.Cue.HasFlag("CONFORMED:reflow") {
		t.Fatalf("user-selected fix should record FIXED:reflow, got %v", res.Cue.Flags)
	}
}

func TestApplySameFixTwiceIsStale(t *testing.T) {
	doc := document(cue(1, 0, 2000, longLine))
	o := newOrchestrator()
	if _, err := o.ApplyFix(context.Background(), doc, 1, fixes.FixReflow, repair.Params{}); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	before := doc.Cues[0].Text()

	_, err := o.ApplyFix(context.Background(), doc, 1, fixes.FixReflow, repair.Params{})
	if !errors.Is(err, repair.ErrStaleFix) {
		t.Fatalf("expected stale fix, got %v", err)
	}
	if doc.Cues[0].Text() != before {
		t.Fatalf("rejected fix changed text to %q", doc.Cues[0].Text())
	}
}

func TestApplyInapplicableCarriesDetail(t *testing.T) {
	doc := document(cue(1, 0, 2000, longLine))
	_, err := newOrchestrator().ApplyFix(context.Background(), doc, 1, fixes.FixCompress, repair.Params{})
	if !errors.Is(err, repair.ErrInapplicable) {
		t.Fatalf("expected inapplicable, got %v", err)
	}
	var fe *repair.FixError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FixError, got %T", err)
	}
	if fe.CueIndex != 1 || fe.Constraint != string(qc.IssueLineTooLong) {
		t.Fatalf("unexpected detail %+v", fe)
	}
	if fe.Value == nil || *fe.Value != 75 || fe.Threshold == nil || *fe.Threshold != 42 {
		t.Fatalf("unexpected value/threshold in %v", fe)
	}
	if fe.Reason != "compression would alter meaning too much" {
		t.Fatalf("unexpected reason %q", fe.Reason)
	}
}

func TestApplyExtendTiming(t *testing.T) {
	doc := document(cue(1, 0, 1000, "Hello there my friend"), cue(2, 5000, 7000, "Bye"))
	res, err := newOrchestrator().ApplyFix(context.Background(), doc, 1, fixes.FixExtendTiming, repair.Params{})
	if err != nil {
		t.Fatalf("apply extend: %v", err)
	}
	if res.Cue.StartMS != 0 || res.Cue.EndMS != 1236 {
		t.Fatalf("unexpected timing %d-%d", res.Cue.StartMS, res.Cue.EndMS)
	}
	if len(res.Issues) != 0 || !res.Summary.Passed {
		t.Fatalf("expected clean cue, got %+v", res.Issues)
	}
	if res.Cue.TranslatedText != nil {
		t.Fatal("timing fix must not create a translation")
	}
}

func TestApplySplitAllocatesFreshIndex(t *testing.T) {
	doc := document(
		cue(1, 0, 2800, "Well, I really do not think that is a good idea..."),
		cue(5, 6000, 8000, "Fine"),
	)
	res, err := newOrchestrator().ApplyFix(context.Background(), doc, 1, fixes.FixSplitCue, repair.Params{})
	if err != nil {
		t.Fatalf("apply split: %v", err)
	}
	if res.Inserted == nil || res.Inserted.Index != 6 {
		t.Fatalf("expected inserted cue 6, got %+v", res.Inserted)
	}
	if len(doc.Cues) != 3 || doc.Cues[1].Index != 6 || doc.Cues[2].Index != 5 {
		t.Fatalf("unexpected order %+v", doc.Cues)
	}
	first, second := doc.Cues[0], doc.Cues[1]
	if first.EndMS != second.StartMS || first.StartMS != 0 || second.EndMS != 2800 {
		t.Fatalf("halves must share the original span: %d-%d %d-%d", first.StartMS, first.EndMS, second.StartMS, second.EndMS)
	}
	for _, c := range []subtitles.Cue{first, second} {
		if !c.HasFlag("CONFORMED:split_cue") {
			t.Fatalf("cue %d missing split flag: %v", c.Index, c.Flags)
		}
	}
	if first.SourceText == second.SourceText {
		t.Fatal("source text should be divided between the halves")
	}
}

func TestApplyManualFix(t *testing.T) {
	doc := document(cue(1, 0, 1000, "Hello"), cue(2, 1500, 1700, "Far too much text for this cue"))
	doc.Cues[1].AddFlag(subtitles.FlagUnfixable)
	o := newOrchestrator()

	res, err := o.ApplyFix(context.Background(), doc, 2, fixes.FixManual, repair.Params{
		Text:  ptr("  Too much\r\ntext "),
		EndMS: ptr(int64(2600)),
	})
	if err != nil {
		t.Fatalf("apply manual: %v", err)
	}
	if res.Cue.Text() != "Too much\ntext" || res.Cue.EndMS != 2600 {
		t.Fatalf("unexpected cue %q %d", res.Cue.Text(), res.Cue.EndMS)
	}
	if !res.Cue.HasFlag("FIXED:manual") || res.Cue.HasFlag(subtitles.FlagUnfixable) {
		t.Fatalf("unexpected flags %v", res.Cue.Flags)
	}
}

func TestApplyManualRejectsBadTiming(t *testing.T) {
	tests := []struct {
		name   string
		params repair.Params
		want   error
	}{
		{name: "no change", params: repair.Params{}, want: repair.ErrInapplicable},
		{name: "before previous", params: repair.Params{StartMS: ptr(int64(900))}, want: repair.ErrOutOfRange},
		{name: "after next", params: repair.Params{EndMS: ptr(int64(4100))}, want: repair.ErrOutOfRange},
		{name: "inverted", params: repair.Params{EndMS: ptr(int64(1400))}, want: subtitles.ErrInvalidRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := document(cue(1, 0, 1000, "One"), cue(2, 1500, 2500, "Two"), cue(3, 4000, 5000, "Three"))
			_, err := newOrchestrator().ApplyFix(context.Background(), doc, 2, fixes.FixManual, tt.params)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if doc.Cues[1].StartMS != 1500 || doc.Cues[1].EndMS != 2500 {
				t.Fatalf("rejected edit changed timing: %+v", doc.Cues[1])
			}
		})
	}
}

func TestApplyUnknownCue(t *testing.T) {
	doc := document(cue(1, 0, 1000, "One"))
	if _, err := newOrchestrator().ApplyFix(context.Background(), doc, 9, fixes.FixReflow, repair.Params{}); !errors.Is(err, repair.ErrCueNotFound) {
		t.Fatalf("expected cue not found, got %v", err)
	}
	if _, err := newOrchestrator().Suggest(doc, 9); !errors.Is(err, repair.ErrCueNotFound) {
		t.Fatalf("expected cue not found, got %v", err)
	}
}
