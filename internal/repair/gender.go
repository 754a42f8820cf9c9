package repair

import (
	"context"
	"fmt"

	"subconform/internal/logging"
	"subconform/internal/qc"
	"subconform/internal/subtitles"
)

// GenderState is the gender view of one cue.
type GenderState struct {
	CueIndex     int                           `json:"cue_index"`
	Alternatives []subtitles.GenderAlternative `json:"alternatives"`
	ActiveGender subtitles.Gender              `json:"active_gender"`
	Confidence   float64                       `json:"confidence"`
	Ambiguous    bool                          `json:"is_ambiguous"`
}

// BatchGenderResult reports a document-wide gender switch.
type BatchGenderResult struct {
	Gender           subtitles.Gender `json:"gender"`
	UpdatedCount     int              `json:"updated_count"`
	SkippedConfident int              `json:"skipped_confident"`
	Summary          qc.Summary       `json:"qc_summary"`
}

// Gender returns the alternatives and best guess of one cue.
func (o *Orchestrator) Gender(doc *subtitles.Document, index int) (GenderState, error) {
	cue, ok := doc.Cue(index)
	if !ok {
		return GenderState{}, &FixError{CueIndex: index, Err: ErrCueNotFound}
	}
	alternatives := cue.GenderAlternatives
	if alternatives == nil {
		alternatives = []subtitles.GenderAlternative{}
	}
	return GenderState{
		CueIndex:     cue.Index,
		Alternatives: alternatives,
		ActiveGender: activeGender(*cue),
		Confidence:   cue.GenderConfidence,
		Ambiguous:    cue.HasGenderChoice() && o.detector.Ambiguous(cue.GenderConfidence),
	}, nil
}

// SetGender switches the cue's translation to the alternative for g.
func (o *Orchestrator) SetGender(ctx context.Context, doc *subtitles.Document, index int, g subtitles.Gender) (Result, error) {
	cue, ok := doc.Cue(index)
	if !ok {
		return Result{}, &FixError{CueIndex: index, Err: ErrCueNotFound}
	}
	alt, ok := cue.Alternative(g)
	if !ok {
		return Result{}, &FixError{
			CueIndex: index,
			Reason:   fmt.Sprintf("no %s form was generated", g),
			Err:      ErrNoSuchAlternative,
		}
	}
	cue.SetText(alt.Text)
	cue.ActiveGender = g

	report := qc.SyncFlags(doc)
	logging.WithContext(ctx, o.logger).Info("gender set",
		logging.Int(logging.FieldCueIndex, index),
		logging.String("gender", string(g)),
	)
	return cueResult(doc, index, report), nil
}

// SetGenderAll applies g to every cue offering it. Cues whose best guess is
// at or above the ambiguity threshold keep their form unless
// overrideConfident is set. Only cues whose text or active gender changed
// are counted.
func (o *Orchestrator) SetGenderAll(ctx context.Context, doc *subtitles.Document, g subtitles.Gender, overrideConfident bool) (BatchGenderResult, error) {
	if g == subtitles.GenderUnknown {
		return BatchGenderResult{}, fmt.Errorf("set gender for all cues: %w: unknown is not a selectable form", ErrNoSuchAlternative)
	}
	result := BatchGenderResult{Gender: g}
	for i := range doc.Cues {
		cue := &doc.Cues[i]
		alt, ok := cue.Alternative(g)
		if !ok {
			continue
		}
		if cue.ActiveGender == g && cue.Text() == alt.Text {
			continue
		}
		if !overrideConfident && activeGender(*cue) != subtitles.GenderUnknown && !o.detector.Ambiguous(cue.GenderConfidence) {
			result.SkippedConfident++
			continue
		}
		cue.SetText(alt.Text)
		cue.ActiveGender = g
		result.UpdatedCount++
	}
	report := qc.SyncFlags(doc)
	result.Summary = report.Summary
	logging.WithContext(ctx, o.logger).Info("gender applied to document",
		logging.String("gender", string(g)),
		logging.Int("updated_count", result.UpdatedCount),
		logging.Int("skipped_confident", result.SkippedConfident),
		logging.Bool("override_confident", overrideConfident),
	)
	return result, nil
}

func activeGender(cue subtitles.Cue) subtitles.Gender {
	if cue.ActiveGender == "" {
		return subtitles.GenderUnknown
	}
	return cue.ActiveGender
}
