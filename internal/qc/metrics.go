package qc

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"subconform/internal/subtitles"
)

// Metrics describes the measurable shape of a cue.
type Metrics struct {
	CPS           float64 `json:"cps"`
	MaxLineLength int     `json:"max_line_length"`
	LineCount     int     `json:"line_count"`
	CharCount     int     `json:"char_count"`
	DurationMS    int64   `json:"duration_ms"`
}

// MarshalJSON encodes an infinite reading speed as null.
func (m Metrics) MarshalJSON() ([]byte, error) {
	type alias Metrics
	return json.Marshal(struct {
		alias
		CPS *float64 `json:"cps"`
	}{alias: alias(m), CPS: FiniteOrNil(round2(m.CPS))})
}

// Compute measures text shown between startMS and endMS. When the duration is
// not positive it returns subtitles.ErrInvalidRange alongside metrics whose CPS
// is +Inf, so callers that only need a verdict can still treat the cue as
// violating every reading-speed limit.
func Compute(text string, startMS, endMS int64) (Metrics, error) {
	text = strings.ReplaceAll(norm.NFC.String(text), "\r", "")
	segments := subtitles.Lines(text)
	m := Metrics{
		LineCount:  len(segments),
		DurationMS: endMS - startMS,
	}
	for _, segment := range segments {
		m.CharCount += utf8.RuneCountInString(segment)
		if n := utf8.RuneCountInString(strings.TrimSpace(segment)); n > m.MaxLineLength {
			m.MaxLineLength = n
		}
	}
	if m.DurationMS <= 0 {
		m.CPS = math.Inf(1)
		return m, fmt.Errorf("%w: duration %dms (start %d, end %d)", subtitles.ErrInvalidRange, m.DurationMS, startMS, endMS)
	}
	m.CPS = float64(m.CharCount) / (float64(m.DurationMS) / 1000)
	return m, nil
}

// CueMetrics measures the cue's current text and timing.
func CueMetrics(cue subtitles.Cue) (Metrics, error) {
	return Compute(cue.Text(), cue.StartMS, cue.EndMS)
}

// CharCount counts visible characters the same way Compute does.
func CharCount(text string) int {
	n := 0
	for _, r := range norm.NFC.String(text) {
		if r != '\n' && r != '\r' {
			n++
		}
	}
	return n
}

// FiniteOrNil returns a pointer to v, or nil when v is infinite or NaN.
func FiniteOrNil(v float64) *float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}

func round2(v float64) float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return v
	}
	return math.Round(v*100) / 100
}
