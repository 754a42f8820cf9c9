// Package subtitles holds the cue model shared by every stage of the conform
// pipeline together with SRT and WebVTT readers and writers.
//
// A Cue is owned by exactly one Document. The Document tracks the job's
// constraint set and the next free cue index so that cues created by a split
// never reuse an index handed out at parse time. Text uses "\n" as the only
// line break marker; readers normalise CRLF input before building cues.
package subtitles
