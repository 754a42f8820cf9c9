package subtitles

import "strings"

// Flag labels attached to cues. Raw issue labels (for example "cps_exceeded")
// carry no prefix and are rewritten after every QC pass.
const (
	FlagUnfixable       = "UNFIXABLE"
	flagConformedPrefix = "CONFORMED:"
	flagFixedPrefix     = "FIXED:"
)

// FlagFromMemory marks a translation reused from the translation memory.
const FlagFromMemory = "TM:reused"

// ConformedFlag labels an automatically generated fix.
func ConformedFlag(fixType string) string { return flagConformedPrefix + fixType }

// FixedFlag labels a user-authored fix.
func FixedFlag(fixType string) string { return flagFixedPrefix + fixType }

// IsIssueLabel reports whether flag is a raw, recomputed issue label.
func IsIssueLabel(flag string) bool {
	return flag != FlagUnfixable && !strings.Contains(flag, ":")
}

// HasFlag reports whether the flag is present.
func (c Cue) HasFlag(flag string) bool {
	for _, existing := range c.Flags {
		if existing == flag {
			return true
		}
	}
	return false
}

// AddFlag appends flag unless it is already present.
func (c *Cue) AddFlag(flag string) {
	if flag == "" || c.HasFlag(flag) {
		return
	}
	c.Flags = append(c.Flags, flag)
}

// RemoveFlag drops every occurrence of flag.
func (c *Cue) RemoveFlag(flag string) {
	out := c.Flags[:0]
	for _, existing := range c.Flags {
		if existing != flag {
			out = append(out, existing)
		}
	}
	c.Flags = out
}

// SetIssueLabels replaces the raw issue labels while keeping fix history flags
// in their original order. Labels are appended in the order given.
func (c *Cue) SetIssueLabels(labels []string) {
	out := make([]string, 0, len(c.Flags)+len(labels))
	for _, existing := range c.Flags {
		if !IsIssueLabel(existing) {
			out = append(out, existing)
		}
	}
	for _, label := range labels {
		duplicate := false
		for _, existing := range out {
			if existing == label {
				duplicate = true
				break
			}
		}
		if !duplicate {
			out = append(out, label)
		}
	}
	c.Flags = out
}
