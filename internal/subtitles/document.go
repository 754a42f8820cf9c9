package subtitles

import "sort"

// Document is the ordered cue sequence of a single job.
type Document struct {
	Cues           []Cue       `json:"cues"`
	Constraints    Constraints `json:"constraints"`
	SourceLanguage string      `json:"source_language,omitempty"`
	TargetLanguage string      `json:"target_language,omitempty"`
	NextIndex      int         `json:"next_index"`
}

// NewDocument wraps cues and primes the index allocator past the largest index.
func NewDocument(cues []Cue, constraints Constraints) *Document {
	doc := &Document{Cues: cues, Constraints: constraints, NextIndex: 1}
	for _, cue := range cues {
		if cue.Index >= doc.NextIndex {
			doc.NextIndex = cue.Index + 1
		}
	}
	return doc
}

// Position returns the slice position of the cue with the given index, or -1.
func (d *Document) Position(index int) int {
	if d == nil {
		return -1
	}
	for i := range d.Cues {
		if d.Cues[i].Index == index {
			return i
		}
	}
	return -1
}

// Cue returns a pointer to the cue with the given index.
func (d *Document) Cue(index int) (*Cue, bool) {
	pos := d.Position(index)
	if pos < 0 {
		return nil, false
	}
	return &d.Cues[pos], true
}

// Neighbours returns the cues immediately before and after pos.
func (d *Document) Neighbours(pos int) (prev, next *Cue) {
	if pos > 0 && pos-1 < len(d.Cues) {
		prev = &d.Cues[pos-1]
	}
	if pos >= 0 && pos+1 < len(d.Cues) {
		next = &d.Cues[pos+1]
	}
	return prev, next
}

// AllocateIndex hands out an index that has never been used in this document.
func (d *Document) AllocateIndex() int {
	if d.NextIndex < 1 {
		d.NextIndex = 1
	}
	for _, cue := range d.Cues {
		if cue.Index >= d.NextIndex {
			d.NextIndex = cue.Index + 1
		}
	}
	index := d.NextIndex
	d.NextIndex++
	return index
}

// InsertAfter places cue directly after position pos.
func (d *Document) InsertAfter(pos int, cue Cue) {
	d.Cues = append(d.Cues, Cue{})
	copy(d.Cues[pos+2:], d.Cues[pos+1:])
	d.Cues[pos+1] = cue
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := *d
	out.Cues = make([]Cue, len(d.Cues))
	for i, cue := range d.Cues {
		out.Cues[i] = cue.Clone()
	}
	return &out
}

// SortCues orders cues by start time, falling back to index.
func SortCues(cues []Cue) {
	sort.SliceStable(cues, func(i, j int) bool {
		if cues[i].StartMS != cues[j].StartMS {
			return cues[i].StartMS < cues[j].StartMS
		}
		return cues[i].Index < cues[j].Index
	})
}
