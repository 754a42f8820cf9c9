package subtitles

import (
	"fmt"
	"strings"
)

func parseVTT(content string) (ParseResult, error) {
	var result ParseResult
	blocks := splitBlocks(content)
	if len(blocks) == 0 || !strings.HasPrefix(strings.TrimSpace(blocks[0][0]), "WEBVTT") {
		return result, fmt.Errorf("parse vtt: missing WEBVTT header")
	}
	header := blocks[0]
	blocks = blocks[1:]
	// Cues may follow the header without a blank line.
	if timing := timingIndex(header); timing > 0 {
		blocks = append([][]string{header[timing-1:]}, blocks...)
	}
	for _, block := range blocks {
		first := strings.TrimSpace(block[0])
		if strings.HasPrefix(first, "NOTE") || first == "STYLE" || first == "REGION" {
			continue
		}
		timing := timingIndex(block)
		if timing < 0 || timing > 1 {
			result.Skipped++
			continue
		}
		cue, err := cueFromBlock(block, timing)
		if err != nil {
			result.Skipped++
			continue
		}
		cue.SourceText = stripVoiceTags(cue.SourceText)
		result.Cues = append(result.Cues, cue)
	}
	return result, nil
}

// stripVoiceTags removes inline markup such as <v Bob>, <i> and <c.red>.
func stripVoiceTags(text string) string {
	if !strings.Contains(text, "<") {
		return text
	}
	var b strings.Builder
	depth := 0
	for _, r := range text {
		switch {
		case r == '<':
			depth++
		case r == '>' && depth > 0:
			depth--
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return NormalizeText(b.String())
}
