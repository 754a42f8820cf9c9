package subtitles

func parseSRT(content string) (ParseResult, error) {
	var result ParseResult
	for _, block := range splitBlocks(content) {
		timing := timingIndex(block)
		// A block is a sequence number (optional), a timing line, then text.
		if timing < 0 || timing > 1 {
			result.Skipped++
			continue
		}
		cue, err := cueFromBlock(block, timing)
		if err != nil {
			result.Skipped++
			continue
		}
		result.Cues = append(result.Cues, cue)
	}
	return result, nil
}
