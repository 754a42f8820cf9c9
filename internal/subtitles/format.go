package subtitles

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Format names a subtitle serialization.
type Format string

const (
	FormatSRT Format = "srt"
	FormatVTT Format = "vtt"
)

// ErrNoCues is returned when a file contains no usable cue blocks.
var ErrNoCues = errors.New("no subtitle cues found")

// ParseFormat validates a user supplied format name.
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(value), ".")) {
	case "srt":
		return FormatSRT, nil
	case "vtt", "webvtt":
		return FormatVTT, nil
	default:
		return "", fmt.Errorf("unsupported subtitle format %q", value)
	}
}

// DetectFormat picks a format from the file name, then from the content.
func DetectFormat(name string, data []byte) Format {
	if format, err := ParseFormat(filepath.Ext(name)); err == nil {
		return format
	}
	trimmed := bytes.TrimPrefix(bytes.TrimSpace(data), []byte("\ufeff"))
	if bytes.HasPrefix(trimmed, []byte("WEBVTT")) {
		return FormatVTT
	}
	return FormatSRT
}

// ParseResult carries parsed cues and the number of malformed blocks dropped.
type ParseResult struct {
	Format  Format `json:"format"`
	Cues    []Cue  `json:"cues"`
	Skipped int    `json:"skipped"`
}

// Parse decodes data in the given format. Cues are sorted by start time and
// numbered from 1 in that order.
func Parse(data []byte, format Format) (ParseResult, error) {
	content := normalizeContent(data)
	var (
		result ParseResult
		err    error
	)
	switch format {
	case FormatSRT:
		result, err = parseSRT(content)
	case FormatVTT:
		result, err = parseVTT(content)
	default:
		return ParseResult{}, fmt.Errorf("unsupported subtitle format %q", format)
	}
	if err != nil {
		return ParseResult{}, err
	}
	if len(result.Cues) == 0 {
		return result, ErrNoCues
	}
	SortCues(result.Cues)
	for i := range result.Cues {
		result.Cues[i].Index = i + 1
		result.Cues[i].ActiveGender = GenderUnknown
		result.Cues[i].GenderConfidence = 1
	}
	result.Format = format
	return result, nil
}

// Render encodes cues in the given format using each cue's current text.
// Cues with no visible text are omitted and the remainder renumbered.
func Render(cues []Cue, format Format) ([]byte, error) {
	var buf bytes.Buffer
	separator := ","
	switch format {
	case FormatSRT:
	case FormatVTT:
		separator = "."
		buf.WriteString("WEBVTT\n\n")
	default:
		return nil, fmt.Errorf("unsupported subtitle format %q", format)
	}
	number := 0
	for _, cue := range cues {
		text := strings.TrimSpace(cue.Text())
		if text == "" {
			continue
		}
		number++
		if number > 1 {
			buf.WriteByte('\n')
		}
		buf.WriteString(strconv.Itoa(number))
		buf.WriteByte('\n')
		buf.WriteString(FormatTimestamp(cue.StartMS, separator))
		buf.WriteString(" --> ")
		buf.WriteString(FormatTimestamp(cue.EndMS, separator))
		buf.WriteByte('\n')
		buf.WriteString(text)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// FormatTimestamp renders milliseconds as HH:MM:SS<sep>mmm.
func FormatTimestamp(ms int64, separator string) string {
	if ms < 0 {
		ms = 0
	}
	hours := ms / 3_600_000
	ms %= 3_600_000
	minutes := ms / 60_000
	ms %= 60_000
	seconds := ms / 1000
	millis := ms % 1000
	return fmt.Sprintf("%02d:%02d:%02d%s%03d", hours, minutes, seconds, separator, millis)
}

// ParseTimestamp accepts HH:MM:SS,mmm, HH:MM:SS.mmm and MM:SS.mmm.
func ParseTimestamp(value string) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, errors.New("empty timestamp")
	}
	value = strings.ReplaceAll(value, ",", ".")
	clock, fraction, ok := strings.Cut(value, ".")
	if !ok || fraction == "" || len(fraction) > 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	for len(fraction) < 3 {
		fraction += "0"
	}
	millis, err := strconv.Atoi(fraction)
	if err != nil || millis < 0 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	parts := strings.Split(clock, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	var total int64
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid timestamp %q", value)
		}
		if i > 0 && n >= 60 {
			return 0, fmt.Errorf("invalid timestamp %q", value)
		}
		total = total*60 + int64(n)
	}
	return total*1000 + int64(millis), nil
}

func parseTimingLine(line string) (int64, int64, error) {
	startText, rest, ok := strings.Cut(line, "-->")
	if !ok {
		return 0, 0, fmt.Errorf("invalid timing line %q", line)
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return 0, 0, fmt.Errorf("invalid timing line %q", line)
	}
	start, err := ParseTimestamp(startText)
	if err != nil {
		return 0, 0, err
	}
	end, err := ParseTimestamp(fields[0])
	if err != nil {
		return 0, 0, err
	}
	if end <= start {
		return 0, 0, fmt.Errorf("%w: %s", ErrInvalidRange, strings.TrimSpace(line))
	}
	return start, end, nil
}

func normalizeContent(data []byte) string {
	content := strings.TrimPrefix(string(data), "\ufeff")
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return strings.ReplaceAll(content, "\r", "\n")
}

func splitBlocks(content string) [][]string {
	var (
		blocks  [][]string
		current []string
	)
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			if len(current) > 0 {
				blocks = append(blocks, current)
				current = nil
			}
			continue
		}
		current = append(current, strings.TrimRight(line, " \t"))
	}
	if len(current) > 0 {
		blocks = append(blocks, current)
	}
	return blocks
}

// cueFromBlock builds a cue from the timing line at position timing and the
// text lines that follow it.
func cueFromBlock(block []string, timing int) (Cue, error) {
	start, end, err := parseTimingLine(block[timing])
	if err != nil {
		return Cue{}, err
	}
	text := NormalizeText(strings.Join(block[timing+1:], LineBreak))
	return Cue{StartMS: start, EndMS: end, SourceText: text}, nil
}

func timingIndex(block []string) int {
	for i, line := range block {
		if strings.Contains(line, "-->") {
			return i
		}
	}
	return -1
}
