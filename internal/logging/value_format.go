package logging

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

const logTimestampLayout = "2006-01-02 15:04:05"

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.In(time.Local).Format(logTimestampLayout)
}

// attrString renders a value for structured consumers such as LogEvent
// fields, without console quoting.
func attrString(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindTime:
		return formatTimestamp(v.Time())
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	default:
		return v.String()
	}
}

// formatValue renders a value for the console handler, quoting anything
// that would break key=value parsing.
func formatValue(v slog.Value) string {
	s := attrString(v)
	if needsQuotes(s) {
		return strconv.Quote(s)
	}
	return s
}

func needsQuotes(s string) bool {
	return s == "" || strings.IndexFunc(s, func(r rune) bool {
		return r <= ' ' || r == '=' || r == '"'
	}) >= 0
}
