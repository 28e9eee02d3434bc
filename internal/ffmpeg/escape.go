package ffmpeg

import (
	"strconv"
	"strings"
)

// escapeDrawText prepares free text for a single-quoted drawtext value.
// Backslashes, option separators and filter separators are escaped and
// embedded quotes close and reopen the quoted run.
func escapeDrawText(value string) string {
	value = strings.ReplaceAll(value, "\r\n", "\n")
	value = strings.ReplaceAll(value, "\r", "\n")

	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, ":", `\:`)
	value = strings.ReplaceAll(value, ",", `\,`)
	value = strings.ReplaceAll(value, "%", `\%`)
	value = strings.ReplaceAll(value, "\n", `\n`)
	value = strings.ReplaceAll(value, "'", `'\''`)
	return value
}

func formatFactor(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatTime(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
