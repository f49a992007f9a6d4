package text

import (
	"strings"
)

var boxMarkers = strings.NewReplacer(
	"<|begin_of_box|>", "",
	"<|end_of_box|>", "",
)

// Clean removes the answer box markers some vision models wrap their output
// in, trims every line and drops blank lines.
func Clean(text string) string {
	if text == "" {
		return text
	}

	text = boxMarkers.Replace(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var lines []string

	for line := range strings.SplitSeq(text, "\n") {
		line = strings.TrimSpace(line)

		if line == "" {
			continue
		}

		lines = append(lines, line)
	}

	return strings.Join(lines, "\n")
}
