package text

import (
	"bytes"
	"regexp"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	atxHeadingPattern     = regexp.MustCompile(`(?m)^#{1,6}\s+.+$`)
	codeFencePattern      = regexp.MustCompile("(?m)^```|^~~~")
	unorderedListPattern  = regexp.MustCompile(`(?m)^[\s]*[-*+]\s+.+$`)
	orderedListPattern    = regexp.MustCompile(`(?m)^[\s]*\d+\.\s+.+$`)
	linkPattern           = regexp.MustCompile(`!?\[([^\]]+)\]\(([^)]+)\)`)
	blockquotePattern     = regexp.MustCompile(`(?m)^>\s+.+$`)
	tablePattern          = regexp.MustCompile(`(?m)^\|.+\|\s*$`)
	horizontalRulePattern = regexp.MustCompile(`(?m)^[\s]*(-{3,}|\*{3,}|_{3,})[\s]*$`)
)

// IsMarkdown reports whether text shows at least two distinct markdown
// features. Recognized documents often contain a stray "#" or "-", so a
// single feature is not enough.
func IsMarkdown(text string) bool {
	if len(text) == 0 {
		return false
	}

	indicators := 0

	for _, matched := range []bool{
		atxHeadingPattern.MatchString(text),
		codeFencePattern.MatchString(text),
		unorderedListPattern.MatchString(text) || orderedListPattern.MatchString(text),
		linkPattern.MatchString(text),
		blockquotePattern.MatchString(text),
		tablePattern.MatchString(text),
		horizontalRulePattern.MatchString(text),
	} {
		if matched {
			indicators++
		}
	}

	return indicators >= 2
}

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
)

// RenderMarkdown converts markdown to HTML. Raw HTML in the input is not
// passed through.
func RenderMarkdown(text string) (string, error) {
	var buf bytes.Buffer

	if err := markdown.Convert([]byte(text), &buf); err != nil {
		return "", err
	}

	return buf.String(), nil
}
