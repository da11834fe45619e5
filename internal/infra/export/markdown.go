package export

import (
	"regexp"
	"strings"
)

var (
	italicRe     = regexp.MustCompile(`(?:^|\s)\*([^*]+)\*(?:\s|$)`)
	inlineCodeRe = regexp.MustCompile("`([^`]+)`")
	linkRe       = regexp.MustCompile(`\[([^\]]*)\]\([^)]+\)`)
	numberedRe   = regexp.MustCompile(`^\d+\.\s`)
)

// blockKind classifies one Markdown source line for the line-based
// docx and pdf renderers.
type blockKind int

const (
	blockBlank blockKind = iota
	blockHeading
	blockBullet
	blockNumbered
	blockCode
	blockParagraph
)

type block struct {
	kind  blockKind
	level int // heading level
	text  string
}

// splitBlocks turns Markdown into renderable lines. Fenced code is passed
// through verbatim; inline markup is stripped from everything else.
func splitBlocks(markdown string) []block {
	var out []block
	inCode := false
	for _, line := range strings.Split(strings.ReplaceAll(markdown, "\r\n", "\n"), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inCode = !inCode
			continue
		}
		switch {
		case inCode:
			out = append(out, block{kind: blockCode, text: line})
		case trimmed == "":
			out = append(out, block{kind: blockBlank})
		case strings.HasPrefix(trimmed, "#"):
			level := len(trimmed) - len(strings.TrimLeft(trimmed, "#"))
			out = append(out, block{kind: blockHeading, level: level,
				text: cleanInline(strings.TrimSpace(strings.TrimLeft(trimmed, "#")))})
		case strings.HasPrefix(trimmed, "- "), strings.HasPrefix(trimmed, "* "):
			out = append(out, block{kind: blockBullet, text: cleanInline(strings.TrimSpace(trimmed[2:]))})
		case numberedRe.MatchString(trimmed):
			out = append(out, block{kind: blockNumbered, text: cleanInline(trimmed)})
		default:
			out = append(out, block{kind: blockParagraph, text: cleanInline(trimmed)})
		}
	}
	return out
}

// cleanInline strips inline Markdown formatting.
func cleanInline(text string) string {
	text = strings.ReplaceAll(text, "**", "")
	text = strings.ReplaceAll(text, "__", "")
	text = italicRe.ReplaceAllString(text, " $1 ")
	text = inlineCodeRe.ReplaceAllString(text, "$1")
	text = linkRe.ReplaceAllString(text, "$1")
	return strings.TrimSpace(text)
}
