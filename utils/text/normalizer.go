// Package text prepares narrative output for speech synthesis. Story replies
// arrive with markdown, stage directions, and emoji that sound wrong when
// read aloud; Normalize strips them before the text reaches a backend.
package text

import (
	"regexp"
	"strings"
)

type INormalizer interface {
	Normalize(text string) string
}

// Normalizer strips non-spoken markup from narrative text.
type Normalizer struct{}

var (
	markdownEmphasisRe = regexp.MustCompile(`[*_]{1,3}([^*_]+)[*_]{1,3}`)
	markdownHeadingRe  = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	codeSpanRe         = regexp.MustCompile("`+([^`]*)`+")
	stageDirectionRe   = regexp.MustCompile(`\([^)]*\)|\[[^\]]*\]`)
	emojiRe            = regexp.MustCompile(`[\x{1F000}-\x{1FAFF}\x{2600}-\x{27BF}\x{FE0F}]`)
	whitespaceRe       = regexp.MustCompile(`\s+`)
)

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize returns the spoken form of text. Markdown emphasis and code spans
// keep their inner content; headings, bracketed stage directions, and emoji
// are dropped entirely; whitespace collapses to single spaces.
func (n *Normalizer) Normalize(text string) string {
	out := markdownHeadingRe.ReplaceAllString(text, "")
	out = markdownEmphasisRe.ReplaceAllString(out, "$1")
	out = codeSpanRe.ReplaceAllString(out, "$1")
	out = stageDirectionRe.ReplaceAllString(out, " ")
	out = emojiRe.ReplaceAllString(out, "")
	out = whitespaceRe.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}
