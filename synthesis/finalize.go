package synthesis

import (
	"regexp"
	"strings"
)

// UncertainReply is emitted when no strategy produced an answer. A final
// answer is never empty.
const UncertainReply = "I'm not sure."

// Ellipsis marks a reply that was cut at the character ceiling.
const Ellipsis = "…"

var (
	finalPattern      = regexp.MustCompile(`(?s)<final>(.*?)</final>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// ExtractFinal returns the contents of the first <final>...</final> segment
// if one exists, otherwise the raw text unchanged. The executor and the
// finalizer share this so delimiter stripping behaves identically everywhere.
func ExtractFinal(raw string) string {
	if m := finalPattern.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	return raw
}

// FinalAnswer is the canonical, bounded reply text.
type FinalAnswer struct {
	Text     string
	Strategy string
}

// Finalizer turns a race result into a canonical short-form reply. It is pure
// and synchronous: no I/O, no timeouts.
type Finalizer struct {
	maxSentences int
	maxChars     int
}

// NewFinalizer creates a finalizer with the given ceilings. Non-positive
// values fall back to conservative defaults.
func NewFinalizer(maxSentences, maxChars int) *Finalizer {
	if maxSentences <= 0 {
		maxSentences = 3
	}
	if maxChars <= 0 {
		maxChars = 320
	}
	return &Finalizer{maxSentences: maxSentences, maxChars: maxChars}
}

// Finalize produces the FinalAnswer for a race result. NoneAvailable and any
// text that normalizes away to nothing both map to the fixed uncertain reply.
func (f *Finalizer) Finalize(res RaceResult) FinalAnswer {
	if res.NoneAvailable {
		return FinalAnswer{Text: UncertainReply}
	}

	text := ExtractFinal(res.Text)
	text = CollapseWhitespace(text)
	text = f.limitSentences(text)
	text = f.limitChars(text)
	if text == "" {
		return FinalAnswer{Text: UncertainReply}
	}
	return FinalAnswer{Text: text, Strategy: res.Strategy}
}

// CollapseWhitespace trims the text and folds internal runs of whitespace
// into single spaces.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}

// limitSentences keeps at most maxSentences sentences, split naively on
// terminal punctuation.
func (f *Finalizer) limitSentences(s string) string {
	sentences := splitSentences(s)
	if len(sentences) <= f.maxSentences {
		return s
	}
	return strings.Join(sentences[:f.maxSentences], " ")
}

// limitChars enforces the character ceiling, counted in runes. When the text
// is cut, the ellipsis marker replaces the last rune so the result still fits
// the ceiling and a second pass leaves it unchanged.
func (f *Finalizer) limitChars(s string) string {
	runes := []rune(s)
	if len(runes) <= f.maxChars {
		return s
	}
	kept := strings.TrimRight(string(runes[:f.maxChars-1]), " ")
	return kept + Ellipsis
}

// splitSentences breaks text on terminal punctuation, keeping the punctuation
// with its sentence. Runs of terminal punctuation ("?!", "...") stay together.
func splitSentences(s string) []string {
	var sentences []string
	runes := []rune(s)
	start := 0
	for i := 0; i < len(runes); i++ {
		if !isTerminal(runes[i]) {
			continue
		}
		j := i
		for j+1 < len(runes) && isTerminal(runes[j+1]) {
			j++
		}
		if sentence := strings.TrimSpace(string(runes[start : j+1])); sentence != "" {
			sentences = append(sentences, sentence)
		}
		i = j
		start = j + 1
	}
	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
