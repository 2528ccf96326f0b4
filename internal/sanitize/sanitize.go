// Package sanitize neutralizes adversarial text before it is embedded into a
// model prompt. The raw user string must never reach a prompt template; every
// prompt field goes through Sanitize first.
package sanitize

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// maxInputRunes bounds prompt size and model latency.
const maxInputRunes = 2000

// filtered replaces every matched injection pattern.
const filtered = "[FILTERED]"

var whitespaceRun = regexp.MustCompile(`\s+`)

// injectionPatterns are applied in order, case-insensitively. They target
// common jailbreak phrasing and template or role markers; defense in depth,
// not an airtight guarantee.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(ignore|disregard|forget)\s+(all\s+|previous\s+|above\s+)*(instructions?|prompts?|rules?)`),
	regexp.MustCompile(`(?i)system\s*prompts?`),
	regexp.MustCompile(`(?i)you\s+are\s+now`),
	regexp.MustCompile(`(?i)act\s+as\s+(a|an)\b`),
	regexp.MustCompile(`(?i)new\s+(role|instructions?|task)s?\b`),
	regexp.MustCompile(`(?i)pretend\s+(to\s+be|you\s+are)`),
	regexp.MustCompile(`(?i)you\s+are\s+(a|an)\s`),
	regexp.MustCompile(`\{\{|\}\}`),
	regexp.MustCompile(`<\|[^|>]*\|>`),
	regexp.MustCompile(`(?i)\[/?INST\]`),
	regexp.MustCompile(`(?i)#+\s*(system|assistant|user)\s*:`),
}

// Sanitize normalizes and filters raw user input. It is pure and total:
// invalid or empty input yields the empty string, never an error.
//
// Steps, in order: NFKC normalization (closes lookalike-character bypasses of
// the pattern filters), truncation to 2000 runes, whitespace collapsing, and
// the ordered injection-pattern replacements.
func Sanitize(raw string) string {
	if raw == "" {
		return ""
	}

	s := norm.NFKC.String(raw)

	if runes := []rune(s); len(runes) > maxInputRunes {
		s = string(runes[:maxInputRunes])
	}

	s = strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))

	for _, p := range injectionPatterns {
		s = p.ReplaceAllString(s, filtered)
	}

	return s
}
