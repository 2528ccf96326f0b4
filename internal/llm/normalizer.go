package llm

import (
	"regexp"
	"strings"

	"github.com/giangeralcus/hscode-api/internal/model"
	"github.com/tidwall/gjson"
)

// The normalizer turns free-form model text into a validated Result. Layers
// are attempted in order on progressively trimmed text and the first success
// wins: fence strip, bracket narrowing, syntax repair, strict parse, partial
// array salvage, bare code salvage. It never panics; total failure is nil.

var (
	fenceRe         = regexp.MustCompile("(?s)```(?:json)?\\s*(.+)\\s*```")
	controlRe       = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F]`)
	bareKeyRe       = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)(\s*:)`)
	trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)
	classMarkerRe   = regexp.MustCompile(`"classifications"\s*:\s*\[`)
	hsCodeRe        = regexp.MustCompile(`["']?hs_code["']?\s*:\s*["']?(\d+)`)
)

const salvageReasoning = "Partial extraction from unstructured model output"

// Normalize extracts a classification result from raw model text. Returns nil
// when nothing usable can be recovered; it is the caller's job to log the raw
// text for diagnostics.
func Normalize(text string) *model.Result {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	body := stripFence(trimmed)
	body = narrowBrackets(body)
	repaired := repair(body)

	if res := parseResult(repaired); res != nil {
		return res
	}
	if res := salvageClassifications(repaired); res != nil {
		return res
	}
	// Last resort: any code-shaped hs_code occurrence anywhere in the
	// original text, clearly marked as a partial extraction.
	if candidates := salvageCodes(text); len(candidates) > 0 {
		return &model.Result{Candidates: candidates, Keywords: []string{}}
	}
	return nil
}

// NormalizeEnhancement extracts an enhanced search query from raw model text.
// Returns nil when the text yields no usable keyword lists.
func NormalizeEnhancement(text string) *model.EnhancedQuery {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	repaired := repair(narrowBrackets(stripFence(trimmed)))
	if !gjson.Valid(repaired) {
		return nil
	}
	root := gjson.Parse(repaired)

	eq := &model.EnhancedQuery{
		KeywordsID: capList(stringList(root.Get("keywords_id")), 8),
		KeywordsEN: capList(stringList(root.Get("keywords_en")), 8),
		Materials:  capList(stringList(root.Get("materials")), 5),
		Functions:  capList(stringList(root.Get("functions")), 5),
		Chapters:   capList(chapterList(root.Get("chapters")), 3),
	}
	if len(eq.KeywordsID) == 0 && len(eq.KeywordsEN) == 0 {
		return nil
	}
	eq.Success = true
	return eq
}

// stripFence keeps only the content between the outermost fence markers.
// Applied to a fixpoint so nested fencing unwraps layer by layer; the match
// is greedy, so the closing marker is the last one in the text.
func stripFence(s string) string {
	for i := 0; i < 4; i++ {
		m := fenceRe.FindStringSubmatch(s)
		if m == nil {
			return s
		}
		s = m[1]
	}
	return s
}

// narrowBrackets cuts s down to the span between the first opening brace or
// bracket and the last matching closer.
func narrowBrackets(s string) string {
	objStart := strings.IndexByte(s, '{')
	arrStart := strings.IndexByte(s, '[')

	start := objStart
	closer := byte('}')
	if start < 0 || (arrStart >= 0 && arrStart < start) {
		start = arrStart
		closer = ']'
	}
	if start < 0 {
		return s
	}

	end := strings.LastIndexByte(s, closer)
	if end <= start {
		return s
	}
	return s[start : end+1]
}

// repair applies the heuristic syntax fixes: strip control characters, turn
// single quotes into double quotes, quote bare object keys, drop trailing
// commas, and collapse newlines inside string literals.
func repair(s string) string {
	s = controlRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "'", `"`)
	s = bareKeyRe.ReplaceAllString(s, `$1"$2"$3`)
	s = trailingCommaRe.ReplaceAllString(s, "$1")
	s = collapseNewlinesInStrings(s)
	return s
}

// collapseNewlinesInStrings replaces newline runs inside string literals with
// a single space, leaving structural whitespace alone.
func collapseNewlinesInStrings(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString := false
	escaped := false
	pendingSpace := false

	for i := 0; i < len(s); i++ {
		c := s[i]

		if inString && (c == '\n' || c == '\r') {
			pendingSpace = true
			continue
		}
		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}

		b.WriteByte(c)

		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		}
	}
	return b.String()
}

// parseResult attempts the strict parse of repaired text.
func parseResult(s string) *model.Result {
	if !gjson.Valid(s) {
		return nil
	}
	root := gjson.Parse(s)

	cls := root
	if !root.IsArray() {
		cls = root.Get("classifications")
		if !cls.IsArray() {
			return nil
		}
	}

	candidates := candidatesFrom(cls)
	if len(candidates) == 0 && len(cls.Array()) > 0 {
		// The array held only malformed candidates; let the salvage
		// layers try the raw text instead of reporting a hollow success.
		return nil
	}

	res := &model.Result{
		Candidates: candidates,
		Keywords:   stringList(root.Get("keywords")),
		Material:   strings.TrimSpace(root.Get("material").String()),
		Category:   strings.TrimSpace(root.Get("category").String()),
	}
	return res
}

// salvageClassifications locates a "classifications" array by pattern search
// and parses just that array, wrapping it into a bare result.
func salvageClassifications(s string) *model.Result {
	loc := classMarkerRe.FindStringIndex(s)
	if loc == nil {
		return nil
	}

	arr, ok := balancedArray(s, loc[1]-1)
	if !ok || !gjson.Valid(arr) {
		return nil
	}

	candidates := candidatesFrom(gjson.Parse(arr))
	if len(candidates) == 0 {
		return nil
	}
	return &model.Result{Candidates: candidates, Keywords: []string{}}
}

// balancedArray returns the bracket-balanced array literal starting at start,
// skipping brackets inside string literals.
func balancedArray(s string, start int) (string, bool) {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '[':
			depth++
		case c == ']':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// salvageCodes synthesizes minimal low-confidence candidates from any
// hs_code-labeled digit run in the text.
func salvageCodes(s string) []model.Candidate {
	matches := hsCodeRe.FindAllStringSubmatch(s, -1)
	if matches == nil {
		return nil
	}

	seen := make(map[string]bool)
	var candidates []model.Candidate
	for _, m := range matches {
		code := m[1]
		if len(code) < 6 || len(code) > 10 || seen[code] {
			continue
		}
		seen[code] = true
		candidates = append(candidates, model.Candidate{
			Code:          code,
			FormattedCode: model.FormatCode(code),
			Confidence:    model.ConfidenceLow,
			Reasoning:     salvageReasoning,
		})
		if len(candidates) == model.MaxCandidates {
			break
		}
	}
	return candidates
}

// candidatesFrom converts a parsed classifications array into validated
// candidates: code shape enforced, unknown confidence degraded to low, list
// capped at MaxCandidates.
func candidatesFrom(arr gjson.Result) []model.Candidate {
	var candidates []model.Candidate
	arr.ForEach(func(_, el gjson.Result) bool {
		code := strings.TrimSpace(el.Get("hs_code").String())
		if !model.ValidCode(code) {
			return true
		}
		candidates = append(candidates, model.Candidate{
			Code:          code,
			FormattedCode: model.FormatCode(code),
			Description:   strings.TrimSpace(el.Get("description").String()),
			Confidence:    model.NormalizeConfidence(el.Get("confidence").String()),
			Reasoning:     strings.TrimSpace(el.Get("reasoning").String()),
		})
		return len(candidates) < model.MaxCandidates
	})
	return candidates
}

func stringList(arr gjson.Result) []string {
	out := []string{}
	if !arr.IsArray() {
		return out
	}
	arr.ForEach(func(_, el gjson.Result) bool {
		if s := strings.TrimSpace(el.String()); s != "" {
			out = append(out, s)
		}
		return true
	})
	return out
}

func chapterList(arr gjson.Result) []string {
	out := []string{}
	for _, s := range stringList(arr) {
		if model.ValidChapter(s) {
			out = append(out, s)
		}
	}
	return out
}

func capList(list []string, n int) []string {
	if len(list) > n {
		return list[:n]
	}
	return list
}
