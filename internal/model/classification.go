// Package model defines the domain types shared across the application.
package model

import "strings"

// Confidence is the model's self-reported certainty tier for a candidate.
type Confidence string

// Confidence tiers.
const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Valid reports whether c is a known confidence tier.
func (c Confidence) Valid() bool {
	switch c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return true
	default:
		return false
	}
}

// NormalizeConfidence maps a free-text confidence value onto a known tier.
// Anything unrecognized degrades to low.
func NormalizeConfidence(s string) Confidence {
	c := Confidence(strings.ToLower(strings.TrimSpace(s)))
	if c.Valid() {
		return c
	}
	return ConfidenceLow
}

// Candidate is a single HS code suggestion produced by the model.
type Candidate struct {
	Code          string     `json:"code"`
	FormattedCode string     `json:"formatted_code"`
	Description   string     `json:"description"`
	Confidence    Confidence `json:"confidence"`
	Reasoning     string     `json:"reasoning"`
}

// Result is the full classification outcome for one product description.
// Candidates are model-ranked, most likely first, at most MaxCandidates.
type Result struct {
	Candidates []Candidate `json:"candidates"`
	Keywords   []string    `json:"keywords"`
	Material   string      `json:"material,omitempty"`
	Category   string      `json:"category,omitempty"`
}

// MaxCandidates bounds the candidate list in a Result.
const MaxCandidates = 3

// EmptyResult returns a Result with no candidates and the given keywords.
func EmptyResult(keywords []string) *Result {
	if keywords == nil {
		keywords = []string{}
	}
	return &Result{Candidates: []Candidate{}, Keywords: keywords}
}

// ValidCode reports whether s has the shape of an HS code as stored in the
// tariff book: digits only, 6 (international), 8 (national) or 10
// (statistical) positions.
func ValidCode(s string) bool {
	switch len(s) {
	case 6, 8, 10:
	default:
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// FormatCode renders a digit-only HS code with dot separators after the 4th
// and 6th digit, e.g. "01012100" -> "0101.21.00".
func FormatCode(code string) string {
	if len(code) <= 4 {
		return code
	}
	var b strings.Builder
	b.WriteString(code[:4])
	if len(code) > 4 {
		b.WriteByte('.')
		if len(code) <= 6 {
			b.WriteString(code[4:])
			return b.String()
		}
		b.WriteString(code[4:6])
	}
	b.WriteByte('.')
	b.WriteString(code[6:])
	return b.String()
}
