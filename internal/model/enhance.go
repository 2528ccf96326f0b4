package model

// EnhancedQuery is the expansion of a search query into bilingual keywords,
// materials, product functions and candidate tariff chapters. Success
// distinguishes a model-derived enhancement from the pass-through fallback.
type EnhancedQuery struct {
	KeywordsID []string `json:"keywords_id"`
	KeywordsEN []string `json:"keywords_en"`
	Materials  []string `json:"materials"`
	Functions  []string `json:"functions"`
	Chapters   []string `json:"chapters"`
	Success    bool     `json:"success"`
}

// PassthroughQuery builds the degraded enhancement: the original query echoed
// back as the only keyword in both languages.
func PassthroughQuery(query string) EnhancedQuery {
	return EnhancedQuery{
		KeywordsID: []string{query},
		KeywordsEN: []string{query},
		Materials:  []string{},
		Functions:  []string{},
		Chapters:   []string{},
		Success:    false,
	}
}

// ValidChapter reports whether s is a 2-digit tariff chapter number.
func ValidChapter(s string) bool {
	if len(s) != 2 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
