// Package prompt renders the fixed model prompts. Templates use {name}
// placeholders filled by exact text replacement; callers must pass sanitized
// field values only.
package prompt

import (
	"strconv"
	"strings"

	"github.com/giangeralcus/hscode-api/internal/model"
)

const classificationTemplate = `You are an Indonesian customs tariff expert. Classify the product below into HS codes from the Indonesian tariff book (BTKI).

Product description: {description}
Answer language: {language}

Respond with a single raw JSON object in exactly this shape:
{"classifications":[{"hs_code":"01012100","description":"heading text","confidence":"high|medium|low","reasoning":"why this code fits"}],"keywords":["keyword"],"material":"main material","category":"product category"}

Rules:
- Return at most 3 candidates, ordered from most to least likely.
- hs_code contains digits only, preferably the 8-digit national code.
- Write description and reasoning in {language}.
- Do NOT wrap the JSON in markdown fences or add any text before or after it.`

const tariffTemplate = `You are an Indonesian customs tariff expert. Explain the import tariff for this HS code to a small-business importer.

HS code: {code}
Product: {description}
Import duty (BM): {bm}%
Value-added tax (PPN): {ppn}%
Income tax (PPh): {pph}%

Explain in plain language what these rates mean for the total import cost, including any caveat when a rate is listed as N/A. Answer with explanatory text only, no JSON and no markdown fences.`

const enhanceTemplate = `You are a search assistant for an Indonesian HS code database. Expand the query below for full-text search.

Query: {query}

Respond with a single raw JSON object in exactly this shape:
{"keywords_id":["indonesian keyword"],"keywords_en":["english keyword"],"materials":["material"],"functions":["product function"],"chapters":["84"]}

Rules:
- keywords_id are Indonesian terms, keywords_en are English terms.
- chapters are 2-digit HS chapter numbers most likely to contain the product.
- Do NOT wrap the JSON in markdown fences or add any text before or after it.`

// Classification renders the classification prompt. Language must be "id" or
// "en"; it controls the language of descriptions and reasoning.
func Classification(description, language string) string {
	lang := "Indonesian"
	if language == "en" {
		lang = "English"
	}
	r := strings.NewReplacer(
		"{description}", description,
		"{language}", lang,
	)
	return r.Replace(classificationTemplate)
}

// TariffExplanation renders the tariff explanation prompt. Missing BM/PPh
// rates render as the literal N/A; a missing PPN rate defaults to 11.
func TariffExplanation(code, description string, tariff model.Tariff) string {
	if description == "" {
		description = "N/A"
	}
	r := strings.NewReplacer(
		"{code}", code,
		"{description}", description,
		"{bm}", formatRate(tariff.Rate(model.RateBM), "N/A"),
		"{ppn}", formatRate(tariff.Rate(model.RatePPN), "11"),
		"{pph}", formatRate(tariff.Rate(model.RatePPH), "N/A"),
	)
	return r.Replace(tariffTemplate)
}

// SearchEnhancement renders the query enhancement prompt.
func SearchEnhancement(query string) string {
	return strings.NewReplacer("{query}", query).Replace(enhanceTemplate)
}

func formatRate(v *float64, fallback string) string {
	if v == nil {
		return fallback
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
