package prompt

import (
	"strings"
	"testing"

	"github.com/giangeralcus/hscode-api/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestClassification(t *testing.T) {
	t.Run("substitutes fields", func(t *testing.T) {
		p := Classification("frozen chicken thighs", "id")
		assert.Contains(t, p, "Product description: frozen chicken thighs")
		assert.Contains(t, p, "Answer language: Indonesian")
		assert.NotContains(t, p, "{description}")
		assert.NotContains(t, p, "{language}")
	})

	t.Run("english language", func(t *testing.T) {
		p := Classification("laptop", "en")
		assert.Contains(t, p, "Answer language: English")
	})

	t.Run("unknown language defaults to indonesian", func(t *testing.T) {
		p := Classification("laptop", "fr")
		assert.Contains(t, p, "Answer language: Indonesian")
	})

	t.Run("substitution is literal not template evaluation", func(t *testing.T) {
		// A hostile value containing placeholder syntax lands verbatim; the
		// replacer makes a single pass and never rescans inserted text.
		p := Classification("widget {language} thing", "id")
		assert.Contains(t, p, "Product description: widget {language} thing")
		assert.Contains(t, p, "Answer language: Indonesian")
		assert.Equal(t, 1, strings.Count(p, "widget "))
	})
}

func TestTariffExplanation(t *testing.T) {
	bm := 5.0
	pph := 2.5

	t.Run("all rates present", func(t *testing.T) {
		ppn := 12.0
		p := TariffExplanation("01012100", "live horses", model.Tariff{"bm": &bm, "ppn": &ppn, "pph": &pph})
		assert.Contains(t, p, "HS code: 01012100")
		assert.Contains(t, p, "Product: live horses")
		assert.Contains(t, p, "(BM): 5%")
		assert.Contains(t, p, "(PPN): 12%")
		assert.Contains(t, p, "(PPh): 2.5%")
	})

	t.Run("missing rates render defaults", func(t *testing.T) {
		p := TariffExplanation("01012100", "", model.Tariff{})
		assert.Contains(t, p, "Product: N/A")
		assert.Contains(t, p, "(BM): N/A%")
		assert.Contains(t, p, "(PPN): 11%")
		assert.Contains(t, p, "(PPh): N/A%")
	})

	t.Run("nil tariff map", func(t *testing.T) {
		p := TariffExplanation("84713020", "laptop", nil)
		assert.Contains(t, p, "(PPN): 11%")
		assert.NotContains(t, p, "{bm}")
	})
}

func TestSearchEnhancement(t *testing.T) {
	p := SearchEnhancement("mesin cuci")
	assert.Contains(t, p, "Query: mesin cuci")
	assert.NotContains(t, p, "{query}")
	assert.Contains(t, p, "keywords_id")
	assert.Contains(t, p, "chapters")
}
