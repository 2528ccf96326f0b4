package model

// Tariff maps named duty rates to optional percentages. A nil value means the
// rate is unknown for the code in question.
type Tariff map[string]*float64

// Known tariff rate names (Indonesian tariff book).
const (
	RateBM  = "bm"  // import duty (bea masuk)
	RatePPN = "ppn" // value-added tax
	RatePPH = "pph" // income tax on imports
)

// Rate returns the named rate, or nil when absent or unknown.
func (t Tariff) Rate(name string) *float64 {
	if t == nil {
		return nil
	}
	return t[name]
}
