package compare

// Retailer identifies an energy retailer whose rate card is compared, e.g.
// "origin". Display names live with the rate lookup registry.
type Retailer string

// RateCard is one retailer's published rates for a single network tariff.
// Rates are cents per unit. Discount is nil when the card has no discount
// attribute at all, which is not the same as a 0% discount.
type RateCard struct {
	Rates    map[Field]float64 `json:"rates"`
	Discount *float64          `json:"discount"`
	// Extra carries published columns that are neither a standard field nor
	// the discount, verbatim.
	Extra map[string]string `json:"extra,omitempty"`
}

// Rate returns the card rate for field in cents, or 0 when the card is nil
// or does not publish that field.
func (c *RateCard) Rate(field Field) float64 {
	if c == nil {
		return 0
	}
	return c.Rates[field]
}

// DiscountPercent returns the card discount and whether the card defines one.
func (c *RateCard) DiscountPercent() (float64, bool) {
	if c == nil || c.Discount == nil {
		return 0, false
	}
	return *c.Discount, true
}

// RateCards maps each retailer to its card for the selected tariff. A nil
// entry means the retailer has no data for the tariff.
type RateCards map[Retailer]*RateCard

// HasDiscountColumn reports whether retailer's card defines a discount
// attribute, which decides whether a discount input is shown for it.
func HasDiscountColumn(retailer Retailer, cards RateCards) bool {
	_, ok := cards[retailer].DiscountPercent()
	return ok
}

// Percent returns a pointer to p, for building cards with a discount.
func Percent(p float64) *float64 {
	return &p
}
