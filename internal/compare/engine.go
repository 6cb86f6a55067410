package compare

import "math"

// ComputeRowTotal prices one cell: usage × rate × (1 − discount/100).
//
// A cell with no usage or no rate is not computable; it is never a computed
// zero. The discount is ignored for exempt fields. rate must already be in
// the unit usage is priced in; see RetailerRowTotal for card rates.
func ComputeRowTotal(usage, rate, discountPercent float64, field Field) Amount {
	usage, rate = sanitize(usage), sanitize(rate)
	if usage == 0 || rate == 0 {
		return NotComputable()
	}
	return AmountOf(usage * rate * discountFactor(discountPercent, field))
}

// RetailerRowTotal prices a standard field against a retailer card rate in
// cents, converting it with a divide by 100 before multiplying by usage.
//
// Unlike a manual rate, a negative card rate is kept: it is a credit, such as
// a solar feed-in tariff, and yields a negative cost. Only a zero, absent or
// non-finite card rate is not computable.
func RetailerRowTotal(usage, cardRateCents, discountPercent float64, field Field) Amount {
	usage = sanitize(usage)
	if math.IsNaN(cardRateCents) || math.IsInf(cardRateCents, 0) {
		cardRateCents = 0
	}
	if usage == 0 || cardRateCents == 0 {
		return NotComputable()
	}
	return AmountOf(usage * (cardRateCents / 100) * discountFactor(discountPercent, field))
}

func discountFactor(discountPercent float64, field Field) float64 {
	if !DiscountApplicable(field) {
		return 1
	}
	return 1 - sanitize(discountPercent)/100
}

// Column selects the manual column or one retailer column.
type Column struct {
	Retailer Retailer `json:"retailer,omitempty"`
}

// ManualColumn is the user's self-entered rate column.
var ManualColumn = Column{}

// RetailerColumn returns the column for r.
func RetailerColumn(r Retailer) Column {
	return Column{Retailer: r}
}

// IsManual reports whether c is the manual column.
func (c Column) IsManual() bool {
	return c.Retailer == ""
}

// Comparison binds the rate cards of one tariff to the engine. It holds no
// mutable state; every method recomputes from its arguments.
type Comparison struct {
	Cards RateCards
}

// RowTotal prices a standard row in column.
func (c Comparison) RowTotal(col Column, field Field, in RowInput) Amount {
	if col.IsManual() {
		return ComputeRowTotal(in.Usage, in.Rate, in.Discount, field)
	}
	card := c.Cards[col.Retailer]
	discount, _ := card.DiscountPercent()
	return RetailerRowTotal(in.Usage, card.Rate(field), discount, field)
}

// CustomRowTotal prices a custom row in column. Retailer rates on a custom
// row are entered by the user and so follow the manual unit convention.
func (c Comparison) CustomRowTotal(col Column, row CustomRow) Amount {
	if col.IsManual() {
		return ComputeRowTotal(row.Input.Usage, row.Input.Rate, row.Input.Discount, row.Field())
	}
	ri := row.Retailers[col.Retailer]
	return ComputeRowTotal(row.Input.Usage, ri.Rate, ri.Discount, row.Field())
}

// ColumnTotal sums every standard row, then every custom row in creation
// order, for col. Non-computable cells contribute 0, so the total is always
// a number.
func (c Comparison) ColumnTotal(col Column, rows Rows, custom []CustomRow) float64 {
	var total float64
	for _, f := range StandardFields {
		total += c.RowTotal(col, f, rows[f]).OrZero()
	}
	for _, r := range custom {
		total += c.CustomRowTotal(col, r).OrZero()
	}
	return total
}

// Key returns "manual" for the manual column and the retailer key otherwise.
func (c Column) Key() string {
	if c.IsManual() {
		return "manual"
	}
	return string(c.Retailer)
}
