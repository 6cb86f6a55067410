package compare

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscountApplicable(t *testing.T) {
	exempt := map[Field]bool{
		FieldCapacity: true,
		FieldDemand1:  true,
		FieldDemand2:  true,
		FieldSolar:    true,
	}
	for _, f := range StandardFields {
		assert.Equal(t, !exempt[f], DiscountApplicable(f), "field %q", f)
	}
	assert.True(t, DiscountApplicable(Field("Network access fee")))

	for _, label := range []string{" solar ", "SOLAR", "demand  1", "Capacity\tCharges"} {
		assert.False(t, DiscountApplicable(Field(label)), "label %q", label)
	}
}

func TestComputeRowTotal_NotComputable(t *testing.T) {
	cases := []struct {
		name            string
		usage, rate, dc float64
	}{
		{"zero usage", 0, 20, 0},
		{"zero rate", 10, 0, 0},
		{"both zero", 0, 0, 50},
		{"zero usage with discount", 0, 20, 10},
		{"negative usage", -5, 20, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			amt := ComputeRowTotal(tc.usage, tc.rate, tc.dc, FieldPeak)
			assert.False(t, amt.Computable())
			assert.Equal(t, Placeholder, amt.String())
		})
	}
}

func TestComputeRowTotal_ManualWithDiscount(t *testing.T) {
	amt := ComputeRowTotal(10, 20, 10, FieldPeak)
	v, ok := amt.Value()
	require.True(t, ok)
	assert.InDelta(t, 180.0, v, 1e-9)
	assert.Equal(t, "180.00", amt.String())
}

func TestComputeRowTotal_ExemptIgnoresDiscount(t *testing.T) {
	for _, f := range []Field{FieldCapacity, FieldDemand1, FieldDemand2, FieldSolar} {
		amt := ComputeRowTotal(10, 20, 50, f)
		v, ok := amt.Value()
		require.True(t, ok)
		assert.Equal(t, 200.0, v, "field %q", f)
	}
}

func TestRetailerRowTotal_ConvertsCents(t *testing.T) {
	amt := RetailerRowTotal(1000, 25.0, 0, FieldPeak)
	v, ok := amt.Value()
	require.True(t, ok)
	assert.Equal(t, 250.0, v)
	assert.Equal(t, "250.00", amt.String())
}

func TestRetailerRowTotal_NegativeCardRateIsCredit(t *testing.T) {
	amt := RetailerRowTotal(500, -5, 10, FieldSolar)
	v, ok := amt.Value()
	require.True(t, ok)
	assert.InDelta(t, -25.0, v, 1e-9)
	assert.Equal(t, "-25.00", amt.String())

	discounted, ok := RetailerRowTotal(100, -10, 50, FieldPeak).Value()
	require.True(t, ok)
	assert.InDelta(t, -5.0, discounted, 1e-9)
}

func TestRetailerRowTotal_NotComputable(t *testing.T) {
	assert.False(t, RetailerRowTotal(500, 0, 0, FieldSolar).Computable())
	assert.False(t, RetailerRowTotal(0, -5, 0, FieldSolar).Computable())
	assert.False(t, RetailerRowTotal(-500, -5, 0, FieldSolar).Computable())
	assert.False(t, RetailerRowTotal(500, math.NaN(), 0, FieldPeak).Computable())
	assert.False(t, RetailerRowTotal(500, math.Inf(-1), 0, FieldPeak).Computable())
}

func TestColumnTotal_IncludesSolarCredit(t *testing.T) {
	c := Comparison{Cards: RateCards{
		"origin": {Rates: map[Field]float64{FieldPeak: 30, FieldSolar: -5}, Discount: Percent(10)},
	}}
	sheet := NewSheet("EA025")
	sheet.Set(FieldPeak, RowInput{Usage: 1000})
	sheet.Set(FieldSolar, RowInput{Usage: 400})

	total := c.ColumnTotal(RetailerColumn("origin"), sheet.Rows(), sheet.CustomRows())
	assert.InDelta(t, 270.0-20.0, total, 1e-9)

	// The manual column still treats a negative rate as missing.
	sheet.Set(FieldSolar, RowInput{Usage: 400, Rate: -0.05})
	assert.False(t, c.RowTotal(ManualColumn, FieldSolar, sheet.Rows()[FieldSolar]).Computable())
}

func TestComparison_RowTotalUsesCardDiscount(t *testing.T) {
	c := Comparison{Cards: RateCards{
		"origin": {Rates: map[Field]float64{FieldPeak: 30}, Discount: Percent(10)},
		"nectr":  {Rates: map[Field]float64{FieldPeak: 30}},
	}}
	in := RowInput{Usage: 100, Rate: 25, Discount: 50}

	origin, _ := c.RowTotal(RetailerColumn("origin"), FieldPeak, in).Value()
	assert.InDelta(t, 27.0, origin, 1e-9)

	nectr, _ := c.RowTotal(RetailerColumn("nectr"), FieldPeak, in).Value()
	assert.InDelta(t, 30.0, nectr, 1e-9)

	manual, _ := c.RowTotal(ManualColumn, FieldPeak, in).Value()
	assert.InDelta(t, 1250.0, manual, 1e-9)
}

func TestComparison_MissingCardIsNotComputable(t *testing.T) {
	c := Comparison{Cards: RateCards{"momentum": nil}}
	in := RowInput{Usage: 100, Rate: 25}
	assert.False(t, c.RowTotal(RetailerColumn("momentum"), FieldPeak, in).Computable())
	assert.False(t, c.RowTotal(RetailerColumn("unknown"), FieldPeak, in).Computable())
}

func TestColumnTotal_AllNotComputableIsZero(t *testing.T) {
	c := Comparison{Cards: RateCards{"origin": nil}}
	sheet := NewSheet("EA025")
	sheet.AddCustomRow("Meter fee")

	for _, col := range c.Columns(nil) {
		total := c.ColumnTotal(col, sheet.Rows(), sheet.CustomRows())
		assert.Equal(t, 0.0, total)
		assert.Equal(t, "0.00", FormatMoney(total))
	}
}

func TestColumnTotal_SumsStandardAndCustomRows(t *testing.T) {
	c := Comparison{Cards: RateCards{
		"origin": {Rates: map[Field]float64{FieldPeak: 25, FieldDailySupply: 100}},
	}}
	sheet := NewSheet("EA025")
	sheet.Set(FieldPeak, RowInput{Usage: 1000, Rate: 0.3})
	sheet.Set(FieldDailySupply, RowInput{Usage: 30, Rate: 1.1})
	id := sheet.AddCustomRow("Meter fee")
	require.True(t, sheet.UpdateCustomRow(id, func(r *CustomRow) {
		r.Input = RowInput{Usage: 1, Rate: 5}
		r.Retailers["origin"] = RetailerInput{Rate: 4, Discount: 50}
	}))

	manual := c.ColumnTotal(ManualColumn, sheet.Rows(), sheet.CustomRows())
	assert.InDelta(t, 300+33+5, manual, 1e-9)

	origin := c.ColumnTotal(RetailerColumn("origin"), sheet.Rows(), sheet.CustomRows())
	assert.InDelta(t, 250+30+2, origin, 1e-9)
}

func TestComparison_Idempotent(t *testing.T) {
	c := Comparison{Cards: RateCards{
		"origin": {Rates: map[Field]float64{FieldPeak: 27.83, FieldShoulder: 19.1}, Discount: Percent(7)},
	}}
	sheet := NewSheet("EA116")
	sheet.Set(FieldPeak, RowInput{Usage: 1234.5, Rate: 0.2791, Discount: 3})
	sheet.Set(FieldShoulder, RowInput{Usage: 321.7, Rate: 0.1893})

	first := c.Evaluate(sheet, []Retailer{"origin"})
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, c.Evaluate(sheet, []Retailer{"origin"}))
	}
	a := ComputeRowTotal(1234.5, 0.2791, 3, FieldPeak)
	b := ComputeRowTotal(1234.5, 0.2791, 3, FieldPeak)
	assert.Equal(t, a, b)
}

func TestHasDiscountColumn(t *testing.T) {
	cards := RateCards{
		"origin":   {Discount: Percent(0)},
		"nectr":    {},
		"momentum": nil,
	}
	assert.True(t, HasDiscountColumn("origin", cards))
	assert.False(t, HasDiscountColumn("nectr", cards))
	assert.False(t, HasDiscountColumn("momentum", cards))
	assert.False(t, HasDiscountColumn("nbe", cards))
}

func TestEvaluate_Layout(t *testing.T) {
	c := Comparison{Cards: RateCards{
		"origin": {Rates: map[Field]float64{FieldPeak: 25}, Discount: Percent(0)},
		"nbe":    nil,
	}}
	sheet := NewSheet("EA025")
	sheet.Set(FieldPeak, RowInput{Usage: 1000})
	sheet.AddCustomRow("Green power")

	res := c.Evaluate(sheet, []Retailer{"origin", "nbe"})
	require.Len(t, res.Rows, len(StandardFields)+1)
	require.Len(t, res.Totals, 3)

	peak := res.Rows[1]
	assert.Equal(t, FieldPeak, peak.Field)
	assert.Equal(t, "-", peak.Cells[0].Display)
	assert.Equal(t, "250.00", peak.Cells[1].Display)
	assert.Equal(t, "-", peak.Cells[2].Display)

	assert.Equal(t, "manual", res.Totals[0].Column)
	assert.True(t, res.Totals[1].HasDiscountColumn)
	assert.False(t, res.Totals[2].HasDiscountColumn)
	assert.Equal(t, "0.00", res.Totals[2].Display)

	last := res.Rows[len(res.Rows)-1]
	assert.Equal(t, Field("Green power"), last.Field)
	assert.NotEmpty(t, last.CustomID)
}
