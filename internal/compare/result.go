package compare

import "sort"

// Result is the fully evaluated comparison table for one sheet.
type Result struct {
	Tariff string        `json:"tariff"`
	Rows   []RowResult   `json:"rows"`
	Totals []TotalResult `json:"totals"`
}

// RowResult holds every column's cell for one standard or custom row.
type RowResult struct {
	Field              Field        `json:"field"`
	CustomID           string       `json:"custom_id,omitempty"`
	DiscountApplicable bool         `json:"discount_applicable"`
	Cells              []CellResult `json:"cells"`
}

// CellResult is one priced cell.
type CellResult struct {
	Column  string `json:"column"`
	Amount  Amount `json:"amount"`
	Display string `json:"display"`
}

// TotalResult is the grand total of one column.
type TotalResult struct {
	Column            string  `json:"column"`
	Total             float64 `json:"total"`
	Display           string  `json:"display"`
	HasDiscountColumn bool    `json:"has_discount_column"`
}

// Columns returns the manual column followed by one column per retailer, in
// the order given. With no retailers it falls back to the card keys, sorted.
func (c Comparison) Columns(retailers []Retailer) []Column {
	if len(retailers) == 0 {
		for r := range c.Cards {
			retailers = append(retailers, r)
		}
		sort.Slice(retailers, func(i, j int) bool { return retailers[i] < retailers[j] })
	}
	cols := make([]Column, 0, len(retailers)+1)
	cols = append(cols, ManualColumn)
	for _, r := range retailers {
		cols = append(cols, RetailerColumn(r))
	}
	return cols
}

// Evaluate prices every row of sheet in every column and totals each column.
func (c Comparison) Evaluate(sheet *Sheet, retailers []Retailer) Result {
	cols := c.Columns(retailers)
	rows := sheet.Rows()
	custom := sheet.CustomRows()

	res := Result{Tariff: sheet.Tariff}
	for _, f := range StandardFields {
		rr := RowResult{Field: f, DiscountApplicable: DiscountApplicable(f)}
		for _, col := range cols {
			amt := c.RowTotal(col, f, rows[f])
			rr.Cells = append(rr.Cells, CellResult{Column: col.Key(), Amount: amt, Display: amt.String()})
		}
		res.Rows = append(res.Rows, rr)
	}
	for _, row := range custom {
		rr := RowResult{Field: row.Field(), CustomID: row.ID, DiscountApplicable: DiscountApplicable(row.Field())}
		for _, col := range cols {
			amt := c.CustomRowTotal(col, row)
			rr.Cells = append(rr.Cells, CellResult{Column: col.Key(), Amount: amt, Display: amt.String()})
		}
		res.Rows = append(res.Rows, rr)
	}
	for _, col := range cols {
		total := c.ColumnTotal(col, rows, custom)
		res.Totals = append(res.Totals, TotalResult{
			Column:            col.Key(),
			Total:             total,
			Display:           FormatMoney(total),
			HasDiscountColumn: col.IsManual() || HasDiscountColumn(col.Retailer, c.Cards),
		})
	}
	return res
}
