package compare

import (
	"github.com/google/uuid"
)

// RowInput is what the user typed for one charge line: usage, a manual rate
// in the unit usage is priced in (dollars per kWh for a $ total) and a manual
// discount percent. Manual rates are not converted from cents.
type RowInput struct {
	Usage    float64 `json:"usage"`
	Rate     float64 `json:"rate"`
	Discount float64 `json:"discount"`
}

// RetailerInput is a user-supplied rate and discount for one retailer on a
// custom row, where no rate card entry exists.
type RetailerInput struct {
	Rate     float64 `json:"rate"`
	Discount float64 `json:"discount"`
}

// CustomRow is a user-added charge line.
type CustomRow struct {
	ID        string                     `json:"id"`
	Label     string                     `json:"label"`
	Input     RowInput                   `json:"input"`
	Retailers map[Retailer]RetailerInput `json:"retailers"`
}

// Field returns the row label as a Field so the exemption policy applies to
// custom rows the same way it does to standard ones.
func (r CustomRow) Field() Field {
	return Field(r.Label)
}

func (r CustomRow) clone() CustomRow {
	cp := r
	cp.Retailers = make(map[Retailer]RetailerInput, len(r.Retailers))
	for k, v := range r.Retailers {
		cp.Retailers[k] = v
	}
	return cp
}

// Rows holds the inputs for the standard fields. Missing entries are empty
// inputs.
type Rows map[Field]RowInput

// Sheet is the caller-owned comparison state for one selected tariff. It is
// not safe for concurrent use; there is one sheet per user session.
type Sheet struct {
	Tariff string
	rows   Rows
	custom []CustomRow
}

// NewSheet returns an empty sheet for tariff.
func NewSheet(tariff string) *Sheet {
	return &Sheet{Tariff: tariff, rows: make(Rows)}
}

// Reset discards every row input and custom row and selects tariff.
func (s *Sheet) Reset(tariff string) {
	s.Tariff = tariff
	s.rows = make(Rows)
	s.custom = nil
}

// Set replaces the input for a standard field.
func (s *Sheet) Set(field Field, in RowInput) {
	if s.rows == nil {
		s.rows = make(Rows)
	}
	s.rows[field] = in
}

// Input returns the input for a standard field.
func (s *Sheet) Input(field Field) RowInput {
	return s.rows[field]
}

// Rows returns a copy of the standard row inputs.
func (s *Sheet) Rows() Rows {
	out := make(Rows, len(s.rows))
	for k, v := range s.rows {
		out[k] = v
	}
	return out
}

// AddCustomRow appends a new empty custom row with a fresh stable id and
// returns its id. Existing rows are not touched; edit the new row through
// UpdateCustomRow.
func (s *Sheet) AddCustomRow(label string) string {
	row := CustomRow{
		ID:        uuid.New().String(),
		Label:     label,
		Retailers: make(map[Retailer]RetailerInput),
	}
	s.custom = append(s.custom, row)
	return row.ID
}

// AppendCustomRow appends an already populated custom row, assigning an id
// when it has none. Used when a sheet is rebuilt from a request body.
func (s *Sheet) AppendCustomRow(row CustomRow) string {
	if row.ID == "" {
		row.ID = uuid.New().String()
	}
	s.custom = append(s.custom, row.clone())
	return row.ID
}

// UpdateCustomRow applies fn to the custom row with id.
func (s *Sheet) UpdateCustomRow(id string, fn func(*CustomRow)) bool {
	for i := range s.custom {
		if s.custom[i].ID == id {
			fn(&s.custom[i])
			return true
		}
	}
	return false
}

// RemoveCustomRow deletes the custom row with id, keeping the order of the
// remaining rows.
func (s *Sheet) RemoveCustomRow(id string) bool {
	for i := range s.custom {
		if s.custom[i].ID == id {
			s.custom = append(s.custom[:i:i], s.custom[i+1:]...)
			return true
		}
	}
	return false
}

// CustomRows returns a copy of the custom rows in creation order.
func (s *Sheet) CustomRows() []CustomRow {
	out := make([]CustomRow, len(s.custom))
	for i, r := range s.custom {
		out[i] = r.clone()
	}
	return out
}
