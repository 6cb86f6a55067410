package rates

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/bher20/tariffcompare/internal/compare"
)

// TariffColumn is the header that identifies a tariff row.
const TariffColumn = "Network Tariff"

// ErrNoTariffColumn is returned for a table without a Network Tariff column.
var ErrNoTariffColumn = errors.New("rates: table has no Network Tariff column")

// Table is a raw rate table: a header row and string cells.
type Table struct {
	Header []string
	Rows   [][]string
}

// TariffRate is one parsed row of a retailer's table.
type TariffRate struct {
	Tariff string           `json:"tariff"`
	Card   compare.RateCard `json:"card"`
}

// ReadCSV reads a header-first CSV table. Short and long rows are tolerated.
func ReadCSV(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return Table{}, fmt.Errorf("read csv: empty table")
	}
	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	return Table{Header: header, Rows: records[1:]}, nil
}

// ReadJSON reads a JSON array of row objects. The tariff column comes first,
// the remaining columns in sorted order.
func ReadJSON(r io.Reader) (Table, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var objs []map[string]any
	if err := dec.Decode(&objs); err != nil {
		return Table{}, fmt.Errorf("read json rates: %w", err)
	}

	cols := map[string]struct{}{}
	for _, o := range objs {
		for k := range o {
			cols[k] = struct{}{}
		}
	}
	header := make([]string, 0, len(cols))
	for k := range cols {
		if normalizeHeader(k) != normalizeHeader(TariffColumn) {
			header = append(header, k)
		}
	}
	sort.Strings(header)
	for k := range cols {
		if normalizeHeader(k) == normalizeHeader(TariffColumn) {
			header = append([]string{k}, header...)
			break
		}
	}

	rows := make([][]string, 0, len(objs))
	for _, o := range objs {
		row := make([]string, len(header))
		for i, h := range header {
			row[i] = jsonCell(o[h])
		}
		rows = append(rows, row)
	}
	return Table{Header: header, Rows: rows}, nil
}

func jsonCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// DecodeTable picks JSON when the content type says so or the payload
// starts with '[', and CSV otherwise.
func DecodeTable(data []byte, contentType string) (Table, error) {
	trimmed := bytes.TrimSpace(bytes.TrimPrefix(data, []byte("\ufeff")))
	if strings.Contains(strings.ToLower(contentType), "json") || bytes.HasPrefix(trimmed, []byte("[")) {
		return ReadJSON(bytes.NewReader(trimmed))
	}
	return ReadCSV(bytes.NewReader(data))
}

type columnKind int

const (
	columnExtra columnKind = iota
	columnTariff
	columnDiscount
	columnRate
)

type column struct {
	kind  columnKind
	field compare.Field
	raw   string
}

func classify(header []string) ([]column, error) {
	cols := make([]column, len(header))
	found := false
	for i, h := range header {
		h = strings.TrimSpace(h)
		switch n := normalizeHeader(h); {
		case n == normalizeHeader(TariffColumn) && !found:
			cols[i] = column{kind: columnTariff}
			found = true
		case n == "discount" || n == "discount %" || n == "discount (%)":
			cols[i] = column{kind: columnDiscount}
		default:
			if f, ok := compare.MatchStandardField(h); ok {
				cols[i] = column{kind: columnRate, field: f}
			} else {
				cols[i] = column{kind: columnExtra, raw: h}
			}
		}
	}
	if !found {
		return nil, ErrNoTariffColumn
	}
	return cols, nil
}

// ParseTable turns a raw table into rate cards in row order. Rows without a
// tariff are skipped; cells that don't parse as a number are left out of the
// card rather than recorded as 0.
func ParseTable(t Table) ([]TariffRate, error) {
	cols, err := classify(t.Header)
	if err != nil {
		return nil, err
	}

	out := make([]TariffRate, 0, len(t.Rows))
	for _, row := range t.Rows {
		var tr TariffRate
		tr.Card.Rates = make(map[compare.Field]float64)
		for i, cell := range row {
			if i >= len(cols) {
				break
			}
			c := cols[i]
			switch c.kind {
			case columnTariff:
				tr.Tariff = strings.TrimSpace(cell)
			case columnDiscount:
				if v, ok := ParseCell(cell); ok {
					tr.Card.Discount = compare.Percent(v)
				}
			case columnRate:
				if v, ok := ParseCell(cell); ok {
					tr.Card.Rates[c.field] = v
				}
			default:
				if v := strings.TrimSpace(cell); v != "" && c.raw != "" {
					if tr.Card.Extra == nil {
						tr.Card.Extra = make(map[string]string)
					}
					tr.Card.Extra[c.raw] = v
				}
			}
		}
		if tr.Tariff == "" {
			continue
		}
		out = append(out, tr)
	}
	return out, nil
}

var cellReplacer = strings.NewReplacer("$", "", "%", "", ",", "", "¢", "")

// ParseCell parses a published rate cell such as "$1.20", "31.5c" or "12%".
func ParseCell(s string) (float64, bool) {
	s = strings.TrimSpace(cellReplacer.Replace(s))
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSuffix(s, "c"), "C"))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func normalizeHeader(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// matchTariff returns the first row whose tariff equals tariff, ignoring
// case and surrounding whitespace.
func matchTariff(rows []TariffRate, tariff string) (*compare.RateCard, bool) {
	want := strings.ToLower(strings.TrimSpace(tariff))
	if want == "" {
		return nil, false
	}
	for i := range rows {
		if strings.ToLower(rows[i].Tariff) == want {
			return cloneCard(rows[i].Card), true
		}
	}
	return nil, false
}

func cloneCard(c compare.RateCard) *compare.RateCard {
	out := compare.RateCard{Rates: make(map[compare.Field]float64, len(c.Rates))}
	for k, v := range c.Rates {
		out.Rates[k] = v
	}
	if c.Discount != nil {
		out.Discount = compare.Percent(*c.Discount)
	}
	if len(c.Extra) > 0 {
		out.Extra = make(map[string]string, len(c.Extra))
		for k, v := range c.Extra {
			out.Extra[k] = v
		}
	}
	return &out
}
