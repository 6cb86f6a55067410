package rates

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bher20/tariffcompare/internal/compare"
)

const originCSV = `Network Tariff,Daily supply charge,Peak,Off Peak,Solar,Discount %,Plan Name
EA025,"$1.10",31.5c,18.2,-5,12%,Go Variable
 ea116 ,98.4,n/a,,,,Business Saver
EA025,1,1,1,1,1,Duplicate
,1,1,1,1,1,No tariff
`

func TestParseTable_CSV(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader(originCSV))
	require.NoError(t, err)

	rows, err := ParseTable(tbl)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	first := rows[0]
	assert.Equal(t, "EA025", first.Tariff)
	assert.Equal(t, 1.10, first.Card.Rates[compare.FieldDailySupply])
	assert.Equal(t, 31.5, first.Card.Rates[compare.FieldPeak])
	assert.Equal(t, 18.2, first.Card.Rates[compare.FieldOffPeak])
	assert.Equal(t, -5.0, first.Card.Rates[compare.FieldSolar])
	require.NotNil(t, first.Card.Discount)
	assert.Equal(t, 12.0, *first.Card.Discount)
	assert.Equal(t, "Go Variable", first.Card.Extra["Plan Name"])

	second := rows[1]
	assert.Equal(t, "ea116", second.Tariff)
	_, hasPeak := second.Card.Rates[compare.FieldPeak]
	assert.False(t, hasPeak, "unparsable cell is absent, not zero")
	assert.Nil(t, second.Card.Discount)
}

func TestDecodeTable_ByteOrderMark(t *testing.T) {
	data := []byte("\ufeff" + originCSV)

	tbl, err := DecodeTable(data, "")
	require.NoError(t, err)
	assert.Equal(t, TariffColumn, tbl.Header[0])

	rows, err := ParseTable(tbl)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "EA025", rows[0].Tariff)

	tbl, err = ReadCSV(strings.NewReader("\ufeff" + originCSV))
	require.NoError(t, err)
	assert.Equal(t, TariffColumn, tbl.Header[0])
}

func TestParseTable_NoTariffColumn(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("Tariff,Peak\nEA025,1\n"))
	require.NoError(t, err)
	_, err = ParseTable(tbl)
	assert.ErrorIs(t, err, ErrNoTariffColumn)
}

func TestDecodeTable_JSON(t *testing.T) {
	body := `[
		{"Network Tariff": "EA025", "Peak": 30.1, "Discount": "5", "Plan": "Flex"},
		{"Network Tariff": "EA116", "Peak": "27.2c", "Shoulder": null}
	]`
	tbl, err := DecodeTable([]byte(body), "")
	require.NoError(t, err)
	assert.Equal(t, TariffColumn, tbl.Header[0])

	rows, err := ParseTable(tbl)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 30.1, rows[0].Card.Rates[compare.FieldPeak])
	assert.Equal(t, 5.0, *rows[0].Card.Discount)
	assert.Equal(t, "Flex", rows[0].Card.Extra["Plan"])
	assert.Equal(t, 27.2, rows[1].Card.Rates[compare.FieldPeak])
	assert.Nil(t, rows[1].Card.Discount)
}

func TestParseCell(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"12.5", 12.5, true},
		{"$1,234.50", 1234.5, true},
		{"31.5c", 31.5, true},
		{"15 %", 15, true},
		{"0", 0, true},
		{"", 0, false},
		{"n/a", 0, false},
		{"NaN", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseCell(tc.in)
		assert.Equal(t, tc.ok, ok, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestMatchTariff_FirstMatchWins(t *testing.T) {
	rows := []TariffRate{
		{Tariff: "EA025", Card: compare.RateCard{Rates: map[compare.Field]float64{compare.FieldPeak: 1}}},
		{Tariff: "ea025", Card: compare.RateCard{Rates: map[compare.Field]float64{compare.FieldPeak: 2}}},
	}
	card, ok := matchTariff(rows, "  Ea025 ")
	require.True(t, ok)
	assert.Equal(t, 1.0, card.Rate(compare.FieldPeak))

	card.Rates[compare.FieldPeak] = 99
	assert.Equal(t, 1.0, rows[0].Card.Rates[compare.FieldPeak], "returned card is a copy")

	_, ok = matchTariff(rows, "")
	assert.False(t, ok)
}
