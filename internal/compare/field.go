package compare

import "strings"

// Field names a charge line on a retailer rate card. Standard fields use the
// column labels published in the rate sheets; custom rows use whatever label
// the user typed.
type Field string

const (
	FieldDailySupply Field = "Daily supply charge"
	FieldPeak        Field = "Peak"
	FieldPeak2       Field = "Peak 2"
	FieldShoulder    Field = "Shoulder"
	FieldOffPeak     Field = "Off Peak"
	FieldCL1         Field = "CL1"
	FieldCL2         Field = "CL2"
	FieldCL3         Field = "CL3"
	FieldCapacity    Field = "Capacity Charges"
	FieldDemand1     Field = "Demand 1"
	FieldDemand2     Field = "Demand 2"
	FieldSolar       Field = "Solar"
)

// StandardFields lists the predefined charge lines in display order.
var StandardFields = []Field{
	FieldDailySupply,
	FieldPeak,
	FieldPeak2,
	FieldShoulder,
	FieldOffPeak,
	FieldCL1,
	FieldCL2,
	FieldCL3,
	FieldCapacity,
	FieldDemand1,
	FieldDemand2,
	FieldSolar,
}

// discountExempt is keyed by normalizeLabel of the field.
var discountExempt = map[string]bool{
	"capacity charges": true,
	"demand 1":         true,
	"demand 2":         true,
	"solar":            true,
}

// DiscountApplicable reports whether a percentage discount may be applied to
// the cost of field. Capacity, demand and solar charges are never discounted,
// however the label is cased or spaced.
func DiscountApplicable(field Field) bool {
	return !discountExempt[normalizeLabel(string(field))]
}

// IsStandard reports whether field is one of StandardFields.
func IsStandard(field Field) bool {
	for _, f := range StandardFields {
		if f == field {
			return true
		}
	}
	return false
}

// MatchStandardField maps a free-form column header onto a standard field,
// ignoring case and surrounding/duplicate whitespace.
func MatchStandardField(header string) (Field, bool) {
	norm := normalizeLabel(header)
	for _, f := range StandardFields {
		if normalizeLabel(string(f)) == norm {
			return f, true
		}
	}
	return "", false
}

func normalizeLabel(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
