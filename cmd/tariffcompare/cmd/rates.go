package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bher20/tariffcompare/internal/compare"
	"github.com/bher20/tariffcompare/internal/rates"
)

var (
	tariffsJSON bool

	compareTariff string
	compareUsage  map[string]string
	compareRate   map[string]string
	compareJSON   bool
)

var tariffsCmd = &cobra.Command{
	Use:   "tariffs",
	Short: "List every network tariff any retailer publishes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		list, err := a.rates.Tariffs(cmd.Context())
		if err != nil {
			return err
		}
		if tariffsJSON {
			return json.NewEncoder(cmd.OutOrStdout()).Encode(list)
		}
		for _, t := range list {
			fmt.Fprintln(cmd.OutOrStdout(), t)
		}
		return nil
	},
}

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Show rate cards for a tariff and price usage against them",
	Long: `Look up every retailer's rate card for --tariff. With --usage the
charge lines are priced in each retailer column and totalled; --rate adds
your current rate as the manual column, in the unit usage is priced in
(dollars per kWh, not cents; retailer card rates are cents).

Charge lines use the rate sheet labels, matched case-insensitively, e.g.
"Peak", "Off Peak", "Daily supply charge", "CL1".`,
	Args: cobra.NoArgs,
	RunE: runCompare,
}

func init() {
	tariffsCmd.Flags().BoolVar(&tariffsJSON, "json", false, "print a JSON array")

	compareCmd.Flags().StringVarP(&compareTariff, "tariff", "t", "", "network tariff code, e.g. EA025")
	compareCmd.Flags().StringToStringVarP(&compareUsage, "usage", "u", nil, "usage per charge line, e.g. Peak=842.3")
	compareCmd.Flags().StringToStringVarP(&compareRate, "rate", "r", nil, "manual rate per charge line in the unit usage is priced in, e.g. Peak=0.301")
	compareCmd.Flags().BoolVar(&compareJSON, "json", false, "print the evaluated comparison as JSON")
	_ = compareCmd.MarkFlagRequired("tariff")
}

// compareOutput is the --json shape of the compare command.
type compareOutput struct {
	compare.Result
	Cards compare.RateCards `json:"cards"`
}

func runCompare(cmd *cobra.Command, _ []string) error {
	tariff := strings.TrimSpace(compareTariff)
	if tariff == "" {
		return fmt.Errorf("--tariff is required")
	}
	sheet, err := sheetFromFlags(tariff, compareUsage, compareRate)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	cards, err := a.rates.Lookup(cmd.Context(), tariff)
	if err != nil {
		return err
	}
	retailers := a.registry.List()
	keys := make([]compare.Retailer, len(retailers))
	for i, d := range retailers {
		keys[i] = d.Retailer()
	}
	res := compare.Comparison{Cards: cards}.Evaluate(sheet, keys)

	if compareJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(compareOutput{Result: res, Cards: cards})
	}
	return printComparison(cmd.OutOrStdout(), retailers, cards, res)
}

func sheetFromFlags(tariff string, usage, rate map[string]string) (*compare.Sheet, error) {
	sheet := compare.NewSheet(tariff)
	inputs := map[compare.Field]compare.RowInput{}
	for label, v := range usage {
		f, ok := compare.MatchStandardField(label)
		if !ok {
			return nil, fmt.Errorf("unknown charge line %q", label)
		}
		in := inputs[f]
		in.Usage = compare.ParseNumber(v)
		inputs[f] = in
	}
	for label, v := range rate {
		f, ok := compare.MatchStandardField(label)
		if !ok {
			return nil, fmt.Errorf("unknown charge line %q", label)
		}
		in := inputs[f]
		in.Rate = compare.ParseNumber(v)
		inputs[f] = in
	}
	for f, in := range inputs {
		sheet.Set(f, in)
	}
	return sheet, nil
}

func printComparison(out io.Writer, retailers []rates.RetailerDescriptor, cards compare.RateCards, res compare.Result) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "TARIFF %s\n\n", res.Tariff)
	fmt.Fprint(tw, "RATE (c)")
	for _, d := range retailers {
		fmt.Fprintf(tw, "\t%s", d.Name)
	}
	fmt.Fprintln(tw)
	for _, f := range compare.StandardFields {
		fmt.Fprint(tw, f)
		for _, d := range retailers {
			fmt.Fprintf(tw, "\t%s", cardCell(cards[d.Retailer()], f))
		}
		fmt.Fprintln(tw)
	}
	fmt.Fprint(tw, "Discount %")
	for _, d := range retailers {
		if p, ok := cards[d.Retailer()].DiscountPercent(); ok {
			fmt.Fprintf(tw, "\t%s", strconv.FormatFloat(p, 'f', -1, 64))
		} else {
			fmt.Fprint(tw, "\t-")
		}
	}
	fmt.Fprint(tw, "\n\n")

	fmt.Fprint(tw, "COST ($)\tManual")
	for _, d := range retailers {
		fmt.Fprintf(tw, "\t%s", d.Name)
	}
	fmt.Fprintln(tw)
	for _, row := range res.Rows {
		fmt.Fprint(tw, row.Field)
		for _, c := range row.Cells {
			fmt.Fprintf(tw, "\t%s", c.Display)
		}
		fmt.Fprintln(tw)
	}
	fmt.Fprint(tw, "Total")
	for _, t := range res.Totals {
		fmt.Fprintf(tw, "\t%s", t.Display)
	}
	fmt.Fprintln(tw)
	return tw.Flush()
}

func cardCell(card *compare.RateCard, f compare.Field) string {
	if card == nil {
		return "n/a"
	}
	r := card.Rate(f)
	if r == 0 {
		return compare.Placeholder
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}
