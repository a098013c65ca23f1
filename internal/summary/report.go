package summary

import (
	"fmt"
	"strings"

	"repsim/internal/display"
	"repsim/internal/format"
)

// FormatReport produces the human-readable summary report.
func FormatReport(run string, ref Reference, dists []Distribution, dropped int, mode format.Mode) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("=== Representation Summary: %s ===\n", run))
	b.WriteString(fmt.Sprintf("Focal group:       %s\n", ref.FocalGroup))
	b.WriteString(fmt.Sprintf("Population share:  %s\n", format.FmtShare(ref.IProp)))
	b.WriteString(fmt.Sprintf("Turnout-adjusted:  %s\n", format.FmtShare(ref.IPropTurnout)))
	b.WriteString(fmt.Sprintf("Combined support:  %s\n", format.FmtShare(ref.CombinedSupport)))
	if dropped > 0 {
		b.WriteString(fmt.Sprintf("Dropped rows:      %d (unresolved identity or settings)\n", dropped))
	}
	b.WriteString("\n")

	if len(dists) == 0 {
		b.WriteString("(no plan-level results)\n")
		return b.String()
	}

	tb := format.NewTable(mode)
	tb.Title("Focal seats per plan")
	tb.Header("Configuration", "Voter model", "Plans", "Mean", "Std", "Min", "Median", "Max", "Mean share", "Ref seats")
	tb.Columns(
		format.ColumnConfig{Number: 3, Align: format.AlignRight},
		format.ColumnConfig{Number: 4, Align: format.AlignRight},
		format.ColumnConfig{Number: 5, Align: format.AlignRight},
		format.ColumnConfig{Number: 9, Align: format.AlignRight},
	)
	for _, d := range dists {
		refSeats := ref.CombinedSupport * float64(d.TotalSeats)
		tb.Row(
			fmt.Sprintf("%dx%d", d.NumDistricts, d.Winners),
			display.VoterModel(d.VoterModel),
			d.Count,
			format.FmtFloat(d.Mean),
			format.FmtFloat(d.StdDev),
			format.FmtFloat(d.Min),
			format.FmtFloat(d.Median),
			format.FmtFloat(d.Max),
			format.FmtShare(d.MeanShare()),
			format.FmtFloat(refSeats),
		)
	}
	b.WriteString(tb.String())
	b.WriteString("\n")
	return b.String()
}
