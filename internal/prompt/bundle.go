package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ignite/adreport-ingest/internal/datanorm"
	"github.com/ignite/adreport-ingest/internal/ledger"
	"github.com/ignite/adreport-ingest/internal/report"
)

// Revenue-like columns, exact spellings first.
var (
	revenueSpellings = []string{
		"conv. value", "conversion value", "all conv. value", "purchases conversion value",
		"website purchases conversion value", "sales", "revenue", "7 day total sales",
		"14 day total sales", "ordered product sales", "total sales", "net sales",
	}
	revenueFragments = []string{"conv. value", "conversion value", "sales", "revenue"}
	spendFragments   = []string{"spend", "cost"}
)

func writeBundle(b *strings.Builder, k ledger.Key, bundle report.Bundle, opts Options) {
	label := bundle.Label
	if label == "" {
		label = k.ReportType
	}
	fmt.Fprintf(b, "## %s / %s: %s (%d rows)\n", k.Platform, k.ReportType, label, len(bundle.Records))
	if r := bundle.Meta.DateRange; r != nil {
		fmt.Fprintf(b, "Dates: %s to %s\n", r.Start, r.End)
	}
	if bundle.Meta.TotalSpend != nil {
		fmt.Fprintf(b, "Total spend: %.2f\n", *bundle.Meta.TotalSpend)
	}
	writeLine(b, bundle.Headers, nil)

	if len(bundle.Records) <= opts.IncludeAllThreshold {
		for _, rec := range bundle.Records {
			writeLine(b, bundle.Headers, rec)
		}
		b.WriteString("\n")
		return
	}

	spendCol := bundle.Meta.SpendColumn
	if spendCol == "" {
		if i := datanorm.FindColumnContaining(bundle.Headers, spendFragments...); i >= 0 {
			spendCol = bundle.Headers[i]
		}
	}

	order := make([]int, len(bundle.Records))
	for i := range order {
		order[i] = i
	}
	if spendCol != "" {
		sort.SliceStable(order, func(i, j int) bool {
			return recordSpend(bundle.Records[order[i]], spendCol) > recordSpend(bundle.Records[order[j]], spendCol)
		})
	}
	rank := make([]int, len(order))
	for pos, idx := range order {
		rank[idx] = pos
	}

	top := opts.MaxRowsPerReport
	if top > len(order) {
		top = len(order)
	}
	fmt.Fprintf(b, "Top %d by %s:\n", top, orDefault(spendCol, "file order"))
	for _, idx := range order[:top] {
		writeLine(b, bundle.Headers, bundle.Records[idx])
	}

	shown := top
	// Waste is picked from every row, so rows in the top block can repeat.
	if waste := wasteRows(bundle, order, spendCol, opts.MaxWasteRows); len(waste) > 0 {
		fmt.Fprintf(b, "Spend over %.0f with zero revenue:\n", wasteSpendFloor)
		for _, idx := range waste {
			writeLine(b, bundle.Headers, bundle.Records[idx])
			if rank[idx] >= top {
				shown++
			}
		}
	}
	if omitted := len(bundle.Records) - shown; omitted > 0 {
		fmt.Fprintf(b, "(%d more rows omitted)\n", omitted)
	}
	b.WriteString("\n")
}

// wasteRows picks rows, in spend order, whose spend is above the floor and
// whose revenue-like cell is present and exactly zero.
func wasteRows(bundle report.Bundle, candidates []int, spendCol string, limit int) []int {
	if spendCol == "" {
		return nil
	}
	revenueCol := revenueColumn(bundle.Headers, spendCol)
	if revenueCol == "" {
		return nil
	}
	var out []int
	for _, idx := range candidates {
		if len(out) == limit {
			break
		}
		rec := bundle.Records[idx]
		if recordSpend(rec, spendCol) <= wasteSpendFloor {
			continue
		}
		v := rec[revenueCol]
		if datanorm.IsBlank(v) || datanorm.ToNumber(v) != 0 {
			continue
		}
		out = append(out, idx)
	}
	return out
}

func revenueColumn(headers []string, spendCol string) string {
	idx := datanorm.FindColumn(headers, revenueSpellings...)
	if idx < 0 {
		idx = datanorm.FindColumnContaining(headers, revenueFragments...)
	}
	if idx < 0 || headers[idx] == spendCol {
		return ""
	}
	return headers[idx]
}

func recordSpend(rec report.Record, col string) float64 {
	return datanorm.ToNumber(rec[col])
}

// writeLine writes the headers when rec is nil, otherwise the row.
func writeLine(b *strings.Builder, headers []string, rec report.Record) {
	parts := make([]string, len(headers))
	for i, h := range headers {
		if rec == nil {
			parts[i] = clean(h)
		} else {
			parts[i] = cellText(rec[h])
		}
	}
	b.WriteString(strings.Join(parts, " | "))
	b.WriteString("\n")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
