package report

import (
	"sort"
	"strings"
	"time"

	"github.com/ignite/adreport-ingest/internal/datanorm"
	"github.com/shopspring/decimal"
)

// Header spellings, lowercased, that identify the spend and date columns
// of any tier-2 report.
var (
	SpendSpellings = []string{"spend", "cost", "amount spent (usd)", "amount spent", "total cost", "spend (usd)"}
	DateSpellings  = []string{"date", "day", "reporting starts", "start date"}
)

// Tabulate converts rows into header-keyed records. Cells are passed
// through untouched; numeric cleanup only feeds the meta totals.
func Tabulate(headers []string, rows [][]datanorm.Cell, sig datanorm.Signature, uploadedAt time.Time) Bundle {
	keys := make([]string, len(headers))
	var columns []string
	seen := make(map[string]bool)
	for i, h := range headers {
		keys[i] = strings.TrimSpace(h)
		if keys[i] != "" && !seen[keys[i]] {
			seen[keys[i]] = true
			columns = append(columns, keys[i])
		}
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec := make(Record, len(columns))
		for i, key := range keys {
			if key == "" {
				continue
			}
			var v datanorm.Cell
			if i < len(row) {
				v = row[i]
			}
			rec[key] = v
		}
		records = append(records, rec)
	}

	b := Bundle{
		Platform:   sig.Platform,
		ReportType: sig.ID,
		Label:      sig.Label,
		Headers:    columns,
		Records:    records,
		Meta: BundleMeta{
			RowCount:    len(records),
			ColumnCount: len(columns),
			UploadedAt:  uploadedAt.UTC(),
		},
	}

	if idx := datanorm.FindColumn(headers, SpendSpellings...); idx >= 0 {
		total := decimal.Zero
		for _, row := range rows {
			if idx < len(row) {
				total = total.Add(decimal.NewFromFloat(datanorm.ToNumber(row[idx])))
			}
		}
		f, _ := total.Float64()
		b.Meta.SpendColumn = keys[idx]
		b.Meta.TotalSpend = &f
	}

	if idx := datanorm.FindColumn(headers, DateSpellings...); idx >= 0 {
		set := make(map[string]bool)
		for _, row := range rows {
			if idx >= len(row) {
				continue
			}
			if d, ok := datanorm.ToISODate(row[idx]); ok {
				set[d] = true
			}
		}
		dates := make([]string, 0, len(set))
		for d := range set {
			dates = append(dates, d)
		}
		sort.Strings(dates)
		b.Meta.DateColumn = keys[idx]
		b.Meta.Dates = dates
		if len(dates) > 0 {
			b.Meta.DateRange = &DateRange{Start: dates[0], End: dates[len(dates)-1]}
		}
	}
	return b
}

// DetailSignature derives the tier-2 signature used for the line-item
// view of a tier-1 upload.
func DetailSignature(sig datanorm.Signature) datanorm.Signature {
	d := sig
	d.Tier = datanorm.TierDetail
	d.ID = sig.ID + "_detail"
	d.Label = sig.Label + " (detail)"
	return d
}
