package report

import (
	"sort"

	"github.com/ignite/adreport-ingest/internal/datanorm"
)

const fieldDate = "date"

// Aggregator folds a tier-1 sheet into one record per calendar day.
type Aggregator interface {
	Aggregate(headers []string, rows [][]datanorm.Cell) Daily
	// Dual reports whether the sheet is also kept as a tier-2 detail bundle.
	Dual() bool
}

var aggregators = map[datanorm.Platform]Aggregator{
	datanorm.PlatformAmazon: amazonAggregator{},
	datanorm.PlatformGoogle: lineItemAggregator{platform: datanorm.PlatformGoogle, columns: googleColumns},
	datanorm.PlatformMeta:   lineItemAggregator{platform: datanorm.PlatformMeta, columns: metaColumns},
}

// AggregatorFor returns the tier-1 aggregator for a platform.
func AggregatorFor(p datanorm.Platform) (Aggregator, bool) {
	a, ok := aggregators[p]
	return a, ok
}

// Fields resolved in order; more specific aliases come first so the
// contains pass does not hand "Conv. value" to conversions.
var googleColumns = []datanorm.FieldAlias{
	{Field: fieldDate, Aliases: []string{"Day", "Date"}},
	{Field: MetricSpend, Aliases: []string{"Cost", "Spend"}},
	{Field: MetricConversionValue, Aliases: []string{"Conv. value", "Conversion value", "All conv. value", "Total conv. value"}},
	{Field: MetricConversions, Aliases: []string{"Conversions", "All conv.", "Conv."}},
	{Field: MetricImpressions, Aliases: []string{"Impressions", "Impr."}},
	{Field: MetricClicks, Aliases: []string{"Clicks"}},
}

var metaColumns = []datanorm.FieldAlias{
	{Field: fieldDate, Aliases: []string{"Day", "Date", "Reporting starts"}},
	{Field: MetricSpend, Aliases: []string{"Amount spent (USD)", "Amount spent", "Spend"}},
	{Field: MetricConversionValue, Aliases: []string{"Purchases conversion value", "Website purchases conversion value", "Conversion value"}},
	{Field: MetricConversions, Aliases: []string{"Purchases", "Website purchases", "Results", "Conversions"}},
	{Field: MetricImpressions, Aliases: []string{"Impressions"}},
	{Field: MetricClicks, Aliases: []string{"Link clicks", "Clicks (all)", "Clicks"}},
}

// lineItemAggregator handles exports with one row per ad per day.
type lineItemAggregator struct {
	platform datanorm.Platform
	columns  []datanorm.FieldAlias
}

type dayTotals struct {
	spend       float64
	value       float64
	conversions float64
	impressions float64
	clicks      float64
}

func (a lineItemAggregator) Dual() bool { return true }

// Aggregate sums the raw metrics per date and derives rates from the sums.
// Rates are never computed per row.
func (a lineItemAggregator) Aggregate(headers []string, rows [][]datanorm.Cell) Daily {
	m := datanorm.MapColumns(headers, a.columns)
	out := Daily{
		Days: make(map[string]DayRecord),
		Meta: AggregateMeta{Rows: len(rows)},
	}

	totals := make(map[string]*dayTotals)
	for _, row := range rows {
		date, ok := datanorm.ToISODate(m.Value(row, fieldDate))
		if !ok {
			out.Meta.Skipped++
			continue
		}
		t, exists := totals[date]
		if !exists {
			t = &dayTotals{}
			totals[date] = t
		}
		t.spend += datanorm.ToNumber(m.Value(row, MetricSpend))
		t.value += datanorm.ToNumber(m.Value(row, MetricConversionValue))
		t.conversions += datanorm.ToNumber(m.Value(row, MetricConversions))
		t.impressions += datanorm.ToNumber(m.Value(row, MetricImpressions))
		t.clicks += datanorm.ToNumber(m.Value(row, MetricClicks))
	}

	hasSpend := m.Has(MetricSpend)
	hasValue := m.Has(MetricConversionValue)
	hasConv := m.Has(MetricConversions)
	hasImpr := m.Has(MetricImpressions)
	hasClicks := m.Has(MetricClicks)

	for date, t := range totals {
		metrics := make(map[string]float64)
		if hasSpend {
			metrics[MetricSpend] = t.spend
		}
		if hasValue {
			metrics[MetricConversionValue] = t.value
		}
		if hasConv {
			metrics[MetricConversions] = t.conversions
		}
		if hasImpr {
			metrics[MetricImpressions] = t.impressions
		}
		if hasClicks {
			metrics[MetricClicks] = t.clicks
		}
		if hasSpend && hasClicks {
			metrics[MetricCPC] = safeDiv(t.spend, t.clicks)
		}
		if hasClicks && hasImpr {
			metrics[MetricCTR] = safeDiv(t.clicks, t.impressions) * 100
		}
		if hasSpend && hasConv {
			metrics[MetricCPA] = safeDiv(t.spend, t.conversions)
		}
		if hasValue && hasSpend {
			metrics[MetricROAS] = safeDiv(t.value, t.spend)
		}
		out.Days[date] = AdsDay{Source: a.platform, Metrics: metrics}
	}
	out.Meta.Dates = sortedDates(out.Days)
	return out
}

func safeDiv(n, d float64) float64 {
	if d == 0 {
		return 0
	}
	return n / d
}

func sortedDates(days map[string]DayRecord) []string {
	dates := make([]string, 0, len(days))
	for d := range days {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}
