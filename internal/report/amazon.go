package report

import "github.com/ignite/adreport-ingest/internal/datanorm"

const (
	fieldRevenue        = "revenue"
	fieldOrders         = "orders"
	fieldROAS           = "roas"
	fieldACOS           = "acos"
	fieldCTR            = "ctr"
	fieldCPC            = "cpc"
	fieldConversionRate = "conversion_rate"
	fieldTotalACOS      = "total_acos"
	fieldTotalUnits     = "total_units"
	fieldTotalRevenue   = "total_revenue"
)

var amazonColumns = []datanorm.FieldAlias{
	{Field: fieldDate, Aliases: []string{"Date", "Day"}},
	{Field: fieldTotalACOS, Aliases: []string{"Total ACOS", "TACOS", "TACoS"}},
	{Field: fieldTotalUnits, Aliases: []string{"Total Units", "Units"}},
	{Field: fieldTotalRevenue, Aliases: []string{"Total Sales", "Total Revenue"}},
	{Field: MetricSpend, Aliases: []string{"Ad Spend", "Spend"}},
	{Field: fieldRevenue, Aliases: []string{"Ad Sales", "Ad Revenue", "Sales"}},
	{Field: fieldOrders, Aliases: []string{"Orders", "Ad Orders"}},
	{Field: fieldConversionRate, Aliases: []string{"Conversion Rate", "CVR"}},
	{Field: MetricConversions, Aliases: []string{"Conversions"}},
	{Field: fieldROAS, Aliases: []string{"ROAS"}},
	{Field: fieldACOS, Aliases: []string{"ACOS", "ACoS"}},
	{Field: MetricImpressions, Aliases: []string{"Impressions"}},
	{Field: MetricClicks, Aliases: []string{"Clicks"}},
	{Field: fieldCTR, Aliases: []string{"CTR"}},
	{Field: fieldCPC, Aliases: []string{"CPC"}},
}

// amazonAggregator reads exports that already hold one row per day.
type amazonAggregator struct{}

func (amazonAggregator) Dual() bool { return false }

// Aggregate maps each row directly. A later row for the same date replaces
// the earlier one; nothing is summed.
func (amazonAggregator) Aggregate(headers []string, rows [][]datanorm.Cell) Daily {
	m := datanorm.MapColumns(headers, amazonColumns)
	out := Daily{
		Days: make(map[string]DayRecord),
		Meta: AggregateMeta{Rows: len(rows)},
	}

	num := func(row []datanorm.Cell, field string) float64 {
		return datanorm.ToNumber(m.Value(row, field))
	}

	for _, row := range rows {
		date, ok := datanorm.ToISODate(m.Value(row, fieldDate))
		if !ok {
			out.Meta.Skipped++
			continue
		}
		out.Days[date] = AmazonDay{
			Spend:          num(row, MetricSpend),
			Revenue:        num(row, fieldRevenue),
			Orders:         num(row, fieldOrders),
			Conversions:    num(row, MetricConversions),
			ROAS:           num(row, fieldROAS),
			ACOS:           num(row, fieldACOS),
			Impressions:    num(row, MetricImpressions),
			Clicks:         num(row, MetricClicks),
			CTR:            num(row, fieldCTR),
			CPC:            num(row, fieldCPC),
			ConversionRate: num(row, fieldConversionRate),
			TotalACOS:      num(row, fieldTotalACOS),
			TotalUnits:     num(row, fieldTotalUnits),
			TotalRevenue:   num(row, fieldTotalRevenue),
		}
	}
	out.Meta.Dates = sortedDates(out.Days)
	return out
}
